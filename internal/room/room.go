package room

// Status is the lifecycle phase of a room as reported by the server.
type Status string

const (
	StatusWaiting   Status = "waiting"
	StatusPlaying   Status = "playing"
	StatusCompleted Status = "completed"
)

// Kind controls whether a passcode is required to join.
type Kind string

const (
	KindPublic  Kind = "public"
	KindPrivate Kind = "private"
)

// User identifies a participant.
type User struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Player is a room member with their accumulated score.
type Player struct {
	User   User `json:"user"`
	Points int  `json:"points"`
}

// Question is the active yes/no prompt for a round.
type Question struct {
	ID     string `json:"id"`
	Prompt string `json:"prompt"`
}

// Room is the aggregate the server owns and the client mirrors.
// Players are ordered by join time and unique by user id.
type Room struct {
	ID              string    `json:"id"`
	Status          Status    `json:"status"`
	Type            Kind      `json:"type"`
	HostID          string    `json:"host_id"`
	Players         []Player  `json:"players"`
	MaxPlayers      int       `json:"max_players"`
	MaxRounds       int       `json:"max_rounds"`
	CurrentRound    int       `json:"current_round"`
	CurrentQuestion *Question `json:"current_question,omitempty"`
	Answers         []Fact    `json:"answers,omitempty"`
}

// RoundResults is the derived yes/no split for a finished round.
// It is computed at most once per round and frozen until the round advances.
type RoundResults struct {
	YesCount int      `json:"yes_count"`
	NoCount  int      `json:"no_count"`
	Question Question `json:"question"`
}

// IsHost reports whether userID currently hosts the room. Recomputed from
// the snapshot on every call; never cached in a flag.
func (r Room) IsHost(userID string) bool {
	return r.HostID != "" && r.HostID == userID
}

// HasPlayer reports whether userID is in the roster.
func (r Room) HasPlayer(userID string) bool {
	_, ok := r.PlayerByID(userID)
	return ok
}

// PlayerByID looks up a roster entry by user id.
func (r Room) PlayerByID(userID string) (Player, bool) {
	for _, p := range r.Players {
		if p.User.ID == userID {
			return p, true
		}
	}
	return Player{}, false
}

// Full reports whether the roster is at capacity.
func (r Room) Full() bool {
	return r.MaxPlayers > 0 && len(r.Players) >= r.MaxPlayers
}

// Clone returns a deep copy safe to hand across goroutines.
func (r Room) Clone() Room {
	out := r
	if r.Players != nil {
		out.Players = make([]Player, len(r.Players))
		copy(out.Players, r.Players)
	}
	if r.CurrentQuestion != nil {
		q := *r.CurrentQuestion
		out.CurrentQuestion = &q
	}
	if r.Answers != nil {
		out.Answers = make([]Fact, len(r.Answers))
		copy(out.Answers, r.Answers)
	}
	return out
}
