package roomsync

import (
	"time"

	"github.com/mcdev12/quizroom/internal/room"
)

// PlayerStatus is a roster entry with the derived hasAnswered flag for
// the live round. Derived from the ledger on every read, never stored:
// within a round it can only go false to true.
type PlayerStatus struct {
	room.Player
	HasAnswered bool `json:"has_answered"`
}

// View is a read-only projection of the engine's state for presentation.
type View struct {
	Room      room.Room          `json:"room"`
	Phase     Phase              `json:"phase"`
	Round     int                `json:"round"`
	Roster    []PlayerStatus     `json:"roster"`
	Results   *room.RoundResults `json:"results,omitempty"`
	CanAnswer bool               `json:"can_answer"`
	IsHost    bool               `json:"is_host"`
	LastSync  time.Time          `json:"last_sync"`
}

// View returns a consistent copy of everything a renderer needs.
func (e *Engine) View() View {
	e.mu.Lock()
	defer e.mu.Unlock()

	r := e.store.Read()

	roster := make([]PlayerStatus, len(r.Players))
	for i, p := range r.Players {
		answered := false
		if r.CurrentQuestion != nil {
			answered = e.ledger.Has(room.FactKey{
				UserID:     p.User.ID,
				QuestionID: r.CurrentQuestion.ID,
				Round:      e.liveRound,
			})
		}
		roster[i] = PlayerStatus{Player: p, HasAnswered: answered}
	}

	var results *room.RoundResults
	if e.results != nil {
		res := *e.results
		results = &res
	}

	return View{
		Room:      r,
		Phase:     e.guard.Phase(),
		Round:     e.liveRound,
		Roster:    roster,
		Results:   results,
		CanAnswer: e.guard.CanAnswer(),
		IsHost:    r.IsHost(e.cfg.UserID),
		LastSync:  e.lastSync,
	}
}
