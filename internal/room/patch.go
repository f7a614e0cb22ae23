package room

// Patch is a partial room update. A nil field means "no information", not a
// deletion; merge never narrows the roster or the answer set silently. The
// only explicit removal is ClearQuestion, which distinguishes "the question
// ended" from "the sender said nothing about the question".
type Patch struct {
	Status          *Status
	Type            *Kind
	HostID          *string
	Players         []Player
	MaxPlayers      *int
	MaxRounds       *int
	CurrentRound    *int
	CurrentQuestion *Question
	ClearQuestion   bool
	Answers         []Fact
}

// PatchFrom converts a full authoritative room representation (a poll or
// join response) into a patch. Absence of a question in a full snapshot is
// authoritative, so ClearQuestion is set when the server reports none.
func PatchFrom(r Room) Patch {
	p := Patch{
		Status:     &r.Status,
		Type:       &r.Type,
		HostID:     &r.HostID,
		Players:    r.Players,
		MaxPlayers: &r.MaxPlayers,
		MaxRounds:  &r.MaxRounds,
		Answers:    r.Answers,
	}
	if r.Status == StatusPlaying {
		p.CurrentRound = &r.CurrentRound
	}
	if r.CurrentQuestion != nil {
		q := *r.CurrentQuestion
		p.CurrentQuestion = &q
	} else {
		p.ClearQuestion = true
	}
	return p
}

// WithoutRoundFields strips the round, question and answer fields from a
// copy of the patch. Used when replaying a deferred poll after a round
// transition already installed fresher values.
func (p Patch) WithoutRoundFields() Patch {
	out := p
	out.CurrentRound = nil
	out.CurrentQuestion = nil
	out.ClearQuestion = false
	out.Answers = nil
	return out
}
