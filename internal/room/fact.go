package room

// FactKey uniquely identifies an answer. A second fact with the same key is
// a duplicate of the first, never a replacement.
type FactKey struct {
	UserID     string
	QuestionID string
	Round      int
}

// Fact is one player's immutable answer to one question in one round.
type Fact struct {
	UserID     string  `json:"user_id"`
	QuestionID string  `json:"question_id"`
	Round      int     `json:"round"`
	Answer     bool    `json:"answer"`
	ElapsedSec float64 `json:"elapsed_sec"`
}

// Key returns the dedup key for the fact.
func (f Fact) Key() FactKey {
	return FactKey{UserID: f.UserID, QuestionID: f.QuestionID, Round: f.Round}
}
