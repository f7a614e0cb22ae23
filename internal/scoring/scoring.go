// Package scoring maps time-to-answer onto bonus tiers.
//
// The server is authoritative for points; this calculator only classifies
// the elapsed time for local feedback (live countdown styling and the
// toast shown at submission). It must be pure so both uses agree.
package scoring

import "time"

const (
	// ReadingWindow is the lockout after a question is revealed during
	// which answering is disallowed.
	ReadingWindow = 3 * time.Second

	// FastWindow is the upper bound (inclusive) of the top bonus tier.
	FastWindow = 5 * time.Second

	// SteadyWindow is the upper bound (inclusive) of the middle tier.
	SteadyWindow = 15 * time.Second

	FastBonus   = 3
	SteadyBonus = 1
)

// Award is the outcome of classifying one answer time.
type Award struct {
	Bonus int    `json:"bonus"`
	Label string `json:"label"`
}

const (
	LabelLocked = "locked"
	LabelFast   = "fast"
	LabelSteady = "steady"
	LabelNone   = "none"
)

// Tier classifies elapsed time measured from the moment the question became
// visible, not from when answering became legal. canAnswer is false while
// the reading lockout is active.
func Tier(elapsed time.Duration, canAnswer bool) Award {
	switch {
	case !canAnswer || elapsed < ReadingWindow:
		return Award{Bonus: 0, Label: LabelLocked}
	case elapsed <= FastWindow:
		return Award{Bonus: FastBonus, Label: LabelFast}
	case elapsed <= SteadyWindow:
		return Award{Bonus: SteadyBonus, Label: LabelSteady}
	default:
		return Award{Bonus: 0, Label: LabelNone}
	}
}
