package scoring

import (
	"testing"
	"time"
)

func TestTierBoundaries(t *testing.T) {
	tests := []struct {
		name      string
		elapsed   time.Duration
		canAnswer bool
		bonus     int
		label     string
	}{
		{name: "just before lockout ends", elapsed: 2999 * time.Millisecond, canAnswer: false, bonus: 0, label: LabelLocked},
		{name: "lockout boundary", elapsed: 3 * time.Second, canAnswer: true, bonus: 3, label: LabelFast},
		{name: "fast upper bound inclusive", elapsed: 5 * time.Second, canAnswer: true, bonus: 3, label: LabelFast},
		{name: "just past fast window", elapsed: 5001 * time.Millisecond, canAnswer: true, bonus: 1, label: LabelSteady},
		{name: "steady upper bound inclusive", elapsed: 15 * time.Second, canAnswer: true, bonus: 1, label: LabelSteady},
		{name: "just past steady window", elapsed: 15001 * time.Millisecond, canAnswer: true, bonus: 0, label: LabelNone},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Tier(tt.elapsed, tt.canAnswer)
			if got.Bonus != tt.bonus {
				t.Fatalf("expected bonus %d, got %d", tt.bonus, got.Bonus)
			}
			if got.Label != tt.label {
				t.Fatalf("expected label %q, got %q", tt.label, got.Label)
			}
		})
	}
}

func TestTierLockedWhileAnsweringClosed(t *testing.T) {
	got := Tier(10*time.Second, false)
	if got.Label != LabelLocked || got.Bonus != 0 {
		t.Fatalf("expected locked award, got %+v", got)
	}
}

func TestTierIsPure(t *testing.T) {
	first := Tier(4*time.Second, true)
	for i := 0; i < 10; i++ {
		if got := Tier(4*time.Second, true); got != first {
			t.Fatalf("identical input produced different output: %+v vs %+v", first, got)
		}
	}
}
