package ledger

import (
	"testing"

	"github.com/mcdev12/quizroom/internal/room"
)

func fact(userID string, round int, answer bool) room.Fact {
	return room.Fact{
		UserID:     userID,
		QuestionID: "q1",
		Round:      round,
		Answer:     answer,
		ElapsedSec: 4.2,
	}
}

func TestRecordIdempotent(t *testing.T) {
	l := New()

	if !l.Record(fact("alice", 1, true)) {
		t.Fatal("first record should be accepted")
	}
	if l.Record(fact("alice", 1, true)) {
		t.Fatal("duplicate record should be rejected")
	}
	if got := l.CountFor("q1", 1); got != 1 {
		t.Fatalf("expected count 1, got %d", got)
	}
	if got := l.YesCountFor("q1", 1); got != 1 {
		t.Fatalf("expected yes count 1, got %d", got)
	}
}

func TestFirstWriterWins(t *testing.T) {
	l := New()

	l.Record(fact("alice", 1, true))
	// Same key, contradictory value: discarded, not overwritten.
	l.Record(fact("alice", 1, false))

	if got := l.YesCountFor("q1", 1); got != 1 {
		t.Fatalf("expected first answer to survive, yes count %d", got)
	}
}

func TestCountsScopedByRound(t *testing.T) {
	l := New()

	l.Record(fact("alice", 1, true))
	l.Record(fact("bob", 1, false))
	l.Record(fact("alice", 2, true))

	if got := l.CountFor("q1", 1); got != 2 {
		t.Fatalf("expected round 1 count 2, got %d", got)
	}
	if got := l.CountFor("q1", 2); got != 1 {
		t.Fatalf("expected round 2 count 1, got %d", got)
	}
}

func TestPruneBelow(t *testing.T) {
	l := New()

	l.Record(fact("alice", 1, true))
	l.Record(fact("bob", 1, false))
	l.Record(fact("alice", 2, true))
	l.Record(fact("alice", 3, true))

	l.PruneBelow(2)

	if got := l.CountFor("q1", 1); got != 0 {
		t.Fatalf("expected round 1 pruned, got count %d", got)
	}
	if got := l.CountFor("q1", 2); got != 1 {
		t.Fatalf("expected round 2 kept, got count %d", got)
	}
	if got := l.CountFor("q1", 3); got != 1 {
		t.Fatalf("expected round 3 kept, got count %d", got)
	}
}

func TestRemoveRollsBackOptimisticInsert(t *testing.T) {
	l := New()

	f := fact("alice", 1, true)
	l.Record(f)
	l.Remove(f.Key())

	if l.Has(f.Key()) {
		t.Fatal("expected fact removed")
	}
	if got := l.CountFor("q1", 1); got != 0 {
		t.Fatalf("expected count 0 after rollback, got %d", got)
	}
}

func TestReset(t *testing.T) {
	l := New()
	l.Record(fact("alice", 1, true))
	l.Reset()

	if l.Len() != 0 {
		t.Fatalf("expected empty ledger, got %d facts", l.Len())
	}
}
