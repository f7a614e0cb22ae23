// Package ledger holds the deduplicated set of answer facts for a room.
//
// The same fact routinely arrives twice: once echoed by the push channel
// and once inside a poll response. The keyed set makes recording idempotent
// so neither source can double count.
package ledger

import (
	"sync"

	"github.com/mcdev12/quizroom/internal/room"
)

// Ledger is an append-only, first-writer-wins set of answer facts keyed by
// (user, question, round).
type Ledger struct {
	mu    sync.Mutex
	facts map[room.FactKey]room.Fact
}

// New returns an empty ledger.
func New() *Ledger {
	return &Ledger{facts: make(map[room.FactKey]room.Fact)}
}

// Record stores the fact unless one with the same key already exists.
// Returns false for duplicates; the original fact is kept untouched.
func (l *Ledger) Record(f room.Fact) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	key := f.Key()
	if _, exists := l.facts[key]; exists {
		return false
	}
	l.facts[key] = f
	return true
}

// Remove deletes a fact. Only used to roll back an optimistic local insert
// whose submit request failed; facts from the server are never removed here.
func (l *Ledger) Remove(key room.FactKey) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.facts, key)
}

// Has reports whether a fact with the key exists.
func (l *Ledger) Has(key room.FactKey) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.facts[key]
	return ok
}

// CountFor returns how many players have answered the question in the round.
func (l *Ledger) CountFor(questionID string, round int) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	n := 0
	for key := range l.facts {
		if key.QuestionID == questionID && key.Round == round {
			n++
		}
	}
	return n
}

// YesCountFor returns how many of those answers were "yes".
func (l *Ledger) YesCountFor(questionID string, round int) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	n := 0
	for key, f := range l.facts {
		if key.QuestionID == questionID && key.Round == round && f.Answer {
			n++
		}
	}
	return n
}

// Facts returns a copy of every stored fact, in no particular order.
func (l *Ledger) Facts() []room.Fact {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]room.Fact, 0, len(l.facts))
	for _, f := range l.facts {
		out = append(out, f)
	}
	return out
}

// PruneBelow drops facts for rounds earlier than round. Called when the
// room advances so retired rounds cannot leak into live counts; the caller
// keeps the previous round in the window for historical display.
func (l *Ledger) PruneBelow(round int) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for key := range l.facts {
		if key.Round < round {
			delete(l.facts, key)
		}
	}
}

// Reset empties the ledger. Used on game start and room teardown.
func (l *Ledger) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.facts = make(map[room.FactKey]room.Fact)
}

// Len returns the number of stored facts.
func (l *Ledger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.facts)
}
