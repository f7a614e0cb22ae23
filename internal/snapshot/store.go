// Package snapshot owns the single merged view of the room.
//
// Both sync channels describe the same room with different freshness, so
// the store never replaces the room wholesale. Merge performs a field-wise
// union: present scalars overwrite, the roster replaces but never lowers a
// known player's points, and answers fold through the ledger so a stale
// poll cannot erase a push-delivered fact (or vice versa).
package snapshot

import (
	"sync"

	"github.com/mcdev12/quizroom/internal/ledger"
	"github.com/mcdev12/quizroom/internal/room"
)

// Store is the one shared mutable cell in the engine. It is written only
// by the reconciliation engine; everyone else reads copies.
type Store struct {
	mu     sync.RWMutex
	room   room.Room
	ledger *ledger.Ledger
}

// New returns a store folding answer facts through l.
func New(l *ledger.Ledger) *Store {
	return &Store{ledger: l}
}

// Read returns a deep copy of the current room with the ledger's facts
// attached.
func (s *Store) Read() room.Room {
	s.mu.RLock()
	r := s.room.Clone()
	s.mu.RUnlock()

	r.Answers = s.ledger.Facts()
	return r
}

// Merge applies a partial update and returns the merged room. Omitted
// fields change nothing.
func (s *Store) Merge(p room.Patch) room.Room {
	s.mu.Lock()
	if p.Status != nil {
		s.room.Status = *p.Status
	}
	if p.Type != nil {
		s.room.Type = *p.Type
	}
	if p.HostID != nil {
		s.room.HostID = *p.HostID
	}
	if p.MaxPlayers != nil {
		s.room.MaxPlayers = *p.MaxPlayers
	}
	if p.MaxRounds != nil {
		s.room.MaxRounds = *p.MaxRounds
	}
	if p.CurrentRound != nil {
		s.room.CurrentRound = *p.CurrentRound
	}
	if p.Players != nil {
		s.room.Players = mergeRoster(s.room.Players, p.Players)
	}
	switch {
	case p.CurrentQuestion != nil:
		q := *p.CurrentQuestion
		s.room.CurrentQuestion = &q
	case p.ClearQuestion:
		s.room.CurrentQuestion = nil
	}
	merged := s.room.Clone()
	s.mu.Unlock()

	for _, f := range p.Answers {
		s.ledger.Record(f)
	}
	merged.Answers = s.ledger.Facts()
	return merged
}

// SetID pins the room identifier before the first fetch completes.
func (s *Store) SetID(id string) {
	s.mu.Lock()
	s.room.ID = id
	s.mu.Unlock()
}

// Reset clears the snapshot (room closed / not found). The ledger is reset
// by the engine as part of the same teardown.
func (s *Store) Reset() {
	s.mu.Lock()
	s.room = room.Room{}
	s.mu.Unlock()
}

// mergeRoster adopts the incoming roster order and membership but clamps
// each already-known player's points so a stale snapshot cannot make a
// score go backwards within a game.
func mergeRoster(old, incoming []room.Player) []room.Player {
	known := make(map[string]int, len(old))
	for _, p := range old {
		known[p.User.ID] = p.Points
	}

	out := make([]room.Player, len(incoming))
	for i, p := range incoming {
		if pts, ok := known[p.User.ID]; ok && pts > p.Points {
			p.Points = pts
		}
		out[i] = p
	}
	return out
}
