package roomsync

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/mcdev12/quizroom/internal/room"
	"github.com/mcdev12/quizroom/internal/scoring"
)

// User actions run in the caller's goroutine: the transport round trip
// suspends only the initiator while the engine keeps processing stimuli.
// Authorization is pre-checked locally against the current snapshot; the
// server performs the same checks and stays authoritative.

// Join adds this session's user to the room. For a private room a missing
// passcode is rejected locally without issuing the join request.
func (e *Engine) Join(ctx context.Context, passcode string) error {
	e.mu.Lock()
	loaded := e.loaded
	e.mu.Unlock()

	r := e.store.Read()
	if !loaded {
		fetched, err := e.api.FetchRoom(ctx, e.cfg.RoomID)
		if err != nil {
			return &ActionError{Op: "join room", Err: err}
		}
		e.mu.Lock()
		e.loaded = true
		e.lastSync = e.clock.Now()
		e.absorbLocked(room.PatchFrom(*fetched))
		e.mu.Unlock()
		r = *fetched
	}

	if r.Type == room.KindPrivate && passcode == "" {
		return &ActionError{Op: "join room", Err: ErrPasscodeRequired}
	}

	joined, err := e.api.JoinRoom(ctx, e.cfg.RoomID, e.cfg.UserID, passcode)
	if err != nil {
		return &ActionError{Op: "join room", Err: err}
	}

	e.mu.Lock()
	e.loaded = true
	e.lastSync = e.clock.Now()
	e.absorbLocked(room.PatchFrom(*joined))
	e.mu.Unlock()

	log.Info().
		Str("instance", e.instanceID).
		Str("room_id", e.cfg.RoomID).
		Str("user_id", e.cfg.UserID).
		Msg("joined room")
	return nil
}

// Leave removes the user from the room and tears down local state. The
// caller is expected to cancel the engine context afterwards so no timer
// or scheduled poll outlives the session.
func (e *Engine) Leave(ctx context.Context) error {
	err := e.api.LeaveRoom(ctx, e.cfg.RoomID, e.cfg.UserID)

	e.mu.Lock()
	e.teardownLocked("left room")
	e.mu.Unlock()

	if err != nil {
		return &ActionError{Op: "leave room", Err: err}
	}
	return nil
}

// StartGame asks the server to begin the game. Host only; rejected
// locally for everyone else before any request is made.
func (e *Engine) StartGame(ctx context.Context) error {
	r := e.store.Read()
	if r.ID == "" {
		return &ActionError{Op: "start game", Err: ErrNoRoom}
	}
	if !r.IsHost(e.cfg.UserID) {
		return &ActionError{Op: "start game", Err: ErrNotHost}
	}

	res, err := e.api.StartGame(ctx, e.cfg.RoomID, e.cfg.UserID)
	if err != nil {
		return &ActionError{Op: "start game", Err: err}
	}

	e.mu.Lock()
	switch e.guard.Phase() {
	case PhaseIdle, PhaseAwaitingStart:
		q := res.CurrentQuestion
		e.startGameLocked(1, &q)
	default:
		// A push or poll beat the response here; nothing to do.
	}
	e.mu.Unlock()
	return nil
}

// SubmitAnswer records the user's answer. The local fact is inserted
// optimistically so hasAnswered flips immediately, and rolled back if the
// request fails. The returned award classifies the elapsed time measured
// from the question reveal.
func (e *Engine) SubmitAnswer(ctx context.Context, answer bool) (scoring.Award, error) {
	e.mu.Lock()
	r := e.store.Read()
	if r.Status != room.StatusPlaying || r.CurrentQuestion == nil || !e.guard.CanAnswer() {
		e.mu.Unlock()
		return scoring.Award{}, &ActionError{Op: "submit answer", Err: ErrNotAnswering}
	}

	key := room.FactKey{
		UserID:     e.cfg.UserID,
		QuestionID: r.CurrentQuestion.ID,
		Round:      e.liveRound,
	}
	if e.ledger.Has(key) {
		e.mu.Unlock()
		return scoring.Award{}, &ActionError{Op: "submit answer", Err: ErrAlreadyAnswered}
	}

	elapsed := e.clock.Now().Sub(e.guard.RevealedAt())
	award := scoring.Tier(elapsed, true)

	// Optimistic insert; the push echo of this submission dedups against it.
	e.ledger.Record(room.Fact{
		UserID:     key.UserID,
		QuestionID: key.QuestionID,
		Round:      key.Round,
		Answer:     answer,
		ElapsedSec: elapsed.Seconds(),
	})
	round := e.liveRound
	e.mu.Unlock()

	if err := e.api.SubmitAnswer(ctx, e.cfg.RoomID, e.cfg.UserID, answer, elapsed); err != nil {
		e.ledger.Remove(key)
		return scoring.Award{}, &ActionError{Op: "submit answer", Err: err}
	}

	e.mu.Lock()
	if round == e.liveRound {
		e.maybeResultsLocked(e.store.Read())
	}
	e.mu.Unlock()

	log.Info().
		Str("instance", e.instanceID).
		Bool("answer", answer).
		Int("bonus", award.Bonus).
		Str("tier", award.Label).
		Msg("answer submitted")
	return award, nil
}

// AdvanceRound asks the server for the next round. Host only.
func (e *Engine) AdvanceRound(ctx context.Context) error {
	r := e.store.Read()
	if r.ID == "" {
		return &ActionError{Op: "advance round", Err: ErrNoRoom}
	}
	if !r.IsHost(e.cfg.UserID) {
		return &ActionError{Op: "advance round", Err: ErrNotHost}
	}

	res, err := e.api.AdvanceRound(ctx, e.cfg.RoomID, e.cfg.UserID)
	if err != nil {
		return &ActionError{Op: "advance round", Err: err}
	}

	e.mu.Lock()
	e.guard.BeginTransition()

	switch {
	case res.Status == room.StatusCompleted || (r.MaxRounds > 0 && res.CurrentRound > r.MaxRounds):
		e.completeLocked()
	case res.CurrentQuestion != nil && res.CurrentRound > e.liveRound:
		e.startRoundLocked(res.CurrentRound, *res.CurrentQuestion)
	default:
		// A round-started push already advanced us; nothing to do.
	}
	e.mu.Unlock()
	return nil
}
