package roomsync

import (
	"errors"

	"github.com/rs/zerolog/log"

	"github.com/mcdev12/quizroom/internal/push"
	"github.com/mcdev12/quizroom/internal/room"
)

// handlePush routes one push event. Every event may arrive zero, one or
// many times, in any order relative to polls; each handler is idempotent.
func (e *Engine) handlePush(ev push.Event) {
	if ev.RoomID != "" && ev.RoomID != e.cfg.RoomID {
		log.Debug().
			Str("instance", e.instanceID).
			Str("room_id", ev.RoomID).
			Msg("push event for another room, ignoring")
		return
	}

	payload, err := push.ParsePayload(ev)
	if err != nil {
		log.Error().
			Err(err).
			Str("event", string(ev.Name)).
			Msg("failed to parse push payload")
		return
	}

	log.Debug().
		Str("instance", e.instanceID).
		Str("event", string(ev.Name)).
		Msg("handling push event")

	switch ev.Name {
	case push.EventPlayerJoined:
		p, ok := payload.(push.PlayerJoinedPayload)
		if !ok {
			return
		}
		e.handlePlayerJoined(p)
		e.sched.force()

	case push.EventPlayerLeft:
		p, ok := payload.(push.PlayerLeftPayload)
		if !ok {
			return
		}
		e.handlePlayerLeft(p)
		e.sched.force()

	case push.EventHostChanged:
		p, ok := payload.(push.HostChangedPayload)
		if !ok {
			return
		}
		e.mu.Lock()
		e.store.Merge(room.Patch{HostID: &p.NewHostID})
		e.mu.Unlock()
		e.sched.force()

	case push.EventGameStarted:
		p, ok := payload.(push.GameStartedPayload)
		if !ok {
			return
		}
		e.handleGameStarted(p)
		e.sched.force()

	case push.EventRoundStarted:
		p, ok := payload.(push.RoundStartedPayload)
		if !ok {
			return
		}
		e.handleRoundStarted(p)
		e.sched.force()

	case push.EventPlayerAnswered:
		p, ok := payload.(push.PlayerAnsweredPayload)
		if !ok {
			return
		}
		e.handlePlayerAnswered(p)

	case push.EventAllAnswered:
		p, ok := payload.(push.AllAnsweredPayload)
		if !ok {
			return
		}
		e.handleAllAnswered(p)

	case push.EventGameEnded:
		e.mu.Lock()
		if e.guard.Phase() != PhaseCompleted {
			e.completeLocked()
		}
		e.mu.Unlock()
		e.sched.force()

	case push.EventRoomClosed:
		e.mu.Lock()
		e.teardownLocked("room closed")
		e.mu.Unlock()

	case push.EventError:
		p, ok := payload.(push.ErrorPayload)
		if !ok {
			return
		}
		e.report(&TransientSyncError{Err: errors.New(p.Message)})

	default:
		log.Warn().
			Str("event", string(ev.Name)).
			Msg("unknown push event, ignoring")
	}
}

// Membership changes merge immediately regardless of the transition state:
// the roster must never lag behind a round animation. The read-modify-write
// of the roster runs under e.mu so it cannot interleave with a merge
// committed from an action's goroutine.
func (e *Engine) handlePlayerJoined(p push.PlayerJoinedPayload) {
	e.mu.Lock()
	defer e.mu.Unlock()

	r := e.store.Read()
	if r.HasPlayer(p.Player.User.ID) {
		return
	}
	players := append(r.Players, p.Player)
	e.store.Merge(room.Patch{Players: players})

	log.Info().
		Str("instance", e.instanceID).
		Str("user_id", p.Player.User.ID).
		Msg("player joined")
}

func (e *Engine) handlePlayerLeft(p push.PlayerLeftPayload) {
	e.mu.Lock()
	defer e.mu.Unlock()

	r := e.store.Read()
	if !r.HasPlayer(p.UserID) {
		return
	}
	players := make([]room.Player, 0, len(r.Players))
	for _, pl := range r.Players {
		if pl.User.ID != p.UserID {
			players = append(players, pl)
		}
	}
	e.store.Merge(room.Patch{Players: players})

	log.Info().
		Str("instance", e.instanceID).
		Str("user_id", p.UserID).
		Msg("player left")
}

func (e *Engine) handleGameStarted(p push.GameStartedPayload) {
	e.mu.Lock()
	defer e.mu.Unlock()

	switch e.guard.Phase() {
	case PhaseIdle, PhaseAwaitingStart:
		q := p.CurrentQuestion
		e.startGameLocked(1, &q)
	default:
		log.Debug().Str("instance", e.instanceID).Msg("duplicate game-started, ignoring")
	}
}

func (e *Engine) handleRoundStarted(p push.RoundStartedPayload) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.guard.Phase() == PhaseIdle {
		// Missed the start entirely; treat as a late start signal.
		q := p.CurrentQuestion
		e.startGameLocked(p.CurrentRound, &q)
		return
	}
	if p.CurrentRound <= e.liveRound {
		log.Debug().
			Str("instance", e.instanceID).
			Int("round", p.CurrentRound).
			Msg("duplicate round-started, ignoring")
		return
	}
	e.startRoundLocked(p.CurrentRound, p.CurrentQuestion)
}

func (e *Engine) handlePlayerAnswered(p push.PlayerAnsweredPayload) {
	e.mu.Lock()
	defer e.mu.Unlock()

	r := e.store.Read()
	questionID := p.QuestionID
	if questionID == "" && r.CurrentQuestion != nil {
		questionID = r.CurrentQuestion.ID
	}
	if questionID == "" {
		return
	}

	fact := room.Fact{
		UserID:     p.UserID,
		QuestionID: questionID,
		Round:      e.liveRound,
		Answer:     p.Answer,
		ElapsedSec: p.ElapsedSec,
	}
	if !e.ledger.Record(fact) {
		// Echo of a fact we already hold (often our own submission).
		return
	}

	log.Debug().
		Str("instance", e.instanceID).
		Str("user_id", p.UserID).
		Int("round", e.liveRound).
		Msg("answer recorded")

	e.maybeResultsLocked(r)
}

// handleAllAnswered adopts the server-computed summary unless a summary
// for this round already exists; the first summary wins and stays frozen
// until the round advances. The payload must describe the question the
// snapshot currently holds: at-least-once delivery means a finished
// round's summary can arrive again after the round advanced, and it must
// not freeze as the new round's results.
func (e *Engine) handleAllAnswered(p push.AllAnsweredPayload) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.results != nil {
		log.Debug().
			Str("instance", e.instanceID).
			Msg("round summary already frozen, discarding push summary")
		return
	}

	r := e.store.Read()
	if r.CurrentQuestion == nil || r.CurrentQuestion.ID != p.Question.ID {
		log.Debug().
			Str("instance", e.instanceID).
			Str("question_id", p.Question.ID).
			Msg("summary for a retired question, ignoring")
		return
	}

	e.results = &room.RoundResults{
		YesCount: p.YesCount,
		NoCount:  p.NoCount,
		Question: p.Question,
	}
	e.guard.BeginTransition()

	log.Info().
		Str("instance", e.instanceID).
		Int("round", e.liveRound).
		Int("yes", p.YesCount).
		Int("no", p.NoCount).
		Msg("round results adopted from push")
}
