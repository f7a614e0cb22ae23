// Package roomsync keeps one client's view of a shared game room correct
// while two asynchronous channels (a push feed and a polling fallback)
// report overlapping, unordered, sometimes duplicate facts about it.
//
// The engine owns the snapshot store. Every stimulus (push event, poll
// completion, timer deadline) is normalized into a merge and serialized
// through one event loop; user actions run in their caller's goroutine
// but commit through the same locks, so no two merges ever race.
package roomsync

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/quizroom/internal/ledger"
	"github.com/mcdev12/quizroom/internal/push"
	"github.com/mcdev12/quizroom/internal/room"
	"github.com/mcdev12/quizroom/internal/snapshot"
	"github.com/mcdev12/quizroom/internal/transport"
)

// Config identifies the session the engine synchronizes.
type Config struct {
	RoomID    string
	UserID    string
	UserName  string
	Scheduler SchedulerConfig

	// StimulusBuffer bounds the event queue. Zero means the default.
	StimulusBuffer int
}

const defaultStimulusBuffer = 256

// deadline poll fallback when no internal timer is armed
const idleDeadline = time.Hour

// Engine is the reconciliation engine: the only writer of the snapshot
// store, fed by the push feed, the polling scheduler and user actions.
type Engine struct {
	cfg        Config
	api        transport.API
	clock      clockwork.Clock
	reporter   Reporter
	instanceID string

	ledger *ledger.Ledger
	store  *snapshot.Store
	sched  *pollScheduler

	stimuli chan stimulus

	// mu guards the guard, round bookkeeping and flags below. Lock order
	// is mu before the store's and ledger's internal locks.
	mu        sync.Mutex
	guard     *Guard
	results   *room.RoundResults
	liveRound int
	loaded    bool
	inFlight  bool
	lastSync  time.Time
}

type stimulus interface{ stimulus() }

type pushStimulus struct{ ev push.Event }
type pollRequest struct{ forced bool }
type pollResult struct {
	fetched *room.Room
	err     error
}

func (pushStimulus) stimulus() {}
func (pollRequest) stimulus()  {}
func (pollResult) stimulus()   {}

// New creates an engine for one room session. A nil reporter logs sync
// failures; a nil clock uses the wall clock.
func New(cfg Config, api transport.API, reporter Reporter, clock clockwork.Clock) *Engine {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if reporter == nil {
		reporter = ReporterFunc(func(err error) {
			log.Warn().Err(err).Msg("sync error")
		})
	}
	if cfg.StimulusBuffer <= 0 {
		cfg.StimulusBuffer = defaultStimulusBuffer
	}
	if cfg.Scheduler == (SchedulerConfig{}) {
		cfg.Scheduler = DefaultSchedulerConfig()
	}

	l := ledger.New()
	e := &Engine{
		cfg:        cfg,
		api:        api,
		clock:      clock,
		reporter:   reporter,
		instanceID: uuid.New().String()[:8],
		ledger:     l,
		store:      snapshot.New(l),
		stimuli:    make(chan stimulus, cfg.StimulusBuffer),
		guard:      NewGuard(clock),
	}
	e.store.SetID(cfg.RoomID)
	e.sched = newPollScheduler(cfg.Scheduler, clock, e.pollHint, func(forced bool) {
		e.enqueue(pollRequest{forced: forced})
	})
	return e
}

// Run processes stimuli until ctx is cancelled. It issues the forced
// room-entry fetch, starts the polling scheduler, and drives the reading
// and settle deadlines off one reusable timer.
func (e *Engine) Run(ctx context.Context) error {
	log.Info().
		Str("instance", e.instanceID).
		Str("room_id", e.cfg.RoomID).
		Msg("room sync engine started")

	go e.sched.run(ctx)

	// Unconditional fetch at room entry.
	e.startPoll(ctx, true)

	timer := e.clock.NewTimer(e.untilNextDeadline())
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Str("instance", e.instanceID).Msg("room sync engine stopped")
			return nil

		case st := <-e.stimuli:
			e.dispatch(ctx, st)

		case <-timer.Chan():
			e.onDeadline()
		}

		timer.Reset(e.untilNextDeadline())
	}
}

// HandlePush is the push.Handler entry point. Safe to call from any feed
// goroutine; the event is queued for the engine loop.
func (e *Engine) HandlePush(ev push.Event) {
	e.enqueue(pushStimulus{ev: ev})
}

func (e *Engine) enqueue(st stimulus) {
	select {
	case e.stimuli <- st:
	default:
		log.Warn().Str("instance", e.instanceID).Msg("stimulus queue full, dropping")
	}
}

func (e *Engine) dispatch(ctx context.Context, st stimulus) {
	switch s := st.(type) {
	case pushStimulus:
		e.handlePush(s.ev)
	case pollRequest:
		e.startPoll(ctx, s.forced)
	case pollResult:
		e.handlePollResult(s)
	}
}

// startPoll launches a fetch unless one is already in flight. The fetch
// runs in its own goroutine so the loop keeps processing stimuli; the
// result comes back as a stimulus.
func (e *Engine) startPoll(ctx context.Context, forced bool) {
	e.mu.Lock()
	if e.inFlight {
		e.mu.Unlock()
		log.Debug().Str("instance", e.instanceID).Msg("poll suppressed, fetch already in flight")
		return
	}
	e.inFlight = true
	e.mu.Unlock()

	log.Debug().
		Str("instance", e.instanceID).
		Bool("forced", forced).
		Msg("fetching room")

	go func() {
		fetched, err := e.api.FetchRoom(ctx, e.cfg.RoomID)
		select {
		case e.stimuli <- pollResult{fetched: fetched, err: err}:
		case <-ctx.Done():
		}
	}()
}

func (e *Engine) handlePollResult(pr pollResult) {
	e.mu.Lock()
	e.inFlight = false

	if pr.err != nil {
		loaded := e.loaded
		var terr *transport.Error
		if errors.As(pr.err, &terr) && terr.NotFound() {
			e.teardownLocked("room not found")
			e.mu.Unlock()
			e.reporter.Report(&LoadError{Err: pr.err})
			return
		}
		e.mu.Unlock()
		if !loaded {
			e.reporter.Report(&LoadError{Err: pr.err})
		} else {
			e.reporter.Report(&TransientSyncError{Err: pr.err})
		}
		return
	}

	e.loaded = true
	e.lastSync = e.clock.Now()
	e.absorbLocked(room.PatchFrom(*pr.fetched))
	e.mu.Unlock()

	e.sched.noteAccepted()
}

// absorbLocked routes an authoritative full-room patch through the
// transition guard: deferred (collapsed to latest) while a transition is
// in flight, merged and FSM-reconciled otherwise.
func (e *Engine) absorbLocked(p room.Patch) {
	if e.guard.Phase() == PhaseTransitioning {
		e.guard.DeferPoll(p)
		log.Debug().Str("instance", e.instanceID).Msg("poll deferred during round transition")
		return
	}

	merged := e.store.Merge(p)

	switch merged.Status {
	case room.StatusCompleted:
		if e.guard.Phase() != PhaseCompleted {
			e.guard.Complete()
			log.Info().Str("instance", e.instanceID).Msg("game completed (observed via poll)")
		}
	case room.StatusPlaying:
		switch {
		case e.guard.Phase() == PhaseIdle || e.guard.Phase() == PhaseAwaitingStart:
			// Pure-polling degrade mode: the start signal is the poll itself.
			e.startGameLocked(merged.CurrentRound, merged.CurrentQuestion)
			// The start reset cleared the ledger; re-fold the facts this
			// same snapshot delivered for the round already in progress.
			for _, f := range p.Answers {
				e.ledger.Record(f)
			}
		case merged.CurrentRound > e.liveRound && merged.CurrentQuestion != nil:
			e.startRoundLocked(merged.CurrentRound, *merged.CurrentQuestion)
		}
	}

	e.maybeResultsLocked(merged)
}

// onDeadline fires the wall-clock anchored reading and settle deadlines.
func (e *Engine) onDeadline() {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.clock.Now()

	if dl, ok := e.guard.ReadingDeadline(); ok && !now.Before(dl) {
		e.guard.BeginAnswering()
		log.Debug().Str("instance", e.instanceID).Msg("reading lockout elapsed, answering open")
		// The lockout may have been the only thing between the ledger and a
		// full round: check completion now.
		e.maybeResultsLocked(e.store.Read())
	}

	if dl, ok := e.guard.SettleDeadline(); ok && !now.Before(dl) {
		if e.guard.FinishSettle() {
			log.Debug().Str("instance", e.instanceID).Msg("transition settled, next round revealed")
			e.replayDeferredLocked()
		}
	}
}

// untilNextDeadline returns how long until the nearest armed deadline.
func (e *Engine) untilNextDeadline() time.Duration {
	e.mu.Lock()
	defer e.mu.Unlock()

	next := e.clock.Now().Add(idleDeadline)
	if dl, ok := e.guard.ReadingDeadline(); ok && dl.Before(next) {
		next = dl
	}
	if dl, ok := e.guard.SettleDeadline(); ok && dl.Before(next) {
		next = dl
	}

	wait := next.Sub(e.clock.Now())
	if wait < 0 {
		wait = 0
	}
	return wait
}

// pollHint feeds the scheduler the current base interval and stability.
func (e *Engine) pollHint() (time.Duration, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	base := e.cfg.Scheduler.BaseWaiting
	if e.store.Read().Status == room.StatusPlaying {
		base = e.cfg.Scheduler.BasePlaying
	}
	return base, e.guard.Stable()
}

// startGameLocked resets round state and moves the machine out of idle.
func (e *Engine) startGameLocked(round int, q *room.Question) {
	if round < 1 {
		round = 1
	}
	e.ledger.Reset()
	e.results = nil
	e.liveRound = round

	st := room.StatusPlaying
	p := room.Patch{Status: &st, CurrentRound: &round}
	if q != nil {
		p.CurrentQuestion = q
	}
	e.store.Merge(p)
	e.guard.StartGame(q)
	e.sched.wake()

	log.Info().
		Str("instance", e.instanceID).
		Int("round", round).
		Msg("game started")
}

// startRoundLocked installs the next round's question. The merge happens
// as part of the transition, never deferred; only the reveal timing is
// held back while the settle window is open.
func (e *Engine) startRoundLocked(round int, q room.Question) {
	e.results = nil
	e.liveRound = round
	e.ledger.PruneBelow(round - 1)

	p := room.Patch{CurrentRound: &round, CurrentQuestion: &q}
	e.store.Merge(p)

	wasTransitioning := e.guard.Phase() == PhaseTransitioning
	revealed := e.guard.QuestionRevealed(round, q)
	if wasTransitioning && revealed {
		e.replayDeferredLocked()
	}

	log.Info().
		Str("instance", e.instanceID).
		Int("round", round).
		Bool("revealed", revealed).
		Msg("round started")
}

// completeLocked ends the game.
func (e *Engine) completeLocked() {
	wasTransitioning := e.guard.Phase() == PhaseTransitioning
	e.guard.Complete()
	st := room.StatusCompleted
	e.store.Merge(room.Patch{Status: &st, ClearQuestion: true})
	if wasTransitioning {
		e.replayDeferredLocked()
	}
	e.sched.wake()

	log.Info().Str("instance", e.instanceID).Msg("game completed")
}

// replayDeferredLocked applies the latest deferred poll once the machine
// has left PhaseTransitioning. Round, question and answer fields are
// stripped: the transition already installed fresher values for those.
func (e *Engine) replayDeferredLocked() {
	d := e.guard.TakeDeferred()
	if d == nil {
		return
	}
	merged := e.store.Merge(d.WithoutRoundFields())
	if merged.Status == room.StatusCompleted && e.guard.Phase() != PhaseCompleted {
		e.guard.Complete()
	}
	log.Debug().Str("instance", e.instanceID).Msg("deferred poll applied after transition")
}

// maybeResultsLocked freezes the round summary when every live player has
// a fact for the current question. At most one summary exists per round;
// once set it is immutable until the round advances.
func (e *Engine) maybeResultsLocked(r room.Room) {
	if e.results != nil || e.guard.Phase() != PhaseAnswering {
		return
	}
	if r.CurrentQuestion == nil || len(r.Players) == 0 {
		return
	}

	q := *r.CurrentQuestion
	total := e.ledger.CountFor(q.ID, e.liveRound)
	if total < len(r.Players) {
		return
	}

	yes := e.ledger.YesCountFor(q.ID, e.liveRound)
	e.results = &room.RoundResults{
		YesCount: yes,
		NoCount:  total - yes,
		Question: q,
	}
	e.guard.BeginTransition()

	log.Info().
		Str("instance", e.instanceID).
		Int("round", e.liveRound).
		Int("yes", yes).
		Int("no", total-yes).
		Msg("round results computed")
}

// teardownLocked drops all local state after a close/not-found signal so
// the engine can be pointed at the next room.
func (e *Engine) teardownLocked(reason string) {
	e.guard.Reset()
	e.results = nil
	e.liveRound = 0
	e.loaded = false
	e.ledger.Reset()
	e.store.Reset()
	e.store.SetID(e.cfg.RoomID)

	log.Info().
		Str("instance", e.instanceID).
		Str("reason", reason).
		Msg("room state torn down")
}

func (e *Engine) report(err error) {
	e.reporter.Report(err)
}
