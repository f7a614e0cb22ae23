package roomsync

import (
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/quizroom/internal/room"
	"github.com/mcdev12/quizroom/internal/scoring"
)

// Phase is a named state of the round state machine.
type Phase string

const (
	// PhaseIdle: no game in progress (or room torn down).
	PhaseIdle Phase = "idle"
	// PhaseAwaitingStart: start signal observed, question not yet visible.
	PhaseAwaitingStart Phase = "awaiting_start"
	// PhaseReading: question visible, answering locked out.
	PhaseReading Phase = "reading"
	// PhaseAnswering: lockout elapsed, answers accepted.
	PhaseAnswering Phase = "answering"
	// PhaseTransitioning: round-change animation in flight; poll merges
	// are deferred until this phase is left.
	PhaseTransitioning Phase = "transitioning"
	// PhaseCompleted: game over.
	PhaseCompleted Phase = "completed"
)

// settleDelay is how long a round transition is held so the change
// animation finishes before the next question is revealed.
const settleDelay = 3 * time.Second

// Guard is the round state machine. It gates which merges may reach the
// snapshot store while a transition is in flight, and anchors the reading
// and settle windows to wall-clock timestamps so they survive suspension.
//
// Guard is not self-locking; the engine owns it and serializes access.
type Guard struct {
	clock clockwork.Clock
	phase Phase

	revealedAt   time.Time
	transitionAt time.Time
	settled      bool

	pending  *pendingRound
	deferred *room.Patch
}

type pendingRound struct {
	round    int
	question room.Question
}

// NewGuard returns a guard in PhaseIdle.
func NewGuard(clock clockwork.Clock) *Guard {
	return &Guard{clock: clock, phase: PhaseIdle}
}

// Phase returns the current state.
func (g *Guard) Phase() Phase { return g.phase }

// RevealedAt returns when the current question became visible. Elapsed
// answer time is measured from here, not from when answering opened.
func (g *Guard) RevealedAt() time.Time { return g.revealedAt }

// CanAnswer reports whether answers are currently accepted.
func (g *Guard) CanAnswer() bool { return g.phase == PhaseAnswering }

// Stable reports whether the machine is settled enough for a scheduled
// (unforced) poll. Mid-transition and pre-reveal states are not.
func (g *Guard) Stable() bool {
	return g.phase != PhaseTransitioning && g.phase != PhaseAwaitingStart
}

// StartGame handles a start signal from either channel. With a question in
// hand the reading lockout arms immediately; without one the machine waits
// in PhaseAwaitingStart until the question shows up.
func (g *Guard) StartGame(q *room.Question) Phase {
	switch g.phase {
	case PhaseIdle, PhaseAwaitingStart, PhaseCompleted:
		if q == nil {
			g.phase = PhaseAwaitingStart
			return g.phase
		}
		g.reveal()
	}
	return g.phase
}

// QuestionRevealed handles a new round's question. While the transition
// settle window is still open the reveal is stashed and applied when the
// window closes; otherwise the reading lockout re-arms now. Returns true
// if the reveal took effect immediately.
func (g *Guard) QuestionRevealed(round int, q room.Question) bool {
	if g.phase == PhaseTransitioning && !g.settled {
		if g.clock.Now().Before(g.transitionAt.Add(settleDelay)) {
			g.pending = &pendingRound{round: round, question: q}
			return false
		}
	}
	g.reveal()
	return true
}

// BeginAnswering moves PhaseReading to PhaseAnswering. The engine calls it
// when the reading deadline passes; a guard in any other phase is left
// alone so a late timer cannot corrupt the machine.
func (g *Guard) BeginAnswering() Phase {
	if g.phase == PhaseReading {
		g.phase = PhaseAnswering
	}
	return g.phase
}

// BeginTransition moves PhaseAnswering to PhaseTransitioning and opens the
// settle window.
func (g *Guard) BeginTransition() Phase {
	if g.phase == PhaseAnswering {
		g.phase = PhaseTransitioning
		g.transitionAt = g.clock.Now()
		g.settled = false
	}
	return g.phase
}

// FinishSettle is called when the settle deadline passes. A stashed reveal
// takes effect now; otherwise the machine stays in PhaseTransitioning
// waiting for the next question, with the deadline disarmed. Returns true
// if the transition ended.
func (g *Guard) FinishSettle() bool {
	if g.phase != PhaseTransitioning {
		return false
	}
	if g.pending != nil {
		g.reveal()
		return true
	}
	g.settled = true
	return false
}

// Complete ends the game.
func (g *Guard) Complete() Phase {
	g.phase = PhaseCompleted
	g.pending = nil
	return g.phase
}

// Reset returns to PhaseIdle, dropping all anchors and deferred work.
// Used on room-closed / not-found teardown.
func (g *Guard) Reset() {
	*g = Guard{clock: g.clock, phase: PhaseIdle}
}

// DeferPoll stashes a poll-derived patch to apply after the transition.
// Only the latest deferred poll survives.
func (g *Guard) DeferPoll(p room.Patch) {
	g.deferred = &p
}

// TakeDeferred returns and clears the deferred poll patch, if any.
func (g *Guard) TakeDeferred() *room.Patch {
	d := g.deferred
	g.deferred = nil
	return d
}

// ReadingDeadline returns when the reading lockout ends, if one is armed.
func (g *Guard) ReadingDeadline() (time.Time, bool) {
	if g.phase != PhaseReading {
		return time.Time{}, false
	}
	return g.revealedAt.Add(scoring.ReadingWindow), true
}

// SettleDeadline returns when the transition settle window closes, if armed.
func (g *Guard) SettleDeadline() (time.Time, bool) {
	if g.phase != PhaseTransitioning || g.settled {
		return time.Time{}, false
	}
	return g.transitionAt.Add(settleDelay), true
}

func (g *Guard) reveal() {
	g.phase = PhaseReading
	g.revealedAt = g.clock.Now()
	g.pending = nil
	g.settled = false
}
