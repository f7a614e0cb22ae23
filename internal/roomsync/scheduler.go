package roomsync

import (
	"context"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

// SchedulerConfig tunes the adaptive polling fallback.
type SchedulerConfig struct {
	BasePlaying time.Duration // base interval while the game runs
	BaseWaiting time.Duration // base interval while waiting / completed
	MaxInterval time.Duration // backoff ceiling
	Growth      float64       // backoff multiplier per consecutive miss
	JitterLow   float64       // uniform jitter factor lower bound
	JitterHigh  float64       // uniform jitter factor upper bound
}

// DefaultSchedulerConfig returns the default polling policy.
func DefaultSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{
		BasePlaying: 15 * time.Second,
		BaseWaiting: 30 * time.Second,
		MaxInterval: 60 * time.Second,
		Growth:      1.5,
		JitterLow:   0.8,
		JitterHigh:  1.2,
	}
}

// pollScheduler decides when the engine falls back to a fetch. It never
// issues a scheduled tick while the guard is mid-transition; forced ticks
// (push-triggered reconciliation) bypass that check. The jitter factor
// keeps a fleet of clients from polling in lockstep.
type pollScheduler struct {
	cfg   SchedulerConfig
	clock clockwork.Clock

	// hint reports the current base interval and whether the state
	// machine is stable enough for a scheduled poll.
	hint func() (time.Duration, bool)
	// tick asks the engine to poll now.
	tick func(forced bool)

	forceCh chan struct{}
	wakeCh  chan struct{}

	mu     sync.Mutex
	rng    *rand.Rand
	misses int
}

func newPollScheduler(cfg SchedulerConfig, clock clockwork.Clock, hint func() (time.Duration, bool), tick func(forced bool)) *pollScheduler {
	return &pollScheduler{
		cfg:     cfg,
		clock:   clock,
		hint:    hint,
		tick:    tick,
		forceCh: make(chan struct{}, 1),
		wakeCh:  make(chan struct{}, 1),
		rng:     rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// run loops until ctx ends, sleeping the computed interval between ticks.
func (s *pollScheduler) run(ctx context.Context) {
	timer := s.clock.NewTimer(s.nextInterval())
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Debug().Msg("poll scheduler stopped")
			return

		case <-s.forceCh:
			s.tick(true)

		case <-s.wakeCh:
			// Base interval changed (status flip); recompute below.

		case <-timer.Chan():
			if _, stable := s.hint(); stable {
				s.bump()
				s.tick(false)
			} else {
				log.Debug().Msg("scheduled poll suppressed mid-transition")
			}
		}

		timer.Reset(s.nextInterval())
	}
}

// force requests an immediate poll, bypassing the stability check. Used as
// a reconciliation safety net after push events that imply state change.
func (s *pollScheduler) force() {
	select {
	case s.forceCh <- struct{}{}:
	default:
	}
}

// wake nudges the loop to recompute its interval after a status change.
func (s *pollScheduler) wake() {
	select {
	case s.wakeCh <- struct{}{}:
	default:
	}
}

// noteAccepted resets the backoff after a fetch was accepted and merged.
func (s *pollScheduler) noteAccepted() {
	s.mu.Lock()
	s.misses = 0
	s.mu.Unlock()
}

func (s *pollScheduler) bump() {
	s.mu.Lock()
	s.misses++
	s.mu.Unlock()
}

// nextInterval computes min(base * growth^k, max) scaled by uniform jitter.
func (s *pollScheduler) nextInterval() time.Duration {
	base, _ := s.hint()
	if base <= 0 {
		base = s.cfg.BaseWaiting
	}

	s.mu.Lock()
	k := s.misses
	jitter := s.cfg.JitterLow + (s.cfg.JitterHigh-s.cfg.JitterLow)*s.rng.Float64()
	s.mu.Unlock()

	d := float64(base) * math.Pow(s.cfg.Growth, float64(k))
	if ceil := float64(s.cfg.MaxInterval); d > ceil {
		d = ceil
	}
	return time.Duration(d * jitter)
}
