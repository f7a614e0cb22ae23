package roomsync

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/mcdev12/quizroom/internal/push"
	"github.com/mcdev12/quizroom/internal/room"
	"github.com/mcdev12/quizroom/internal/scoring"
	"github.com/mcdev12/quizroom/internal/transport"
)

// fakeAPI is an in-memory transport.API with call counters.
type fakeAPI struct {
	mu sync.Mutex

	room      room.Room
	fetchErr  error
	joinErr   error
	submitErr error

	startRes   *transport.StartResult
	advanceRes *transport.AdvanceResult

	fetchCalls  int
	joinCalls   int
	leaveCalls  int
	submitCalls int
}

func (f *fakeAPI) FetchRoom(ctx context.Context, roomID string) (*room.Room, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetchCalls++
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	r := f.room.Clone()
	return &r, nil
}

func (f *fakeAPI) JoinRoom(ctx context.Context, roomID, userID, passcode string) (*room.Room, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.joinCalls++
	if f.joinErr != nil {
		return nil, f.joinErr
	}
	r := f.room.Clone()
	return &r, nil
}

func (f *fakeAPI) LeaveRoom(ctx context.Context, roomID, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.leaveCalls++
	return nil
}

func (f *fakeAPI) StartGame(ctx context.Context, roomID, userID string) (*transport.StartResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.startRes, nil
}

func (f *fakeAPI) SubmitAnswer(ctx context.Context, roomID, userID string, answer bool, elapsed time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.submitCalls++
	return f.submitErr
}

func (f *fakeAPI) AdvanceRound(ctx context.Context, roomID, userID string) (*transport.AdvanceResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.advanceRes, nil
}

type testHarness struct {
	engine *Engine
	api    *fakeAPI
	clock  *clockwork.FakeClock
	errs   *[]error
}

// newHarness builds an engine whose stimuli handlers are invoked directly,
// so tests control ordering and time without goroutines.
func newHarness(t *testing.T) *testHarness {
	t.Helper()
	clock := clockwork.NewFakeClock()
	api := &fakeAPI{}
	var errs []error
	e := New(Config{RoomID: "room-1", UserID: "alice", UserName: "Alice"},
		api,
		ReporterFunc(func(err error) { errs = append(errs, err) }),
		clock)
	return &testHarness{engine: e, api: api, clock: clock, errs: &errs}
}

func twoPlayerRoom(status room.Status) room.Room {
	return room.Room{
		ID:         "room-1",
		Status:     status,
		Type:       room.KindPublic,
		HostID:     "alice",
		MaxPlayers: 8,
		MaxRounds:  3,
		Players: []room.Player{
			{User: room.User{ID: "alice", Name: "Alice"}},
			{User: room.User{ID: "bob", Name: "Bob"}},
		},
	}
}

func (h *testHarness) seed(r room.Room) {
	h.engine.handlePollResult(pollResult{fetched: &r})
}

func pushEvent(t *testing.T, name push.EventName, payload any) push.Event {
	t.Helper()
	ev := push.Event{ID: "ev-1", RoomID: "room-1", Name: name}
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("marshal payload: %v", err)
		}
		ev.Data = data
	}
	return ev
}

func TestFullRoundCycle(t *testing.T) {
	h := newHarness(t)
	e := h.engine
	h.seed(twoPlayerRoom(room.StatusWaiting))

	// Game starts with the first question: reading lockout arms.
	e.handlePush(pushEvent(t, push.EventGameStarted, push.GameStartedPayload{
		CurrentQuestion: room.Question{ID: "q1", Prompt: "ever been skydiving?"},
	}))

	v := e.View()
	if v.Phase != PhaseReading || v.Round != 1 {
		t.Fatalf("expected reading round 1, got phase %q round %d", v.Phase, v.Round)
	}
	if v.CanAnswer {
		t.Fatal("answering must be locked while reading")
	}

	// Lockout elapses.
	h.clock.Advance(scoring.ReadingWindow)
	e.onDeadline()
	if v := e.View(); !v.CanAnswer {
		t.Fatalf("expected answering open, phase %q", v.Phase)
	}

	// Our answer lands 4s after the reveal: fast tier.
	h.clock.Advance(time.Second)
	award, err := e.SubmitAnswer(context.Background(), true)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if award.Bonus != scoring.FastBonus {
		t.Fatalf("expected fast bonus, got %+v", award)
	}

	// Bob's answer completes the round: summary freezes, transition begins.
	e.handlePush(pushEvent(t, push.EventPlayerAnswered, push.PlayerAnsweredPayload{
		UserID: "bob", QuestionID: "q1", Answer: false, ElapsedSec: 6,
	}))

	v = e.View()
	if v.Phase != PhaseTransitioning {
		t.Fatalf("expected transitioning, got %q", v.Phase)
	}
	if v.Results == nil || v.Results.YesCount != 1 || v.Results.NoCount != 1 {
		t.Fatalf("expected 1/1 summary, got %+v", v.Results)
	}

	// Round 2 arrives mid-settle: installed but reveal held back.
	h.clock.Advance(time.Second)
	e.handlePush(pushEvent(t, push.EventRoundStarted, push.RoundStartedPayload{
		CurrentRound:    2,
		CurrentQuestion: room.Question{ID: "q2", Prompt: "ever sung karaoke?"},
	}))

	v = e.View()
	if v.Phase != PhaseTransitioning {
		t.Fatalf("reveal must wait for the settle window, got %q", v.Phase)
	}
	if v.Round != 2 {
		t.Fatalf("round bookkeeping must advance immediately, got %d", v.Round)
	}

	// Settle window closes: stashed reveal takes effect.
	h.clock.Advance(settleDelay)
	e.onDeadline()
	v = e.View()
	if v.Phase != PhaseReading {
		t.Fatalf("expected reading for round 2, got %q", v.Phase)
	}
	if v.Results != nil {
		t.Fatal("round summary must clear when the next round starts")
	}
	if v.Room.CurrentQuestion == nil || v.Room.CurrentQuestion.ID != "q2" {
		t.Fatalf("expected q2 installed, got %+v", v.Room.CurrentQuestion)
	}

	// Game ends.
	e.handlePush(pushEvent(t, push.EventGameEnded, nil))
	if v := e.View(); v.Phase != PhaseCompleted || v.Room.Status != room.StatusCompleted {
		t.Fatalf("expected completed, got phase %q status %q", v.Phase, v.Room.Status)
	}
}

func TestPollDrivesGameInDegradeMode(t *testing.T) {
	h := newHarness(t)
	e := h.engine
	h.seed(twoPlayerRoom(room.StatusWaiting))

	// No push feed: the poll itself is the start signal.
	started := twoPlayerRoom(room.StatusPlaying)
	started.CurrentRound = 1
	started.CurrentQuestion = &room.Question{ID: "q1"}
	h.seed(started)

	v := e.View()
	if v.Phase != PhaseReading || v.Round != 1 {
		t.Fatalf("expected poll-driven start, got phase %q round %d", v.Phase, v.Round)
	}

	// A later poll showing round 2 advances the machine the same way.
	h.clock.Advance(scoring.ReadingWindow)
	e.onDeadline()
	next := started
	next.CurrentRound = 2
	next.CurrentQuestion = &room.Question{ID: "q2"}
	h.seed(next)

	if v := e.View(); v.Round != 2 {
		t.Fatalf("expected poll-driven round advance, got round %d", v.Round)
	}
}

func TestDuplicateFactsAcrossChannels(t *testing.T) {
	h := newHarness(t)
	e := h.engine

	started := twoPlayerRoom(room.StatusPlaying)
	started.CurrentRound = 1
	started.CurrentQuestion = &room.Question{ID: "q1"}
	h.seed(started)
	h.clock.Advance(scoring.ReadingWindow)
	e.onDeadline()

	// Bob's answer arrives by push, then again inside a poll snapshot.
	e.handlePush(pushEvent(t, push.EventPlayerAnswered, push.PlayerAnsweredPayload{
		UserID: "bob", QuestionID: "q1", Answer: true, ElapsedSec: 4,
	}))

	polled := started
	polled.Answers = []room.Fact{
		{UserID: "bob", QuestionID: "q1", Round: 1, Answer: true, ElapsedSec: 4},
	}
	h.seed(polled)

	if got := e.ledger.CountFor("q1", 1); got != 1 {
		t.Fatalf("expected one fact after duplicate delivery, got %d", got)
	}
	// Only one of two players answered: no summary yet.
	if v := e.View(); v.Results != nil {
		t.Fatalf("summary must not freeze early, got %+v", v.Results)
	}
}

func TestDuplicateRoundStartedIgnored(t *testing.T) {
	h := newHarness(t)
	e := h.engine

	started := twoPlayerRoom(room.StatusPlaying)
	started.CurrentRound = 2
	started.CurrentQuestion = &room.Question{ID: "q2"}
	h.seed(started)
	h.clock.Advance(scoring.ReadingWindow)
	e.onDeadline()
	revealedAt := e.guard.RevealedAt()

	// A re-delivered round-started for the same round must not re-arm the
	// lockout or touch the anchors.
	e.handlePush(pushEvent(t, push.EventRoundStarted, push.RoundStartedPayload{
		CurrentRound:    2,
		CurrentQuestion: room.Question{ID: "q2"},
	}))

	if v := e.View(); v.Phase != PhaseAnswering {
		t.Fatalf("duplicate round-started changed phase to %q", v.Phase)
	}
	if !e.guard.RevealedAt().Equal(revealedAt) {
		t.Fatal("duplicate round-started moved the reveal anchor")
	}
}

func TestPollDeferredDuringTransition(t *testing.T) {
	h := newHarness(t)
	e := h.engine

	started := twoPlayerRoom(room.StatusPlaying)
	started.CurrentRound = 1
	started.CurrentQuestion = &room.Question{ID: "q1"}
	h.seed(started)
	h.clock.Advance(scoring.ReadingWindow)
	e.onDeadline()

	// Round completes: transition opens.
	e.handlePush(pushEvent(t, push.EventAllAnswered, push.AllAnsweredPayload{
		YesCount: 2, NoCount: 0, Question: room.Question{ID: "q1"},
	}))

	// A stale poll lands mid-transition still showing round 1 and a host
	// change. Nothing merges yet.
	stale := twoPlayerRoom(room.StatusPlaying)
	stale.HostID = "bob"
	stale.CurrentRound = 1
	stale.CurrentQuestion = &room.Question{ID: "q1"}
	h.seed(stale)

	if v := e.View(); v.Room.HostID != "alice" {
		t.Fatal("poll must not merge mid-transition")
	}

	// Round 2 arrives, then the settle window closes: the deferred poll is
	// replayed without its stale round fields.
	h.clock.Advance(time.Second)
	e.handlePush(pushEvent(t, push.EventRoundStarted, push.RoundStartedPayload{
		CurrentRound:    2,
		CurrentQuestion: room.Question{ID: "q2"},
	}))
	h.clock.Advance(settleDelay)
	e.onDeadline()

	v := e.View()
	if v.Room.HostID != "bob" {
		t.Fatal("deferred host change must apply after the transition")
	}
	if v.Room.CurrentQuestion == nil || v.Room.CurrentQuestion.ID != "q2" {
		t.Fatalf("stale round fields must not overwrite round 2, got %+v", v.Room.CurrentQuestion)
	}
	if v.Round != 2 {
		t.Fatalf("expected round 2, got %d", v.Round)
	}
}

func TestOnlyLatestDeferredPollReplays(t *testing.T) {
	h := newHarness(t)
	e := h.engine

	started := twoPlayerRoom(room.StatusPlaying)
	started.CurrentRound = 1
	started.CurrentQuestion = &room.Question{ID: "q1"}
	h.seed(started)
	h.clock.Advance(scoring.ReadingWindow)
	e.onDeadline()
	e.handlePush(pushEvent(t, push.EventAllAnswered, push.AllAnsweredPayload{
		YesCount: 2, NoCount: 0, Question: room.Question{ID: "q1"},
	}))

	first := started
	first.HostID = "bob"
	h.seed(first)
	second := started
	second.HostID = "carol"
	h.seed(second)

	e.handlePush(pushEvent(t, push.EventRoundStarted, push.RoundStartedPayload{
		CurrentRound: 2, CurrentQuestion: room.Question{ID: "q2"},
	}))
	h.clock.Advance(settleDelay)
	e.onDeadline()

	if v := e.View(); v.Room.HostID != "carol" {
		t.Fatalf("expected only the latest deferred poll applied, host %q", v.Room.HostID)
	}
}

func TestRedeliveredSummaryFromFinishedRoundIgnored(t *testing.T) {
	h := newHarness(t)
	e := h.engine

	started := twoPlayerRoom(room.StatusPlaying)
	started.CurrentRound = 1
	started.CurrentQuestion = &room.Question{ID: "q1"}
	h.seed(started)
	h.clock.Advance(scoring.ReadingWindow)
	e.onDeadline()

	// Round 1 finishes via the push summary and round 2 opens for answers.
	summary := pushEvent(t, push.EventAllAnswered, push.AllAnsweredPayload{
		YesCount: 2, NoCount: 0, Question: room.Question{ID: "q1"},
	})
	e.handlePush(summary)
	e.handlePush(pushEvent(t, push.EventRoundStarted, push.RoundStartedPayload{
		CurrentRound: 2, CurrentQuestion: room.Question{ID: "q2"},
	}))
	h.clock.Advance(settleDelay)
	e.onDeadline()
	h.clock.Advance(scoring.ReadingWindow)
	e.onDeadline()

	if v := e.View(); v.Phase != PhaseAnswering || v.Round != 2 {
		t.Fatalf("expected answering in round 2, got phase %q round %d", v.Phase, v.Round)
	}

	// At-least-once delivery replays the round-1 summary. It must not be
	// adopted as round 2's results or end the round.
	e.handlePush(summary)

	v := e.View()
	if v.Phase != PhaseAnswering {
		t.Fatalf("redelivered round-1 summary moved phase to %q", v.Phase)
	}
	if v.Results != nil {
		t.Fatalf("redelivered round-1 summary frozen as round 2 results: %+v", v.Results)
	}
}

func TestConcurrentMembershipEchoes(t *testing.T) {
	for i := 0; i < 50; i++ {
		h := newHarness(t)
		e := h.engine
		h.seed(twoPlayerRoom(room.StatusWaiting))

		var wg sync.WaitGroup
		for _, pl := range []room.Player{
			{User: room.User{ID: "carol", Name: "Carol"}},
			{User: room.User{ID: "dave", Name: "Dave"}},
		} {
			wg.Add(1)
			go func(pl room.Player) {
				defer wg.Done()
				e.handlePlayerJoined(push.PlayerJoinedPayload{Player: pl})
			}(pl)
		}
		wg.Wait()

		v := e.View()
		if !v.Room.HasPlayer("carol") || !v.Room.HasPlayer("dave") {
			t.Fatalf("concurrent join echoes lost a player: %+v", v.Room.Players)
		}
	}
}

func TestDegradeModeStartKeepsSnapshotAnswers(t *testing.T) {
	h := newHarness(t)
	e := h.engine

	// First poll observes a game already mid-round, with bob's answer
	// included in the same snapshot that acts as the start signal.
	midRound := twoPlayerRoom(room.StatusPlaying)
	midRound.CurrentRound = 1
	midRound.CurrentQuestion = &room.Question{ID: "q1"}
	midRound.Answers = []room.Fact{
		{UserID: "bob", QuestionID: "q1", Round: 1, Answer: true, ElapsedSec: 4},
	}
	h.seed(midRound)

	if got := e.ledger.CountFor("q1", 1); got != 1 {
		t.Fatalf("expected the snapshot's fact to survive game start, got %d", got)
	}
	for _, p := range e.View().Roster {
		if p.User.ID == "bob" && !p.HasAnswered {
			t.Fatal("bob's delivered answer lost during degrade-mode start")
		}
	}
}

func TestTransientErrorLeavesSnapshotIntact(t *testing.T) {
	h := newHarness(t)
	e := h.engine
	h.seed(twoPlayerRoom(room.StatusWaiting))
	before := e.View()

	e.handlePollResult(pollResult{err: errors.New("connection refused")})

	if len(*h.errs) != 1 {
		t.Fatalf("expected one reported error, got %d", len(*h.errs))
	}
	var transient *TransientSyncError
	if !errors.As((*h.errs)[0], &transient) {
		t.Fatalf("expected TransientSyncError, got %T", (*h.errs)[0])
	}

	after := e.View()
	if len(after.Room.Players) != len(before.Room.Players) || after.Room.HostID != before.Room.HostID {
		t.Fatal("failed refresh must not touch the snapshot")
	}
}

func TestFirstFetchFailureIsLoadError(t *testing.T) {
	h := newHarness(t)
	h.engine.handlePollResult(pollResult{err: errors.New("connection refused")})

	var load *LoadError
	if len(*h.errs) != 1 || !errors.As((*h.errs)[0], &load) {
		t.Fatalf("expected LoadError before first snapshot, got %v", *h.errs)
	}
}

func TestRoomNotFoundTearsDown(t *testing.T) {
	h := newHarness(t)
	e := h.engine
	h.seed(twoPlayerRoom(room.StatusWaiting))

	e.handlePollResult(pollResult{err: &transport.Error{Status: 404, Reason: transport.ReasonRoomNotFound}})

	var load *LoadError
	if len(*h.errs) != 1 || !errors.As((*h.errs)[0], &load) {
		t.Fatalf("expected LoadError on not-found, got %v", *h.errs)
	}
	v := e.View()
	if v.Phase != PhaseIdle || len(v.Room.Players) != 0 {
		t.Fatalf("expected local state torn down, got phase %q players %d", v.Phase, len(v.Room.Players))
	}
}

func TestJoinPrivateRoomRequiresPasscodeLocally(t *testing.T) {
	h := newHarness(t)
	e := h.engine
	private := twoPlayerRoom(room.StatusWaiting)
	private.Type = room.KindPrivate
	h.api.room = private

	err := e.Join(context.Background(), "")
	if !errors.Is(err, ErrPasscodeRequired) {
		t.Fatalf("expected ErrPasscodeRequired, got %v", err)
	}
	if h.api.joinCalls != 0 {
		t.Fatalf("missing passcode must be rejected before any join request, got %d calls", h.api.joinCalls)
	}

	if err := e.Join(context.Background(), "hunter2"); err != nil {
		t.Fatalf("join with passcode: %v", err)
	}
	if h.api.joinCalls != 1 {
		t.Fatalf("expected exactly one join request, got %d", h.api.joinCalls)
	}
}

func TestStartGameAsHost(t *testing.T) {
	h := newHarness(t)
	e := h.engine
	h.seed(twoPlayerRoom(room.StatusWaiting))
	h.api.startRes = &transport.StartResult{CurrentQuestion: room.Question{ID: "q1", Prompt: "ever?"}}

	if err := e.StartGame(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}

	v := e.View()
	if v.Phase != PhaseReading || v.Round != 1 {
		t.Fatalf("expected reading round 1, got phase %q round %d", v.Phase, v.Round)
	}
	if v.Room.Status != room.StatusPlaying {
		t.Fatalf("expected playing, got %q", v.Room.Status)
	}
	if v.Room.CurrentQuestion == nil || v.Room.CurrentQuestion.ID != "q1" {
		t.Fatalf("expected q1 installed, got %+v", v.Room.CurrentQuestion)
	}
}

func TestStartGameRejectedForNonHost(t *testing.T) {
	h := newHarness(t)
	e := h.engine
	r := twoPlayerRoom(room.StatusWaiting)
	r.HostID = "bob"
	h.seed(r)

	err := e.StartGame(context.Background())
	if !errors.Is(err, ErrNotHost) {
		t.Fatalf("expected ErrNotHost, got %v", err)
	}
}

func TestSubmitAnswerRejectedOutsideAnswering(t *testing.T) {
	h := newHarness(t)
	e := h.engine

	started := twoPlayerRoom(room.StatusPlaying)
	started.CurrentRound = 1
	started.CurrentQuestion = &room.Question{ID: "q1"}
	h.seed(started)

	// Still reading: locked out.
	if _, err := e.SubmitAnswer(context.Background(), true); !errors.Is(err, ErrNotAnswering) {
		t.Fatalf("expected ErrNotAnswering during reading, got %v", err)
	}
	if h.api.submitCalls != 0 {
		t.Fatal("locked-out submit must not reach the server")
	}
}

func TestSubmitAnswerDuplicateRejected(t *testing.T) {
	h := newHarness(t)
	e := h.engine

	started := twoPlayerRoom(room.StatusPlaying)
	started.CurrentRound = 1
	started.CurrentQuestion = &room.Question{ID: "q1"}
	h.seed(started)
	h.clock.Advance(scoring.ReadingWindow)
	e.onDeadline()

	if _, err := e.SubmitAnswer(context.Background(), true); err != nil {
		t.Fatalf("first submit: %v", err)
	}
	if _, err := e.SubmitAnswer(context.Background(), false); !errors.Is(err, ErrAlreadyAnswered) {
		t.Fatalf("expected ErrAlreadyAnswered, got %v", err)
	}
	if h.api.submitCalls != 1 {
		t.Fatalf("expected one submit request, got %d", h.api.submitCalls)
	}
}

func TestSubmitAnswerRollsBackOnServerError(t *testing.T) {
	h := newHarness(t)
	e := h.engine

	started := twoPlayerRoom(room.StatusPlaying)
	started.CurrentRound = 1
	started.CurrentQuestion = &room.Question{ID: "q1"}
	h.seed(started)
	h.clock.Advance(scoring.ReadingWindow)
	e.onDeadline()

	h.api.submitErr = errors.New("boom")
	if _, err := e.SubmitAnswer(context.Background(), true); err == nil {
		t.Fatal("expected submit error")
	}

	key := room.FactKey{UserID: "alice", QuestionID: "q1", Round: 1}
	if e.ledger.Has(key) {
		t.Fatal("optimistic fact must be rolled back on failure")
	}

	// The retry is not treated as a duplicate.
	h.api.submitErr = nil
	if _, err := e.SubmitAnswer(context.Background(), true); err != nil {
		t.Fatalf("retry after rollback: %v", err)
	}
}

func TestSelfAnswerEchoDedups(t *testing.T) {
	h := newHarness(t)
	e := h.engine

	started := twoPlayerRoom(room.StatusPlaying)
	started.CurrentRound = 1
	started.CurrentQuestion = &room.Question{ID: "q1"}
	h.seed(started)
	h.clock.Advance(scoring.ReadingWindow)
	e.onDeadline()

	if _, err := e.SubmitAnswer(context.Background(), true); err != nil {
		t.Fatalf("submit: %v", err)
	}

	// The push echo of our own submission must not double-count.
	e.handlePush(pushEvent(t, push.EventPlayerAnswered, push.PlayerAnsweredPayload{
		UserID: "alice", QuestionID: "q1", Answer: true, ElapsedSec: 3,
	}))

	if got := e.ledger.CountFor("q1", 1); got != 1 {
		t.Fatalf("expected one fact for self, got %d", got)
	}
}

func TestViewHasAnsweredDerivedFromLedger(t *testing.T) {
	h := newHarness(t)
	e := h.engine

	started := twoPlayerRoom(room.StatusPlaying)
	started.CurrentRound = 1
	started.CurrentQuestion = &room.Question{ID: "q1"}
	h.seed(started)
	h.clock.Advance(scoring.ReadingWindow)
	e.onDeadline()

	e.handlePush(pushEvent(t, push.EventPlayerAnswered, push.PlayerAnsweredPayload{
		UserID: "bob", QuestionID: "q1", Answer: true, ElapsedSec: 4,
	}))

	v := e.View()
	answered := map[string]bool{}
	for _, p := range v.Roster {
		answered[p.User.ID] = p.HasAnswered
	}
	if !answered["bob"] || answered["alice"] {
		t.Fatalf("expected only bob answered, got %v", answered)
	}
}

func TestPushForOtherRoomIgnored(t *testing.T) {
	h := newHarness(t)
	e := h.engine
	h.seed(twoPlayerRoom(room.StatusWaiting))

	ev := pushEvent(t, push.EventGameStarted, push.GameStartedPayload{
		CurrentQuestion: room.Question{ID: "q1"},
	})
	ev.RoomID = "room-2"
	e.handlePush(ev)

	if v := e.View(); v.Phase != PhaseIdle {
		t.Fatalf("event for another room must be ignored, got phase %q", v.Phase)
	}
}

func TestRosterChangesMergeDuringTransition(t *testing.T) {
	h := newHarness(t)
	e := h.engine

	started := twoPlayerRoom(room.StatusPlaying)
	started.CurrentRound = 1
	started.CurrentQuestion = &room.Question{ID: "q1"}
	h.seed(started)
	h.clock.Advance(scoring.ReadingWindow)
	e.onDeadline()
	e.handlePush(pushEvent(t, push.EventAllAnswered, push.AllAnsweredPayload{
		YesCount: 2, NoCount: 0, Question: room.Question{ID: "q1"},
	}))

	// Membership is never held back by the round animation.
	e.handlePush(pushEvent(t, push.EventPlayerJoined, push.PlayerJoinedPayload{
		Player: room.Player{User: room.User{ID: "carol", Name: "Carol"}},
	}))

	if v := e.View(); !v.Room.HasPlayer("carol") {
		t.Fatal("player-joined must merge mid-transition")
	}
}

func TestAdvanceRoundCompletesPastMaxRounds(t *testing.T) {
	h := newHarness(t)
	e := h.engine

	started := twoPlayerRoom(room.StatusPlaying)
	started.CurrentRound = 3
	started.CurrentQuestion = &room.Question{ID: "q3"}
	h.seed(started)
	h.clock.Advance(scoring.ReadingWindow)
	e.onDeadline()

	h.api.advanceRes = &transport.AdvanceResult{CurrentRound: 4, Status: room.StatusCompleted}
	if err := e.AdvanceRound(context.Background()); err != nil {
		t.Fatalf("advance: %v", err)
	}
	if v := e.View(); v.Phase != PhaseCompleted {
		t.Fatalf("expected completed past max rounds, got %q", v.Phase)
	}
}
