package game

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/stretchr/testify/require"
)

// eventRecorder captures published events for assertions.
type eventRecorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *eventRecorder) OnEvent(event Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *eventRecorder) ofType(et EventType) []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Event
	for _, e := range r.events {
		if e.EventType() == et {
			out = append(out, e)
		}
	}
	return out
}

func (r *eventRecorder) lastSettled() (RoundSettledEvent, bool) {
	events := r.ofType(EventTypeRoundSettled)
	if len(events) == 0 {
		return RoundSettledEvent{}, false
	}
	return events[len(events)-1].(RoundSettledEvent), true
}

func newTestEngine(t *testing.T, cfg Config) (*Engine, *quartz.Mock, *eventRecorder) {
	t.Helper()
	mockClock := quartz.NewMock(t)
	engine := NewEngine(cfg, mockClock, log.New(io.Discard))
	recorder := &eventRecorder{}
	engine.Bus().Subscribe(recorder)
	return engine, mockClock, recorder
}

func TestEagerStartOnJoin(t *testing.T) {
	t.Parallel()

	engine, _, recorder := newTestEngine(t, DefaultConfig())
	engine.Join("a")

	require.Equal(t, StateActive, engine.State())
	require.Len(t, recorder.ofType(EventTypeRoundStarted), 1)
	require.Len(t, recorder.ofType(EventTypeParticipantsChanged), 1)
}

func TestLazyStartOnWager(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.EagerStart = false
	engine, _, recorder := newTestEngine(t, cfg)

	engine.Join("a")
	require.Equal(t, StateIdle, engine.State(), "no round until a wager arrives")

	require.NoError(t, engine.PlaceWager("a", "head", 10))
	require.Equal(t, StateActive, engine.State())
	require.Len(t, recorder.ofType(EventTypeRoundStarted), 1)
	require.Len(t, recorder.ofType(EventTypeWagerAccepted), 1)
}

func TestWagerValidation(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.EagerStart = false
	engine, _, _ := newTestEngine(t, cfg)
	engine.Join("a")

	require.ErrorIs(t, engine.PlaceWager("a", "edge", 10), ErrInvalidSide)
	require.ErrorIs(t, engine.PlaceWager("a", "head", 0), ErrInvalidAmount)
	require.ErrorIs(t, engine.PlaceWager("a", "tale", -5), ErrInvalidAmount)

	// Rejected wagers never start a round.
	require.Equal(t, StateIdle, engine.State())
}

func TestDuplicateWagerRejected(t *testing.T) {
	t.Parallel()

	engine, _, _ := newTestEngine(t, DefaultConfig())
	engine.Join("a")

	require.NoError(t, engine.PlaceWager("a", "head", 10))
	require.ErrorIs(t, engine.PlaceWager("a", "tale", 20), ErrDuplicateWager)

	snap := engine.Snapshot()
	require.Equal(t, 10.0, snap.HeadTotal)
	require.Equal(t, 0.0, snap.TaleTotal)
}

func TestRoundLifecycle(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	cfg := DefaultConfig()
	engine, mockClock, recorder := newTestEngine(t, cfg)

	engine.Join("a")
	engine.Join("b")
	require.NoError(t, engine.PlaceWager("a", "head", 50))
	require.NoError(t, engine.PlaceWager("b", "tale", 30))

	// Round expiry settles: the lower aggregate wins.
	mockClock.Advance(cfg.RoundDuration).MustWait(ctx)
	require.Equal(t, StateCooldown, engine.State())

	settled, ok := recorder.lastSettled()
	require.True(t, ok)
	require.Equal(t, OutcomeTale, settled.Result.Winner)
	require.Equal(t, 50.0, settled.Result.HeadTotal)
	require.Equal(t, 30.0, settled.Result.TaleTotal)
	require.Equal(t, 1, settled.Result.Streak)
	require.InDelta(t, 1.50, settled.Result.Multiplier, 1e-9)
	require.Equal(t, PlayerResult{Won: true, Amount: 45.0, OriginalBet: 30, Side: SideTale}, settled.Result.Players["b"])
	require.Equal(t, PlayerResult{Won: false, Amount: 0, OriginalBet: 50, Side: SideHead}, settled.Result.Players["a"])

	// Wagers are rejected during the cooldown.
	require.ErrorIs(t, engine.PlaceWager("a", "head", 5), ErrRoundInactive)

	// Cooldown clears the ledger and auto-restarts with participants left.
	mockClock.Advance(cfg.Cooldown).MustWait(ctx)
	require.Equal(t, StateActive, engine.State())
	require.Len(t, recorder.ofType(EventTypeRoundReset), 1)
	require.Len(t, recorder.ofType(EventTypeRoundStarted), 2)

	snap := engine.Snapshot()
	require.Equal(t, 0.0, snap.HeadTotal)
	require.Equal(t, 0.0, snap.TaleTotal)
	require.Equal(t, []Outcome{OutcomeTale}, snap.History)
}

func TestNoRestartWithoutParticipants(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	cfg := DefaultConfig()
	cfg.EagerStart = false
	engine, mockClock, recorder := newTestEngine(t, cfg)

	engine.Join("a")
	require.NoError(t, engine.PlaceWager("a", "head", 10))
	mockClock.Advance(cfg.RoundDuration).MustWait(ctx)
	require.Equal(t, StateCooldown, engine.State())

	// Leaving during cooldown forces idle; the reset timer must not
	// restart anything afterwards.
	engine.Leave("a")
	require.Equal(t, StateIdle, engine.State())

	mockClock.Advance(cfg.Cooldown).MustWait(ctx)
	require.Equal(t, StateIdle, engine.State())
	require.Len(t, recorder.ofType(EventTypeRoundStarted), 1)
}

func TestForcedIdleCancelsSettlement(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	cfg := DefaultConfig()
	engine, mockClock, recorder := newTestEngine(t, cfg)

	engine.Join("a")
	engine.Join("b")
	require.NoError(t, engine.PlaceWager("a", "head", 50))

	engine.Leave("a")
	engine.Leave("b")
	require.Equal(t, StateIdle, engine.State())

	// The stale round timer fires into the void.
	mockClock.Advance(cfg.RoundDuration + cfg.Cooldown).MustWait(ctx)
	require.Empty(t, recorder.ofType(EventTypeRoundSettled), "no settlement for an abandoned round")

	snap := engine.Snapshot()
	require.Equal(t, 0.0, snap.HeadTotal)
	require.Empty(t, snap.History)
}

func TestLeaveMidRoundPurgesWager(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	cfg := DefaultConfig()
	engine, mockClock, recorder := newTestEngine(t, cfg)

	engine.Join("a")
	engine.Join("b")
	require.NoError(t, engine.PlaceWager("a", "head", 50))
	require.NoError(t, engine.PlaceWager("b", "tale", 30))

	engine.Leave("a")

	left := recorder.ofType(EventTypeParticipantLeft)
	require.Len(t, left, 1)
	leftEvent := left[0].(ParticipantLeftEvent)
	require.Equal(t, "a", leftEvent.ParticipantID)
	require.Equal(t, 0.0, leftEvent.HeadTotal, "departed wager purged from totals")
	require.Equal(t, 30.0, leftEvent.TaleTotal)
	require.Equal(t, []string{"b"}, leftEvent.Participants)

	mockClock.Advance(cfg.RoundDuration).MustWait(ctx)
	settled, ok := recorder.lastSettled()
	require.True(t, ok)
	require.Equal(t, OutcomeHead, settled.Result.Winner, "empty head side has the lower total")
	require.NotContains(t, settled.Result.Players, "a")
}

func TestLeaveDuringCooldownKeepsResult(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	cfg := DefaultConfig()
	engine, mockClock, recorder := newTestEngine(t, cfg)

	engine.Join("a")
	engine.Join("b")
	require.NoError(t, engine.PlaceWager("a", "head", 50))
	mockClock.Advance(cfg.RoundDuration).MustWait(ctx)

	// Once settling has happened the ledger is frozen; leaving does not
	// rewrite the totals.
	engine.Leave("a")
	left := recorder.ofType(EventTypeParticipantLeft)[0].(ParticipantLeftEvent)
	require.Equal(t, 50.0, left.HeadTotal)
}

func TestHistoryWindowAcrossRounds(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	cfg := DefaultConfig()
	engine, mockClock, recorder := newTestEngine(t, cfg)

	engine.Join("a")
	engine.Join("b")

	// Eleven rounds where only head is backed, so tale wins every time.
	for i := 0; i < 11; i++ {
		require.NoError(t, engine.PlaceWager("a", "head", 10))
		mockClock.Advance(cfg.RoundDuration).MustWait(ctx)
		mockClock.Advance(cfg.Cooldown).MustWait(ctx)
	}

	snap := engine.Snapshot()
	require.Len(t, snap.History, 10, "history window holds the last ten outcomes")
	for _, o := range snap.History {
		require.Equal(t, OutcomeTale, o)
	}

	settled, ok := recorder.lastSettled()
	require.True(t, ok)
	require.Equal(t, 10, settled.Result.Streak, "streak bounded by the history window")
	require.InDelta(t, 6.00, settled.Result.Multiplier, 1e-9)
}

func TestSnapshotDuringActiveRound(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	engine, mockClock, _ := newTestEngine(t, cfg)

	start := mockClock.Now()
	engine.Join("a")
	require.NoError(t, engine.PlaceWager("a", "head", 10))

	snap := engine.Snapshot()
	require.True(t, snap.RoundActive)
	require.Equal(t, start, snap.StartTime)
	require.Equal(t, start.Add(cfg.RoundDuration), snap.EndTime)
	require.Equal(t, []string{"a"}, snap.Participants)
	require.Equal(t, 10.0, snap.HeadTotal)

	engine.Leave("a")
	snap = engine.Snapshot()
	require.False(t, snap.RoundActive)
	require.True(t, snap.StartTime.IsZero(), "timestamps cleared outside an active round")
}

func TestStaleTimerIgnoredAfterRejoin(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	cfg := DefaultConfig()
	engine, mockClock, recorder := newTestEngine(t, cfg)

	engine.Join("a")
	engine.Leave("a") // forces idle, invalidates the first round's timer

	engine.Join("a") // starts a fresh round at a new epoch
	mockClock.Advance(5 * time.Second).MustWait(ctx)
	require.Equal(t, StateActive, engine.State(), "first round's expiry must not settle the new round early")
	require.Empty(t, recorder.ofType(EventTypeRoundSettled))

	mockClock.Advance(cfg.RoundDuration - 5*time.Second).MustWait(ctx)
	require.Equal(t, StateCooldown, engine.State())
	require.Len(t, recorder.ofType(EventTypeRoundSettled), 1)
}
