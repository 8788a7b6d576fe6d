package game

import (
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
)

// State of the round lifecycle.
type State string

const (
	StateIdle     State = "idle"
	StateActive   State = "active"
	StateSettling State = "settling"
	StateCooldown State = "cooldown"
)

// String returns the string representation of the state.
func (s State) String() string { return string(s) }

// Config holds the engine's timing and policy knobs.
type Config struct {
	// RoundDuration is how long a round accepts wagers.
	RoundDuration time.Duration
	// Cooldown is the pause between settlement and the next round.
	Cooldown time.Duration
	// HistorySize bounds the outcome window used for streak tracking.
	HistorySize int
	// EagerStart starts a round as soon as the first participant joins an
	// idle engine. With it off, the first accepted wager starts the round.
	EagerStart bool
}

// DefaultConfig returns the standard round timing.
func DefaultConfig() Config {
	return Config{
		RoundDuration: 10 * time.Second,
		Cooldown:      3 * time.Second,
		HistorySize:   10,
		EagerStart:    true,
	}
}

// Engine owns the round state machine: the ledger, the outcome history,
// the active participant set and the round/cooldown timers. All mutation
// goes through its exported methods under a single mutex. Timer callbacks
// carry the epoch they were scheduled in and become no-ops once the epoch
// moves on, so a stale or duplicate fire can never settle a cleared
// ledger.
type Engine struct {
	mu     sync.Mutex
	cfg    Config
	clock  quartz.Clock
	logger *log.Logger
	bus    EventBus

	state        State
	epoch        uint64
	startTime    time.Time
	endTime      time.Time
	ledger       *Ledger
	history      *History
	participants map[string]struct{}

	roundTimer    *quartz.Timer
	cooldownTimer *quartz.Timer
}

// NewEngine creates an idle engine. The clock is injected so tests can
// drive round expiry deterministically.
func NewEngine(cfg Config, clock quartz.Clock, logger *log.Logger) *Engine {
	return &Engine{
		cfg:          cfg,
		clock:        clock,
		logger:       logger.WithPrefix("engine"),
		bus:          NewEventBus(),
		state:        StateIdle,
		ledger:       NewLedger(),
		history:      NewHistory(cfg.HistorySize),
		participants: make(map[string]struct{}),
	}
}

// Bus returns the engine's event bus for transport-layer subscribers.
func (e *Engine) Bus() EventBus { return e.bus }

// State returns the current lifecycle state.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Snapshot is the late-joiner view of the engine: enough to render
// history, participants and, when a round is active, its timing.
type Snapshot struct {
	State         State
	History       []Outcome
	Participants  []string
	HeadTotal     float64
	TaleTotal     float64
	RoundActive   bool
	StartTime     time.Time
	EndTime       time.Time
	RoundDuration time.Duration
}

// Snapshot returns a consistent view of the current engine state.
func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()

	head, tale := e.ledger.Totals()
	return Snapshot{
		State:         e.state,
		History:       e.history.Outcomes(),
		Participants:  e.participantList(),
		HeadTotal:     head,
		TaleTotal:     tale,
		RoundActive:   e.state == StateActive,
		StartTime:     e.startTime,
		EndTime:       e.endTime,
		RoundDuration: e.cfg.RoundDuration,
	}
}

// Join registers a participant as active. Under the eager start policy the
// first join of an idle engine opens a round immediately.
func (e *Engine) Join(participantID string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.participants[participantID] = struct{}{}
	e.logger.Info("participant joined", "participant", participantID, "active", len(e.participants))
	e.bus.Publish(NewParticipantsChangedEvent(e.participantList()))

	if e.cfg.EagerStart && e.state == StateIdle {
		e.startRound()
	}
}

// Leave removes a participant. A wager already placed this round is purged
// and the corrected totals travel with the published event; once the round
// has reached settling the ledger is frozen and the wager settles
// normally. When the last participant leaves, the round is forced idle
// without settlement.
func (e *Engine) Leave(participantID string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, ok := e.participants[participantID]; !ok {
		return
	}
	delete(e.participants, participantID)

	if e.state == StateActive {
		if e.ledger.Remove(participantID) {
			e.logger.Debug("purged wager of departing participant", "participant", participantID)
		}
	}

	head, tale := e.ledger.Totals()
	e.logger.Info("participant left", "participant", participantID, "active", len(e.participants))
	e.bus.Publish(NewParticipantLeftEvent(participantID, e.participantList(), head, tale))

	if len(e.participants) == 0 && e.state != StateIdle {
		e.forceIdle()
	}
}

// PlaceWager validates and records a wager for the active round, starting
// a round first if the engine is idle. Rejections leave all state
// untouched.
func (e *Engine) PlaceWager(participantID, side string, amount float64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	s, err := ParseSide(side)
	if err != nil {
		return err
	}
	if amount <= 0 || math.IsNaN(amount) || math.IsInf(amount, 0) {
		return fmt.Errorf("%w: %v", ErrInvalidAmount, amount)
	}

	if e.state == StateIdle {
		e.startRound()
	}
	if e.state != StateActive {
		return ErrRoundInactive
	}

	w := Wager{ParticipantID: participantID, Side: s, Amount: amount}
	if err := e.ledger.Place(w); err != nil {
		return err
	}

	head, tale := e.ledger.Totals()
	e.logger.Debug("wager accepted",
		"participant", participantID, "side", s, "amount", amount,
		"head", head, "tale", tale)
	e.bus.Publish(NewWagerAcceptedEvent(head, tale, w))
	return nil
}

// startRound opens a new round and schedules its expiry. Caller holds the
// mutex.
func (e *Engine) startRound() {
	e.epoch++
	epoch := e.epoch
	e.state = StateActive
	e.startTime = e.clock.Now()
	e.endTime = e.startTime.Add(e.cfg.RoundDuration)

	e.logger.Info("round started", "epoch", epoch, "duration", e.cfg.RoundDuration)
	e.bus.Publish(NewRoundStartedEvent(e.cfg.RoundDuration, e.startTime))

	e.roundTimer = e.clock.AfterFunc(e.cfg.RoundDuration, func() {
		e.expireRound(epoch)
	})
}

// expireRound settles the round when its timer fires.
func (e *Engine) expireRound(epoch uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()

	// Stale or duplicate timer fire.
	if epoch != e.epoch || e.state != StateActive {
		return
	}

	e.state = StateSettling
	result := Settle(e.ledger, e.history)
	e.logger.Info("round settled",
		"winner", result.Winner, "head", result.HeadTotal, "tale", result.TaleTotal,
		"streak", result.Streak, "multiplier", result.Multiplier, "wagers", len(result.Players))
	e.bus.Publish(NewRoundSettledEvent(result))

	// The ledger is kept intact through the cooldown; the emitted result
	// may still reference it.
	e.state = StateCooldown
	e.cooldownTimer = e.clock.AfterFunc(e.cfg.Cooldown, func() {
		e.finishCooldown(epoch)
	})
}

// finishCooldown clears the round and auto-restarts while participants
// remain.
func (e *Engine) finishCooldown(epoch uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if epoch != e.epoch || e.state != StateCooldown {
		return
	}

	e.ledger.Clear()
	e.startTime, e.endTime = time.Time{}, time.Time{}
	e.state = StateIdle
	e.bus.Publish(NewRoundResetEvent())

	if len(e.participants) > 0 {
		e.startRound()
	}
}

// forceIdle cancels pending timers and discards the in-flight round
// without settlement. Caller holds the mutex.
func (e *Engine) forceIdle() {
	e.epoch++ // invalidate any timer already scheduled
	if e.roundTimer != nil {
		e.roundTimer.Stop()
		e.roundTimer = nil
	}
	if e.cooldownTimer != nil {
		e.cooldownTimer.Stop()
		e.cooldownTimer = nil
	}
	e.ledger.Clear()
	e.startTime, e.endTime = time.Time{}, time.Time{}
	e.state = StateIdle
	e.logger.Info("last participant left, round forced idle")
}

func (e *Engine) participantList() []string {
	ids := make([]string, 0, len(e.participants))
	for id := range e.participants {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
