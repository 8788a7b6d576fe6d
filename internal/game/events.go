package game

import "time"

// EventType identifies a round lifecycle event.
type EventType string

const (
	EventTypeRoundStarted        EventType = "round-started"
	EventTypeWagerAccepted       EventType = "wager-accepted"
	EventTypeRoundSettled        EventType = "round-settled"
	EventTypeRoundReset          EventType = "round-reset"
	EventTypeParticipantsChanged EventType = "participants-changed"
	EventTypeParticipantLeft     EventType = "participant-left"
)

// String returns the string representation of the event type.
func (et EventType) String() string { return string(et) }

// Event is any notification the engine publishes for the transport layer.
type Event interface {
	EventType() EventType
	Timestamp() time.Time
}

// RoundStartedEvent is published when a new round opens for wagers.
type RoundStartedEvent struct {
	Duration  time.Duration
	StartTime time.Time
	timestamp time.Time
}

func (e RoundStartedEvent) EventType() EventType { return EventTypeRoundStarted }
func (e RoundStartedEvent) Timestamp() time.Time { return e.timestamp }

// NewRoundStartedEvent creates a new round started event.
func NewRoundStartedEvent(duration time.Duration, startTime time.Time) RoundStartedEvent {
	return RoundStartedEvent{Duration: duration, StartTime: startTime, timestamp: time.Now()}
}

// WagerAcceptedEvent is published after a wager is recorded, carrying the
// updated side totals for all observers.
type WagerAcceptedEvent struct {
	HeadTotal float64
	TaleTotal float64
	Wager     Wager
	timestamp time.Time
}

func (e WagerAcceptedEvent) EventType() EventType { return EventTypeWagerAccepted }
func (e WagerAcceptedEvent) Timestamp() time.Time { return e.timestamp }

// NewWagerAcceptedEvent creates a new wager accepted event.
func NewWagerAcceptedEvent(headTotal, taleTotal float64, wager Wager) WagerAcceptedEvent {
	return WagerAcceptedEvent{HeadTotal: headTotal, TaleTotal: taleTotal, Wager: wager, timestamp: time.Now()}
}

// RoundSettledEvent is published once per settled round.
type RoundSettledEvent struct {
	Result    Result
	timestamp time.Time
}

func (e RoundSettledEvent) EventType() EventType { return EventTypeRoundSettled }
func (e RoundSettledEvent) Timestamp() time.Time { return e.timestamp }

// NewRoundSettledEvent creates a new round settled event.
func NewRoundSettledEvent(result Result) RoundSettledEvent {
	return RoundSettledEvent{Result: result, timestamp: time.Now()}
}

// RoundResetEvent is published when the cooldown ends and the ledger has
// been cleared.
type RoundResetEvent struct {
	timestamp time.Time
}

func (e RoundResetEvent) EventType() EventType { return EventTypeRoundReset }
func (e RoundResetEvent) Timestamp() time.Time { return e.timestamp }

// NewRoundResetEvent creates a new round reset event.
func NewRoundResetEvent() RoundResetEvent {
	return RoundResetEvent{timestamp: time.Now()}
}

// ParticipantsChangedEvent is published when a participant joins.
type ParticipantsChangedEvent struct {
	Participants []string
	timestamp    time.Time
}

func (e ParticipantsChangedEvent) EventType() EventType { return EventTypeParticipantsChanged }
func (e ParticipantsChangedEvent) Timestamp() time.Time { return e.timestamp }

// NewParticipantsChangedEvent creates a new participants changed event.
func NewParticipantsChangedEvent(participants []string) ParticipantsChangedEvent {
	return ParticipantsChangedEvent{Participants: participants, timestamp: time.Now()}
}

// ParticipantLeftEvent is published when a participant disconnects. It
// carries the corrected side totals so observers can reconcile a wager
// purged mid-round.
type ParticipantLeftEvent struct {
	ParticipantID string
	Participants  []string
	HeadTotal     float64
	TaleTotal     float64
	timestamp     time.Time
}

func (e ParticipantLeftEvent) EventType() EventType { return EventTypeParticipantLeft }
func (e ParticipantLeftEvent) Timestamp() time.Time { return e.timestamp }

// NewParticipantLeftEvent creates a new participant left event.
func NewParticipantLeftEvent(participantID string, participants []string, headTotal, taleTotal float64) ParticipantLeftEvent {
	return ParticipantLeftEvent{
		ParticipantID: participantID,
		Participants:  participants,
		HeadTotal:     headTotal,
		TaleTotal:     taleTotal,
		timestamp:     time.Now(),
	}
}

// EventSubscriber can subscribe to engine events.
type EventSubscriber interface {
	OnEvent(event Event)
}

// EventBus manages event publishing and subscription.
type EventBus interface {
	Subscribe(subscriber EventSubscriber)
	Unsubscribe(subscriber EventSubscriber)
	Publish(event Event)
}

// SimpleEventBus is a basic in-memory event bus implementation. Events are
// delivered synchronously in subscription order; subscribers must not call
// back into the engine from OnEvent.
type SimpleEventBus struct {
	subscribers []EventSubscriber
}

// NewEventBus creates a new event bus.
func NewEventBus() EventBus {
	return &SimpleEventBus{subscribers: make([]EventSubscriber, 0)}
}

// Subscribe adds a subscriber to receive events.
func (bus *SimpleEventBus) Subscribe(subscriber EventSubscriber) {
	bus.subscribers = append(bus.subscribers, subscriber)
}

// Unsubscribe removes a subscriber from receiving events.
func (bus *SimpleEventBus) Unsubscribe(subscriber EventSubscriber) {
	for i, sub := range bus.subscribers {
		if sub == subscriber {
			bus.subscribers = append(bus.subscribers[:i], bus.subscribers[i+1:]...)
			break
		}
	}
}

// Publish sends an event to all subscribers.
func (bus *SimpleEventBus) Publish(event Event) {
	for _, subscriber := range bus.subscribers {
		subscriber.OnEvent(event)
	}
}
