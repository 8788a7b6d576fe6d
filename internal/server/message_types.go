package server

// MessageType represents a WebSocket message type with type safety.
type MessageType string

// WebSocket message type constants for the wagering protocol. Server to
// client types mirror the engine's event types; snapshot and error are
// per-connection only.
const (
	// Client to server messages
	MessageTypeWager MessageType = "wager"

	// Server to client messages
	MessageTypeSnapshot            MessageType = "snapshot"
	MessageTypeRoundStarted        MessageType = "round-started"
	MessageTypeWagerAccepted       MessageType = "wager-accepted"
	MessageTypeRoundSettled        MessageType = "round-settled"
	MessageTypeRoundReset          MessageType = "round-reset"
	MessageTypeParticipantsChanged MessageType = "participants-changed"
	MessageTypeParticipantLeft     MessageType = "participant-left"
	MessageTypeError               MessageType = "error"
)

// String returns the string representation of the message type.
func (mt MessageType) String() string { return string(mt) }
