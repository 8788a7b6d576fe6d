package server

import (
	"encoding/json"
	"time"

	"github.com/lox/flipside/internal/game"
)

// Message represents the base WebSocket message structure.
type Message struct {
	Type      MessageType     `json:"type"`
	Data      json.RawMessage `json:"data"`
	Timestamp time.Time       `json:"timestamp"`
}

// NewMessage creates a new message with the current timestamp.
func NewMessage(messageType MessageType, data interface{}) (*Message, error) {
	dataBytes, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	return &Message{
		Type:      messageType,
		Data:      dataBytes,
		Timestamp: time.Now(),
	}, nil
}

// Client → Server Messages

type WagerData struct {
	Side   string  `json:"side"`
	Amount float64 `json:"amount"`
}

// Server → Client Messages

type ErrorData struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// SnapshotData synchronizes a late joiner: its assigned participant ID,
// the outcome history, everyone connected and the in-flight round, if any.
type SnapshotData struct {
	ParticipantID      string         `json:"participantId"`
	History            []game.Outcome `json:"history"`
	ActiveParticipants []string       `json:"activeParticipants"`
	HeadTotal          float64        `json:"headTotal"`
	TaleTotal          float64        `json:"taleTotal"`
	RoundActive        bool           `json:"roundActive"`
	StartTime          time.Time      `json:"startTime"`
	Duration           int64          `json:"duration"` // milliseconds
}

type RoundStartedData struct {
	Duration  int64     `json:"duration"` // milliseconds
	StartTime time.Time `json:"startTime"`
}

type WagerAcceptedData struct {
	HeadTotal float64    `json:"headTotal"`
	TaleTotal float64    `json:"taleTotal"`
	NewWager  game.Wager `json:"newWager"`
}

type RoundSettledData struct {
	HeadTotal     float64                      `json:"headTotal"`
	TaleTotal     float64                      `json:"taleTotal"`
	Winner        game.Outcome                 `json:"winner"`
	Streak        int                          `json:"streak"`
	Multiplier    float64                      `json:"multiplier"`
	History       []game.Outcome               `json:"history"`
	PlayerResults map[string]game.PlayerResult `json:"playerResults"`
}

type RoundResetData struct{}

type ParticipantsChangedData struct {
	ActiveParticipants []string `json:"activeParticipants"`
}

// ParticipantLeftData carries the corrected totals so clients reconcile a
// wager purged mid-round.
type ParticipantLeftData struct {
	ParticipantID      string   `json:"participantId"`
	ActiveParticipants []string `json:"activeParticipants"`
	HeadTotal          float64  `json:"headTotal"`
	TaleTotal          float64  `json:"taleTotal"`
}

// Helper functions to convert between engine types and message types

func RoundSettledFromResult(r game.Result) RoundSettledData {
	return RoundSettledData{
		HeadTotal:     r.HeadTotal,
		TaleTotal:     r.TaleTotal,
		Winner:        r.Winner,
		Streak:        r.Streak,
		Multiplier:    r.Multiplier,
		History:       r.History,
		PlayerResults: r.Players,
	}
}

func SnapshotFromGame(participantID string, s game.Snapshot) SnapshotData {
	return SnapshotData{
		ParticipantID:      participantID,
		History:            s.History,
		ActiveParticipants: s.Participants,
		HeadTotal:          s.HeadTotal,
		TaleTotal:          s.TaleTotal,
		RoundActive:        s.RoundActive,
		StartTime:          s.StartTime,
		Duration:           s.RoundDuration.Milliseconds(),
	}
}
