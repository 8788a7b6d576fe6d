package server

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/lox/flipside/internal/game"
)

// testGameConfig keeps rounds effectively open for the whole test so no
// timer fires mid-assertion.
func testGameConfig() game.Config {
	cfg := game.DefaultConfig()
	cfg.RoundDuration = time.Hour
	cfg.Cooldown = time.Hour
	return cfg
}

func newTestServer(t *testing.T, cfg game.Config) (*Server, *httptest.Server) {
	t.Helper()

	engine := game.NewEngine(cfg, quartz.NewReal(), log.New(io.Discard))
	srv := NewServer("localhost:0", engine, log.New(io.Discard))
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return srv, ts
}

func dialWS(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	ws, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ws.Close() })
	return ws
}

// readUntil reads messages until one of the wanted type arrives, skipping
// unrelated broadcasts that race ahead of it.
func readUntil(t *testing.T, ws *websocket.Conn, want MessageType) *Message {
	t.Helper()

	require.NoError(t, ws.SetReadDeadline(time.Now().Add(3*time.Second)))
	for {
		var msg Message
		require.NoError(t, ws.ReadJSON(&msg), "waiting for %s", want)
		if msg.Type == want {
			return &msg
		}
	}
}

func unmarshalData(t *testing.T, msg *Message, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(msg.Data, v))
}

func sendWager(t *testing.T, ws *websocket.Conn, side string, amount float64) {
	t.Helper()

	msg, err := NewMessage(MessageTypeWager, WagerData{Side: side, Amount: amount})
	require.NoError(t, err)
	require.NoError(t, ws.WriteJSON(msg))
}

func connect(t *testing.T, ts *httptest.Server) (*websocket.Conn, SnapshotData) {
	t.Helper()

	ws := dialWS(t, ts)
	var snapshot SnapshotData
	unmarshalData(t, readUntil(t, ws, MessageTypeSnapshot), &snapshot)
	require.NotEmpty(t, snapshot.ParticipantID)
	return ws, snapshot
}

func TestHealthEndpoint(t *testing.T) {
	t.Parallel()

	_, ts := newTestServer(t, testGameConfig())

	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestSnapshotOnConnect(t *testing.T) {
	t.Parallel()

	_, ts := newTestServer(t, testGameConfig())

	_, snapshot := connect(t, ts)
	require.True(t, snapshot.RoundActive, "eager start opens a round for the first join")
	require.Contains(t, snapshot.ActiveParticipants, snapshot.ParticipantID)
	require.Equal(t, time.Hour.Milliseconds(), snapshot.Duration)
	require.Equal(t, 0.0, snapshot.HeadTotal)
	require.Empty(t, snapshot.History)
}

func TestWagerAcceptedBroadcast(t *testing.T) {
	t.Parallel()

	_, ts := newTestServer(t, testGameConfig())

	wsA, snapA := connect(t, ts)
	wsB, _ := connect(t, ts)

	sendWager(t, wsA, "head", 25)

	for _, ws := range []*websocket.Conn{wsA, wsB} {
		var accepted WagerAcceptedData
		unmarshalData(t, readUntil(t, ws, MessageTypeWagerAccepted), &accepted)
		require.Equal(t, 25.0, accepted.HeadTotal)
		require.Equal(t, 0.0, accepted.TaleTotal)
		require.Equal(t, snapA.ParticipantID, accepted.NewWager.ParticipantID)
		require.Equal(t, game.SideHead, accepted.NewWager.Side)
	}
}

func TestWagerRejections(t *testing.T) {
	t.Parallel()

	_, ts := newTestServer(t, testGameConfig())

	ws, _ := connect(t, ts)

	sendWager(t, ws, "edge", 10)
	var errData ErrorData
	unmarshalData(t, readUntil(t, ws, MessageTypeError), &errData)
	require.Equal(t, "invalid_side", errData.Code)

	sendWager(t, ws, "head", 10)
	readUntil(t, ws, MessageTypeWagerAccepted)

	sendWager(t, ws, "tale", 5)
	unmarshalData(t, readUntil(t, ws, MessageTypeError), &errData)
	require.Equal(t, "duplicate_wager", errData.Code)
}

func TestDisconnectBroadcastsParticipantLeft(t *testing.T) {
	t.Parallel()

	_, ts := newTestServer(t, testGameConfig())

	wsA, snapA := connect(t, ts)
	wsB, snapB := connect(t, ts)

	sendWager(t, wsB, "tale", 40)
	readUntil(t, wsA, MessageTypeWagerAccepted)

	require.NoError(t, wsB.Close())

	var left ParticipantLeftData
	unmarshalData(t, readUntil(t, wsA, MessageTypeParticipantLeft), &left)
	require.Equal(t, snapB.ParticipantID, left.ParticipantID)
	require.Equal(t, []string{snapA.ParticipantID}, left.ActiveParticipants)
	require.Equal(t, 0.0, left.TaleTotal, "mid-round wager purged on disconnect")
}

func TestMetricsEndpoint(t *testing.T) {
	t.Parallel()

	_, ts := newTestServer(t, testGameConfig())

	ws, _ := connect(t, ts)
	sendWager(t, ws, "head", 10)
	readUntil(t, ws, MessageTypeWagerAccepted)

	resp, err := http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Contains(t, string(body), "flipside_active_participants 1")
	require.Contains(t, string(body), `flipside_wagers_total{side="head"} 1`)
}

func TestUnknownMessageType(t *testing.T) {
	t.Parallel()

	_, ts := newTestServer(t, testGameConfig())

	ws, _ := connect(t, ts)

	msg, err := NewMessage(MessageType("bogus"), struct{}{})
	require.NoError(t, err)
	require.NoError(t, ws.WriteJSON(msg))

	var errData ErrorData
	unmarshalData(t, readUntil(t, ws, MessageTypeError), &errData)
	require.Equal(t, "unknown_message_type", errData.Code)
}
