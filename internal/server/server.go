package server

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/lox/flipside/internal/game"
)

// Server owns the WebSocket side of the game: it assigns participant IDs,
// feeds wagers into the engine and fans engine events out to every
// connected client.
type Server struct {
	addr        string
	upgrader    websocket.Upgrader
	connections map[*Connection]bool
	register    chan *Connection
	unregister  chan *Connection
	logger      *log.Logger
	mu          sync.RWMutex
	ctx         context.Context
	cancel      context.CancelFunc
	engine      *game.Engine
	metrics     *Metrics
	registry    *prometheus.Registry
	httpServer  *http.Server
}

// NewServer creates a new WebSocket server around the given engine and
// subscribes to its events.
func NewServer(addr string, engine *game.Engine, logger *log.Logger) *Server {
	ctx, cancel := context.WithCancel(context.Background())

	registry := prometheus.NewRegistry()
	s := &Server{
		addr: addr,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				// For development, allow all origins
				// In production, implement proper origin checking
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		connections: make(map[*Connection]bool),
		register:    make(chan *Connection),
		unregister:  make(chan *Connection),
		logger:      logger.WithPrefix("server"),
		ctx:         ctx,
		cancel:      cancel,
		engine:      engine,
		metrics:     NewMetrics(registry),
		registry:    registry,
	}

	engine.Bus().Subscribe(s)
	go s.run()
	return s
}

// Handler returns the server's HTTP handler. Exposed so tests can mount
// it on an httptest server.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("/health", s.handleHealth)
	mux.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))
	return mux
}

// Start starts the WebSocket server and blocks until it stops.
func (s *Server) Start() error {
	s.httpServer = &http.Server{Addr: s.addr, Handler: s.Handler()}
	s.logger.Info("Starting WebSocket server", "addr", s.addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully stops the server, closing all client connections.
func (s *Server) Shutdown(ctx context.Context) error {
	s.cancel()

	s.mu.Lock()
	for conn := range s.connections {
		_ = conn.Close() // Ignore close errors during shutdown
	}
	s.mu.Unlock()

	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}

// run handles connection lifecycle. Engine calls happen outside the
// server mutex because the engine's events come back through Broadcast,
// which takes it.
func (s *Server) run() {
	for {
		select {
		case conn := <-s.register:
			s.mu.Lock()
			s.connections[conn] = true
			total := len(s.connections)
			s.mu.Unlock()
			s.logger.Info("Client connected", "participant", conn.ParticipantID(), "total", total)

		case conn := <-s.unregister:
			s.mu.Lock()
			_, ok := s.connections[conn]
			if ok {
				delete(s.connections, conn)
			}
			total := len(s.connections)
			s.mu.Unlock()

			if ok {
				_ = conn.Close() // Ignore close errors during unregistration
				s.engine.Leave(conn.ParticipantID())
				s.logger.Info("Client disconnected", "participant", conn.ParticipantID(), "total", total)
			}

		case <-s.ctx.Done():
			return
		}
	}
}

// handleWebSocket handles WebSocket upgrade requests
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("Failed to upgrade connection", "error", err)
		return
	}

	client := NewConnection(conn, uuid.NewString(), s.logger, s.engine)
	s.register <- client
	client.Start()

	// Join before the snapshot so the snapshot includes the new
	// participant; broadcasts raced during the join are subsumed by it.
	s.engine.Join(client.ParticipantID())
	s.sendSnapshot(client)

	// Connection cleanup is handled by the connection itself
	go func() {
		<-client.ctx.Done()
		s.unregister <- client
	}()
}

// sendSnapshot sends the late-joiner state sync to a single client.
func (s *Server) sendSnapshot(client *Connection) {
	snapshot := s.engine.Snapshot()
	msg, err := NewMessage(MessageTypeSnapshot, SnapshotFromGame(client.ParticipantID(), snapshot))
	if err != nil {
		s.logger.Error("Failed to create snapshot message", "error", err)
		return
	}
	_ = client.SendMessage(msg) // Ignore send errors
}

// handleHealth handles health check requests
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = fmt.Fprintf(w, "OK") // Ignore write errors for health check
}

// Broadcast sends a message to every connected client.
func (s *Server) Broadcast(msg *Message) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for conn := range s.connections {
		if err := conn.SendMessage(msg); err != nil {
			s.logger.Error("Failed to send message to client", "error", err, "participant", conn.ParticipantID())
		} else {
			count++
		}
	}

	s.logger.Debug("Broadcasted message", "type", msg.Type, "recipients", count)
}

// OnEvent implements game.EventSubscriber, translating engine events into
// broadcast messages and metric updates.
func (s *Server) OnEvent(event game.Event) {
	switch e := event.(type) {
	case game.RoundStartedEvent:
		s.broadcastData(MessageTypeRoundStarted, RoundStartedData{
			Duration:  e.Duration.Milliseconds(),
			StartTime: e.StartTime,
		})

	case game.WagerAcceptedEvent:
		s.metrics.WagersPlaced.WithLabelValues(string(e.Wager.Side)).Inc()
		s.broadcastData(MessageTypeWagerAccepted, WagerAcceptedData{
			HeadTotal: e.HeadTotal,
			TaleTotal: e.TaleTotal,
			NewWager:  e.Wager,
		})

	case game.RoundSettledEvent:
		s.metrics.RoundsSettled.WithLabelValues(string(e.Result.Winner)).Inc()
		s.broadcastData(MessageTypeRoundSettled, RoundSettledFromResult(e.Result))

	case game.RoundResetEvent:
		s.broadcastData(MessageTypeRoundReset, RoundResetData{})

	case game.ParticipantsChangedEvent:
		s.metrics.ActiveParticipants.Set(float64(len(e.Participants)))
		s.broadcastData(MessageTypeParticipantsChanged, ParticipantsChangedData{
			ActiveParticipants: e.Participants,
		})

	case game.ParticipantLeftEvent:
		s.metrics.ActiveParticipants.Set(float64(len(e.Participants)))
		s.broadcastData(MessageTypeParticipantLeft, ParticipantLeftData{
			ParticipantID:      e.ParticipantID,
			ActiveParticipants: e.Participants,
			HeadTotal:          e.HeadTotal,
			TaleTotal:          e.TaleTotal,
		})
	}
}

func (s *Server) broadcastData(messageType MessageType, data interface{}) {
	msg, err := NewMessage(messageType, data)
	if err != nil {
		s.logger.Error("Failed to create broadcast message", "type", messageType, "error", err)
		return
	}
	s.Broadcast(msg)
}
