package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/streamscore/go/internal/events"
	"github.com/mcdev12/streamscore/go/internal/metrics"
	"github.com/mcdev12/streamscore/go/internal/scoreboard"
	"github.com/rs/zerolog/log"
)

// Role is recorded per connection. Both roles receive identical broadcasts.
type Role string

const (
	RoleController Role = "controller"
	RoleOverlay    Role = "overlay"
)

// ParseRole maps a query value to a role, defaulting to controller
func ParseRole(v string) (Role, error) {
	switch Role(v) {
	case "", RoleController:
		return RoleController, nil
	case RoleOverlay:
		return RoleOverlay, nil
	default:
		return "", fmt.Errorf("unknown role %q", v)
	}
}

// ConnectionManager fans snapshots out to every WebSocket connection
type ConnectionManager struct {
	connections map[*Connection]bool
	mu          sync.RWMutex

	upgrader websocket.Upgrader
	config   ConnectionConfig

	store   *scoreboard.Store
	clock   clockwork.Clock
	metrics *metrics.WebSocketMetrics
}

// Connection represents a WebSocket connection to a client
type Connection struct {
	ID      string
	Role    Role
	Conn    *websocket.Conn
	Send    chan []byte
	Manager *ConnectionManager

	ConnectedAt time.Time

	// guards Send against close and filters stale revisions
	sendMu       sync.Mutex
	closed       bool
	lastRevision uint64
	hasSent      bool
}

// ConnectionConfig holds configuration for WebSocket connections
type ConnectionConfig struct {
	WriteTimeout    time.Duration
	ReadTimeout     time.Duration
	PingInterval    time.Duration
	StatsInterval   time.Duration
	MaxMessageSize  int64
	ReadBufferSize  int
	WriteBufferSize int
	SendBufferSize  int
	CheckOrigin     func(r *http.Request) bool
}

// DefaultConnectionConfig returns default WebSocket configuration
func DefaultConnectionConfig() ConnectionConfig {
	return ConnectionConfig{
		WriteTimeout:    10 * time.Second,
		ReadTimeout:     60 * time.Second,
		PingInterval:    30 * time.Second,
		StatsInterval:   30 * time.Second,
		MaxMessageSize:  16 << 20, // logos travel as data URLs
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		SendBufferSize:  256,
		CheckOrigin: func(r *http.Request) bool {
			// overlays are loaded by OBS from arbitrary origins
			return true
		},
	}
}

// NewConnectionManager creates a connection manager broadcasting snapshots from store.
// It registers itself as a store listener.
func NewConnectionManager(config ConnectionConfig, store *scoreboard.Store, clock clockwork.Clock, m *metrics.WebSocketMetrics) *ConnectionManager {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if config.SendBufferSize < 1 {
		log.Warn().Int("send_buffer", config.SendBufferSize).Msg("send buffer must hold at least one frame, using default")
		config.SendBufferSize = DefaultConnectionConfig().SendBufferSize
	}
	cm := &ConnectionManager{
		connections: make(map[*Connection]bool),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  config.ReadBufferSize,
			WriteBufferSize: config.WriteBufferSize,
			CheckOrigin:     config.CheckOrigin,
		},
		config:  config,
		store:   store,
		clock:   clock,
		metrics: m,
	}
	store.AddListener(cm)
	return cm
}

// Start reports connection stats until ctx is done, then closes every connection
func (cm *ConnectionManager) Start(ctx context.Context) {
	log.Info().Msg("connection manager started")

	ticker := cm.clock.NewTicker(cm.config.StatsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("connection manager shutting down")
			cm.closeAll()
			return
		case <-ticker.Chan():
			stats := cm.GetConnectionStats()
			log.Info().
				Int("total_connections", stats.TotalConnections).
				Int("controllers", stats.Controllers).
				Int("overlays", stats.Overlays).
				Uint64("revision", cm.store.Current().Revision).
				Msg("connection stats")
		}
	}
}

// UpgradeConnection upgrades an HTTP connection to WebSocket and sends it the current snapshot
func (cm *ConnectionManager) UpgradeConnection(w http.ResponseWriter, r *http.Request, role Role) error {
	conn, err := cm.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return fmt.Errorf("failed to upgrade connection: %w", err)
	}

	connection := &Connection{
		ID:          uuid.New().String(),
		Role:        role,
		Conn:        conn,
		Send:        make(chan []byte, cm.config.SendBufferSize),
		Manager:     cm,
		ConnectedAt: cm.clock.Now(),
	}

	// Register and queue the initial snapshot while replacements are held off,
	// so the first frame is the latest state and no broadcast is skipped.
	var queued bool
	cm.store.View(func(snap scoreboard.Snapshot) {
		cm.registerConnection(connection)
		frame, err := cm.encodeSnapshot(snap)
		if err != nil {
			log.Error().Err(err).Msg("failed to encode initial snapshot")
			return
		}
		queued = connection.enqueue(snap.Revision, frame)
	})
	if !queued {
		cm.unregisterConnection(connection)
		conn.Close()
		return fmt.Errorf("failed to queue initial snapshot for connection %s", connection.ID)
	}

	go connection.writePump()
	go connection.readPump()

	log.Info().
		Str("connection_id", connection.ID).
		Str("role", string(role)).
		Str("remote_addr", r.RemoteAddr).
		Msg("WebSocket connection established")

	return nil
}

// registerConnection adds a connection to the manager
func (cm *ConnectionManager) registerConnection(conn *Connection) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	cm.connections[conn] = true
	if cm.metrics != nil {
		cm.metrics.ActiveConnections.WithLabelValues(string(conn.Role)).Inc()
	}

	log.Debug().
		Str("connection_id", conn.ID).
		Int("total_connections", len(cm.connections)).
		Msg("connection registered")
}

// unregisterConnection removes a connection from the manager
func (cm *ConnectionManager) unregisterConnection(conn *Connection) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	if _, exists := cm.connections[conn]; !exists {
		return
	}
	delete(cm.connections, conn)
	conn.closeSend()
	if cm.metrics != nil {
		cm.metrics.ActiveConnections.WithLabelValues(string(conn.Role)).Dec()
	}

	log.Info().
		Str("connection_id", conn.ID).
		Str("role", string(conn.Role)).
		Dur("connected_for", cm.clock.Since(conn.ConnectedAt)).
		Msg("connection unregistered")
}

// SnapshotReplaced implements scoreboard.Listener by pushing the snapshot to every connection
func (cm *ConnectionManager) SnapshotReplaced(snap scoreboard.Snapshot) {
	frame, err := cm.encodeSnapshot(snap)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal snapshot for broadcast")
		return
	}

	// Copy the set to avoid holding the lock while closing slow connections
	cm.mu.RLock()
	targets := make([]*Connection, 0, len(cm.connections))
	for conn := range cm.connections {
		targets = append(targets, conn)
	}
	cm.mu.RUnlock()

	for _, conn := range targets {
		if conn.enqueue(snap.Revision, frame) {
			continue
		}
		log.Warn().
			Str("connection_id", conn.ID).
			Str("role", string(conn.Role)).
			Msg("connection send buffer full, closing connection")
		if cm.metrics != nil {
			cm.metrics.SlowClientsClosed.Inc()
		}
		cm.unregisterConnection(conn)
		conn.Conn.Close()
	}

	if cm.metrics != nil {
		cm.metrics.MessagesPublished.Add(float64(len(targets)))
	}

	log.Debug().
		Uint64("revision", snap.Revision).
		Str("origin", snap.Origin).
		Int("connections", len(targets)).
		Msg("state broadcasted")
}

func (cm *ConnectionManager) encodeSnapshot(snap scoreboard.Snapshot) ([]byte, error) {
	env, err := events.NewStateUpdate(snap.State, snap.Revision, cm.clock.Now())
	if err != nil {
		return nil, err
	}
	return json.Marshal(env)
}

// ConnectionStats summarizes active connections
type ConnectionStats struct {
	TotalConnections int `json:"total_connections"`
	Controllers      int `json:"controllers"`
	Overlays         int `json:"overlays"`
}

// GetConnectionStats returns statistics about active connections
func (cm *ConnectionManager) GetConnectionStats() ConnectionStats {
	cm.mu.RLock()
	defer cm.mu.RUnlock()

	stats := ConnectionStats{TotalConnections: len(cm.connections)}
	for conn := range cm.connections {
		switch conn.Role {
		case RoleOverlay:
			stats.Overlays++
		default:
			stats.Controllers++
		}
	}
	return stats
}

func (cm *ConnectionManager) closeAll() {
	cm.mu.RLock()
	targets := make([]*Connection, 0, len(cm.connections))
	for conn := range cm.connections {
		targets = append(targets, conn)
	}
	cm.mu.RUnlock()

	for _, conn := range targets {
		cm.unregisterConnection(conn)
	}
}

// enqueue queues a frame without blocking. Frames older than the last queued
// revision are dropped. Returns false only when the buffer is full.
func (c *Connection) enqueue(revision uint64, frame []byte) bool {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()

	if c.closed {
		return true
	}
	if c.hasSent && revision <= c.lastRevision {
		return true
	}

	select {
	case c.Send <- frame:
		c.lastRevision = revision
		c.hasSent = true
		return true
	default:
		return false
	}
}

func (c *Connection) closeSend() {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()

	if !c.closed {
		c.closed = true
		close(c.Send)
	}
}

// writePump handles sending messages to the WebSocket connection
func (c *Connection) writePump() {
	ticker := c.Manager.clock.NewTicker(c.Manager.config.PingInterval)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
		c.Manager.unregisterConnection(c)
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(c.Manager.config.WriteTimeout))
			if !ok {
				// Channel was closed
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Debug().
					Err(err).
					Str("connection_id", c.ID).
					Msg("failed to write message to WebSocket")
				return
			}

		case <-ticker.Chan():
			c.Conn.SetWriteDeadline(time.Now().Add(c.Manager.config.WriteTimeout))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Debug().
					Err(err).
					Str("connection_id", c.ID).
					Msg("failed to send ping")
				return
			}
		}
	}
}

// readPump handles reading messages from the WebSocket connection
func (c *Connection) readPump() {
	defer func() {
		c.Manager.unregisterConnection(c)
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(c.Manager.config.MaxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(c.Manager.config.ReadTimeout))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(c.Manager.config.ReadTimeout))
		return nil
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				log.Warn().
					Err(err).
					Str("connection_id", c.ID).
					Msg("unexpected WebSocket close error")
			}
			break
		}

		c.handleClientMessage(message)
		c.Conn.SetReadDeadline(time.Now().Add(c.Manager.config.ReadTimeout))
	}
}

// handleClientMessage applies updateState frames from controllers.
// Anything else is logged and dropped without a reply.
func (c *Connection) handleClientMessage(message []byte) {
	outcome := c.applyClientMessage(message)
	if c.Manager.metrics != nil {
		c.Manager.metrics.MessagesReceived.WithLabelValues(outcome).Inc()
	}
}

func (c *Connection) applyClientMessage(message []byte) string {
	env, err := events.Decode(message)
	if err != nil {
		log.Warn().Err(err).Str("connection_id", c.ID).Msg("dropping malformed client message")
		return "invalid"
	}

	if env.Event != events.TypeUpdateState {
		log.Debug().
			Str("connection_id", c.ID).
			Str("event", string(env.Event)).
			Msg("ignoring unknown client event")
		return "ignored"
	}

	state, err := env.MatchState()
	if err != nil {
		log.Warn().Err(err).Str("connection_id", c.ID).Msg("dropping undecodable update")
		return "invalid"
	}

	c.Manager.store.ReplaceFrom(c.ID, state)
	return "applied"
}
