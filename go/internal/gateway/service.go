package gateway

import (
	"context"
	"net/http"

	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/streamscore/go/internal/metrics"
	"github.com/mcdev12/streamscore/go/internal/scoreboard"
	"github.com/mcdev12/streamscore/go/internal/sports"
	"github.com/rs/zerolog/log"
)

// Service is the sync channel: WebSocket fan-out plus the state HTTP API
type Service struct {
	connectionManager *ConnectionManager
	wsHandler         *WebSocketHandler
	stateHandler      *StateHandler
}

// Config holds configuration for the gateway service
type Config struct {
	ConnectionConfig ConnectionConfig
}

// DefaultConfig returns default configuration for the gateway
func DefaultConfig() Config {
	return Config{
		ConnectionConfig: DefaultConnectionConfig(),
	}
}

// NewService creates a new gateway service bound to store
func NewService(config Config, store *scoreboard.Store, presets *sports.Registry, clock clockwork.Clock, m *metrics.WebSocketMetrics) *Service {
	connectionManager := NewConnectionManager(config.ConnectionConfig, store, clock, m)

	return &Service{
		connectionManager: connectionManager,
		wsHandler:         NewWebSocketHandler(connectionManager),
		stateHandler:      NewStateHandler(store, presets, clock, config.ConnectionConfig.MaxMessageSize),
	}
}

// Start runs the connection manager until ctx is cancelled
func (s *Service) Start(ctx context.Context) {
	log.Info().Msg("starting scoreboard gateway service")
	s.connectionManager.Start(ctx)
	log.Info().Msg("scoreboard gateway service stopped")
}

// RegisterRoutes registers the WebSocket and state HTTP routes
func (s *Service) RegisterRoutes(mux *http.ServeMux) {
	s.wsHandler.RegisterRoutes(mux)
	s.stateHandler.RegisterStateRoutes(mux)
	log.Info().Msg("gateway routes registered")
}

// GetStats returns statistics about the gateway service
func (s *Service) GetStats() ConnectionStats {
	return s.connectionManager.GetConnectionStats()
}
