package health

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/mcdev12/streamscore/go/internal/gateway"
	"github.com/mcdev12/streamscore/go/internal/scoreboard"
	"github.com/rs/zerolog/log"
)

type Status struct {
	Healthy        bool      `json:"healthy"`
	Revision       uint64    `json:"revision"`
	LastUpdate     time.Time `json:"last_update"`
	Connections    int       `json:"connections"`
	RelayEnabled   bool      `json:"relay_enabled"`
	RelayConnected bool      `json:"relay_connected"`
	Errors         []string  `json:"errors"`
}

// StatsProvider reports live sync connections
type StatsProvider interface {
	GetStats() gateway.ConnectionStats
}

// RelayProbe reports the cross-node relay link
type RelayProbe interface {
	Connected() bool
	PublishError() error
}

type Checker struct {
	store *scoreboard.Store
	stats StatsProvider
	relay RelayProbe
}

// NewChecker creates a checker. relay is nil when the relay is disabled.
func NewChecker(store *scoreboard.Store, stats StatsProvider, relay RelayProbe) *Checker {
	return &Checker{store: store, stats: stats, relay: relay}
}

func (h *Checker) Check() Status {
	snap := h.store.Current()
	status := Status{
		Healthy:     true,
		Revision:    snap.Revision,
		LastUpdate:  snap.UpdatedAt,
		Connections: h.stats.GetStats().TotalConnections,
		Errors:      []string{},
	}

	// Check NATS connection
	if h.relay != nil {
		status.RelayEnabled = true
		status.RelayConnected = h.relay.Connected()
		if !status.RelayConnected {
			status.Healthy = false
			status.Errors = append(status.Errors, "NATS disconnected")
		}
		if err := h.relay.PublishError(); err != nil {
			status.Healthy = false
			status.Errors = append(status.Errors, "relay publish failed: "+err.Error())
		}
	}

	return status
}

func (h *Checker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	status := h.Check()

	w.Header().Set("Content-Type", "application/json")
	if !status.Healthy {
		w.WriteHeader(http.StatusServiceUnavailable)
	}

	if err := json.NewEncoder(w).Encode(status); err != nil {
		log.Error().Err(err).Msg("failed to write health check response")
	}
}
