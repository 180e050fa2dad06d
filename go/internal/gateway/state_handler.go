package gateway

import (
	"encoding/json"
	"net/http"

	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/streamscore/go/internal/events"
	"github.com/mcdev12/streamscore/go/internal/models"
	"github.com/mcdev12/streamscore/go/internal/scoreboard"
	"github.com/mcdev12/streamscore/go/internal/sports"
	"github.com/rs/zerolog/log"
)

// apiOrigin tags replacements made through the HTTP API
const apiOrigin = "api"

// StateHandler serves the current snapshot and sport presets over plain HTTP
type StateHandler struct {
	store    *scoreboard.Store
	presets  *sports.Registry
	clock    clockwork.Clock
	maxBytes int64
}

// NewStateHandler creates a new state handler
func NewStateHandler(store *scoreboard.Store, presets *sports.Registry, clock clockwork.Clock, maxBytes int64) *StateHandler {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &StateHandler{
		store:    store,
		presets:  presets,
		clock:    clock,
		maxBytes: maxBytes,
	}
}

// HandleState handles GET and PUT /api/state
func (h *StateHandler) HandleState(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.writeSnapshot(w, http.StatusOK, h.store.Current())
	case http.MethodPut:
		h.handleReplace(w, r)
	default:
		w.Header().Set("Allow", "GET, PUT")
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleReplace takes a full MatchState body, same as an updateState frame
func (h *StateHandler) handleReplace(w http.ResponseWriter, r *http.Request) {
	var state models.MatchState
	body := http.MaxBytesReader(w, r.Body, h.maxBytes)
	if err := json.NewDecoder(body).Decode(&state); err != nil {
		log.Warn().Err(err).Msg("rejecting undecodable state body")
		http.Error(w, "Invalid match state body", http.StatusBadRequest)
		return
	}

	snap := h.store.ReplaceFrom(apiOrigin, state)
	h.writeSnapshot(w, http.StatusAccepted, snap)
}

// HandleSports handles GET /api/sports
func (h *StateHandler) HandleSports(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(h.presets.All()); err != nil {
		log.Error().Err(err).Msg("failed to encode sport presets")
	}
}

func (h *StateHandler) writeSnapshot(w http.ResponseWriter, status int, snap scoreboard.Snapshot) {
	env, err := events.NewStateUpdate(snap.State, snap.Revision, h.clock.Now())
	if err != nil {
		log.Error().Err(err).Msg("failed to build state response")
		http.Error(w, "Failed to encode state", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(env); err != nil {
		log.Error().Err(err).Msg("failed to encode state response")
	}
}

// RegisterStateRoutes registers state-related HTTP routes
func (h *StateHandler) RegisterStateRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/state", h.HandleState)
	mux.HandleFunc("/api/sports", h.HandleSports)
}
