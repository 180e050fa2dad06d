package scoreboard

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/mcdev12/streamscore/go/clients"
	"github.com/mcdev12/streamscore/go/internal/events"
	"github.com/mcdev12/streamscore/go/internal/models"
)

const (
	StateEndpoint  = "/api/state"
	SportsEndpoint = "/api/sports"
)

// StateClient reads and replaces the match state over the HTTP API
type StateClient struct {
	*clients.BaseClient
}

func NewStateClient(baseURL string) *StateClient {
	return &StateClient{
		BaseClient: clients.NewBaseClient(baseURL),
	}
}

// GetState returns the current state and its revision
func (c *StateClient) GetState(ctx context.Context) (models.MatchState, uint64, error) {
	body, err := c.Get(ctx, StateEndpoint)
	if err != nil {
		return models.MatchState{}, 0, fmt.Errorf("get state: %w", err)
	}
	return decodeSnapshot(body)
}

// PutState replaces the whole state and returns the stored revision
func (c *StateClient) PutState(ctx context.Context, state models.MatchState) (uint64, error) {
	payload, err := json.Marshal(state)
	if err != nil {
		return 0, fmt.Errorf("marshal state: %w", err)
	}
	body, err := c.Put(ctx, StateEndpoint, bytes.NewReader(payload))
	if err != nil {
		return 0, fmt.Errorf("put state: %w", err)
	}
	_, revision, err := decodeSnapshot(body)
	return revision, err
}

// Sports fetches the server's sport presets
func (c *StateClient) Sports(ctx context.Context) (Presets, error) {
	body, err := c.Get(ctx, SportsEndpoint)
	if err != nil {
		return nil, fmt.Errorf("get sports: %w", err)
	}
	var presets Presets
	if err := json.Unmarshal(body, &presets); err != nil {
		return nil, fmt.Errorf("unmarshal sports: %w", err)
	}
	return presets, nil
}

func decodeSnapshot(body []byte) (models.MatchState, uint64, error) {
	env, err := events.Decode(body)
	if err != nil {
		return models.MatchState{}, 0, err
	}
	state, err := env.MatchState()
	if err != nil {
		return models.MatchState{}, 0, err
	}
	return state, env.Revision, nil
}

// Presets is a preset list as served by /api/sports
type Presets []models.SportPreset

func (p Presets) Get(sport models.Sport) (models.SportPreset, error) {
	for _, preset := range p {
		if preset.Sport == sport {
			return preset, nil
		}
	}
	return models.SportPreset{}, fmt.Errorf("no preset registered for sport %q", sport)
}
