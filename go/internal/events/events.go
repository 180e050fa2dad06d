package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/mcdev12/streamscore/go/internal/models"
)

// Type names a sync channel event
type Type string

const (
	// TypeStateUpdate is pushed by the server on connect and after every replace
	TypeStateUpdate Type = "stateUpdate"
	// TypeUpdateState is sent by controllers carrying a full MatchState
	TypeUpdateState Type = "updateState"
)

// Envelope is the JSON frame exchanged over the sync channel
type Envelope struct {
	Event     Type            `json:"event"`
	Data      json.RawMessage `json:"data"`
	Revision  uint64          `json:"revision,omitempty"`
	Timestamp *time.Time      `json:"timestamp,omitempty"`
}

// NewStateUpdate builds the server push for a snapshot
func NewStateUpdate(state models.MatchState, revision uint64, at time.Time) (*Envelope, error) {
	data, err := json.Marshal(state)
	if err != nil {
		return nil, fmt.Errorf("marshal match state: %w", err)
	}
	return &Envelope{
		Event:     TypeStateUpdate,
		Data:      data,
		Revision:  revision,
		Timestamp: &at,
	}, nil
}

// NewUpdateState builds a controller update request
func NewUpdateState(state models.MatchState) (*Envelope, error) {
	data, err := json.Marshal(state)
	if err != nil {
		return nil, fmt.Errorf("marshal match state: %w", err)
	}
	return &Envelope{Event: TypeUpdateState, Data: data}, nil
}

// Decode parses a raw frame
func Decode(frame []byte) (*Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(frame, &env); err != nil {
		return nil, fmt.Errorf("unmarshal envelope: %w", err)
	}
	if env.Event == "" {
		return nil, fmt.Errorf("envelope missing event name")
	}
	return &env, nil
}

// MatchState decodes the payload as a full MatchState.
// Field values are not validated.
func (e *Envelope) MatchState() (models.MatchState, error) {
	var state models.MatchState
	if len(e.Data) == 0 {
		return state, fmt.Errorf("%s event has no data", e.Event)
	}
	if err := json.Unmarshal(e.Data, &state); err != nil {
		return state, fmt.Errorf("unmarshal %s payload: %w", e.Event, err)
	}
	return state, nil
}
