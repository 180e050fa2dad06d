package sports

import (
	"fmt"
	"sync"

	"github.com/mcdev12/streamscore/go/internal/models"
)

// Registry holds the sport presets in registration order
type Registry struct {
	mu      sync.RWMutex
	presets map[models.Sport]models.SportPreset
	order   []models.Sport
}

// NewRegistry creates an empty preset registry
func NewRegistry() *Registry {
	return &Registry{
		presets: make(map[models.Sport]models.SportPreset),
	}
}

// NewDefaultRegistry returns a registry seeded with the built-in presets
func NewDefaultRegistry() *Registry {
	r := NewRegistry()
	for _, p := range Builtin() {
		if err := r.Register(p); err != nil {
			panic(fmt.Sprintf("failed to register builtin preset: %v", err))
		}
	}
	return r
}

// Register adds a preset under its sport key.
// Registering an existing sport replaces it in place, keeping its position.
func (r *Registry) Register(p models.SportPreset) error {
	if p.Sport == "" {
		return fmt.Errorf("preset sport cannot be empty")
	}
	if len(p.Periods) == 0 {
		return fmt.Errorf("preset %q has no periods", p.Sport)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.presets[p.Sport]; !exists {
		r.order = append(r.order, p.Sport)
	}
	r.presets[p.Sport] = clonePreset(p)
	return nil
}

// Get retrieves a preset by sport or returns an error if not found
func (r *Registry) Get(sport models.Sport) (models.SportPreset, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, exists := r.presets[sport]
	if !exists {
		return models.SportPreset{}, fmt.Errorf("no preset registered for sport %q", sport)
	}
	return clonePreset(p), nil
}

// All returns every preset in registration order
func (r *Registry) All() []models.SportPreset {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]models.SportPreset, 0, len(r.order))
	for _, s := range r.order {
		out = append(out, clonePreset(r.presets[s]))
	}
	return out
}

// Sports returns the registered sport keys in registration order
func (r *Registry) Sports() []models.Sport {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]models.Sport(nil), r.order...)
}

// clonePreset copies Periods so callers never share the registry's slice
func clonePreset(p models.SportPreset) models.SportPreset {
	p.Periods = append([]string(nil), p.Periods...)
	return p
}
