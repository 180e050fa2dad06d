package scoreboard

import (
	"errors"
	"fmt"
	"sync"

	"github.com/mcdev12/streamscore/go/internal/models"
)

// ErrNoState is returned by edits made before the first stateUpdate
var ErrNoState = errors.New("no match state received yet")

// PresetLookup resolves sport presets. *sports.Registry and Presets satisfy it.
type PresetLookup interface {
	Get(sport models.Sport) (models.SportPreset, error)
}

// Controller edits the shared match state. Every edit merges into the last
// received state and sends the full value back, so two controllers editing
// at once overwrite each other whole.
type Controller struct {
	client  *SyncClient
	presets PresetLookup
	mu      sync.Mutex
}

// NewController creates a controller over a sync client with the controller role
func NewController(client *SyncClient, presets PresetLookup) *Controller {
	return &Controller{client: client, presets: presets}
}

// Subscribe registers fn for every broadcast state
func (c *Controller) Subscribe(fn func(models.MatchState)) (unsubscribe func()) {
	return c.client.Subscribe(fn)
}

// Current returns the controller's local copy
func (c *Controller) Current() (models.MatchState, bool) {
	return c.client.Current()
}

// Update merges patch into the local copy and sends the result
func (c *Controller) Update(patch models.MatchPatch) (models.MatchState, error) {
	return c.edit(func(s models.MatchState) (models.MatchState, error) {
		return s.Apply(patch), nil
	})
}

func (c *Controller) edit(fn func(models.MatchState) (models.MatchState, error)) (models.MatchState, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	current, ok := c.client.Current()
	if !ok {
		return models.MatchState{}, ErrNoState
	}
	next, err := fn(current)
	if err != nil {
		return current, err
	}

	c.client.setLocal(next)
	if err := c.client.Send(next); err != nil {
		return next, err
	}
	return next, nil
}

// SetSport switches sport and resets period and clock from its preset
func (c *Controller) SetSport(sport models.Sport) (models.MatchState, error) {
	preset, err := c.presets.Get(sport)
	if err != nil {
		return models.MatchState{}, fmt.Errorf("set sport: %w", err)
	}
	return c.edit(func(s models.MatchState) (models.MatchState, error) {
		return s.WithPreset(preset), nil
	})
}

func (c *Controller) IncrementHome() (models.MatchState, error) {
	return c.increment(models.SideHome)
}

func (c *Controller) IncrementAway() (models.MatchState, error) {
	return c.increment(models.SideAway)
}

func (c *Controller) DecrementHome() (models.MatchState, error) {
	return c.decrement(models.SideHome)
}

func (c *Controller) DecrementAway() (models.MatchState, error) {
	return c.decrement(models.SideAway)
}

func (c *Controller) increment(side models.Side) (models.MatchState, error) {
	return c.edit(func(s models.MatchState) (models.MatchState, error) {
		return s.IncrementScore(side), nil
	})
}

func (c *Controller) decrement(side models.Side) (models.MatchState, error) {
	return c.edit(func(s models.MatchState) (models.MatchState, error) {
		return s.DecrementScore(side), nil
	})
}

func (c *Controller) SetTeams(home, away string) (models.MatchState, error) {
	return c.Update(models.MatchPatch{HomeTeam: &home, AwayTeam: &away})
}

func (c *Controller) SetColors(home, away string) (models.MatchState, error) {
	return c.Update(models.MatchPatch{HomeColor: &home, AwayColor: &away})
}

// SetLogo sets one side's logo, normally a data URL
func (c *Controller) SetLogo(side models.Side, logo string) (models.MatchState, error) {
	if side == models.SideAway {
		return c.Update(models.MatchPatch{AwayLogo: &logo})
	}
	return c.Update(models.MatchPatch{HomeLogo: &logo})
}

func (c *Controller) SetPeriod(period string) (models.MatchState, error) {
	return c.Update(models.MatchPatch{Period: &period})
}

// NextPeriod advances the period within the current sport's preset
func (c *Controller) NextPeriod() (models.MatchState, error) {
	return c.edit(func(s models.MatchState) (models.MatchState, error) {
		preset, err := c.presets.Get(s.Sport)
		if err != nil {
			return s, fmt.Errorf("next period: %w", err)
		}
		return s.NextPeriod(preset), nil
	})
}

func (c *Controller) SetClock(clock string) (models.MatchState, error) {
	return c.Update(models.MatchPatch{Clock: &clock})
}
