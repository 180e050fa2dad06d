// Package scoreboard holds the Go clients of the scoreboard server: a
// controller that edits the shared match state and a read-only overlay.
package scoreboard

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/streamscore/go/internal/events"
	"github.com/mcdev12/streamscore/go/internal/models"
	"github.com/rs/zerolog/log"
)

// ErrNotConnected is returned by Send while no connection is open
var ErrNotConnected = errors.New("sync client is not connected")

// SyncConfig configures a SyncClient
type SyncConfig struct {
	// ServerURL is the http(s) or ws(s) base URL of the scoreboard server
	ServerURL     string
	Role          string
	ReconnectWait time.Duration
	WriteTimeout  time.Duration
	Clock         clockwork.Clock
}

// DefaultSyncConfig returns a config for a controller against serverURL
func DefaultSyncConfig(serverURL string) SyncConfig {
	return SyncConfig{
		ServerURL:     serverURL,
		Role:          "controller",
		ReconnectWait: 2 * time.Second,
		WriteTimeout:  10 * time.Second,
	}
}

// SyncClient keeps a websocket open to /ws and tracks the last broadcast state
type SyncClient struct {
	config SyncConfig
	dialer *websocket.Dialer
	clock  clockwork.Clock

	mu          sync.RWMutex
	conn        *websocket.Conn
	current     models.MatchState
	revision    uint64
	hasState    bool
	pending     *models.MatchState
	ready       chan struct{}
	subscribers map[int]func(models.MatchState)
	nextSubID   int

	writeMu sync.Mutex
}

// NewSyncClient creates a client; call Run to connect
func NewSyncClient(config SyncConfig) *SyncClient {
	clock := config.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &SyncClient{
		config:      config,
		dialer:      websocket.DefaultDialer,
		clock:       clock,
		ready:       make(chan struct{}),
		subscribers: make(map[int]func(models.MatchState)),
	}
}

// Endpoint returns the websocket URL dialed by Run
func (c *SyncClient) Endpoint() (string, error) {
	u, err := url.Parse(c.config.ServerURL)
	if err != nil {
		return "", fmt.Errorf("parse server url: %w", err)
	}
	switch u.Scheme {
	case "http", "ws":
		u.Scheme = "ws"
	case "https", "wss":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("unsupported server url scheme %q", u.Scheme)
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/ws"
	q := u.Query()
	q.Set("role", c.config.Role)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// Subscribe registers fn for every stateUpdate received.
// fn runs on the read goroutine and must not block.
func (c *SyncClient) Subscribe(fn func(models.MatchState)) (unsubscribe func()) {
	c.mu.Lock()
	id := c.nextSubID
	c.nextSubID++
	c.subscribers[id] = fn
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		delete(c.subscribers, id)
		c.mu.Unlock()
	}
}

// Current returns the last known state. ok is false until the first
// stateUpdate arrives.
func (c *SyncClient) Current() (state models.MatchState, ok bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.current, c.hasState
}

// Revision returns the revision of the last received stateUpdate
func (c *SyncClient) Revision() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.revision
}

// WaitForState blocks until the first stateUpdate has been received
func (c *SyncClient) WaitForState(ctx context.Context) (models.MatchState, error) {
	select {
	case <-c.ready:
		state, _ := c.Current()
		return state, nil
	case <-ctx.Done():
		return models.MatchState{}, ctx.Err()
	}
}

// Send sends a full state as an updateState frame
func (c *SyncClient) Send(state models.MatchState) error {
	c.mu.RLock()
	conn := c.conn
	c.mu.RUnlock()
	if conn == nil {
		return ErrNotConnected
	}

	env, err := events.NewUpdateState(state)
	if err != nil {
		return err
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if c.config.WriteTimeout > 0 {
		conn.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout))
	}
	if err := conn.WriteJSON(env); err != nil {
		return fmt.Errorf("write updateState: %w", err)
	}
	return nil
}

// Run connects and reads broadcasts until ctx is cancelled, redialing after
// ReconnectWait whenever the connection drops. Every new connection starts
// with the server's current snapshot.
func (c *SyncClient) Run(ctx context.Context) error {
	endpoint, err := c.Endpoint()
	if err != nil {
		return err
	}

	for {
		conn, _, err := c.dialer.DialContext(ctx, endpoint, nil)
		if err != nil {
			log.Warn().Err(err).Str("endpoint", endpoint).Msg("sync dial failed")
		} else {
			log.Info().Str("endpoint", endpoint).Str("role", c.config.Role).Msg("sync connected")
			c.setConn(conn)
			c.readLoop(ctx, conn)
			c.setConn(nil)
		}

		if ctx.Err() != nil {
			return ctx.Err()
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.clock.After(c.config.ReconnectWait):
		}
	}
}

func (c *SyncClient) setConn(conn *websocket.Conn) {
	c.mu.Lock()
	c.conn = conn
	c.pending = nil
	c.mu.Unlock()
}

func (c *SyncClient) readLoop(ctx context.Context, conn *websocket.Conn) {
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			c.writeMu.Lock()
			conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			c.writeMu.Unlock()
			conn.Close()
		case <-done:
		}
	}()
	defer conn.Close()

	for {
		_, frame, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() == nil {
				log.Warn().Err(err).Msg("sync connection lost")
			}
			return
		}

		env, err := events.Decode(frame)
		if err != nil {
			log.Warn().Err(err).Msg("dropping malformed frame")
			continue
		}
		if env.Event != events.TypeStateUpdate {
			log.Debug().Str("event", string(env.Event)).Msg("ignoring event")
			continue
		}
		state, err := env.MatchState()
		if err != nil {
			log.Warn().Err(err).Msg("dropping stateUpdate")
			continue
		}
		c.deliver(state, env.Revision)
	}
}

func (c *SyncClient) deliver(state models.MatchState, revision uint64) {
	c.mu.Lock()
	// Broadcasts that precede the echo of our own last send are already
	// overwritten by it on the server.
	if c.pending == nil || *c.pending == state {
		c.pending = nil
		c.current = state
	}
	c.revision = revision
	if !c.hasState {
		c.hasState = true
		close(c.ready)
	}
	subscribers := make([]func(models.MatchState), 0, len(c.subscribers))
	for _, fn := range c.subscribers {
		subscribers = append(subscribers, fn)
	}
	c.mu.Unlock()

	for _, fn := range subscribers {
		fn(state)
	}
}

// setLocal replaces the local copy without notifying subscribers and holds
// it until the server echoes it back
func (c *SyncClient) setLocal(state models.MatchState) {
	c.mu.Lock()
	c.current = state
	c.pending = &state
	c.mu.Unlock()
}
