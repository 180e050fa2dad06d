package relay

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/streamscore/go/internal/models"
	"github.com/mcdev12/streamscore/go/internal/scoreboard"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"
)

// originPrefix marks snapshots applied from another node
const originPrefix = "relay:"

// Config holds NATS settings for mirroring snapshots between nodes
type Config struct {
	URL           string
	SubjectPrefix string
	NodeID        string
	MaxReconnects int
	ReconnectWait time.Duration
}

// DefaultConfig returns default relay configuration
func DefaultConfig() Config {
	return Config{
		URL:           nats.DefaultURL,
		SubjectPrefix: "streamscore",
		MaxReconnects: -1, // Infinite
		ReconnectWait: 2 * time.Second,
	}
}

// Subject is where snapshots are published
func (c Config) Subject() string {
	return fmt.Sprintf("%s.state", c.SubjectPrefix)
}

// Conn is the subset of *nats.Conn the relay uses
type Conn interface {
	Publish(subj string, data []byte) error
	Subscribe(subj string, cb nats.MsgHandler) (*nats.Subscription, error)
}

// payloadLimiter is implemented by *nats.Conn once connected
type payloadLimiter interface {
	MaxPayload() int64
}

// Message is the JSON body published for every local replacement.
// (Lamport, NodeID) orders messages the same way on every node.
type Message struct {
	NodeID      string            `json:"node_id"`
	Lamport     uint64            `json:"lamport"`
	Revision    uint64            `json:"revision"`
	State       models.MatchState `json:"state"`
	PublishedAt time.Time         `json:"published_at"`
}

// stamp is the last-write-wins position of a state across nodes
type stamp struct {
	lamport uint64
	nodeID  string
}

func (s stamp) before(o stamp) bool {
	if s.lamport != o.lamport {
		return s.lamport < o.lamport
	}
	return s.nodeID < o.nodeID
}

// Relay publishes local snapshots to NATS and applies snapshots from other nodes
type Relay struct {
	conn   Conn
	nc     *nats.Conn
	store  *scoreboard.Store
	config Config
	clock  clockwork.Clock

	mu         sync.Mutex
	lamport    uint64
	applied    stamp
	publishErr error

	sub    *nats.Subscription
	remove func()
}

// Connect dials NATS and returns a relay bound to store. Call Start to begin mirroring.
func Connect(cfg Config, store *scoreboard.Store, clock clockwork.Clock) (*Relay, error) {
	opts := []nats.Option{
		nats.Name("streamscore-" + cfg.NodeID),
		nats.NoEcho(),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.Error().Err(err).Msg("NATS disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
		nats.ErrorHandler(func(nc *nats.Conn, sub *nats.Subscription, err error) {
			log.Error().Err(err).Msg("NATS error")
		}),
	}

	nc, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}

	r := New(nc, store, cfg, clock)
	r.nc = nc
	return r, nil
}

// New creates a relay over an existing connection
func New(conn Conn, store *scoreboard.Store, cfg Config, clock clockwork.Clock) *Relay {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Relay{
		conn:   conn,
		store:  store,
		config: cfg,
		clock:  clock,
	}
}

// Start subscribes to remote snapshots and begins publishing local ones
func (r *Relay) Start() error {
	sub, err := r.conn.Subscribe(r.config.Subject(), r.handleMessage)
	if err != nil {
		return fmt.Errorf("subscribe to %s: %w", r.config.Subject(), err)
	}
	r.sub = sub
	r.remove = r.store.AddListener(r)

	log.Info().
		Str("subject", r.config.Subject()).
		Str("node_id", r.config.NodeID).
		Msg("snapshot relay started")
	return nil
}

// SnapshotReplaced implements scoreboard.Listener.
// Snapshots that came from the relay are not published again.
func (r *Relay) SnapshotReplaced(snap scoreboard.Snapshot) {
	if IsRelayOrigin(snap.Origin) {
		return
	}

	r.mu.Lock()
	r.lamport++
	r.applied = stamp{lamport: r.lamport, nodeID: r.config.NodeID}
	lamport := r.lamport
	r.mu.Unlock()

	data, err := json.Marshal(Message{
		NodeID:      r.config.NodeID,
		Lamport:     lamport,
		Revision:    snap.Revision,
		State:       snap.State,
		PublishedAt: r.clock.Now(),
	})
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal relay message")
		return
	}

	if limiter, ok := r.conn.(payloadLimiter); ok {
		if limit := limiter.MaxPayload(); limit > 0 && int64(len(data)) > limit {
			err = fmt.Errorf("snapshot revision %d is %d bytes, NATS max_payload is %d: %w",
				snap.Revision, len(data), limit, nats.ErrMaxPayload)
		}
	}
	if err == nil {
		err = r.conn.Publish(r.config.Subject(), data)
	}

	r.mu.Lock()
	r.publishErr = err
	r.mu.Unlock()

	if err != nil {
		log.Error().Err(err).Uint64("revision", snap.Revision).Msg("failed to publish snapshot")
	}
}

// handleMessage applies a snapshot published by another node unless the
// local state is already newer in (lamport, node) order
func (r *Relay) handleMessage(msg *nats.Msg) {
	var m Message
	if err := json.Unmarshal(msg.Data, &m); err != nil {
		log.Warn().Err(err).Str("subject", msg.Subject).Msg("dropping malformed relay message")
		return
	}
	if m.NodeID == r.config.NodeID {
		return
	}

	incoming := stamp{lamport: m.Lamport, nodeID: m.NodeID}
	snap, applied := r.store.ReplaceIf(originPrefix+m.NodeID, m.State, func(scoreboard.Snapshot) bool {
		r.mu.Lock()
		defer r.mu.Unlock()

		r.lamport = max(r.lamport, m.Lamport)
		if !r.applied.before(incoming) {
			return false
		}
		r.applied = incoming
		return true
	})

	if !applied {
		log.Debug().
			Str("from_node", m.NodeID).
			Uint64("lamport", m.Lamport).
			Msg("dropping stale relayed snapshot")
		return
	}

	log.Debug().
		Str("from_node", m.NodeID).
		Uint64("lamport", m.Lamport).
		Uint64("remote_revision", m.Revision).
		Uint64("revision", snap.Revision).
		Msg("applied relayed snapshot")
}

// PublishError returns the error of the last publish attempt, nil once a
// publish succeeds again
func (r *Relay) PublishError() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.publishErr
}

// Close stops publishing, unsubscribes and closes an owned NATS connection
func (r *Relay) Close() {
	if r.remove != nil {
		r.remove()
	}
	if r.sub != nil {
		if err := r.sub.Unsubscribe(); err != nil {
			log.Warn().Err(err).Msg("failed to unsubscribe relay")
		}
	}
	if r.nc != nil {
		r.nc.Close()
	}
	log.Info().Msg("snapshot relay stopped")
}

// Connected reports whether the NATS connection is up.
// A relay over an injected Conn is always considered connected.
func (r *Relay) Connected() bool {
	if r.nc == nil {
		return true
	}
	return r.nc.IsConnected()
}

// IsRelayOrigin reports whether a snapshot origin came from another node
func IsRelayOrigin(origin string) bool {
	return strings.HasPrefix(origin, originPrefix)
}
