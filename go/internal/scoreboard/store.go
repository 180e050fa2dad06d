package scoreboard

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/streamscore/go/internal/models"
	"github.com/rs/zerolog/log"
)

// Snapshot is a complete MatchState at a point in time
type Snapshot struct {
	State     models.MatchState
	Revision  uint64
	UpdatedAt time.Time
	Origin    string
}

// Listener is notified after every replacement, in replacement order
type Listener interface {
	SnapshotReplaced(snap Snapshot)
}

// ListenerFunc adapts a function to the Listener interface
type ListenerFunc func(snap Snapshot)

// SnapshotReplaced calls f(snap)
func (f ListenerFunc) SnapshotReplaced(snap Snapshot) { f(snap) }

// Store owns the one MatchState of the process.
// Replacements are serialized and listeners run inside the critical section,
// so every listener sees snapshots in revision order.
type Store struct {
	mu        sync.RWMutex
	current   Snapshot
	listeners map[uint64]Listener
	nextID    uint64
	clock     clockwork.Clock
}

// NewStore creates a store holding the default match state
func NewStore(clock clockwork.Clock) *Store {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Store{
		current: Snapshot{
			State:     models.DefaultMatchState(),
			UpdatedAt: clock.Now(),
			Origin:    "default",
		},
		listeners: make(map[uint64]Listener),
		clock:     clock,
	}
}

// Current returns the current snapshot
func (s *Store) Current() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Replace overwrites the stored state and broadcasts it.
// No validation or merging happens here; callers send full values.
func (s *Store) Replace(state models.MatchState) Snapshot {
	return s.ReplaceFrom("", state)
}

// ReplaceFrom is Replace with the origin of the update recorded on the snapshot
func (s *Store) ReplaceFrom(origin string, state models.MatchState) Snapshot {
	snap, _ := s.ReplaceIf(origin, state, nil)
	return snap
}

// ReplaceIf is ReplaceFrom guarded by accept, which sees the current snapshot
// under the write lock. When accept returns false nothing changes and the
// current snapshot is returned with applied false. accept must not call the store.
func (s *Store) ReplaceIf(origin string, state models.MatchState, accept func(current Snapshot) bool) (snap Snapshot, applied bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if accept != nil && !accept(s.current) {
		return s.current, false
	}

	s.current = Snapshot{
		State:     state,
		Revision:  s.current.Revision + 1,
		UpdatedAt: s.clock.Now(),
		Origin:    origin,
	}

	log.Debug().
		Uint64("revision", s.current.Revision).
		Str("origin", origin).
		Str("sport", string(state.Sport)).
		Int("home_score", state.HomeScore).
		Int("away_score", state.AwayScore).
		Msg("match state replaced")

	for _, l := range s.listeners {
		l.SnapshotReplaced(s.current)
	}
	return s.current, true
}

// View runs fn with the current snapshot while replacements are held off.
// fn must not call Replace.
func (s *Store) View(fn func(snap Snapshot)) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	fn(s.current)
}

// AddListener registers l and returns a function removing it
func (s *Store) AddListener(l Listener) (remove func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextID
	s.nextID++
	s.listeners[id] = l

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.listeners, id)
	}
}
