package scoreboard

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/streamscore/go/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_StartsWithDefaults(t *testing.T) {
	store := NewStore(clockwork.NewFakeClock())

	snap := store.Current()
	assert.Equal(t, models.DefaultMatchState(), snap.State)
	assert.Equal(t, uint64(0), snap.Revision)
}

func TestStore_LastWriteWins(t *testing.T) {
	store := NewStore(clockwork.NewFakeClock())

	var last models.MatchState
	for i := 1; i <= 25; i++ {
		s := models.DefaultMatchState()
		s.HomeTeam = fmt.Sprintf("team-%d", i)
		s.HomeScore = i * 3
		s.Clock = fmt.Sprintf("%02d:00", i)
		store.Replace(s)
		last = s
	}

	snap := store.Current()
	assert.Equal(t, last, snap.State)
	assert.Equal(t, uint64(25), snap.Revision)
}

func TestStore_ReplaceDoesNotMergeOrValidate(t *testing.T) {
	store := NewStore(clockwork.NewFakeClock())

	partial := models.MatchState{HomeScore: -4, Sport: "curling"}
	store.Replace(partial)

	assert.Equal(t, partial, store.Current().State)
}

func TestStore_SnapshotMetadata(t *testing.T) {
	clock := clockwork.NewFakeClockAt(time.Date(2024, 5, 1, 18, 0, 0, 0, time.UTC))
	store := NewStore(clock)

	clock.Advance(90 * time.Second)
	snap := store.ReplaceFrom("conn-1", models.DefaultMatchState())

	assert.Equal(t, uint64(1), snap.Revision)
	assert.Equal(t, "conn-1", snap.Origin)
	assert.Equal(t, clock.Now(), snap.UpdatedAt)
	assert.Equal(t, snap, store.Current())
}

func TestStore_ListenersSeeEveryReplaceInOrder(t *testing.T) {
	store := NewStore(clockwork.NewFakeClock())

	var mu sync.Mutex
	var seen []uint64
	store.AddListener(ListenerFunc(func(snap Snapshot) {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, snap.Revision)
	}))

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			store.Replace(models.DefaultMatchState())
		}()
	}
	wg.Wait()

	require.Len(t, seen, 50)
	for i, rev := range seen {
		assert.Equal(t, uint64(i+1), rev)
	}
}

func TestStore_RemoveListener(t *testing.T) {
	store := NewStore(clockwork.NewFakeClock())

	calls := 0
	remove := store.AddListener(ListenerFunc(func(Snapshot) { calls++ }))

	store.Replace(models.DefaultMatchState())
	remove()
	store.Replace(models.DefaultMatchState())

	assert.Equal(t, 1, calls)
}

func TestStore_ViewSeesCurrent(t *testing.T) {
	store := NewStore(clockwork.NewFakeClock())
	s := models.DefaultMatchState()
	s.AwayTeam = "Visitors"
	store.Replace(s)

	var viewed Snapshot
	store.View(func(snap Snapshot) { viewed = snap })

	assert.Equal(t, "Visitors", viewed.State.AwayTeam)
	assert.Equal(t, uint64(1), viewed.Revision)
}

func TestStore_ReplaceIf(t *testing.T) {
	store := NewStore(clockwork.NewFakeClock())
	calls := 0
	store.AddListener(ListenerFunc(func(Snapshot) { calls++ }))

	first := models.DefaultMatchState()
	first.HomeScore = 1
	snap, applied := store.ReplaceIf("relay:b", first, func(current Snapshot) bool {
		return current.Revision == 0
	})
	require.True(t, applied)
	assert.Equal(t, uint64(1), snap.Revision)

	second := models.DefaultMatchState()
	second.HomeScore = 2
	snap, applied = store.ReplaceIf("relay:b", second, func(Snapshot) bool { return false })
	assert.False(t, applied)
	assert.Equal(t, first, snap.State)
	assert.Equal(t, first, store.Current().State)
	assert.Equal(t, 1, calls)
}
