package scoreboard

import "github.com/mcdev12/streamscore/go/internal/models"

// Overlay is a read-only view of the match state. It never sends.
type Overlay struct {
	client *SyncClient
}

// NewOverlay wraps a sync client; the client's role should be "overlay"
func NewOverlay(client *SyncClient) *Overlay {
	return &Overlay{client: client}
}

func (o *Overlay) Subscribe(fn func(models.MatchState)) (unsubscribe func()) {
	return o.client.Subscribe(fn)
}

func (o *Overlay) Current() (models.MatchState, bool) {
	return o.client.Current()
}
