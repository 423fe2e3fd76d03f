package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bnema/mediaconv/internal/domain"
	"github.com/bnema/mediaconv/internal/outpath"
)

// stallingPublisher records item events in delivery order. The first
// item.updated carrying image metadata is held until release is closed.
type stallingPublisher struct {
	stalled chan struct{}
	release chan struct{}
	once    sync.Once

	mu       sync.Mutex
	statuses []domain.ItemStatus
}

func (p *stallingPublisher) Publish(_ string, ev Event) {
	if ev.Type != EventItemUpdated || ev.Item == nil {
		return
	}
	if ev.Item.ImageInfo != nil && ev.Item.Status == domain.ItemStatusPending {
		p.once.Do(func() {
			close(p.stalled)
			<-p.release
		})
	}
	p.mu.Lock()
	p.statuses = append(p.statuses, ev.Item.Status)
	p.mu.Unlock()
}

func (p *stallingPublisher) recorded() []domain.ItemStatus {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]domain.ItemStatus(nil), p.statuses...)
}

func TestRegistry_ItemEventsArriveInOrder(t *testing.T) {
	pub := &stallingPublisher{stalled: make(chan struct{}), release: make(chan struct{})}
	settings := newFakeSettings(domain.MediaTypeImage, "png")
	fs := newFakeFS()
	inspector := &fakeInspector{inspect: func(context.Context, string) (*domain.ImageInfo, error) {
		return &domain.ImageInfo{Width: 640, Height: 480}, nil
	}}

	registry := NewRegistry(RegistryDeps{
		Inspector: inspector,
		Previews:  newFakePreviews(),
		FS:        fs,
		Settings:  settings,
		Events:    pub,
		Log:       zerolog.Nop(),
	})
	orch := NewOrchestrator(OrchestratorDeps{
		Registry:   registry,
		Transcoder: &fakeTranscoder{fs: fs},
		FS:         fs,
		Settings:   settings,
		Paths:      outpath.NewResolver(fs.Exists),
		Log:        zerolog.Nop(),
	})
	t.Cleanup(func() {
		orch.Shutdown()
		registry.Close()
	})

	item, err := registry.Ingest("/p/photo.jpg", 100)
	require.NoError(t, err)

	select {
	case <-pub.stalled:
	case <-time.After(time.Second):
		t.Fatal("metadata update was never published")
	}

	converted := make(chan domain.MediaItem, 1)
	go func() {
		got, err := orch.ConvertItem(context.Background(), item.ID)
		assert.NoError(t, err)
		converted <- got
	}()

	// Give the conversion a chance to overtake the held metadata event.
	time.Sleep(50 * time.Millisecond)
	close(pub.release)

	got := <-converted
	assert.Equal(t, domain.ItemStatusDone, got.Status)

	rank := map[domain.ItemStatus]int{
		domain.ItemStatusPending:    0,
		domain.ItemStatusConverting: 1,
		domain.ItemStatusDone:       2,
	}
	statuses := pub.recorded()
	require.NotEmpty(t, statuses)
	for i := 1; i < len(statuses); i++ {
		assert.GreaterOrEqual(t, rank[statuses[i]], rank[statuses[i-1]], "status sequence %v regresses", statuses)
	}
	assert.Equal(t, domain.ItemStatusDone, statuses[len(statuses)-1])
}
