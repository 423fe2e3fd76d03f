package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bnema/mediaconv/internal/domain"
)

func TestRegistry_IngestSamePathTwice(t *testing.T) {
	h := newHarness(t, domain.MediaTypeImage, "jpg")

	first, err := h.registry.Ingest("/photos/photo.png", 10)
	require.NoError(t, err)

	second, err := h.registry.Ingest("/photos/photo.png", 10)
	assert.ErrorIs(t, err, domain.ErrAlreadyIngested)
	assert.Equal(t, first.ID, second.ID)

	_, err = h.registry.Ingest("/photos/../photos/photo.png", 10)
	assert.ErrorIs(t, err, domain.ErrAlreadyIngested, "paths are compared after cleaning")

	assert.Len(t, h.registry.Snapshot(domain.MediaTypeImage), 1)
}

func TestRegistry_IngestRejects(t *testing.T) {
	h := newHarness(t, domain.MediaTypeAudio, "mp3")

	_, err := h.registry.Ingest("/docs/notes.txt", 1)
	assert.ErrorIs(t, err, domain.ErrUnsupportedFormat)

	_, err = h.registry.Ingest("/videos/clip.mov", 1)
	assert.ErrorIs(t, err, domain.ErrKindMismatch)

	_, err = h.registry.Ingest("/music/missing.wav", 0)
	assert.Error(t, err, "size is read from disk when unknown")

	assert.Empty(t, h.registry.Snapshot(domain.MediaTypeAudio))
	assert.Empty(t, h.registry.Snapshot(domain.MediaTypeVideo))
}

func TestRegistry_IngestSizesFromDisk(t *testing.T) {
	h := newHarness(t, domain.MediaTypeAudio, "mp3")
	h.fs.put("/music/x.wav", 4096)

	item, err := h.registry.Ingest("/music/x.wav", 0)
	require.NoError(t, err)
	assert.Equal(t, int64(4096), item.OriginalSize)
	assert.Equal(t, "x.wav", item.FileName)
}

func TestRegistry_IngestPublishesAdded(t *testing.T) {
	h := newHarness(t, domain.MediaTypeVideo, "mp4")
	events := h.bus.Subscribe(TopicAll)
	defer h.bus.Unsubscribe(TopicAll, events)

	item := h.ingest(t, "/v/clip.mov")

	ev := <-events
	assert.Equal(t, EventItemAdded, ev.Type)
	assert.Equal(t, item.ID, ev.Item.ID)
}

func newProbingRegistry(t *testing.T, prober *fakeProber, inspector *fakeInspector, kind domain.MediaType) (*Registry, *fakePreviews) {
	t.Helper()
	previews := newFakePreviews()
	r := NewRegistry(RegistryDeps{
		Prober:    prober,
		Inspector: inspector,
		Previews:  previews,
		FS:        newFakeFS(),
		Settings:  newFakeSettings(kind, ""),
		Log:       zerolog.Nop(),
	})
	t.Cleanup(r.Close)
	return r, previews
}

func TestRegistry_ProbeAttachesMetadata(t *testing.T) {
	prober := &fakeProber{probe: func(context.Context, string) (*domain.ProbeResult, error) {
		return &domain.ProbeResult{
			Duration: 90 * time.Second,
			Video:    &domain.VideoStream{Codec: "h264", Width: 1280, Height: 720, Thumbnail: "/previews/t.jpg"},
		}, nil
	}}
	r, _ := newProbingRegistry(t, prober, nil, domain.MediaTypeVideo)

	item, err := r.Ingest("/v/clip.mov", 1)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		got, err := r.Get(item.ID)
		return err == nil && got.VideoInfo != nil
	}, time.Second, 5*time.Millisecond)

	got, err := r.Get(item.ID)
	require.NoError(t, err)
	assert.Equal(t, 90*time.Second, got.Duration())
	assert.Equal(t, "/previews/t.jpg", got.Thumbnail())
	assert.NoError(t, got.CheckInvariants())
}

func TestRegistry_ProbeFailureLeavesItemConvertible(t *testing.T) {
	inspector := &fakeInspector{inspect: func(context.Context, string) (*domain.ImageInfo, error) {
		return nil, errors.New("unknown format")
	}}
	r, _ := newProbingRegistry(t, nil, inspector, domain.MediaTypeImage)

	item, err := r.Ingest("/p/photo.heic", 1)
	require.NoError(t, err)
	r.Close()

	got, err := r.Get(item.ID)
	require.NoError(t, err)
	assert.Nil(t, got.ImageInfo)
	assert.Equal(t, domain.ItemStatusPending, got.Status)
	assert.NoError(t, got.IsEligible("jpg"))
}

func TestRegistry_RemoveBeforeProbeCompletes(t *testing.T) {
	started := make(chan struct{})
	finish := make(chan struct{})
	inspector := &fakeInspector{inspect: func(ctx context.Context, path string) (*domain.ImageInfo, error) {
		close(started)
		<-finish
		return &domain.ImageInfo{Width: 10, Height: 10, Thumbnail: "/previews/late.jpg"}, nil
	}}
	r, previews := newProbingRegistry(t, nil, inspector, domain.MediaTypeImage)

	item, err := r.Ingest("/p/photo.png", 1)
	require.NoError(t, err)
	<-started

	require.NoError(t, r.Remove(item.ID))
	close(finish)
	r.Close()

	_, err = r.Get(item.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Equal(t, 1, previews.count("/previews/late.jpg"), "late thumbnail released by the probe")
}

func TestRegistry_RemoveReleasesThumbnailOnce(t *testing.T) {
	inspector := &fakeInspector{inspect: func(_ context.Context, path string) (*domain.ImageInfo, error) {
		return &domain.ImageInfo{Width: 4, Height: 3, Thumbnail: "/previews/" + path[len(path)-5:]}, nil
	}}
	r, previews := newProbingRegistry(t, nil, inspector, domain.MediaTypeImage)

	a, err := r.Ingest("/p/a.png", 1)
	require.NoError(t, err)
	_, err = r.Ingest("/p/b.png", 1)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		snap := r.Snapshot(domain.MediaTypeImage)
		return snap[0].ImageInfo != nil && snap[1].ImageInfo != nil
	}, time.Second, 5*time.Millisecond)

	require.NoError(t, r.Remove(a.ID))
	assert.ErrorIs(t, r.Remove(a.ID), domain.ErrNotFound)
	assert.Equal(t, 1, previews.count("/previews/a.png"))

	n, err := r.Clear(domain.MediaTypeImage)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, 1, previews.count("/previews/b.png"))
	assert.Equal(t, 1, previews.count("/previews/a.png"))
	assert.Empty(t, r.Snapshot(domain.MediaTypeImage))
}

func TestRegistry_RemoveAndClearRefusedWhileConverting(t *testing.T) {
	h := newHarness(t, domain.MediaTypeVideo, "mp4")
	item := h.ingest(t, "/v/clip.mov")
	other := h.ingest(t, "/v/other.mov")

	_, err := h.registry.Update(item.ID, func(m *domain.MediaItem) error { return m.StartConverting() })
	require.NoError(t, err)

	assert.ErrorIs(t, h.registry.Remove(item.ID), domain.ErrItemConverting)
	_, err = h.registry.Clear(domain.MediaTypeVideo)
	assert.ErrorIs(t, err, domain.ErrItemConverting)
	assert.Len(t, h.registry.Snapshot(domain.MediaTypeVideo), 2)

	require.NoError(t, h.registry.Remove(other.ID))
}

func TestRegistry_ClearOnlyTouchesKind(t *testing.T) {
	h := newHarness(t, domain.MediaTypeVideo, "mp4")
	h.ingest(t, "/v/a.mov")
	h.settings.set(func(s *domain.Settings) { s.MediaKind = domain.MediaTypeAudio })
	h.ingest(t, "/a/b.wav")

	n, err := h.registry.Clear(domain.MediaTypeVideo)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Len(t, h.registry.Snapshot(domain.MediaTypeAudio), 1)

	kind, active, err := h.registry.ActiveSnapshot()
	require.NoError(t, err)
	assert.Equal(t, domain.MediaTypeAudio, kind)
	assert.Len(t, active, 1)
}

func TestRegistry_UpdatePublishesOnlyChanges(t *testing.T) {
	h := newHarness(t, domain.MediaTypeVideo, "mp4")
	item := h.ingest(t, "/v/clip.mov")
	events := h.bus.Subscribe(item.ID)
	defer h.bus.Unsubscribe(item.ID, events)

	_, err := h.registry.Update(item.ID, func(*domain.MediaItem) error { return nil })
	require.NoError(t, err)
	assert.Empty(t, events)

	updated, err := h.registry.Update(item.ID, func(m *domain.MediaItem) error { return m.StartConverting() })
	require.NoError(t, err)
	assert.Equal(t, domain.ItemStatusConverting, updated.Status)
	require.Len(t, events, 1)

	_, err = h.registry.Update("missing", func(*domain.MediaItem) error { return nil })
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestRegistry_IngestAfterClose(t *testing.T) {
	h := newHarness(t, domain.MediaTypeVideo, "mp4")
	h.registry.Close()
	_, err := h.registry.Ingest("/v/clip.mov", 1)
	assert.ErrorIs(t, err, ErrRegistryClosed)
}
