package service

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"sync"

	"github.com/rs/zerolog"

	"github.com/bnema/mediaconv/internal/domain"
	"github.com/bnema/mediaconv/internal/infrastructure/logger"
	"github.com/bnema/mediaconv/internal/metrics"
	"github.com/bnema/mediaconv/internal/port"
)

var ErrRegistryClosed = errors.New("registry is closed")

// RegistryDeps are the collaborators of a Registry. Prober, Inspector and
// Previews may be nil, in which case metadata is simply absent.
type RegistryDeps struct {
	Prober    port.MediaProber
	Inspector port.ImageInspector
	Previews  port.PreviewStore
	FS        port.FileSystem
	Settings  SettingsReader
	Events    EventPublisher
	Log       zerolog.Logger
}

// Registry owns the ingested items. Structural changes (ingest, remove,
// clear) happen here; status changes go through Update.
type Registry struct {
	deps RegistryDeps

	mu       sync.Mutex
	items    []*domain.MediaItem
	byID     map[string]*domain.MediaItem
	probes   map[string]context.CancelFunc
	onRemove []func(domain.MediaItem)
	closed   bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewRegistry(deps RegistryDeps) *Registry {
	ctx, cancel := context.WithCancel(context.Background())
	return &Registry{
		deps:   deps,
		byID:   make(map[string]*domain.MediaItem),
		probes: make(map[string]context.CancelFunc),
		ctx:    ctx,
		cancel: cancel,
	}
}

// OnRemove registers fn to run after an item leaves the registry.
func (r *Registry) OnRemove(fn func(domain.MediaItem)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onRemove = append(r.onRemove, fn)
}

// Ingest adds the file at path to the active kind's collection and starts
// probing it in the background. knownSize is used when positive, otherwise
// the file is sized on disk. ErrUnsupportedFormat, ErrKindMismatch and
// ErrAlreadyIngested are no-op outcomes; with ErrAlreadyIngested the
// existing item is returned.
func (r *Registry) Ingest(path string, knownSize int64) (domain.MediaItem, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return domain.MediaItem{}, fmt.Errorf("resolve %s: %w", path, err)
	}

	kind, ok := domain.Classify(abs)
	if !ok {
		metrics.RecordIngest("unsupported")
		return domain.MediaItem{}, fmt.Errorf("%w: %s", domain.ErrUnsupportedFormat, filepath.Base(abs))
	}

	settings, err := r.deps.Settings.Current()
	if err != nil {
		return domain.MediaItem{}, err
	}
	if kind != settings.MediaKind {
		metrics.RecordIngest("kind_mismatch")
		return domain.MediaItem{}, fmt.Errorf("%w: %s is %s, active kind is %s", domain.ErrKindMismatch, filepath.Base(abs), kind, settings.MediaKind)
	}

	if existing, ok := r.findByPath(abs); ok {
		metrics.RecordIngest("duplicate")
		return existing, domain.ErrAlreadyIngested
	}

	size := knownSize
	if size <= 0 {
		size, err = r.deps.FS.Size(abs)
		if err != nil {
			metrics.RecordIngest("error")
			return domain.MediaItem{}, fmt.Errorf("size %s: %w", abs, err)
		}
	}

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return domain.MediaItem{}, ErrRegistryClosed
	}
	// Re-check under the lock: two ingests of one path may race past
	// findByPath.
	for _, item := range r.items {
		if item.FilePath == abs {
			existing := *item
			r.mu.Unlock()
			metrics.RecordIngest("duplicate")
			return existing, domain.ErrAlreadyIngested
		}
	}
	item := domain.NewMediaItem(kind, abs, size)
	r.items = append(r.items, item)
	r.byID[item.ID] = item
	probeCtx, cancelProbe := context.WithCancel(r.ctx)
	r.probes[item.ID] = cancelProbe
	r.wg.Add(1)
	added := *item
	r.publish(EventItemAdded, added)
	r.mu.Unlock()

	metrics.RecordIngest("added")
	logger.Path(r.deps.Log.Info(), abs).Str("id", added.ID).Str("kind", string(kind)).Msg("item added")

	go r.probe(probeCtx, added)
	return added, nil
}

func (r *Registry) findByPath(path string) (domain.MediaItem, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, item := range r.items {
		if item.FilePath == path {
			return *item, true
		}
	}
	return domain.MediaItem{}, false
}

func (r *Registry) probe(ctx context.Context, item domain.MediaItem) {
	defer r.wg.Done()

	var (
		thumb string
		apply func(*domain.MediaItem)
		err   error
	)
	switch item.MediaType {
	case domain.MediaTypeImage:
		if r.deps.Inspector == nil {
			break
		}
		var info *domain.ImageInfo
		if info, err = r.deps.Inspector.Inspect(ctx, item.FilePath); err == nil && info != nil {
			thumb = info.Thumbnail
			apply = func(m *domain.MediaItem) { m.ApplyImageInfo(info) }
		}
	default:
		if r.deps.Prober == nil {
			break
		}
		var result *domain.ProbeResult
		if result, err = r.deps.Prober.Probe(ctx, item.FilePath); err == nil && result != nil {
			if result.Video != nil {
				thumb = result.Video.Thumbnail
			}
			apply = func(m *domain.MediaItem) { m.ApplyProbe(result) }
		}
	}

	if err != nil {
		metrics.RecordProbeFailure(string(item.MediaType))
		r.deps.Log.Debug().Err(err).Str("id", item.ID).Msg("probe failed, metadata unavailable")
	}

	r.mu.Lock()
	cancel, live := r.probes[item.ID]
	if live {
		delete(r.probes, item.ID)
		cancel()
	}
	current, exists := r.byID[item.ID]
	if !live || !exists || apply == nil {
		r.mu.Unlock()
		if thumb != "" {
			r.release(thumb)
		}
		return
	}
	apply(current)
	r.publish(EventItemUpdated, *current)
	r.mu.Unlock()
}

// Remove drops one item, cancelling its probe and releasing its preview.
func (r *Registry) Remove(id string) error {
	r.mu.Lock()
	item, ok := r.byID[id]
	if !ok {
		r.mu.Unlock()
		return fmt.Errorf("%w: %s", domain.ErrNotFound, id)
	}
	if item.Status == domain.ItemStatusConverting {
		r.mu.Unlock()
		return fmt.Errorf("%w: %s", domain.ErrItemConverting, item.FileName)
	}
	r.items = slices.DeleteFunc(r.items, func(m *domain.MediaItem) bool { return m.ID == id })
	removed := r.detachLocked(item)
	hooks := slices.Clone(r.onRemove)
	r.mu.Unlock()

	r.finishRemoval(removed, hooks)
	return nil
}

// Clear removes every item of kind and returns how many were removed. It
// refuses while any of them is converting.
func (r *Registry) Clear(kind domain.MediaType) (int, error) {
	r.mu.Lock()
	for _, item := range r.items {
		if item.MediaType == kind && item.Status == domain.ItemStatusConverting {
			r.mu.Unlock()
			return 0, fmt.Errorf("%w: %s", domain.ErrItemConverting, item.FileName)
		}
	}
	var removed []domain.MediaItem
	r.items = slices.DeleteFunc(r.items, func(m *domain.MediaItem) bool {
		if m.MediaType != kind {
			return false
		}
		removed = append(removed, r.detachLocked(m))
		return true
	})
	hooks := slices.Clone(r.onRemove)
	r.mu.Unlock()

	for _, item := range removed {
		r.finishRemoval(item, hooks)
	}
	return len(removed), nil
}

// detachLocked unindexes item and cancels its probe. The caller removes it
// from r.items.
func (r *Registry) detachLocked(item *domain.MediaItem) domain.MediaItem {
	delete(r.byID, item.ID)
	if cancel, ok := r.probes[item.ID]; ok {
		cancel()
		delete(r.probes, item.ID)
	}
	return *item
}

func (r *Registry) finishRemoval(item domain.MediaItem, hooks []func(domain.MediaItem)) {
	if thumb := item.Thumbnail(); thumb != "" {
		r.release(thumb)
	}
	for _, fn := range hooks {
		fn(item)
	}
	logger.Path(r.deps.Log.Debug(), item.FilePath).Str("id", item.ID).Msg("item removed")
	r.publish(EventItemRemoved, item)
}

func (r *Registry) release(ref string) {
	if r.deps.Previews == nil {
		return
	}
	if err := r.deps.Previews.Release(ref); err != nil {
		r.deps.Log.Warn().Err(err).Str("ref", logger.SanitizeForLog(ref)).Msg("release preview")
	}
}

func (r *Registry) Get(id string) (domain.MediaItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	item, ok := r.byID[id]
	if !ok {
		return domain.MediaItem{}, fmt.Errorf("%w: %s", domain.ErrNotFound, id)
	}
	return *item, nil
}

// Snapshot returns the items of kind in insertion order.
func (r *Registry) Snapshot(kind domain.MediaType) domain.Collection {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(domain.Collection, 0, len(r.items))
	for _, item := range r.items {
		if item.MediaType == kind {
			out = append(out, *item)
		}
	}
	return out
}

// ActiveSnapshot returns the collection for the currently selected kind.
func (r *Registry) ActiveSnapshot() (domain.MediaType, domain.Collection, error) {
	settings, err := r.deps.Settings.Current()
	if err != nil {
		return "", nil, err
	}
	return settings.MediaKind, r.Snapshot(settings.MediaKind), nil
}

// Update applies fn to the item under the registry lock and publishes the
// new state when it changed. If fn fails the item is left as fn left it and
// the error is returned alongside the current state.
func (r *Registry) Update(id string, fn func(*domain.MediaItem) error) (domain.MediaItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	item, ok := r.byID[id]
	if !ok {
		return domain.MediaItem{}, fmt.Errorf("%w: %s", domain.ErrNotFound, id)
	}
	before := *item
	err := fn(item)
	after := *item
	if after != before {
		r.publish(EventItemUpdated, after)
	}
	return after, err
}

// Close cancels outstanding probes and waits for them to return.
func (r *Registry) Close() {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()
	r.cancel()
	r.wg.Wait()
}

// publish is called with r.mu held for added and updated events so that
// subscribers see one item's states in the order they were applied. The
// publisher must not block or call back into the registry.
func (r *Registry) publish(eventType string, item domain.MediaItem) {
	if r.deps.Events == nil {
		return
	}
	r.deps.Events.Publish(item.ID, itemEvent(eventType, item))
}
