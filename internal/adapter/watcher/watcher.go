// Package watcher ingests files dropped into watched directories.
package watcher

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	"github.com/bnema/mediaconv/internal/domain"
	"github.com/bnema/mediaconv/internal/infrastructure/logger"
)

const DefaultSettle = 2 * time.Second

type Ingester interface {
	Ingest(path string, knownSize int64) (domain.MediaItem, error)
}

// Watcher waits until a file has seen no events for the settle period
// before ingesting it, so files still being copied are not picked up.
type Watcher struct {
	dirs   []string
	settle time.Duration
	ingest Ingester
	log    zerolog.Logger

	mu      sync.Mutex
	pending map[string]*time.Timer
}

func New(dirs []string, settle time.Duration, ingest Ingester, log zerolog.Logger) *Watcher {
	if settle <= 0 {
		settle = DefaultSettle
	}
	return &Watcher{
		dirs:    dirs,
		settle:  settle,
		ingest:  ingest,
		log:     log,
		pending: make(map[string]*time.Timer),
	}
}

// Run watches until ctx is done. Files already present in the directories
// are ingested first.
func (w *Watcher) Run(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("fsnotify.NewWatcher: %w", err)
	}
	defer func() {
		_ = fsw.Close()
	}()

	for _, dir := range w.dirs {
		if err := fsw.Add(dir); err != nil {
			return fmt.Errorf("watch directory %s: %w", dir, err)
		}
		w.log.Info().Str("dir", logger.SanitizeForLog(dir)).Msg("watching directory")
	}

	settled := make(chan string)
	done := make(chan struct{})
	defer close(done)
	defer w.stopAll()

	for _, dir := range w.dirs {
		w.scan(dir)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-fsw.Events:
			if !ok {
				return errors.New("watcher channel closed")
			}
			w.handle(event, settled, done)
		case path := <-settled:
			w.ingestFile(path)
		case err, ok := <-fsw.Errors:
			if !ok {
				return errors.New("watcher error channel closed")
			}
			w.log.Warn().Err(err).Msg("fsnotify watcher error")
		}
	}
}

func (w *Watcher) handle(event fsnotify.Event, settled chan<- string, done <-chan struct{}) {
	if ignored(event.Name) {
		return
	}
	switch {
	case event.Has(fsnotify.Create), event.Has(fsnotify.Write):
		if _, ok := domain.Classify(event.Name); !ok {
			return
		}
		w.schedule(event.Name, settled, done)
	case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
		w.cancel(event.Name)
	}
}

// schedule (re)starts the settle timer for path.
func (w *Watcher) schedule(path string, settled chan<- string, done <-chan struct{}) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if t, ok := w.pending[path]; ok {
		t.Reset(w.settle)
		return
	}
	w.pending[path] = time.AfterFunc(w.settle, func() {
		w.mu.Lock()
		delete(w.pending, path)
		w.mu.Unlock()
		select {
		case settled <- path:
		case <-done:
		}
	})
}

func (w *Watcher) cancel(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if t, ok := w.pending[path]; ok {
		t.Stop()
		delete(w.pending, path)
	}
}

func (w *Watcher) stopAll() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for path, t := range w.pending {
		t.Stop()
		delete(w.pending, path)
	}
}

func (w *Watcher) scan(dir string) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		w.log.Warn().Err(err).Str("dir", logger.SanitizeForLog(dir)).Msg("scan watch directory")
		return
	}
	for _, e := range entries {
		path := filepath.Join(dir, e.Name())
		if e.Type().IsRegular() && !ignored(path) {
			if _, ok := domain.Classify(path); ok {
				w.ingestFile(path)
			}
		}
	}
}

func (w *Watcher) ingestFile(path string) {
	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() || info.Size() == 0 {
		return
	}

	item, err := w.ingest.Ingest(path, info.Size())
	switch {
	case err == nil:
		logger.Path(w.log.Info(), path).Str("id", item.ID).Msg("watched file ingested")
	case errors.Is(err, domain.ErrAlreadyIngested),
		errors.Is(err, domain.ErrKindMismatch),
		errors.Is(err, domain.ErrUnsupportedFormat):
		logger.Path(w.log.Debug(), path).Err(err).Msg("watched file skipped")
	default:
		logger.Path(w.log.Warn(), path).Err(err).Msg("watched file not ingested")
	}
}

// ignored filters dotfiles and the partial files browsers and rsync leave.
func ignored(path string) bool {
	base := filepath.Base(path)
	if strings.HasPrefix(base, ".") {
		return true
	}
	for _, suffix := range []string{".part", ".crdownload", ".tmp", ".download"} {
		if strings.HasSuffix(base, suffix) {
			return true
		}
	}
	return false
}
