package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/bnema/mediaconv/internal/codec"
	"github.com/bnema/mediaconv/internal/domain"
	"github.com/bnema/mediaconv/internal/infrastructure/logger"
	"github.com/bnema/mediaconv/internal/metrics"
	"github.com/bnema/mediaconv/internal/outpath"
	"github.com/bnema/mediaconv/internal/port"
)

// BatchResult lists item ids by how ConvertAll left them.
type BatchResult struct {
	Converted     []string `json:"converted"`
	Failed        []string `json:"failed"`
	Skipped       []string `json:"skipped"`
	AlreadyTarget []string `json:"already_target"`
	Cancelled     []string `json:"cancelled"`
}

func (b *BatchResult) record(id string, outcome domain.JobOutcome) {
	switch outcome {
	case domain.JobOutcomeDone:
		b.Converted = append(b.Converted, id)
	case domain.JobOutcomeError:
		b.Failed = append(b.Failed, id)
	case domain.JobOutcomeCancelled:
		b.Cancelled = append(b.Cancelled, id)
	case domain.JobOutcomeAlreadyTarget:
		b.AlreadyTarget = append(b.AlreadyTarget, id)
	default:
		b.Skipped = append(b.Skipped, id)
	}
}

type OrchestratorDeps struct {
	Registry   *Registry
	Transcoder port.Transcoder
	FS         port.FileSystem
	Settings   SettingsReader
	Paths      *outpath.Resolver
	Events     EventPublisher
	Log        zerolog.Logger
}

// activeJob is the cancellation handle of the one running invocation.
type activeJob struct {
	itemID string
	cancel context.CancelFunc
}

// Orchestrator drives conversions one at a time. runMu is held for the whole
// of a ConvertAll or ConvertItem call; mu guards the cancel flag and the
// active job handle.
type Orchestrator struct {
	deps OrchestratorDeps

	runMu sync.Mutex

	mu        sync.Mutex
	cancelled bool
	active    *activeJob

	wg sync.WaitGroup
}

func NewOrchestrator(deps OrchestratorDeps) *Orchestrator {
	return &Orchestrator{deps: deps}
}

// ConvertAll converts every eligible item of the active kind in insertion
// order. Settings and eligibility are re-read before each item, and items
// added while the batch runs are picked up. Failures do not stop the batch;
// CancelConversion does.
func (o *Orchestrator) ConvertAll(ctx context.Context) (BatchResult, error) {
	if !o.runMu.TryLock() {
		return BatchResult{}, domain.ErrBusy
	}
	defer o.runMu.Unlock()
	return o.runAll(ctx)
}

// StartAll runs ConvertAll in the background. The result is published as a
// batch.finished event.
func (o *Orchestrator) StartAll(ctx context.Context) error {
	if !o.runMu.TryLock() {
		return domain.ErrBusy
	}
	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		defer o.runMu.Unlock()
		if _, err := o.runAll(ctx); err != nil {
			o.deps.Log.Error().Err(err).Msg("batch conversion stopped")
		}
	}()
	return nil
}

func (o *Orchestrator) runAll(ctx context.Context) (BatchResult, error) {
	o.resetCancel()

	var result BatchResult
	o.publishBatch(EventBatchStarted, nil)
	defer func() { o.publishBatch(EventBatchFinished, &result) }()

	visited := make(map[string]bool)
	for {
		if o.isCancelled() || ctx.Err() != nil {
			return result, nil
		}

		settings, err := o.deps.Settings.Current()
		if err != nil {
			return result, err
		}

		next, ok := o.nextEligible(settings, visited, &result)
		if !ok {
			return result, nil
		}

		outcome, _, err := o.convert(ctx, next.ID, settings)
		if err != nil && !errors.Is(err, domain.ErrNotEligible) && !errors.Is(err, domain.ErrAlreadyTargetFormat) {
			o.deps.Log.Debug().Err(err).Str("id", next.ID).Msg("item not converted")
		}
		result.record(next.ID, outcome)
	}
}

// nextEligible returns the first unvisited item that should be converted
// under settings, recording every ineligible item it passes.
func (o *Orchestrator) nextEligible(settings domain.Settings, visited map[string]bool, result *BatchResult) (domain.MediaItem, bool) {
	format := settings.OutputFormat()
	for _, item := range o.deps.Registry.Snapshot(settings.MediaKind) {
		if visited[item.ID] {
			continue
		}
		visited[item.ID] = true

		switch err := item.IsEligible(format); {
		case err == nil:
			return item, true
		case errors.Is(err, domain.ErrAlreadyTargetFormat):
			result.record(item.ID, domain.JobOutcomeAlreadyTarget)
		default:
			result.record(item.ID, domain.JobOutcomeSkipped)
		}
	}
	return domain.MediaItem{}, false
}

// ConvertItem converts one item with the output format selected for its
// kind. ErrAlreadyTargetFormat and ErrNotEligible are returned without
// invoking the transcoder. A failed or cancelled conversion is reported
// through the returned item's status, not as an error.
func (o *Orchestrator) ConvertItem(ctx context.Context, id string) (domain.MediaItem, error) {
	if !o.runMu.TryLock() {
		return domain.MediaItem{}, domain.ErrBusy
	}
	defer o.runMu.Unlock()
	o.resetCancel()

	settings, err := o.deps.Settings.Current()
	if err != nil {
		return domain.MediaItem{}, err
	}
	_, item, err := o.convert(ctx, id, settings)
	return item, err
}

// CancelConversion stops the current batch from starting further items and
// terminates the running invocation. It reports whether one was running.
func (o *Orchestrator) CancelConversion() bool {
	o.mu.Lock()
	o.cancelled = true
	job := o.active
	o.mu.Unlock()

	if job == nil {
		return false
	}
	o.deps.Log.Info().Str("id", job.itemID).Msg("cancelling conversion")
	job.cancel()
	return true
}

// ActiveItem returns the id of the item being converted, if any.
func (o *Orchestrator) ActiveItem() (string, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.active == nil {
		return "", false
	}
	return o.active.itemID, true
}

// Shutdown cancels any running conversion and waits for background batches.
func (o *Orchestrator) Shutdown() {
	o.CancelConversion()
	o.wg.Wait()
}

func (o *Orchestrator) resetCancel() {
	o.mu.Lock()
	o.cancelled = false
	o.mu.Unlock()
}

func (o *Orchestrator) isCancelled() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.cancelled
}

// convert runs the single-item state machine. The returned error is non-nil
// only when the transcoder was not invoked or the item could not be read.
func (o *Orchestrator) convert(ctx context.Context, id string, settings domain.Settings) (domain.JobOutcome, domain.MediaItem, error) {
	var format string
	item, err := o.deps.Registry.Update(id, func(m *domain.MediaItem) error {
		format = settings.FormatFor(m.MediaType)
		if err := m.IsEligible(format); err != nil {
			return err
		}
		return m.StartConverting()
	})
	switch {
	case errors.Is(err, domain.ErrAlreadyTargetFormat):
		return domain.JobOutcomeAlreadyTarget, item, err
	case err != nil:
		return domain.JobOutcomeSkipped, item, err
	}

	log := o.deps.Log.With().Str("id", id).Str("format", format).Logger()

	dest, args, err := o.plan(item, format, settings)
	if err != nil {
		item = o.fail(id, err)
		metrics.RecordConversion(string(item.MediaType), string(domain.JobOutcomeError), 0, 0)
		log.Error().Err(err).Msg("cannot plan conversion")
		return domain.JobOutcomeError, item, nil
	}

	jobCtx, cancel := context.WithCancel(ctx)
	job := &activeJob{itemID: id, cancel: cancel}
	o.mu.Lock()
	o.active = job
	if o.cancelled {
		cancel()
	}
	o.mu.Unlock()

	logger.Path(log.Info(), item.FilePath).Str("dest", logger.SanitizeForLog(dest)).Msg("conversion started")

	req := domain.TranscodeRequest{
		ItemID:      id,
		Input:       item.FilePath,
		Destination: dest,
		Args:        args,
		Duration:    item.Duration(),
	}
	progress := func(percent int) {
		_, _ = o.deps.Registry.Update(id, func(m *domain.MediaItem) error {
			m.UpdateProgress(percent)
			return nil
		})
	}

	started := time.Now()
	metrics.ActiveConversions.Inc()
	err = o.deps.Transcoder.Transcode(jobCtx, req, progress)
	metrics.ActiveConversions.Dec()
	elapsed := time.Since(started)
	wasCancelled := jobCtx.Err() != nil

	o.releaseJob(job)

	var size int64
	if err == nil {
		size, err = o.verifyOutput(dest)
	}

	switch {
	case err == nil:
		item, _ = o.deps.Registry.Update(id, func(m *domain.MediaItem) error {
			m.MarkAsDone(dest, size)
			return nil
		})
		metrics.RecordConversion(string(item.MediaType), string(domain.JobOutcomeDone), elapsed, size)
		log.Info().Dur("elapsed", elapsed).Int64("bytes", size).Msg("conversion done")
		return domain.JobOutcomeDone, item, nil

	case wasCancelled:
		item, _ = o.deps.Registry.Update(id, func(m *domain.MediaItem) error {
			m.MarkAsCancelled()
			return nil
		})
		metrics.RecordConversion(string(item.MediaType), string(domain.JobOutcomeCancelled), elapsed, 0)
		log.Info().Msg("conversion cancelled")
		return domain.JobOutcomeCancelled, item, nil

	default:
		item = o.fail(id, err)
		metrics.RecordConversion(string(item.MediaType), string(domain.JobOutcomeError), elapsed, 0)
		log.Warn().Err(err).Msg("conversion failed")
		return domain.JobOutcomeError, item, nil
	}
}

func (o *Orchestrator) plan(item domain.MediaItem, format string, settings domain.Settings) (string, []string, error) {
	dest, err := o.deps.Paths.Resolve(item.FilePath, settings.OutputDir, format)
	if err != nil {
		return "", nil, fmt.Errorf("resolve destination: %w", err)
	}
	args, err := codec.BuildArgs(item, dest, format, codec.Options{
		Quality:          settings.Quality,
		PreserveMetadata: settings.PreserveMetadata,
	})
	if err != nil {
		return "", nil, fmt.Errorf("build arguments: %w", err)
	}
	return dest, args, nil
}

// releaseJob clears the handle only if it still belongs to job, so a late
// release never drops a newer invocation's handle.
func (o *Orchestrator) releaseJob(job *activeJob) {
	o.mu.Lock()
	if o.active == job {
		o.active = nil
	}
	o.mu.Unlock()
	job.cancel()
}

func (o *Orchestrator) verifyOutput(dest string) (int64, error) {
	size, err := o.deps.FS.Size(dest)
	if err != nil {
		return 0, fmt.Errorf("transcoder reported success but output is missing: %w", err)
	}
	if size == 0 {
		return 0, fmt.Errorf("transcoder reported success but %s is empty", dest)
	}
	return size, nil
}

func (o *Orchestrator) fail(id string, cause error) domain.MediaItem {
	item, _ := o.deps.Registry.Update(id, func(m *domain.MediaItem) error {
		m.MarkAsFailed(cause)
		return nil
	})
	return item
}

func (o *Orchestrator) publishBatch(eventType string, result *BatchResult) {
	if o.deps.Events == nil {
		return
	}
	var snapshot *BatchResult
	if result != nil {
		copied := *result
		snapshot = &copied
	}
	o.deps.Events.Publish(TopicAll, Event{Type: eventType, Batch: snapshot})
}
