package main

import (
	"fmt"
	"os"

	"github.com/bnema/mediaconv/config"
	"github.com/bnema/mediaconv/internal/adapter/converter/ffmpeg"
	"github.com/bnema/mediaconv/internal/adapter/fs"
	"github.com/bnema/mediaconv/internal/adapter/preview"
	"github.com/bnema/mediaconv/internal/adapter/storage/jsonfile"
	"github.com/bnema/mediaconv/internal/adapter/storage/sqlite"
	"github.com/bnema/mediaconv/internal/domain"
	"github.com/bnema/mediaconv/internal/infrastructure/logger"
	"github.com/bnema/mediaconv/internal/outpath"
	"github.com/bnema/mediaconv/internal/port"
	"github.com/bnema/mediaconv/internal/service"
)

// app holds the wired core shared by serve and convert.
type app struct {
	settings     *service.SettingsService
	bus          *service.EventBus
	registry     *service.Registry
	orchestrator *service.Orchestrator
	closers      []func() error
}

type appOptions struct {
	settingsStore port.SettingsStore
	previews      bool
}

func openSettingsStore(cfg *config.Config) (port.SettingsStore, func() error, error) {
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, nil, fmt.Errorf("create data directory: %w", err)
	}
	switch cfg.SettingsBackend {
	case config.BackendJSON:
		store, err := jsonfile.NewStore(cfg.DataDir)
		if err != nil {
			return nil, nil, fmt.Errorf("open settings file: %w", err)
		}
		return store, func() error { return nil }, nil
	default:
		store, err := sqlite.NewStore(cfg.DataDir)
		if err != nil {
			return nil, nil, fmt.Errorf("open settings database: %w", err)
		}
		return store, store.Close, nil
	}
}

func newApp(cfg *config.Config, opts appOptions) (*app, error) {
	a := &app{bus: service.NewEventBus()}
	a.settings = service.NewSettingsService(opts.settingsStore, logger.WithComponent("settings"))

	var (
		previews  port.PreviewStore
		inspector port.ImageInspector
	)
	if opts.previews {
		store, err := preview.NewStore(cfg.PreviewDir())
		if err != nil {
			return nil, err
		}
		if err := store.Purge(); err != nil {
			log := logger.Base()
			log.Warn().Err(err).Msg("purge stale previews")
		}
		previews = store
		inspector = preview.NewInspector(store, logger.WithComponent("inspector"))
	}

	local := fs.New()
	prober := ffmpeg.NewProber(cfg.FFprobePath, cfg.FFmpegPath, previews, logger.WithComponent("prober"))
	transcoder := ffmpeg.NewTranscoder(cfg.FFmpegPath,
		ffmpeg.WithDurationProber(ffmpeg.NewProber(cfg.FFprobePath, cfg.FFmpegPath, nil, logger.WithComponent("prober"))),
		ffmpeg.WithKillGrace(cfg.KillGrace),
		ffmpeg.WithLogger(logger.WithComponent("ffmpeg")),
	)

	a.registry = service.NewRegistry(service.RegistryDeps{
		Prober:    prober,
		Inspector: inspector,
		Previews:  previews,
		FS:        local,
		Settings:  a.settings,
		Events:    a.bus,
		Log:       logger.WithComponent("registry"),
	})

	paths := outpath.NewResolver(local.Exists)
	a.registry.OnRemove(func(item domain.MediaItem) { paths.Forget(item.FilePath) })

	a.orchestrator = service.NewOrchestrator(service.OrchestratorDeps{
		Registry:   a.registry,
		Transcoder: transcoder,
		FS:         local,
		Settings:   a.settings,
		Paths:      paths,
		Events:     a.bus,
		Log:        logger.WithComponent("orchestrator"),
	})
	return a, nil
}

// Close stops conversions and probes, then releases stores.
func (a *app) Close() {
	a.orchestrator.Shutdown()
	a.registry.Close()
	for _, c := range a.closers {
		if err := c(); err != nil {
			log := logger.Base()
			log.Warn().Err(err).Msg("close")
		}
	}
}
