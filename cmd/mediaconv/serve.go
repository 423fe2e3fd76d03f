package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	httpadapter "github.com/bnema/mediaconv/internal/adapter/http"
	"github.com/bnema/mediaconv/internal/adapter/watcher"
	"github.com/bnema/mediaconv/internal/infrastructure/logger"
	"github.com/bnema/mediaconv/internal/service"
)

const shutdownTimeout = 30 * time.Second

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP daemon and watch folders",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context())
		},
	}
}

func runServe(parent context.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log := logger.WithComponent("serve")

	auth, err := service.NewAuthService(cfg.APITokenHash)
	if err != nil {
		return err
	}
	if !auth.Enabled() {
		log.Warn().Msg("API_TOKEN_HASH is not set, the API is unauthenticated")
	}

	store, closeStore, err := openSettingsStore(cfg)
	if err != nil {
		return err
	}
	a, err := newApp(cfg, appOptions{settingsStore: store, previews: true})
	if err != nil {
		_ = closeStore()
		return err
	}
	a.closers = append(a.closers, closeStore)
	defer a.Close()

	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	server := httpadapter.NewServer(httpadapter.Deps{
		Items:       a.registry,
		Conversions: a.orchestrator,
		Settings:    a.settings,
		Events:      a.bus,
		Auth:        auth,
	}, httpadapter.Options{
		BaseContext:  ctx,
		RateLimitRPM: cfg.RateLimitRPM,
		Version:      version,
		Log:          logger.WithComponent("http"),
	})

	httpServer := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           server,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
		// Event streams end with the daemon instead of holding Shutdown open.
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info().Str("addr", cfg.Addr()).Str("version", version).Msg("server listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("shutting down")
		// Conversions first, so synchronous convert requests can return.
		a.orchestrator.Shutdown()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	if len(cfg.WatchDirs) > 0 {
		w := watcher.New(cfg.WatchDirs, cfg.WatchSettle, a.registry, logger.WithComponent("watcher"))
		g.Go(func() error { return w.Run(gctx) })
	}

	if err := g.Wait(); err != nil {
		return err
	}
	log.Info().Msg("shutdown complete")
	return nil
}
