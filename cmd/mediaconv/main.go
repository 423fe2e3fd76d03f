package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/bnema/mediaconv/config"
	"github.com/bnema/mediaconv/internal/infrastructure/logger"
)

var version = "dev"

// errFailures makes the process exit non-zero without printing again.
var errFailures = errors.New("some conversions failed")

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "mediaconv",
		Short:         "Batch media conversion driven by ffmpeg",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newServeCmd(), newConvertCmd(), newProbeCmd(), newFormatsCmd(), newHashTokenCmd())
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		if !errors.Is(err, errFailures) {
			fmt.Fprintln(os.Stderr, "error:", err)
		}
		os.Exit(1)
	}
}

// loadConfig reads the environment and configures logging from it.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := logger.Configure(logger.Config{Level: cfg.LogLevel, Format: cfg.LogFormat}); err != nil {
		return nil, err
	}
	return cfg, nil
}
