package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/bnema/mediaconv/internal/adapter/converter/ffmpeg"
	"github.com/bnema/mediaconv/internal/domain"
	"github.com/bnema/mediaconv/internal/infrastructure/logger"
)

func newProbeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "probe <files...>",
		Short: "Print stream metadata as the registry sees it",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			prober := ffmpeg.NewProber(cfg.FFprobePath, cfg.FFmpegPath, nil, logger.WithComponent("prober"))

			failed := false
			for _, path := range args {
				res, err := prober.Probe(cmd.Context(), path)
				if err != nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "%s: %v\n", path, err)
					failed = true
					continue
				}
				printProbe(cmd.OutOrStdout(), path, res)
			}
			if failed {
				return errFailures
			}
			return nil
		},
	}
}

func printProbe(w io.Writer, path string, res *domain.ProbeResult) {
	fmt.Fprintln(w, path)
	line := []string{domain.FormatDuration(res.Duration)}
	if res.Size > 0 {
		line = append(line, humanize.Bytes(uint64(res.Size)))
	}
	fmt.Fprintf(w, "  %s\n", strings.Join(line, ", "))

	if v := res.Video; v != nil {
		width, height := res.Dimensions()
		fmt.Fprintf(w, "  video: %s\n", joinNonEmpty(v.Codec, fmt.Sprintf("%dx%d", width, height),
			domain.FormatFrameRate(v.FPS), domain.FormatBitrate(v.Bitrate)))
	}
	if a := res.Audio; a != nil {
		fmt.Fprintf(w, "  audio: %s\n", joinNonEmpty(a.Codec,
			domain.FormatSampleRate(a.SampleRate), domain.FormatBitrate(a.Bitrate)))
	}
}

func joinNonEmpty(parts ...string) string {
	out := parts[:0]
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, ", ")
}
