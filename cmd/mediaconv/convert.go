package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/bnema/mediaconv/internal/adapter/storage/memory"
	"github.com/bnema/mediaconv/internal/domain"
	"github.com/bnema/mediaconv/internal/service"
)

type convertFlags struct {
	kind             string
	format           string
	outDir           string
	quality          int
	preserveMetadata bool
}

func newConvertCmd() *cobra.Command {
	var f convertFlags
	cmd := &cobra.Command{
		Use:   "convert [files...]",
		Short: "Convert files once and exit",
		Long: `Convert every given file to the selected format, one at a time.

The first interrupt cancels the running conversion and stops the batch; a
second one exits immediately. The exit status is 1 when any file failed.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConvert(cmd.Context(), cmd.ErrOrStderr(), cmd.OutOrStdout(), f, args)
		},
	}
	cmd.Flags().StringVar(&f.kind, "kind", "", "media kind (video, audio, image); inferred from the first file when empty")
	cmd.Flags().StringVar(&f.format, "format", "", "output format; the kind's default when empty")
	cmd.Flags().StringVar(&f.outDir, "out", "", "absolute output directory; next to each source when empty")
	cmd.Flags().IntVar(&f.quality, "quality", domain.DefaultQuality, "quality from 1 to 100")
	cmd.Flags().BoolVar(&f.preserveMetadata, "preserve-metadata", false, "copy container metadata to the output")
	return cmd
}

// convertSettings turns flags into settings for the one-shot run.
func convertSettings(f convertFlags, files []string) (domain.SettingsPatch, error) {
	var kind domain.MediaType
	if f.kind != "" {
		k, ok := domain.ParseMediaType(f.kind)
		if !ok {
			return domain.SettingsPatch{}, fmt.Errorf("unknown kind %q", f.kind)
		}
		kind = k
	} else {
		for _, file := range files {
			if k, ok := domain.Classify(file); ok {
				kind = k
				break
			}
		}
		if kind == "" {
			return domain.SettingsPatch{}, fmt.Errorf("%w: none of the files is a known media type", domain.ErrUnsupportedFormat)
		}
	}

	outDir := f.outDir
	if outDir != "" {
		abs, err := filepath.Abs(outDir)
		if err != nil {
			return domain.SettingsPatch{}, err
		}
		outDir = abs
	}

	patch := domain.SettingsPatch{
		MediaKind:        &kind,
		OutputDir:        &outDir,
		Quality:          &f.quality,
		PreserveMetadata: &f.preserveMetadata,
	}
	if f.format != "" {
		patch.OutputFormats = map[domain.MediaType]string{kind: f.format}
	}
	return patch, nil
}

func runConvert(parent context.Context, stderr, stdout io.Writer, f convertFlags, files []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	patch, err := convertSettings(f, files)
	if err != nil {
		return err
	}

	a, err := newApp(cfg, appOptions{settingsStore: memory.NewStore()})
	if err != nil {
		return err
	}
	defer a.Close()

	if _, err := a.settings.Update(patch); err != nil {
		return err
	}

	events := a.bus.Subscribe(service.TopicAll)
	progressDone := make(chan struct{})
	go func() {
		defer close(progressDone)
		printProgress(stderr, events)
	}()
	defer func() {
		a.bus.Unsubscribe(service.TopicAll, events)
		<-progressDone
	}()

	for _, file := range files {
		if _, err := a.registry.Ingest(file, 0); err != nil {
			fmt.Fprintf(stderr, "skip %s: %v\n", file, err)
		}
	}

	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancel(parent)
	defer cancel()
	stopSignals := cancelOnInterrupt(cancel, a.orchestrator, stderr)
	defer stopSignals()

	result, err := a.orchestrator.ConvertAll(ctx)
	if err != nil {
		return err
	}

	kind, items, err := a.registry.ActiveSnapshot()
	if err != nil {
		return err
	}
	printSummary(stdout, kind, items, result)

	if len(result.Failed) > 0 {
		return errFailures
	}
	return nil
}

// cancelOnInterrupt cancels the running conversion on the first signal and
// the whole run on the second.
func cancelOnInterrupt(cancel context.CancelFunc, orch *service.Orchestrator, stderr io.Writer) func() {
	sigs := make(chan os.Signal, 2)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)
	done := make(chan struct{})
	go func() {
		select {
		case <-sigs:
			fmt.Fprintln(stderr, "cancelling, interrupt again to abort")
			orch.CancelConversion()
		case <-done:
			return
		}
		select {
		case <-sigs:
			cancel()
		case <-done:
		}
	}()
	return func() {
		signal.Stop(sigs)
		close(done)
	}
}

func printProgress(w io.Writer, events <-chan service.Event) {
	last := make(map[string]int)
	for ev := range events {
		if ev.Item == nil || ev.Type != service.EventItemUpdated {
			continue
		}
		item := ev.Item
		switch item.Status {
		case domain.ItemStatusConverting:
			if p, seen := last[item.ID]; seen && p == item.Progress {
				continue
			}
			last[item.ID] = item.Progress
			fmt.Fprintf(w, "[%3d%%] %s\n", item.Progress, item.FileName)
		case domain.ItemStatusDone:
			fmt.Fprintf(w, "[done] %s -> %s\n", item.FileName, item.OutputPath)
		case domain.ItemStatusError:
			fmt.Fprintf(w, "[fail] %s: %s\n", item.FileName, item.ErrorSummary())
		}
	}
}

func printSummary(w io.Writer, kind domain.MediaType, items domain.Collection, result service.BatchResult) {
	sum := items.Summarize(kind)
	fmt.Fprintf(w, "%d converted, %d failed, %d already in target format, %d skipped, %d cancelled\n",
		len(result.Converted), len(result.Failed), len(result.AlreadyTarget), len(result.Skipped), len(result.Cancelled))
	if sum.TotalConvertedSize > 0 {
		fmt.Fprintf(w, "%s in, %s out\n",
			humanize.Bytes(uint64(sum.TotalOriginalSize)), humanize.Bytes(uint64(sum.TotalConvertedSize)))
	}
}
