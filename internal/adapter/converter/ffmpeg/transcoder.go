package ffmpeg

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/bnema/mediaconv/internal/domain"
	"github.com/bnema/mediaconv/internal/port"
)

const (
	DefaultKillGrace = 5 * time.Second
	stderrTailBytes  = 8 << 10
)

// ExitError is returned when ffmpeg exits unsuccessfully on its own.
type ExitError struct {
	Code   int
	Stderr []string
}

// Error puts the exit code and the last diagnostic on the first line; the
// rest of the captured stderr follows on later lines.
func (e *ExitError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "ffmpeg exited with code %d", e.Code)
	if n := len(e.Stderr); n > 0 {
		b.WriteString(": ")
		b.WriteString(e.Stderr[n-1])
		for _, line := range e.Stderr[:n-1] {
			b.WriteString("\n")
			b.WriteString(line)
		}
	}
	return b.String()
}

type Transcoder struct {
	bin    string
	prober port.MediaProber
	grace  time.Duration
	log    zerolog.Logger
}

type TranscoderOption func(*Transcoder)

// WithDurationProber lets the transcoder probe inputs whose duration was
// not supplied, so progress can still be reported as a percentage.
func WithDurationProber(p port.MediaProber) TranscoderOption {
	return func(t *Transcoder) { t.prober = p }
}

// WithKillGrace sets how long a cancelled ffmpeg may take to exit after
// SIGTERM before it is killed.
func WithKillGrace(d time.Duration) TranscoderOption {
	return func(t *Transcoder) { t.grace = d }
}

func WithLogger(log zerolog.Logger) TranscoderOption {
	return func(t *Transcoder) { t.log = log }
}

func NewTranscoder(bin string, opts ...TranscoderOption) *Transcoder {
	if bin == "" {
		bin = "ffmpeg"
	}
	t := &Transcoder{bin: bin, grace: DefaultKillGrace, log: zerolog.Nop()}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Transcode runs one ffmpeg invocation with req.Args. Cancelling ctx sends
// SIGTERM and, after the grace period, SIGKILL. A partial output is removed
// when the invocation does not succeed.
func (t *Transcoder) Transcode(ctx context.Context, req domain.TranscodeRequest, onProgress port.ProgressFunc) error {
	if err := validatePath(req.Input); err != nil {
		return fmt.Errorf("invalid input path: %w", err)
	}
	if err := validatePath(req.Destination); err != nil {
		return fmt.Errorf("invalid output path: %w", err)
	}
	if len(req.Args) == 0 {
		return errors.New("no transcoder arguments")
	}
	if err := os.MkdirAll(filepath.Dir(req.Destination), 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	duration := req.Duration
	if duration <= 0 && t.prober != nil {
		if res, err := t.prober.Probe(ctx, req.Input); err == nil {
			duration = res.Duration
		}
	}

	args := append([]string{"-nostdin", "-progress", "pipe:1", "-nostats"}, req.Args...)
	cmd := exec.CommandContext(ctx, t.bin, args...)
	cmd.Cancel = func() error { return terminate(cmd.Process) }
	cmd.WaitDelay = t.grace

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("stdout pipe: %w", err)
	}
	stderr := newTailBuffer(stderrTailBytes)
	cmd.Stderr = stderr

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start %s: %w", t.bin, err)
	}
	t.log.Debug().Str("id", req.ItemID).Int("pid", cmd.Process.Pid).Dur("duration", duration).Msg("ffmpeg started")

	last := 0
	ParseProgress(stdout, func(p Progress) {
		pct := percentOf(p.OutTime, duration)
		if p.Ended {
			pct = 100
		}
		if pct > last && onProgress != nil {
			last = pct
			onProgress(pct)
		}
	})

	waitErr := cmd.Wait()
	if waitErr == nil || (errors.Is(waitErr, exec.ErrWaitDelay) && cmd.ProcessState.Success()) {
		return nil
	}

	_ = os.Remove(req.Destination)

	if ctx.Err() != nil {
		return fmt.Errorf("transcode cancelled: %w", ctx.Err())
	}
	var exitErr *exec.ExitError
	if errors.As(waitErr, &exitErr) {
		return &ExitError{Code: exitErr.ExitCode(), Stderr: stderr.Lines()}
	}
	return fmt.Errorf("run %s: %w", t.bin, waitErr)
}

var _ port.Transcoder = (*Transcoder)(nil)
