package ffmpeg

import (
	"strings"
	"sync"
)

// tailBuffer keeps the last max bytes written to it. ffmpeg writes its
// diagnostics to stderr; only the end matters when it fails.
type tailBuffer struct {
	mu  sync.Mutex
	buf []byte
	max int
}

func newTailBuffer(max int) *tailBuffer {
	return &tailBuffer{max: max}
}

func (t *tailBuffer) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.buf = append(t.buf, p...)
	if over := len(t.buf) - t.max; over > 0 {
		t.buf = append(t.buf[:0], t.buf[over:]...)
	}
	return len(p), nil
}

// Lines returns the non-empty lines held, dropping a first line that may
// have been cut.
func (t *tailBuffer) Lines() []string {
	t.mu.Lock()
	text := string(t.buf)
	truncated := len(t.buf) >= t.max
	t.mu.Unlock()

	lines := strings.Split(strings.TrimSpace(text), "\n")
	if truncated && len(lines) > 1 {
		lines = lines[1:]
	}
	out := lines[:0]
	for _, l := range lines {
		if l = strings.TrimSpace(l); l != "" {
			out = append(out, l)
		}
	}
	return out
}
