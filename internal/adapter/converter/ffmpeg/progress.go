package ffmpeg

import (
	"bufio"
	"io"
	"strconv"
	"strings"
	"time"
)

// Progress is one flushed block of ffmpeg's -progress output.
type Progress struct {
	OutTime time.Duration
	Speed   string
	Ended   bool
}

// ParseProgress reads ffmpeg key=value progress blocks from r until EOF and
// calls fn once per block. A block ends at its "progress" key. r is always
// read to EOF, even past a line too long to parse.
func ParseProgress(r io.Reader, fn func(Progress)) {
	scanner := bufio.NewScanner(r)
	var current Progress

	for scanner.Scan() {
		key, val, ok := strings.Cut(strings.TrimSpace(scanner.Text()), "=")
		if !ok {
			continue
		}
		key, val = strings.TrimSpace(key), strings.TrimSpace(val)

		switch key {
		case "out_time_us", "out_time_ms":
			// out_time_ms is microseconds as well, despite its name.
			if v, err := strconv.ParseInt(val, 10, 64); err == nil && v >= 0 {
				current.OutTime = time.Duration(v) * time.Microsecond
			}
		case "speed":
			current.Speed = val
		case "progress":
			current.Ended = val == "end"
			fn(current)
		}
	}
	// The scanner gives up on an oversized line; keep draining so ffmpeg
	// never blocks writing to a full pipe.
	_, _ = io.Copy(io.Discard, r)
}

// percentOf converts a position into a whole percentage of total, clamped
// to 0-100. It returns -1 when total is unknown.
func percentOf(pos, total time.Duration) int {
	if total <= 0 {
		return -1
	}
	pct := int(pos * 100 / total)
	return max(0, min(pct, 100))
}
