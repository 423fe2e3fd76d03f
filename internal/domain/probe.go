package domain

import (
	"fmt"
	"math"
	"strconv"
	"time"
)

type VideoStream struct {
	Codec     string
	Width     int
	Height    int
	FPS       float64
	Bitrate   int64
	Thumbnail string
}

type AudioStream struct {
	Codec      string
	SampleRate int
	Bitrate    int64
}

// ProbeResult is the structured output of the media probe collaborator.
type ProbeResult struct {
	Size     int64
	Duration time.Duration
	Video    *VideoStream
	Audio    *AudioStream
}

const (
	oneMegabitPerSec = 1000000
	oneKilobitPerSec = 1000
)

func (p *ProbeResult) VideoInfo() *VideoInfo {
	if p.Video == nil {
		return nil
	}
	return &VideoInfo{
		Codec:     p.Video.Codec,
		Width:     p.Video.Width,
		Height:    p.Video.Height,
		FPS:       p.Video.FPS,
		Bitrate:   p.Video.Bitrate,
		Duration:  p.Duration,
		Thumbnail: p.Video.Thumbnail,
	}
}

func (p *ProbeResult) AudioInfo() *AudioInfo {
	if p.Audio == nil {
		return nil
	}
	return &AudioInfo{
		Codec:      p.Audio.Codec,
		SampleRate: p.Audio.SampleRate,
		Bitrate:    p.Audio.Bitrate,
		Duration:   p.Duration,
	}
}

func (p *ProbeResult) Dimensions() (width, height int) {
	if p.Video != nil {
		return p.Video.Width, p.Video.Height
	}
	return 0, 0
}

func ParseFrameRate(fraction string) float64 {
	if fraction == "" || fraction == "0/0" {
		return 0
	}

	var num, den int
	if _, err := fmt.Sscanf(fraction, "%d/%d", &num, &den); err == nil && den > 0 {
		return float64(num) / float64(den)
	}
	return 0
}

func FormatDuration(d time.Duration) string {
	seconds := d.Seconds()
	if seconds <= 0 {
		return "00:00"
	}

	hours := int(seconds) / 3600
	minutes := (int(seconds) % 3600) / 60
	secs := int(seconds) % 60

	if hours > 0 {
		return fmt.Sprintf("%d:%02d:%02d", hours, minutes, secs)
	}
	return fmt.Sprintf("%d:%02d", minutes, secs)
}

func FormatBitrate(bitrate int64) string {
	if bitrate <= 0 {
		return ""
	}
	b := float64(bitrate)
	if b >= oneMegabitPerSec {
		return fmt.Sprintf("%.1f Mbps", b/oneMegabitPerSec)
	}
	if b >= oneKilobitPerSec {
		return fmt.Sprintf("%.1f Kbps", b/oneKilobitPerSec)
	}
	return fmt.Sprintf("%.0f bps", b)
}

func FormatFrameRate(fps float64) string {
	if fps <= 0 {
		return ""
	}
	if fps == math.Floor(fps) {
		return fmt.Sprintf("%.0f FPS", fps)
	}
	return fmt.Sprintf("%.2f FPS", fps)
}

func FormatSampleRate(sampleRate int) string {
	if sampleRate <= 0 {
		return ""
	}
	return fmt.Sprintf("%d Hz", sampleRate)
}

// ParseInt64 parses ffprobe's stringly typed integers, returning 0 on error.
func ParseInt64(s string) int64 {
	if s == "" || s == "N/A" {
		return 0
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0
	}
	return v
}

// ParseSeconds parses a fractional seconds string such as "12.480000".
func ParseSeconds(durationStr string) time.Duration {
	if durationStr == "" || durationStr == "N/A" {
		return 0
	}
	seconds, err := strconv.ParseFloat(durationStr, 64)
	if err != nil || seconds < 0 {
		return 0
	}
	return time.Duration(seconds * float64(time.Second))
}
