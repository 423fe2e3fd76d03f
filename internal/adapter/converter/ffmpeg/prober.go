package ffmpeg

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/bnema/mediaconv/internal/domain"
	"github.com/bnema/mediaconv/internal/port"
)

// Prober reads stream metadata with ffprobe. When a preview store is
// configured, video inputs also get a one-frame JPEG thumbnail.
type Prober struct {
	ffprobe  string
	ffmpeg   string
	previews port.PreviewStore
	log      zerolog.Logger
}

func NewProber(ffprobeBin, ffmpegBin string, previews port.PreviewStore, log zerolog.Logger) *Prober {
	if ffprobeBin == "" {
		ffprobeBin = "ffprobe"
	}
	if ffmpegBin == "" {
		ffmpegBin = "ffmpeg"
	}
	return &Prober{ffprobe: ffprobeBin, ffmpeg: ffmpegBin, previews: previews, log: log}
}

func (p *Prober) Probe(ctx context.Context, path string) (*domain.ProbeResult, error) {
	if err := validatePath(path); err != nil {
		return nil, fmt.Errorf("invalid input path: %w", err)
	}

	cmd := exec.CommandContext(ctx, p.ffprobe,
		"-v", "quiet",
		"-print_format", "json",
		"-show_format", "-show_streams",
		path,
	)
	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("ffprobe failed: %w", err)
	}

	result, err := ParseProbeJSON(out)
	if err != nil {
		return nil, err
	}

	if result.Video != nil && p.previews != nil {
		thumb, err := p.thumbnail(ctx, path, result.Duration)
		if err != nil {
			p.log.Debug().Err(err).Msg("thumbnail failed")
		} else {
			result.Video.Thumbnail = thumb
		}
	}
	return result, nil
}

// thumbnail grabs one frame, one second in when the input is long enough.
func (p *Prober) thumbnail(ctx context.Context, path string, duration time.Duration) (string, error) {
	ref, err := p.previews.NewPath("frame", "jpg")
	if err != nil {
		return "", err
	}

	seek := "0"
	if duration > 2*time.Second {
		seek = "1"
	}
	cmd := exec.CommandContext(ctx, p.ffmpeg,
		"-nostdin", "-v", "error",
		"-ss", seek,
		"-i", path,
		"-frames:v", "1",
		"-vf", "scale=320:-2",
		"-f", "image2",
		"-y", ref,
	)
	if out, err := cmd.CombinedOutput(); err != nil {
		_ = p.previews.Release(ref)
		return "", fmt.Errorf("ffmpeg thumbnail: %w: %s", err, strings.TrimSpace(string(out)))
	}
	return ref, nil
}

// ParseProbeJSON converts ffprobe's -print_format json output into a
// ProbeResult. Attached pictures such as cover art are not video streams.
func ParseProbeJSON(data []byte) (*domain.ProbeResult, error) {
	var raw ffprobeOutput
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse ffprobe JSON: %w", err)
	}

	result := &domain.ProbeResult{
		Size:     domain.ParseInt64(raw.Format.Size),
		Duration: domain.ParseSeconds(raw.Format.Duration),
	}
	for _, s := range raw.Streams {
		switch s.CodecType {
		case "video":
			if result.Video != nil || s.Disposition["attached_pic"] == 1 {
				continue
			}
			fps := domain.ParseFrameRate(s.AvgFrameRate)
			if fps == 0 {
				fps = domain.ParseFrameRate(s.RFrameRate)
			}
			result.Video = &domain.VideoStream{
				Codec:   s.CodecName,
				Width:   s.Width,
				Height:  s.Height,
				FPS:     fps,
				Bitrate: domain.ParseInt64(s.BitRate),
			}
		case "audio":
			if result.Audio != nil {
				continue
			}
			result.Audio = &domain.AudioStream{
				Codec:      s.CodecName,
				SampleRate: int(domain.ParseInt64(s.SampleRate)),
				Bitrate:    domain.ParseInt64(s.BitRate),
			}
		}
	}

	if result.Duration == 0 {
		for _, s := range raw.Streams {
			if d := domain.ParseSeconds(s.Duration); d > result.Duration {
				result.Duration = d
			}
		}
	}
	if result.Video != nil && result.Video.Bitrate == 0 && result.Audio == nil {
		result.Video.Bitrate = domain.ParseInt64(raw.Format.BitRate)
	}
	if result.Audio != nil && result.Audio.Bitrate == 0 && result.Video == nil {
		result.Audio.Bitrate = domain.ParseInt64(raw.Format.BitRate)
	}
	return result, nil
}

type ffprobeOutput struct {
	Format  ffprobeFormat   `json:"format"`
	Streams []ffprobeStream `json:"streams"`
}

type ffprobeFormat struct {
	Duration string `json:"duration"`
	Size     string `json:"size"`
	BitRate  string `json:"bit_rate"`
}

type ffprobeStream struct {
	CodecName    string         `json:"codec_name"`
	CodecType    string         `json:"codec_type"`
	Width        int            `json:"width"`
	Height       int            `json:"height"`
	AvgFrameRate string         `json:"avg_frame_rate"`
	RFrameRate   string         `json:"r_frame_rate"`
	BitRate      string         `json:"bit_rate"`
	SampleRate   string         `json:"sample_rate"`
	Duration     string         `json:"duration"`
	Disposition  map[string]int `json:"disposition"`
}

var _ port.MediaProber = (*Prober)(nil)
