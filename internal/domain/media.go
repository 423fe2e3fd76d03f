package domain

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

type MediaType string

const (
	MediaTypeVideo MediaType = "video"
	MediaTypeAudio MediaType = "audio"
	MediaTypeImage MediaType = "image"
)

type ItemStatus string

const (
	ItemStatusPending    ItemStatus = "pending"
	ItemStatusConverting ItemStatus = "converting"
	ItemStatusDone       ItemStatus = "done"
	ItemStatusError      ItemStatus = "error"
	ItemStatusCancelled  ItemStatus = "cancelled"
)

// maxInFlightProgress is the highest percentage reported before the output
// has been verified. 100 is reserved for MarkAsDone.
const maxInFlightProgress = 99

type VideoInfo struct {
	Codec     string        `json:"codec"`
	Width     int           `json:"width"`
	Height    int           `json:"height"`
	FPS       float64       `json:"fps"`
	Bitrate   int64         `json:"bitrate,omitempty"`
	Duration  time.Duration `json:"duration"`
	Thumbnail string        `json:"thumbnail,omitempty"`
}

type AudioInfo struct {
	Codec      string        `json:"codec"`
	SampleRate int           `json:"sample_rate,omitempty"`
	Bitrate    int64         `json:"bitrate,omitempty"`
	Duration   time.Duration `json:"duration"`
}

type ImageInfo struct {
	Width     int    `json:"width"`
	Height    int    `json:"height"`
	Thumbnail string `json:"thumbnail,omitempty"`
}

type MediaItem struct {
	ID           string     `json:"id"`
	FileName     string     `json:"file_name"`
	FilePath     string     `json:"file_path"`
	MediaType    MediaType  `json:"media_type"`
	OriginalSize int64      `json:"original_size"`
	OutputSize   int64      `json:"output_size"`
	Progress     int        `json:"progress"`
	Status       ItemStatus `json:"status"`
	OutputPath   string     `json:"output_path,omitempty"`
	Error        string     `json:"error,omitempty"`
	VideoInfo    *VideoInfo `json:"video_info,omitempty"`
	AudioInfo    *AudioInfo `json:"audio_info,omitempty"`
	ImageInfo    *ImageInfo `json:"image_info,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

func NewMediaItem(mediaType MediaType, filePath string, size int64) *MediaItem {
	return &MediaItem{
		ID:           uuid.NewString(),
		FileName:     filepath.Base(filePath),
		FilePath:     filePath,
		MediaType:    mediaType,
		OriginalSize: size,
		Status:       ItemStatusPending,
		CreatedAt:    time.Now(),
	}
}

// StartConverting moves the item into the converting state. Items that are
// already converting or done are left untouched.
func (m *MediaItem) StartConverting() error {
	if m.Status == ItemStatusConverting || m.Status == ItemStatusDone {
		return fmt.Errorf("%w: status is %s", ErrNotEligible, m.Status)
	}
	m.Status = ItemStatusConverting
	m.Progress = 0
	m.Error = ""
	m.OutputPath = ""
	m.OutputSize = 0
	return nil
}

// UpdateProgress applies a transcoder progress report. Percentages never go
// backwards and stay below 100 until the output is confirmed.
func (m *MediaItem) UpdateProgress(percent int) {
	if m.Status != ItemStatusConverting {
		return
	}
	percent = min(percent, maxInFlightProgress)
	if percent > m.Progress {
		m.Progress = percent
	}
}

func (m *MediaItem) MarkAsDone(outputPath string, outputSize int64) {
	m.Status = ItemStatusDone
	m.Progress = 100
	m.OutputPath = outputPath
	m.OutputSize = outputSize
	m.Error = ""
}

func (m *MediaItem) MarkAsFailed(err error) {
	m.Status = ItemStatusError
	m.Progress = 0
	m.OutputPath = ""
	m.OutputSize = 0
	m.Error = err.Error()
}

// MarkAsCancelled returns a converting item to a re-convertible state.
// Cancellation is not a failure, so no error is recorded.
func (m *MediaItem) MarkAsCancelled() {
	m.Status = ItemStatusCancelled
	m.Progress = 0
	m.OutputPath = ""
	m.OutputSize = 0
	m.Error = ""
}

// IsEligible reports whether the item should be handed to the transcoder
// for the given target format.
func (m *MediaItem) IsEligible(targetFormat string) error {
	if m.Status == ItemStatusConverting || m.Status == ItemStatusDone {
		return fmt.Errorf("%w: status is %s", ErrNotEligible, m.Status)
	}
	if NormalizeFormat(Extension(m.FilePath)) == NormalizeFormat(targetFormat) {
		return ErrAlreadyTargetFormat
	}
	return nil
}

// ErrorSummary returns the first line of the recorded failure message.
func (m *MediaItem) ErrorSummary() string {
	line, _, _ := strings.Cut(m.Error, "\n")
	return strings.TrimSpace(line)
}

// Duration returns the probed duration, zero when unknown.
func (m *MediaItem) Duration() time.Duration {
	switch {
	case m.VideoInfo != nil:
		return m.VideoInfo.Duration
	case m.AudioInfo != nil:
		return m.AudioInfo.Duration
	}
	return 0
}

// Thumbnail returns the preview reference attached by probing, if any.
func (m *MediaItem) Thumbnail() string {
	switch {
	case m.VideoInfo != nil:
		return m.VideoInfo.Thumbnail
	case m.ImageInfo != nil:
		return m.ImageInfo.Thumbnail
	}
	return ""
}

// ApplyProbe attaches probe results matching the item's media type. Results
// for another type are ignored.
func (m *MediaItem) ApplyProbe(result *ProbeResult) {
	if result == nil {
		return
	}
	switch m.MediaType {
	case MediaTypeVideo:
		m.VideoInfo = result.VideoInfo()
	case MediaTypeAudio:
		m.AudioInfo = result.AudioInfo()
	}
}

func (m *MediaItem) ApplyImageInfo(info *ImageInfo) {
	if info == nil || m.MediaType != MediaTypeImage {
		return
	}
	m.ImageInfo = info
}

// CheckInvariants returns the first violated lifecycle invariant, or nil.
func (m *MediaItem) CheckInvariants() error {
	if (m.Progress == 100) != (m.Status == ItemStatusDone) {
		return fmt.Errorf("progress %d with status %s", m.Progress, m.Status)
	}
	if (m.OutputPath != "") != (m.Status == ItemStatusDone) {
		return fmt.Errorf("output path %q with status %s", m.OutputPath, m.Status)
	}
	if m.Progress < 0 || m.Progress > 100 {
		return fmt.Errorf("progress %d out of range", m.Progress)
	}
	if m.Error != "" && m.Status != ItemStatusError {
		return fmt.Errorf("error set with status %s", m.Status)
	}
	infos := 0
	for _, set := range []bool{m.VideoInfo != nil, m.AudioInfo != nil, m.ImageInfo != nil} {
		if set {
			infos++
		}
	}
	if infos > 1 {
		return fmt.Errorf("%d probe infos populated", infos)
	}
	switch {
	case m.VideoInfo != nil && m.MediaType != MediaTypeVideo,
		m.AudioInfo != nil && m.MediaType != MediaTypeAudio,
		m.ImageInfo != nil && m.MediaType != MediaTypeImage:
		return fmt.Errorf("probe info does not match media type %s", m.MediaType)
	}
	return nil
}
