package domain

import (
	"fmt"
	"maps"
	"path/filepath"
)

const (
	DefaultQuality = 75
	MinQuality     = 1
	MaxQuality     = 100
)

// Settings is the user-preference surface consumed by the registry and the
// orchestrator. It is re-read at the start of every orchestration step.
type Settings struct {
	MediaKind        MediaType            `json:"media_kind"`
	OutputFormats    map[MediaType]string `json:"output_formats"`
	OutputDir        string               `json:"output_dir"`
	Quality          int                  `json:"quality"`
	PreserveMetadata bool                 `json:"preserve_metadata"`
}

func DefaultSettings() Settings {
	formats := make(map[MediaType]string, len(defaultOutputFormat))
	maps.Copy(formats, defaultOutputFormat)
	return Settings{
		MediaKind:     MediaTypeVideo,
		OutputFormats: formats,
		Quality:       DefaultQuality,
	}
}

// OutputFormat returns the selected format for the active kind.
func (s Settings) OutputFormat() string {
	return s.FormatFor(s.MediaKind)
}

func (s Settings) FormatFor(kind MediaType) string {
	if f, ok := s.OutputFormats[kind]; ok && f != "" {
		return NormalizeFormat(f)
	}
	return DefaultOutputFormat(kind)
}

func (s Settings) Validate() error {
	if _, ok := ParseMediaType(string(s.MediaKind)); !ok {
		return fmt.Errorf("%w: unknown media kind %q", ErrInvalidSettings, s.MediaKind)
	}
	for kind, format := range s.OutputFormats {
		if !SupportsOutputFormat(kind, format) {
			return fmt.Errorf("%w: format %q is not offered for %s", ErrInvalidSettings, format, kind)
		}
	}
	if s.Quality < MinQuality || s.Quality > MaxQuality {
		return fmt.Errorf("%w: quality %d outside %d-%d", ErrInvalidSettings, s.Quality, MinQuality, MaxQuality)
	}
	if s.OutputDir != "" && !filepath.IsAbs(s.OutputDir) {
		return fmt.Errorf("%w: output directory %q must be absolute", ErrInvalidSettings, s.OutputDir)
	}
	return nil
}

// SettingsPatch carries a partial update; nil fields are left unchanged.
type SettingsPatch struct {
	MediaKind        *MediaType           `json:"media_kind,omitempty"`
	OutputFormats    map[MediaType]string `json:"output_formats,omitempty"`
	OutputDir        *string              `json:"output_dir,omitempty"`
	Quality          *int                 `json:"quality,omitempty"`
	PreserveMetadata *bool                `json:"preserve_metadata,omitempty"`
}

func (s Settings) Apply(p SettingsPatch) Settings {
	out := s
	out.OutputFormats = make(map[MediaType]string, len(s.OutputFormats))
	maps.Copy(out.OutputFormats, s.OutputFormats)
	if p.MediaKind != nil {
		out.MediaKind = *p.MediaKind
	}
	for kind, format := range p.OutputFormats {
		out.OutputFormats[kind] = NormalizeFormat(format)
	}
	if p.OutputDir != nil {
		out.OutputDir = *p.OutputDir
	}
	if p.Quality != nil {
		out.Quality = *p.Quality
	}
	if p.PreserveMetadata != nil {
		out.PreserveMetadata = *p.PreserveMetadata
	}
	return out
}
