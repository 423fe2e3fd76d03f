package service

import (
	"fmt"
	"strconv"
	"sync"

	"github.com/rs/zerolog"

	"github.com/bnema/mediaconv/internal/domain"
	"github.com/bnema/mediaconv/internal/port"
)

const (
	KeyMediaKind          = "media_kind"
	KeyOutputFormatPrefix = "output_format."
	KeyOutputDir          = "output_dir"
	KeyQuality            = "quality"
	KeyPreserveMetadata   = "preserve_metadata"
)

// SettingsReader is what the registry and orchestrator consume.
type SettingsReader interface {
	Current() (domain.Settings, error)
}

// SettingsService maps domain.Settings onto a flat string key/value store.
// Values that fail to parse fall back to their defaults.
type SettingsService struct {
	store port.SettingsStore
	log   zerolog.Logger
	mu    sync.Mutex
}

func NewSettingsService(store port.SettingsStore, log zerolog.Logger) *SettingsService {
	return &SettingsService{store: store, log: log}
}

func (s *SettingsService) Current() (domain.Settings, error) {
	values, err := s.store.All()
	if err != nil {
		return domain.Settings{}, fmt.Errorf("read settings: %w", err)
	}
	return s.decode(values), nil
}

// Update merges patch into the stored settings. Nothing is written when the
// merged result is invalid.
func (s *SettingsService) Update(patch domain.SettingsPatch) (domain.Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.Current()
	if err != nil {
		return domain.Settings{}, err
	}
	next := current.Apply(patch)
	if err := next.Validate(); err != nil {
		return current, err
	}

	before := encodeSettings(current)
	for key, value := range encodeSettings(next) {
		if value == before[key] {
			continue
		}
		if err := s.store.Set(key, value); err != nil {
			return current, fmt.Errorf("write setting %s: %w", key, err)
		}
	}
	return next, nil
}

func (s *SettingsService) decode(values map[string]string) domain.Settings {
	settings := domain.DefaultSettings()

	if v, ok := values[KeyMediaKind]; ok {
		if kind, ok := domain.ParseMediaType(v); ok {
			settings.MediaKind = kind
		} else {
			s.log.Warn().Str("key", KeyMediaKind).Str("value", v).Msg("ignoring stored setting")
		}
	}
	for _, kind := range domain.MediaTypes() {
		v, ok := values[KeyOutputFormatPrefix+string(kind)]
		if !ok {
			continue
		}
		if domain.SupportsOutputFormat(kind, v) {
			settings.OutputFormats[kind] = domain.NormalizeFormat(v)
		} else {
			s.log.Warn().Str("key", KeyOutputFormatPrefix+string(kind)).Str("value", v).Msg("ignoring stored setting")
		}
	}
	settings.OutputDir = values[KeyOutputDir]
	if v, ok := values[KeyQuality]; ok {
		if q, err := strconv.Atoi(v); err == nil && q >= domain.MinQuality && q <= domain.MaxQuality {
			settings.Quality = q
		} else {
			s.log.Warn().Str("key", KeyQuality).Str("value", v).Msg("ignoring stored setting")
		}
	}
	if v, ok := values[KeyPreserveMetadata]; ok {
		if b, err := strconv.ParseBool(v); err == nil {
			settings.PreserveMetadata = b
		}
	}
	return settings
}

func encodeSettings(s domain.Settings) map[string]string {
	values := map[string]string{
		KeyMediaKind:        string(s.MediaKind),
		KeyOutputDir:        s.OutputDir,
		KeyQuality:          strconv.Itoa(s.Quality),
		KeyPreserveMetadata: strconv.FormatBool(s.PreserveMetadata),
	}
	for _, kind := range domain.MediaTypes() {
		values[KeyOutputFormatPrefix+string(kind)] = s.FormatFor(kind)
	}
	return values
}
