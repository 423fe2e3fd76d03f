package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

const (
	BackendSQLite = "sqlite"
	BackendJSON   = "json"
)

type Config struct {
	Port            int
	BindAddr        string
	DataDir         string
	FFmpegPath      string
	FFprobePath     string
	SettingsBackend string
	APITokenHash    string
	WatchDirs       []string
	WatchSettle     time.Duration
	KillGrace       time.Duration
	RateLimitRPM    int
	LogLevel        string
	LogFormat       string
}

// Addr is the listen address of the HTTP daemon.
func (c *Config) Addr() string {
	return net.JoinHostPort(c.BindAddr, strconv.Itoa(c.Port))
}

func (c *Config) PreviewDir() string {
	return filepath.Join(c.DataDir, "previews")
}

func Load() (*Config, error) {
	port, err := strconv.Atoi(getEnv("PORT", "7890"))
	if err != nil {
		return nil, fmt.Errorf("invalid PORT: %w", err)
	}
	if port < 1 || port > 65535 {
		return nil, fmt.Errorf("invalid PORT: %d out of range", port)
	}

	rateLimit, err := strconv.Atoi(getEnv("RATE_LIMIT_RPM", "120"))
	if err != nil {
		return nil, fmt.Errorf("invalid RATE_LIMIT_RPM: %w", err)
	}

	watchSettle, err := time.ParseDuration(getEnv("WATCH_SETTLE", "2s"))
	if err != nil {
		return nil, fmt.Errorf("invalid WATCH_SETTLE: %w", err)
	}
	killGrace, err := time.ParseDuration(getEnv("KILL_GRACE", "5s"))
	if err != nil {
		return nil, fmt.Errorf("invalid KILL_GRACE: %w", err)
	}
	if watchSettle <= 0 || killGrace <= 0 {
		return nil, errors.New("WATCH_SETTLE and KILL_GRACE must be positive")
	}

	backend := strings.ToLower(getEnv("SETTINGS_BACKEND", BackendSQLite))
	if backend != BackendSQLite && backend != BackendJSON {
		return nil, fmt.Errorf("invalid SETTINGS_BACKEND %q: want %s or %s", backend, BackendSQLite, BackendJSON)
	}

	logFormat := strings.ToLower(getEnv("LOG_FORMAT", "json"))
	if logFormat != "json" && logFormat != "console" {
		return nil, fmt.Errorf("invalid LOG_FORMAT %q: want json or console", logFormat)
	}

	return &Config{
		Port:            port,
		BindAddr:        getEnv("BIND_ADDR", "127.0.0.1"),
		DataDir:         getEnv("DATA_DIR", "./data"),
		FFmpegPath:      getEnv("FFMPEG_PATH", "ffmpeg"),
		FFprobePath:     getEnv("FFPROBE_PATH", "ffprobe"),
		SettingsBackend: backend,
		APITokenHash:    os.Getenv("API_TOKEN_HASH"),
		WatchDirs:       splitList(os.Getenv("WATCH_DIRS")),
		WatchSettle:     watchSettle,
		KillGrace:       killGrace,
		RateLimitRPM:    rateLimit,
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		LogFormat:       logFormat,
	}, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func splitList(v string) []string {
	var out []string
	for _, p := range filepath.SplitList(v) {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
