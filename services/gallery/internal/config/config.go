package config

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/example/cinephilia/internal/backend"
	"github.com/example/cinephilia/internal/gallery"
	"github.com/example/cinephilia/internal/platform/config"
)

type Config struct {
	// DataDir holds the lock file and the sqlite cache.
	DataDir string

	ExportDir     string
	ExportBaseURL string
	FeedURL       string
	// RelayTemplate fronts feed and film-page fetches. Empty tries the
	// public relays; "none" fetches directly.
	RelayTemplate string
	BackendURL    string

	EnableDetailEnrichment bool
	RedisURL               string
	EmptyResultTTL         time.Duration
	EnrichRPS              float64
	RefreshInterval        time.Duration

	NATSURL string
}

func Load() (Config, error) {
	cfg := Config{
		DataDir:                config.String("DATA_DIR", "data"),
		ExportDir:              config.String("EXPORT_DIR", ""),
		ExportBaseURL:          config.String("EXPORT_BASE_URL", ""),
		FeedURL:                config.String("LETTERBOXD_RSS_URL", ""),
		RelayTemplate:          config.String("RSS_PROXY_TEMPLATE", ""),
		BackendURL:             config.String("API_BASE_URL", ""),
		EnableDetailEnrichment: config.Bool("ENABLE_DETAIL_ENRICHMENT", false),
		RedisURL:               config.String("REDIS_URL", ""),
		EmptyResultTTL:         config.Duration("EMPTY_RESULT_TTL", 0),
		EnrichRPS:              config.Float("ENRICH_RPS", 2),
		RefreshInterval:        config.Duration("REFRESH_INTERVAL", gallery.DefaultInterval),
		NATSURL:                config.String("NATS_URL", ""),
	}
	if cfg.ExportDir == "" && cfg.ExportBaseURL == "" {
		cfg.ExportDir = "public/letterboxd-exports"
	}
	if cfg.BackendURL != "" && !backend.ShouldAttempt(cfg.BackendURL) {
		return Config{}, fmt.Errorf("API_BASE_URL %q: want an http(s) URL", cfg.BackendURL)
	}
	return cfg, nil
}

func (c Config) LockPath() string { return filepath.Join(c.DataDir, "gallery.lock") }

func (c Config) SQLitePath() string { return filepath.Join(c.DataDir, "cinephilia.db") }
