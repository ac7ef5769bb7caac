package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/example/cinephilia/internal/platform/config"
)

const (
	DriverMongo    = "mongo"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

type Config struct {
	StoreDriver string
	MongoURI    string
	MongoDB     string
	DatabaseURL string

	FeedURL       string
	RelayTemplate string

	MoviesCacheTTL time.Duration
	NATSURL        string
}

func Load() (Config, error) {
	cfg := Config{
		StoreDriver:    strings.ToLower(config.String("STORE_DRIVER", DriverMongo)),
		MongoURI:       config.String("MONGODB_URI", ""),
		MongoDB:        config.String("MONGODB_DB", "cinephilia"),
		DatabaseURL:    config.String("DATABASE_URL", ""),
		FeedURL:        config.String("LETTERBOXD_RSS_URL", ""),
		RelayTemplate:  config.String("RSS_PROXY_TEMPLATE", "none"),
		MoviesCacheTTL: config.Duration("MOVIES_CACHE_TTL", 60*time.Second),
		NATSURL:        config.String("NATS_URL", ""),
	}
	switch cfg.StoreDriver {
	case DriverMongo, DriverPostgres, DriverMemory:
	default:
		return Config{}, fmt.Errorf("STORE_DRIVER %q: want mongo, postgres or memory", cfg.StoreDriver)
	}
	return cfg, nil
}
