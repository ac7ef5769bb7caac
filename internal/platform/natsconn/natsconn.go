// Package natsconn opens the optional NATS connection used for movie-set
// change events.
package natsconn

import (
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/example/cinephilia/internal/platform/config"
)

// Options configures the connection. Zero values fall back to env vars or
// built-in defaults.
type Options struct {
	URL           string
	Name          string
	MaxReconnects int           // NATS_MAX_RECONNECTS, default 5
	ReconnectWait time.Duration // NATS_RECONNECT_WAIT, default 2s
	Log           *zap.Logger
}

func (o Options) url() string {
	if u := strings.TrimSpace(o.URL); u != "" {
		return u
	}
	return config.String("NATS_URL", "")
}

// Enabled reports whether a URL is configured in opts or NATS_URL.
func Enabled(opts Options) bool {
	return opts.url() != ""
}

// Dial connects when Enabled and returns a nil conn otherwise. Callers treat a
// nil conn as "events off".
func Dial(opts Options) (*nats.Conn, error) {
	if !Enabled(opts) {
		return nil, nil
	}
	return Connect(opts)
}

// Connect fails fast: the initial connect is not retried, only later
// reconnects are.
func Connect(opts Options) (*nats.Conn, error) {
	url := opts.url()
	if url == "" {
		url = nats.DefaultURL
	}
	if opts.MaxReconnects == 0 {
		opts.MaxReconnects = config.Int("NATS_MAX_RECONNECTS", 5)
	}
	if opts.ReconnectWait <= 0 {
		opts.ReconnectWait = config.Duration("NATS_RECONNECT_WAIT", 2*time.Second)
	}
	log := opts.Log
	if log == nil {
		log = zap.NewNop()
	}

	natsOpts := []nats.Option{
		nats.MaxReconnects(opts.MaxReconnects),
		nats.ReconnectWait(opts.ReconnectWait),
		nats.RetryOnFailedConnect(false),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			log.Warn("nats disconnected", zap.Error(err))
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info("nats reconnected", zap.String("url", nc.ConnectedUrl()))
		}),
	}
	if opts.Name != "" {
		natsOpts = append(natsOpts, nats.Name(opts.Name))
	}

	nc, err := nats.Connect(url, natsOpts...)
	if err != nil {
		return nil, fmt.Errorf("nats connect %s (max_reconnects=%d, wait=%s): %w",
			url, opts.MaxReconnects, opts.ReconnectWait, err)
	}
	return nc, nil
}
