package enrich

import (
	"context"
	"time"
)

// Limiter paces outbound page fetches. A nil *Limiter never waits.
type Limiter struct {
	t *time.Ticker
}

// NewRPS allows up to rps fetches per second; rps <= 0 disables pacing.
func NewRPS(rps float64) *Limiter {
	if rps <= 0 {
		return nil
	}
	interval := time.Duration(float64(time.Second) / rps)
	if interval <= 0 {
		interval = time.Millisecond
	}
	return &Limiter{t: time.NewTicker(interval)}
}

func (l *Limiter) Stop() {
	if l != nil && l.t != nil {
		l.t.Stop()
	}
}

func (l *Limiter) Wait(ctx context.Context) error {
	if l == nil || l.t == nil {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-l.t.C:
		return nil
	}
}
