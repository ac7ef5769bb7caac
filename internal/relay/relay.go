// Package relay fetches third-party URLs through an ordered chain of relay
// endpoints, falling through to the next candidate until one answers 2xx.
package relay

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

const (
	// TemplateDirect disables relaying: the target is fetched as-is.
	TemplateDirect = "none"

	defaultTimeout  = 15 * time.Second
	maxBodyBytes    = 4 << 20
	defaultUA       = "cinephilia/1.0 (+personal film diary)"
	urlPlaceholder  = "{url}"
	allOriginsRelay = "https://api.allorigins.win/raw?url=" + urlPlaceholder
	isomorphicRelay = "https://cors.isomorphic-git.org/"
)

// ErrAllCandidatesFailed wraps the last error once every candidate failed.
var ErrAllCandidatesFailed = errors.New("relay: all candidates failed")

// HTTPStatusError reports a non-2xx answer from one candidate.
type HTTPStatusError struct {
	URL        string
	StatusCode int
}

func (e *HTTPStatusError) Error() string {
	if e == nil {
		return "HTTP status error"
	}
	return fmt.Sprintf("HTTP %d at %s", e.StatusCode, e.URL)
}

// Transient reports whether err says nothing about the page itself: every
// candidate was skipped by an open breaker, or the last answer was a 429.
func Transient(err error) bool {
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return true
	}
	var se *HTTPStatusError
	return errors.As(err, &se) && se.StatusCode == http.StatusTooManyRequests
}

// Options configures a Chain.
type Options struct {
	// Template is an optional relay URL containing {url}; "none" fetches
	// targets directly.
	Template   string
	HTTPClient *http.Client
	UserAgent  string
	Log        *zap.Logger
	Metrics    *Metrics
	// BreakerFailures trips a candidate's breaker after that many
	// consecutive failures (default 3).
	BreakerFailures uint32
	// BreakerCooldown is how long a tripped breaker stays open (default 2m).
	BreakerCooldown time.Duration
}

// Chain is safe for concurrent use.
type Chain struct {
	template string
	client   *http.Client
	ua       string
	log      *zap.Logger
	metrics  *Metrics

	failures uint32
	cooldown time.Duration

	mu       sync.Mutex
	breakers map[string]*gobreaker.CircuitBreaker
}

func New(opts Options) *Chain {
	c := &Chain{
		template: strings.TrimSpace(opts.Template),
		client:   opts.HTTPClient,
		ua:       strings.TrimSpace(opts.UserAgent),
		log:      opts.Log,
		metrics:  opts.Metrics,
		failures: opts.BreakerFailures,
		cooldown: opts.BreakerCooldown,
		breakers: make(map[string]*gobreaker.CircuitBreaker),
	}
	if c.client == nil {
		c.client = &http.Client{Timeout: defaultTimeout}
	}
	if c.ua == "" {
		c.ua = defaultUA
	}
	if c.log == nil {
		c.log = zap.NewNop()
	}
	if c.failures == 0 {
		c.failures = 3
	}
	if c.cooldown <= 0 {
		c.cooldown = 2 * time.Minute
	}
	return c
}

// Candidates lists the URLs tried for target, in order, without duplicates.
func (c *Chain) Candidates(target string) []string {
	return Candidates(c.template, target)
}

// Candidates lists the relay URLs for target under template.
func Candidates(template, target string) []string {
	template = strings.TrimSpace(template)
	if template == TemplateDirect {
		return []string{target}
	}

	var out []string
	if template != "" {
		out = append(out, expand(template, target))
	}
	out = append(out, expand(allOriginsRelay, target))
	out = append(out, isomorphicRelay+target)

	seen := make(map[string]struct{}, len(out))
	dedup := out[:0]
	for _, u := range out {
		if _, ok := seen[u]; ok {
			continue
		}
		seen[u] = struct{}{}
		dedup = append(dedup, u)
	}
	return dedup
}

func expand(template, target string) string {
	return strings.Replace(template, urlPlaceholder, url.QueryEscape(target), 1)
}

// Get fetches target through the chain and returns the first 2xx body.
func (c *Chain) Get(ctx context.Context, target string) ([]byte, error) {
	var lastErr error
	for _, candidate := range c.Candidates(target) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		cb := c.breaker(candidate)
		out, err := cb.Execute(func() (interface{}, error) {
			return c.fetch(ctx, candidate)
		})
		if err == nil {
			c.metrics.observe(hostOf(candidate), "ok")
			return out.([]byte), nil
		}

		outcome := "error"
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			outcome = "skipped"
		}
		c.metrics.observe(hostOf(candidate), outcome)
		c.log.Debug("relay candidate failed",
			zap.String("url", target),
			zap.String("relay", hostOf(candidate)),
			zap.String("outcome", outcome),
			zap.Error(err))
		lastErr = err
	}
	if lastErr == nil {
		lastErr = errors.New("no candidates")
	}
	return nil, fmt.Errorf("%w: %w", ErrAllCandidatesFailed, lastErr)
}

func (c *Chain) fetch(ctx context.Context, u string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", c.ua)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))
		return nil, &HTTPStatusError{URL: u, StatusCode: resp.StatusCode}
	}
	return io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
}

// breaker returns the breaker for the relay host of candidate. Direct
// fetches share one breaker per target host.
func (c *Chain) breaker(candidate string) *gobreaker.CircuitBreaker {
	name := hostOf(candidate)

	c.mu.Lock()
	defer c.mu.Unlock()
	if cb, ok := c.breakers[name]; ok {
		return cb
	}
	failures := c.failures
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Timeout:     c.cooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		IsSuccessful: func(err error) bool {
			// A 404 is an answer about the page, not the relay's health.
			var se *HTTPStatusError
			if errors.As(err, &se) && se.StatusCode < 500 && se.StatusCode != http.StatusTooManyRequests {
				return true
			}
			return err == nil
		},
	})
	c.breakers[name] = cb
	return cb
}

func hostOf(u string) string {
	p, err := url.Parse(u)
	if err != nil || p.Host == "" {
		return u
	}
	return p.Host
}
