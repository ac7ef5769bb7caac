// Package events provides a fire-and-forget NATS publisher for movie-set
// change notifications. Consumers use them to drop cached API responses.
package events

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

const (
	// SubjectMoviesUpdated fires after a merged set or store upsert changed.
	SubjectMoviesUpdated = "cinephilia.movies.updated"
)

// Event is the envelope sent on every subject.
type Event struct {
	EventID    string         `json:"event_id"`
	EventName  string         `json:"event_name"`
	Source     string         `json:"source"`
	OccurredAt time.Time      `json:"occurred_at"`
	Properties map[string]any `json:"properties,omitempty"`
}

// connPublisher is the subset of *nats.Conn the publisher needs.
type connPublisher interface {
	Publish(subj string, data []byte) error
}

// Publisher publishes events to core NATS.
// The zero value and a nil pointer are both safe no-op stubs.
type Publisher struct {
	nc     connPublisher
	source string
	log    *zap.Logger
}

// New creates a Publisher. Pass nc=nil to get a no-op stub.
func New(nc *nats.Conn, source string, log *zap.Logger) *Publisher {
	if nc == nil {
		return &Publisher{source: source, log: log}
	}
	return &Publisher{nc: nc, source: source, log: log}
}

// Publish sends an event. Failures are logged as warnings and never surface
// to the caller. Safe to call with a nil receiver.
func (p *Publisher) Publish(subject, eventName string, props map[string]any) {
	if p == nil || p.nc == nil {
		return
	}
	ev := Event{
		EventID:    uuid.NewString(),
		EventName:  eventName,
		Source:     p.source,
		OccurredAt: time.Now().UTC(),
		Properties: props,
	}
	data, err := json.Marshal(ev)
	if err != nil {
		p.warn("events: marshal failed", subject, err)
		return
	}
	if err := p.nc.Publish(subject, data); err != nil {
		p.warn("events: publish failed", subject, err)
	}
}

// MoviesUpdated is a shorthand for SubjectMoviesUpdated.
func (p *Publisher) MoviesUpdated(count int, reason string) {
	p.Publish(SubjectMoviesUpdated, "movies_updated", map[string]any{"count": count, "reason": reason})
}

func (p *Publisher) warn(msg, subject string, err error) {
	if p.log == nil {
		return
	}
	p.log.Warn(msg, zap.String("subject", subject), zap.Error(err))
}
