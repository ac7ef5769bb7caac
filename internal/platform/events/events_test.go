package events

import (
	"encoding/json"
	"errors"
	"testing"
)

type recordingConn struct {
	subjects []string
	payloads [][]byte
	err      error
}

func (c *recordingConn) Publish(subj string, data []byte) error {
	c.subjects = append(c.subjects, subj)
	c.payloads = append(c.payloads, data)
	return c.err
}

func TestPublisher_NilIsNoop(t *testing.T) {
	var p *Publisher
	p.MoviesUpdated(3, "refresh")

	stub := New(nil, "gallery", nil)
	stub.MoviesUpdated(3, "refresh")
}

func TestPublisher_MoviesUpdated(t *testing.T) {
	conn := &recordingConn{}
	p := &Publisher{nc: conn, source: "archive"}
	p.MoviesUpdated(12, "rss-refresh")

	if len(conn.subjects) != 1 || conn.subjects[0] != SubjectMoviesUpdated {
		t.Fatalf("unexpected subjects: %v", conn.subjects)
	}
	var ev Event
	if err := json.Unmarshal(conn.payloads[0], &ev); err != nil {
		t.Fatal(err)
	}
	if ev.Source != "archive" || ev.EventName != "movies_updated" || ev.EventID == "" {
		t.Fatalf("unexpected event: %+v", ev)
	}
	if ev.Properties["count"].(float64) != 12 {
		t.Fatalf("unexpected count: %v", ev.Properties["count"])
	}
}

func TestPublisher_PublishErrorIsSwallowed(t *testing.T) {
	conn := &recordingConn{err: errors.New("disconnected")}
	p := &Publisher{nc: conn, source: "archive"}
	p.MoviesUpdated(1, "x")
	if len(conn.subjects) != 1 {
		t.Fatal("expected one publish attempt")
	}
}
