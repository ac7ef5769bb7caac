package movie

import (
	"strings"
	"time"
)

var watchedLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	time.RFC3339Nano,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	time.RFC1123Z,
	time.RFC1123,
	"2006/01/02",
	"01/02/2006",
}

// WatchedTime parses a watched date. Empty or unparseable values yield the
// zero time, which orders before every real date.
func WatchedTime(s string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}
	}
	for _, layout := range watchedLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

// watchedUnix maps the zero time to 0 so undated records sort as epoch 0,
// the same position as an explicit 1970-01-01.
func watchedUnix(s string) int64 {
	t := WatchedTime(s)
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}
