// Package movie holds the canonical movie record and the rules for folding
// records from several sources into one deduplicated, sorted set.
package movie

import "strings"

// Record is one watched film. Values are treated as immutable: merges and
// patches return new records.
type Record struct {
	ID          string   `json:"id" bson:"id"`
	Title       string   `json:"title" bson:"title"`
	Year        int      `json:"year" bson:"year"`
	Director    string   `json:"director" bson:"director"`
	Rating      float64  `json:"rating" bson:"rating"`
	Poster      string   `json:"poster" bson:"poster"`
	Backdrop    string   `json:"backdrop" bson:"backdrop"`
	Review      string   `json:"review" bson:"review"`
	WatchedDate string   `json:"watchedDate" bson:"watchedDate"`
	Runtime     int      `json:"runtime" bson:"runtime"`
	Genre       []string `json:"genre" bson:"genre"`
}

// Valid reports whether the record carries a title.
func (r Record) Valid() bool {
	return strings.TrimSpace(r.Title) != ""
}

// Key returns the dedup fingerprint of the record.
func (r Record) Key() string {
	return Fingerprint(r.Title, r.Year)
}

// HasDetailPage reports whether ID is an http(s) URI that can be fetched.
func (r Record) HasDetailPage() bool {
	return strings.HasPrefix(r.ID, "http://") || strings.HasPrefix(r.ID, "https://")
}

// SyntheticID builds the fallback identifier used when a source has no URI.
func SyntheticID(title, watchedDate string) string {
	if watchedDate == "" {
		watchedDate = "unknown"
	}
	return title + "-" + watchedDate
}

func (r Record) clone() Record {
	if r.Genre != nil {
		r.Genre = append([]string(nil), r.Genre...)
	}
	return r
}
