// Package letterboxd maps Letterboxd export files and the public RSS feed
// onto movie records.
package letterboxd

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/example/cinephilia/internal/movie"
)

// Kind identifies one of the four CSV exports.
type Kind string

const (
	KindReviews Kind = "reviews"
	KindWatched Kind = "watched"
	KindDiary   Kind = "diary"
	KindRatings Kind = "ratings"
)

// Kinds lists the exports in merge priority order, lowest first.
var Kinds = []Kind{KindReviews, KindWatched, KindDiary, KindRatings}

// FileName is the export file name, e.g. "diary.csv".
func (k Kind) FileName() string { return string(k) + ".csv" }

// Column names used by the exports.
const (
	ColName        = "Name"
	ColYear        = "Year"
	ColRating      = "Rating"
	ColWatchedDate = "Watched Date"
	ColDate        = "Date"
	ColReview      = "Review"
	ColURI         = "Letterboxd URI"
)

// Row is one CSV data row keyed by header column.
type Row map[string]string

// ParseCSV reads a header row followed by data rows. Rows whose values are
// all blank are dropped; malformed lines are skipped.
func ParseCSV(r io.Reader) ([]Row, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(strings.TrimPrefix(header[i], "\ufeff"))
	}

	var rows []Row
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		var pe *csv.ParseError
		if errors.As(err, &pe) {
			continue
		}
		if err != nil {
			return rows, fmt.Errorf("read row: %w", err)
		}

		row := make(Row, len(header))
		blank := true
		for i, col := range header {
			if i >= len(rec) {
				break
			}
			row[col] = rec[i]
			if strings.TrimSpace(rec[i]) != "" {
				blank = false
			}
		}
		if !blank {
			rows = append(rows, row)
		}
	}
	return rows, nil
}

// RowToRecord converts one export row. It reports false when the row has no
// title.
func RowToRecord(row Row, kind Kind) (movie.Record, bool) {
	title := strings.TrimSpace(row[ColName])
	if title == "" {
		return movie.Record{}, false
	}

	watched := strings.TrimSpace(row[ColWatchedDate])
	if watched == "" {
		watched = strings.TrimSpace(row[ColDate])
	}

	rec := movie.Record{
		Title:       title,
		Year:        parseYear(row[ColYear]),
		Rating:      parseRating(row[ColRating]),
		WatchedDate: watched,
		Genre:       []string{},
	}
	if kind == KindReviews {
		rec.Review = strings.TrimSpace(row[ColReview])
	}
	if kind == KindWatched {
		// watched.csv has no rating column.
		rec.Rating = 0
	}

	rec.ID = strings.TrimSpace(row[ColURI])
	if rec.ID == "" {
		rec.ID = movie.SyntheticID(title, watched)
	}
	return rec, true
}

// RowsToRecords converts rows and drops the rejected ones.
func RowsToRecords(rows []Row, kind Kind) []movie.Record {
	out := make([]movie.Record, 0, len(rows))
	for _, row := range rows {
		if rec, ok := RowToRecord(row, kind); ok {
			out = append(out, rec)
		}
	}
	return out
}

func parseYear(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 0 {
		return 0
	}
	return n
}

func parseRating(s string) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || f < 0 {
		return 0
	}
	return f
}
