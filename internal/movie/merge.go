package movie

import (
	"sort"
	"strings"
)

// ReviewDivider separates two distinct reviews stacked by MergeReview.
const ReviewDivider = "\n\n───\n\n"

// Merge folds lists into one set keyed by Fingerprint. Later lists have
// higher priority: reviews, watched, diary, ratings, cached, then rss.
// Output is sorted by watched date, newest first; records with equal dates
// keep first-insertion order.
func Merge(lists ...[]Record) []Record {
	index := make(map[string]int)
	var out []Record

	for _, list := range lists {
		for _, rec := range list {
			key := rec.Key()
			i, ok := index[key]
			if !ok {
				index[key] = len(out)
				out = append(out, rec.clone())
				continue
			}
			out[i] = Combine(out[i], rec)
		}
	}

	SortByWatched(out)
	return out
}

// Combine merges incoming into existing field by field. existing keeps its id.
func Combine(existing, incoming Record) Record {
	merged := existing.clone()

	// Fields without an explicit rule take incoming as-is.
	merged.Title = incoming.Title
	merged.Year = incoming.Year

	if watchedUnix(incoming.WatchedDate) > watchedUnix(existing.WatchedDate) {
		merged.WatchedDate = incoming.WatchedDate
	}
	if incoming.Rating > 0 {
		merged.Rating = incoming.Rating
	}
	merged.Review = MergeReview(existing.Review, incoming.Review)
	if incoming.Poster != "" {
		merged.Poster = incoming.Poster
	}
	if incoming.Backdrop != "" {
		merged.Backdrop = incoming.Backdrop
	}
	if incoming.Director != "" {
		merged.Director = incoming.Director
	}
	if incoming.Runtime != 0 {
		merged.Runtime = incoming.Runtime
	}
	if len(incoming.Genre) > 0 {
		merged.Genre = append([]string(nil), incoming.Genre...)
	}
	return merged
}

// MergeReview combines two review texts: empty loses, equal or contained
// text collapses to the longer one, otherwise both are stacked a-then-b.
func MergeReview(a, b string) string {
	a = strings.TrimSpace(a)
	b = strings.TrimSpace(b)
	switch {
	case a == "":
		return b
	case b == "":
		return a
	case a == b:
		return a
	case strings.Contains(a, b):
		return a
	case strings.Contains(b, a):
		return b
	}
	return a + ReviewDivider + b
}

// SortByWatched orders records newest first, stable for equal dates.
func SortByWatched(records []Record) {
	sort.SliceStable(records, func(i, j int) bool {
		return watchedUnix(records[i].WatchedDate) > watchedUnix(records[j].WatchedDate)
	})
}
