package letterboxd

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/example/cinephilia/internal/movie"
)

// Item is one feed entry. Namespaced letterboxd:* elements are matched by
// local name.
type Item struct {
	GUID         string `xml:"guid"`
	Title        string `xml:"title"`
	Link         string `xml:"link"`
	Description  string `xml:"description"`
	FilmTitle    string `xml:"filmTitle"`
	FilmYear     string `xml:"filmYear"`
	MemberRating string `xml:"memberRating"`
	WatchedDate  string `xml:"watchedDate"`
}

type feed struct {
	Items []Item `xml:"channel>item"`
}

var glyphSuffixRE = regexp.MustCompile(` - ([★½]+)$`)

// ParseFeed decodes an RSS document and converts its items. Items without a
// title are skipped.
func ParseFeed(data []byte) ([]movie.Record, error) {
	var f feed
	dec := xml.NewDecoder(bytes.NewReader(data))
	dec.Strict = false
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("decode feed: %w", err)
	}

	out := make([]movie.Record, 0, len(f.Items))
	for _, it := range f.Items {
		if rec, ok := ItemToRecord(it); ok {
			out = append(out, rec)
		}
	}
	return out, nil
}

// ItemToRecord converts one feed entry.
func ItemToRecord(it Item) (movie.Record, bool) {
	title := strings.TrimSpace(it.FilmTitle)
	if title == "" {
		title = strings.TrimSpace(it.Title)
	}

	title, rating := SplitRatingSuffix(title)
	if rating == 0 {
		// filmTitle carries no glyphs; the item title does.
		_, rating = SplitRatingSuffix(strings.TrimSpace(it.Title))
	}
	if member := parseRating(it.MemberRating); member > 0 {
		rating = member
	}

	year := parseYear(it.FilmYear)
	if year > 0 {
		title = strings.TrimSpace(strings.TrimSuffix(title, ", "+strconv.Itoa(year)))
	}
	if title == "" {
		return movie.Record{}, false
	}

	watched := strings.TrimSpace(it.WatchedDate)
	poster, review := ParseDescription(it.Description)

	id := strings.TrimSpace(it.GUID)
	if id == "" {
		id = movie.SyntheticID(title, watched)
	}

	return movie.Record{
		ID:          id,
		Title:       title,
		Year:        year,
		Rating:      rating,
		Poster:      poster,
		Backdrop:    poster,
		Review:      review,
		WatchedDate: watched,
		Genre:       []string{},
	}, true
}

// SplitRatingSuffix strips a trailing " - ★★★½" from title and returns the
// rating it encodes.
func SplitRatingSuffix(title string) (string, float64) {
	m := glyphSuffixRE.FindStringSubmatch(title)
	if m == nil {
		return title, 0
	}
	var rating float64
	for _, r := range m[1] {
		switch r {
		case '★':
			rating++
		case '½':
			rating += 0.5
		}
	}
	return strings.TrimSpace(strings.TrimSuffix(title, m[0])), rating
}
