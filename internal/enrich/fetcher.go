// Package enrich fills missing posters, reviews and ratings by scraping
// each film's Letterboxd detail page.
package enrich

import (
	"bytes"
	"context"
	"encoding/json"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Result is what a detail page yielded. Zero fields mean "not found".
type Result struct {
	Poster string  `json:"poster,omitempty"`
	Review string  `json:"review,omitempty"`
	Rating float64 `json:"rating,omitempty"`
}

func (r Result) Empty() bool {
	return r.Poster == "" && r.Review == "" && r.Rating <= 0
}

// Fetcher retrieves enrichment data for one detail page URI.
type Fetcher interface {
	FetchEnrichment(ctx context.Context, uri string) (Result, error)
}

// Getter fetches a URL body. *relay.Chain satisfies it.
type Getter interface {
	Get(ctx context.Context, url string) ([]byte, error)
}

// PageFetcher scrapes Letterboxd HTML fetched through a Getter.
type PageFetcher struct {
	Getter Getter
}

func (f PageFetcher) FetchEnrichment(ctx context.Context, uri string) (Result, error) {
	body, err := f.Getter.Get(ctx, uri)
	if err != nil {
		return Result{}, err
	}
	return ParsePage(body)
}

var leadingNumberRE = regexp.MustCompile(`[\d.]+`)

// ParsePage reads og:image for the poster, a JSON-LD Review block for
// review and rating, then falls back to twitter:data1 for the rating and
// og:description for the review.
func ParsePage(html []byte) (Result, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return Result{}, err
	}

	var res Result
	res.Poster = metaContent(doc, `meta[property="og:image"]`)

	doc.Find(`script[type="application/ld+json"]`).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		review, rating, ok := parseLDReview(s.Text())
		if !ok {
			return true
		}
		res.Review = review
		res.Rating = rating
		return false
	})

	if res.Rating <= 0 {
		if m := leadingNumberRE.FindString(metaContent(doc, `meta[name="twitter:data1"]`)); m != "" {
			if f, err := strconv.ParseFloat(m, 64); err == nil {
				res.Rating = f
			}
		}
	}
	if res.Review == "" {
		res.Review = metaContent(doc, `meta[property="og:description"]`)
	}
	if res.Rating < 0 || res.Rating > 5 {
		res.Rating = 0
	}
	return res, nil
}

func metaContent(doc *goquery.Document, selector string) string {
	v, _ := doc.Find(selector).First().Attr("content")
	return strings.TrimSpace(v)
}

type ldReview struct {
	Type         any    `json:"@type"`
	ReviewBody   string `json:"reviewBody"`
	ReviewRating *struct {
		RatingValue json.Number `json:"ratingValue"`
	} `json:"reviewRating"`
}

// Letterboxd wraps its JSON-LD in CDATA comments.
var cdataRE = regexp.MustCompile(`^\s*/\*\s*<!\[CDATA\[\s*\*/|/\*\s*\]\]>\s*\*/\s*$`)

func parseLDReview(raw string) (review string, rating float64, ok bool) {
	raw = cdataRE.ReplaceAllString(raw, "")
	var ld ldReview
	dec := json.NewDecoder(strings.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&ld); err != nil {
		return "", 0, false
	}
	if t, _ := ld.Type.(string); t != "Review" {
		return "", 0, false
	}
	review = strings.TrimSpace(ld.ReviewBody)
	if ld.ReviewRating != nil {
		if f, err := ld.ReviewRating.RatingValue.Float64(); err == nil {
			rating = f
		}
	}
	return review, rating, true
}
