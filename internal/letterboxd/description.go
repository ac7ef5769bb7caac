package letterboxd

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var (
	watchedOnRE = regexp.MustCompile(`(?i)^watched on `)
	spoilersRE  = regexp.MustCompile(`(?i)\bcontains? spoilers\b`)
)

// ParseDescription extracts the poster image and the review text from an
// RSS item description. Paragraphs are joined with blank lines.
func ParseDescription(html string) (poster, review string) {
	if strings.TrimSpace(html) == "" {
		return "", ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", ""
	}

	if src, ok := doc.Find("img").First().Attr("src"); ok {
		poster = strings.TrimSpace(src)
	}

	var parts []string
	keep := func(text string) {
		text = strings.TrimSpace(text)
		if text == "" || watchedOnRE.MatchString(text) || spoilersRE.MatchString(text) {
			return
		}
		parts = append(parts, text)
	}

	paragraphs := doc.Find("p")
	if paragraphs.Length() == 0 {
		keep(doc.Text())
	} else {
		paragraphs.Each(func(_ int, p *goquery.Selection) {
			keep(p.Text())
		})
	}
	return poster, strings.Join(parts, "\n\n")
}
