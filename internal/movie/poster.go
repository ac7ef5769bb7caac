package movie

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// PosterSize names a display slot for poster images.
type PosterSize string

const (
	PosterTiny   PosterSize = "tiny"
	PosterCard   PosterSize = "card"
	PosterDetail PosterSize = "detail"
)

var posterDimensions = map[PosterSize][2]int{
	PosterTiny:   {96, 144},
	PosterCard:   {240, 360},
	PosterDetail: {700, 1050},
}

const resizedPosterMarker = "a.ltrbxd.com/resized/film-poster/"

var cropRE = regexp.MustCompile(`-0-(\d+)-0-(\d+)-crop\.`)

// ParsePosterSize maps a query value onto a known size.
func ParsePosterSize(s string) (PosterSize, bool) {
	size := PosterSize(strings.ToLower(strings.TrimSpace(s)))
	_, ok := posterDimensions[size]
	return size, ok
}

// OptimizedPoster rewrites a resized Letterboxd poster URL to the given size,
// never upscaling past the dimensions already encoded in the URL. Other
// URLs are returned unchanged.
func OptimizedPoster(url string, size PosterSize) string {
	if url == "" {
		return ""
	}
	dim, ok := posterDimensions[size]
	if !ok {
		return url
	}
	return resizePoster(url, dim[0], dim[1])
}

// PosterSrcSet builds an img srcset for resized Letterboxd posters, "" for
// anything else.
func PosterSrcSet(url string, widths []int) string {
	if url == "" || !strings.Contains(url, resizedPosterMarker) {
		return ""
	}
	seen := make(map[string]struct{}, len(widths))
	var parts []string
	for _, w := range widths {
		h := int(math.Round(float64(w) * 1.5))
		candidate := fmt.Sprintf("%s %dw", resizePoster(url, w, h), w)
		if _, dup := seen[candidate]; dup {
			continue
		}
		seen[candidate] = struct{}{}
		parts = append(parts, candidate)
	}
	return strings.Join(parts, ", ")
}

func resizePoster(url string, width, height int) string {
	if !strings.Contains(url, resizedPosterMarker) {
		return url
	}
	maxW, maxH := width, height
	if m := cropRE.FindStringSubmatch(url); m != nil {
		if w, err := strconv.Atoi(m[1]); err == nil {
			maxW = w
		}
		if h, err := strconv.Atoi(m[2]); err == nil {
			maxH = h
		}
	}
	w := min(width, maxW)
	h := min(height, maxH)
	return cropRE.ReplaceAllString(url, fmt.Sprintf("-0-%d-0-%d-crop.", w, h))
}
