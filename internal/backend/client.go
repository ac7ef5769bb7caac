// Package backend reads the archive service's movie API. When it answers
// with a non-empty list, the gallery uses that list instead of aggregating
// locally.
package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/example/cinephilia/internal/movie"
)

const DefaultTimeout = 3 * time.Second

// ShouldAttempt reports whether base is a usable http(s) API base URL.
func ShouldAttempt(base string) bool {
	base = strings.TrimSpace(base)
	if base == "" {
		return false
	}
	u, err := url.Parse(base)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

type Client struct {
	BaseURL    string
	HTTPClient *http.Client
}

func New(baseURL string) *Client {
	return &Client{
		BaseURL:    strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		HTTPClient: &http.Client{Timeout: DefaultTimeout},
	}
}

type moviesResponse struct {
	Movies []movie.Record `json:"movies"`
}

// StatusError is a non-2xx answer from the API.
type StatusError struct {
	StatusCode int
}

func (e *StatusError) Error() string { return fmt.Sprintf("backend api: HTTP %d", e.StatusCode) }

// Movies fetches one page of GET /api/movies. Zero limit or skip are left
// to the server defaults.
func (c *Client) Movies(ctx context.Context, limit, skip int) ([]movie.Record, error) {
	q := url.Values{}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	if skip > 0 {
		q.Set("skip", strconv.Itoa(skip))
	}
	u := c.BaseURL + "/api/movies"
	if len(q) > 0 {
		u += "?" + q.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))
		return nil, &StatusError{StatusCode: resp.StatusCode}
	}

	var out moviesResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 16<<20)).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode movies: %w", err)
	}
	return out.Movies, nil
}
