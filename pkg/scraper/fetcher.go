package scraper

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/net/html/charset"
)

// maxBodySize caps a single page download.
const maxBodySize = 10 * 1024 * 1024

// ErrStatus is wrapped by fetch errors caused by a non-200 response.
var ErrStatus = errors.New("unexpected status")

// StatusError reports a page that answered with something other than 200 OK.
type StatusError struct {
	URL  string
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: got status code %d", e.URL, e.Code)
}

func (e *StatusError) Unwrap() error { return ErrStatus }

// Fetcher downloads pages one request at a time. There is no retry.
type Fetcher struct {
	Client    *http.Client
	UserAgent string
}

// NewFetcher returns a Fetcher; a zero timeout leaves requests unbounded.
func NewFetcher(userAgent string, timeout time.Duration) *Fetcher {
	return &Fetcher{
		Client:    &http.Client{Timeout: timeout},
		UserAgent: userAgent,
	}
}

// Fetch GETs url and returns the body decoded to UTF-8.
func (f *Fetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if f.UserAgent != "" {
		req.Header.Set("User-Agent", f.UserAgent)
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{URL: url, Code: resp.StatusCode}
	}
	if resp.ContentLength > maxBodySize {
		return nil, fmt.Errorf("%s: content-length %d exceeds limit of %d bytes", url, resp.ContentLength, maxBodySize)
	}

	body, err := charset.NewReader(resp.Body, resp.Header.Get("Content-Type"))
	if err != nil {
		return nil, fmt.Errorf("%s: decode body: %w", url, err)
	}
	// Read one byte past the limit to tell a full page from a truncated one.
	data, err := io.ReadAll(io.LimitReader(body, maxBodySize+1))
	if err != nil {
		return nil, fmt.Errorf("%s: read body: %w", url, err)
	}
	if len(data) > maxBodySize {
		return nil, fmt.Errorf("%s: body exceeded maximum size of %d bytes", url, maxBodySize)
	}
	return data, nil
}
