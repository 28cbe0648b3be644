package types

import (
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// Request represents a listing page to be fetched.
type Request struct {
	// URL is the target URL to fetch.
	URL *url.URL

	// Headers are custom HTTP headers to send with the request.
	Headers http.Header

	// Category is the listing category this page belongs to.
	Category string

	// Timeout overrides the fetcher timeout for this request.
	Timeout time.Duration

	// CreatedAt is when this request was created.
	CreatedAt time.Time
}

// NewRequest creates a GET Request for a category page.
func NewRequest(rawURL, category string) (*Request, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL %q: %w", rawURL, err)
	}

	return &Request{
		URL:       u,
		Headers:   make(http.Header),
		Category:  category,
		CreatedAt: time.Now(),
	}, nil
}

// URLString returns the string representation of the request URL.
func (r *Request) URLString() string {
	if r.URL == nil {
		return ""
	}
	return r.URL.String()
}
