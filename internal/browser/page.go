// Package browser drives product detail pages to read per-capacity prices.
//
// The variant algorithm talks to Page and Button only; rod.go adapts
// go-rod to those interfaces and session.go owns browser lifecycles.
package browser

import (
	"context"

	"github.com/IshaanNene/PriceStalk/internal/types"
)

// Page is the subset of a rendered page the variant scraper needs.
type Page interface {
	// Navigate loads url and waits for the load event.
	Navigate(ctx context.Context, url string) error

	// Buttons returns the buttons inside the first element matching
	// groupSelector. It returns types.ErrNoVariantGroup if there is none.
	Buttons(ctx context.Context, groupSelector, buttonSelector string) ([]Button, error)

	// Text returns the current text of the first element matching selector
	// without waiting. ok is false when nothing matches.
	Text(ctx context.Context, selector string) (text string, ok bool, err error)
}

// Button is a capacity selector on a detail page.
type Button interface {
	// Disabled reports the button's live "disabled" property.
	Disabled() (bool, error)

	// Value reports the button's "value" property.
	Value() (string, error)

	// Click simulates a left click.
	Click(ctx context.Context) error

	// HasClass reports whether the button currently carries class name.
	HasClass(name string) (bool, error)
}

// Provider hands out browser pages. release must be called exactly once.
type Provider interface {
	Acquire(ctx context.Context) (page Page, release func(), err error)
	Close() error
}

// WithSession acquires a page from p, runs fn, and always releases the page.
func WithSession(ctx context.Context, p Provider, fn func(Page) error) error {
	page, release, err := p.Acquire(ctx)
	if err != nil {
		return &types.AutomationError{Step: "acquire_session", Err: err}
	}
	defer release()
	return fn(page)
}
