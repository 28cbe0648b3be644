package types

import (
	"errors"
	"fmt"
)

// Sentinel errors for common failure modes.
var (
	ErrMissingElement  = errors.New("element not found")
	ErrMalformedNumber = errors.New("malformed number")
	ErrPollTimeout     = errors.New("timed out waiting for price update")
	ErrNoVariantGroup  = errors.New("variant button group not found")
	ErrAborted         = errors.New("scrape aborted")
)

// Stage names a step of the scrape that can fail.
type Stage string

const (
	StageFetch      Stage = "fetch"
	StageParse      Stage = "parse"
	StageAutomation Stage = "automation"
	StageStorage    Stage = "storage"
	StageUnknown    Stage = "unknown"
)

// FetchError wraps errors that occur during fetching.
type FetchError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("fetch error for %s (status %d): %v", e.URL, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("fetch error for %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// ParseError wraps errors that occur while reading a product card.
type ParseError struct {
	URL      string
	Field    string
	Selector string
	Err      error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error for %s (field=%s selector=%q): %v", e.URL, e.Field, e.Selector, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// AutomationError wraps errors raised while driving a browser.
type AutomationError struct {
	URL  string
	Step string
	Err  error
}

func (e *AutomationError) Error() string {
	return fmt.Sprintf("automation error for %s at %s: %v", e.URL, e.Step, e.Err)
}

func (e *AutomationError) Unwrap() error { return e.Err }

// StorageError wraps errors that occur during storage/export.
type StorageError struct {
	Backend string
	Err     error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage error (%s): %v", e.Backend, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// StageOf reports which stage produced err.
func StageOf(err error) Stage {
	var (
		fetchErr   *FetchError
		parseErr   *ParseError
		autoErr    *AutomationError
		storageErr *StorageError
	)
	switch {
	case err == nil:
		return ""
	case errors.As(err, &fetchErr):
		return StageFetch
	case errors.As(err, &parseErr):
		return StageParse
	case errors.As(err, &autoErr):
		return StageAutomation
	case errors.As(err, &storageErr):
		return StageStorage
	default:
		return StageUnknown
	}
}
