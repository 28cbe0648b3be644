// Package pricestalk provides a public SDK for embedding PriceStalk as a library.
//
// Example usage:
//
//	s := pricestalk.New(
//	    pricestalk.WithCategories("laptops", "tablets"),
//	    pricestalk.WithOutputDir("./output"),
//	    pricestalk.WithFailurePolicy(pricestalk.Skip),
//	)
//
//	report, err := s.Run(ctx)
package pricestalk

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/IshaanNene/PriceStalk/internal/config"
	"github.com/IshaanNene/PriceStalk/internal/scraper"
)

// Failure policies accepted by WithFailurePolicy.
const (
	Abort = config.OnErrorAbort
	Skip  = config.OnErrorSkip
)

// Report summarizes a finished run.
type Report = scraper.Report

// CategoryReport summarizes one category of a run.
type CategoryReport = scraper.CategoryReport

// Failure is one error recorded during a run.
type Failure = scraper.Failure

// Category is a named listing page, relative to the base URL.
type Category = config.Category

// Option configures a Scraper.
type Option func(*Scraper)

// WithBaseURL sets the shop root all category paths resolve against.
func WithBaseURL(u string) Option {
	return func(s *Scraper) { s.cfg.Site.BaseURL = u }
}

// WithCategories restricts the run to the named categories, in configured order.
func WithCategories(names ...string) Option {
	return func(s *Scraper) { s.categories = names }
}

// WithCategoryPaths replaces the category list.
func WithCategoryPaths(cats ...Category) Option {
	return func(s *Scraper) { s.cfg.Site.Categories = cats }
}

// WithOutputDir sets the directory the CSV files are written to.
func WithOutputDir(dir string) Option {
	return func(s *Scraper) { s.cfg.Storage.OutputDir = dir }
}

// WithBrowserPool reuses pages of a single browser, at most n at a time.
// n = 0 starts a fresh browser per product.
func WithBrowserPool(n int) Option {
	return func(s *Scraper) { s.cfg.Browser.PoolSize = n }
}

// WithFailurePolicy sets what happens when a product fails: Abort or Skip.
func WithFailurePolicy(policy string) Option {
	return func(s *Scraper) { s.cfg.Run.OnError = policy }
}

// WithoutVariants skips the detail pages; additional info stays empty.
func WithoutVariants() Option {
	return func(s *Scraper) { s.cfg.Browser.Enabled = false }
}

// WithLogger sets the logger used by every component.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Scraper) { s.logger = logger }
}

// Scraper is the high-level API for using PriceStalk as a library.
type Scraper struct {
	cfg        *config.Config
	categories []string
	logger     *slog.Logger
}

// New creates a Scraper with the given options.
func New(opts ...Option) *Scraper {
	s := &Scraper{cfg: config.DefaultConfig()}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	}
	return s
}

// Config returns the effective configuration.
func (s *Scraper) Config() *config.Config { return s.cfg }

// Run scrapes every selected category and writes one CSV per category.
func (s *Scraper) Run(ctx context.Context) (*Report, error) {
	if len(s.categories) > 0 {
		selected, err := s.cfg.SelectCategories(s.categories)
		if err != nil {
			return nil, err
		}
		s.cfg.Site.Categories = selected
		s.categories = nil
	}
	if err := config.Validate(s.cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	sc, closeFn, err := scraper.Build(s.cfg, s.logger, nil)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := closeFn(); err != nil {
			s.logger.Error("close error", "error", err)
		}
	}()

	return sc.Run(ctx)
}
