package scraper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/IshaanNene/PriceStalk/internal/config"
	"github.com/IshaanNene/PriceStalk/internal/fetcher"
	"github.com/IshaanNene/PriceStalk/internal/observability"
	"github.com/IshaanNene/PriceStalk/internal/parser"
	"github.com/IshaanNene/PriceStalk/internal/storage"
	"github.com/IshaanNene/PriceStalk/internal/types"
)

// State represents the scraper's current lifecycle state.
type State int32

const (
	StateIdle    State = 0
	StateRunning State = 1
	StateStopped State = 2
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Stats tracks run statistics.
type Stats struct {
	PagesFetched    atomic.Int64
	ProductsScraped atomic.Int64
	ProductsFailed  atomic.Int64
	ProductsDropped atomic.Int64
	FilesWritten    atomic.Int64
	StartTime       time.Time
}

// Snapshot returns a copy of stats safe for reading.
func (s *Stats) Snapshot() map[string]any {
	return map[string]any{
		"pages_fetched":    s.PagesFetched.Load(),
		"products_scraped": s.ProductsScraped.Load(),
		"products_failed":  s.ProductsFailed.Load(),
		"products_dropped": s.ProductsDropped.Load(),
		"files_written":    s.FilesWritten.Load(),
		"elapsed":          time.Since(s.StartTime).String(),
	}
}

// VariantSource reads the capacity price table of a detail page.
type VariantSource interface {
	Scrape(ctx context.Context, detailURL string) (*types.VariantPrices, error)
}

// Pipeline is the interface for the product processing pipeline.
type Pipeline interface {
	Process(p *types.Product) (*types.Product, error)
}

// Scraper walks the configured categories and writes one file per category.
type Scraper struct {
	cfg      *config.Config
	logger   *slog.Logger
	fetcher  fetcher.Fetcher
	parser   parser.Parser
	variants VariantSource
	pipeline Pipeline
	storage  storage.Storage
	metrics  *observability.Metrics

	runID string
	state atomic.Int32
	stats *Stats
	mu    sync.RWMutex
}

// New creates a Scraper. Components are attached with the Set methods.
func New(cfg *config.Config, logger *slog.Logger) *Scraper {
	runID := uuid.NewString()
	return &Scraper{
		cfg:    cfg,
		logger: logger.With("component", "scraper", "run_id", runID),
		runID:  runID,
		stats:  &Stats{},
	}
}

// SetFetcher sets the listing page fetcher.
func (s *Scraper) SetFetcher(f fetcher.Fetcher) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fetcher = f
}

// SetParser sets the listing parser.
func (s *Scraper) SetParser(p parser.Parser) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.parser = p
}

// SetVariantSource sets the detail page scraper. With none set every
// product gets an empty variant table.
func (s *Scraper) SetVariantSource(v VariantSource) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.variants = v
}

// SetPipeline sets the pipeline implementation.
func (s *Scraper) SetPipeline(p Pipeline) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pipeline = p
}

// SetStorage sets the storage implementation.
func (s *Scraper) SetStorage(st storage.Storage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.storage = st
}

// SetMetrics sets the metrics recorder.
func (s *Scraper) SetMetrics(m *observability.Metrics) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.metrics = m
}

// RunID returns the identifier shared by logs, reports and stored documents.
func (s *Scraper) RunID() string { return s.runID }

// Stats returns the current run statistics.
func (s *Scraper) Stats() *Stats { return s.stats }

// GetState returns the current scraper state.
func (s *Scraper) GetState() State { return State(s.state.Load()) }

// Run scrapes every configured category in order. A Scraper runs once.
//
// Under the abort policy the first failure stops the run: categories already
// stored stay on disk and the failing one is not written. The returned error
// then wraps types.ErrAborted and the failure. Under the skip policy faulty
// products are left out and the run continues. The report is returned in
// both cases.
func (s *Scraper) Run(ctx context.Context) (*Report, error) {
	if !s.state.CompareAndSwap(int32(StateIdle), int32(StateRunning)) {
		return nil, fmt.Errorf("scraper is in state %s, cannot run", s.GetState())
	}
	defer s.state.Store(int32(StateStopped))

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.fetcher == nil || s.parser == nil || s.storage == nil {
		return nil, errors.New("scraper needs a fetcher, a parser and a storage")
	}

	s.stats.StartTime = time.Now()
	report := newReport(s.runID, s.stats.StartTime)

	s.logger.Info("scrape starting",
		"categories", len(s.cfg.Site.Categories),
		"on_error", s.cfg.Run.OnError,
		"variants", s.variants != nil,
	)

	for _, cat := range s.cfg.Site.Categories {
		if err := ctx.Err(); err != nil {
			report.finish()
			return report, err
		}

		if err := s.scrapeCategory(ctx, cat, report); err != nil {
			report.finish()
			if ctx.Err() != nil {
				return report, ctx.Err()
			}
			s.logger.Error("scrape aborted", "category", cat.Name, "error", err)
			return report, fmt.Errorf("%w: category %s: %w", types.ErrAborted, cat.Name, err)
		}
	}

	report.finish()
	s.logger.Info("scrape complete", "stats", s.stats.Snapshot())
	return report, nil
}

func (s *Scraper) abortOnError() bool {
	return s.cfg.Run.OnError != config.OnErrorSkip
}

// scrapeCategory fetches one listing page, scrapes its products and stores
// them. A non-nil error means the run must stop.
func (s *Scraper) scrapeCategory(ctx context.Context, cat config.Category, report *Report) error {
	logger := s.logger.With("category", cat.Name)
	cr := report.category(cat.Name)

	pageURL, err := s.cfg.CategoryURL(cat)
	if err != nil {
		return s.categoryFailed(cr, report, Failure{Category: cat.Name, Index: -1, Stage: types.StageUnknown, Err: err})
	}
	cr.URL = pageURL

	req, err := types.NewRequest(pageURL, cat.Name)
	if err != nil {
		return s.categoryFailed(cr, report, Failure{Category: cat.Name, Index: -1, URL: pageURL, Stage: types.StageFetch, Err: err})
	}

	resp, err := s.fetcher.Fetch(ctx, req)
	if err != nil {
		return s.categoryFailed(cr, report, Failure{Category: cat.Name, Index: -1, URL: pageURL, Stage: types.StageFetch, Err: err})
	}
	s.stats.PagesFetched.Add(1)
	s.metrics.ObserveFetch(resp.FetchDuration)

	cards, err := s.parser.Cards(resp)
	if err != nil {
		return s.categoryFailed(cr, report, Failure{Category: cat.Name, Index: -1, URL: pageURL, Stage: types.StageParse, Err: err})
	}
	cr.Cards = len(cards)
	logger.Info("listing parsed", "url", pageURL, "cards", len(cards))

	products := make([]*types.Product, 0, len(cards))
	for _, card := range cards {
		if err := ctx.Err(); err != nil {
			return err
		}

		res := s.scrapeProduct(ctx, card)
		switch {
		case res.Err != nil:
			cr.Failed++
			s.stats.ProductsFailed.Add(1)
			s.metrics.ProductFailed(cat.Name, string(res.Stage))
			report.addFailure(res.failure())
			if s.abortOnError() {
				return res.Err
			}
			logger.Warn("product skipped", "index", res.Index, "url", res.DetailURL, "stage", res.Stage, "error", res.Err)
		case res.Dropped:
			cr.Dropped++
			s.stats.ProductsDropped.Add(1)
			s.metrics.ProductDropped(cat.Name)
		default:
			cr.Scraped++
			s.stats.ProductsScraped.Add(1)
			s.metrics.ProductScraped(cat.Name)
			products = append(products, res.Product)
		}
	}

	if err := s.storage.Store(cat.Name, products); err != nil {
		return s.categoryFailed(cr, report, Failure{Category: cat.Name, Index: -1, URL: pageURL, Stage: types.StageStorage, Err: err})
	}
	cr.Written = true
	s.stats.FilesWritten.Add(1)
	s.metrics.BatchStored(s.storage.Name())
	logger.Info("category stored", "products", len(products), "failed", cr.Failed, "dropped", cr.Dropped)
	return nil
}

// categoryFailed records a failure that prevents the category from being
// written and applies the failure policy.
func (s *Scraper) categoryFailed(cr *CategoryReport, report *Report, f Failure) error {
	report.addFailure(f)
	s.metrics.ProductFailed(f.Category, string(f.Stage))
	if s.abortOnError() {
		return f.Err
	}
	cr.Skipped = true
	s.logger.Warn("category skipped", "category", f.Category, "stage", f.Stage, "error", f.Err)
	return nil
}

// scrapeProduct extracts one card, reads its variant prices and runs the
// pipeline.
func (s *Scraper) scrapeProduct(ctx context.Context, card parser.Card) ProductResult {
	res := ProductResult{Category: card.Category, Index: card.Index}

	product, err := s.parser.Extract(card)
	if err != nil {
		return res.fail(err)
	}
	res.DetailURL = product.DetailURL

	if s.variants != nil {
		prices, err := s.variants.Scrape(ctx, product.DetailURL)
		if err != nil {
			return res.fail(err)
		}
		product.HDDPrices = prices
	}

	if s.pipeline != nil {
		processed, err := s.pipeline.Process(product)
		if err != nil {
			return res.fail(err)
		}
		if processed == nil {
			res.Dropped = true
			return res
		}
		product = processed
	}

	res.Product = product
	return res
}
