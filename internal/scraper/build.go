package scraper

import (
	"errors"
	"log/slog"

	"github.com/IshaanNene/PriceStalk/internal/browser"
	"github.com/IshaanNene/PriceStalk/internal/config"
	"github.com/IshaanNene/PriceStalk/internal/fetcher"
	"github.com/IshaanNene/PriceStalk/internal/observability"
	"github.com/IshaanNene/PriceStalk/internal/parser"
	"github.com/IshaanNene/PriceStalk/internal/pipeline"
	"github.com/IshaanNene/PriceStalk/internal/storage"
)

// Build wires a Scraper with the components described by cfg. metrics may
// be nil. The returned close function releases the fetcher, the browser
// provider and the storage.
func Build(cfg *config.Config, logger *slog.Logger, metrics *observability.Metrics) (*Scraper, func() error, error) {
	s := New(cfg, logger)

	store, err := storage.New(&cfg.Storage, s.RunID(), logger)
	if err != nil {
		return nil, nil, err
	}

	httpFetcher := fetcher.NewHTTPFetcher(cfg, logger)

	s.SetFetcher(httpFetcher)
	s.SetParser(parser.New(&cfg.Parser, logger))
	s.SetPipeline(pipeline.FromConfig(&cfg.Pipeline, logger))
	s.SetStorage(store)
	s.SetMetrics(metrics)

	var provider browser.Provider
	if cfg.Browser.Enabled {
		provider = browser.NewProvider(&cfg.Browser, logger)
		s.SetVariantSource(browser.NewVariantScraper(provider, &cfg.Browser, metrics, logger))
	}

	closeFn := func() error {
		errs := []error{httpFetcher.Close()}
		if provider != nil {
			errs = append(errs, provider.Close())
		}
		errs = append(errs, store.Close())
		return errors.Join(errs...)
	}
	return s, closeFn, nil
}
