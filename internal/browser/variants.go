package browser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/IshaanNene/PriceStalk/internal/config"
	"github.com/IshaanNene/PriceStalk/internal/observability"
	"github.com/IshaanNene/PriceStalk/internal/parser"
	"github.com/IshaanNene/PriceStalk/internal/types"
)

// VariantScraper reads the capacity/price table of product detail pages.
type VariantScraper struct {
	provider Provider
	cfg      *config.BrowserConfig
	metrics  *observability.Metrics
	logger   *slog.Logger
}

// NewVariantScraper creates a scraper that takes one session per product from provider.
func NewVariantScraper(provider Provider, cfg *config.BrowserConfig, metrics *observability.Metrics, logger *slog.Logger) *VariantScraper {
	return &VariantScraper{
		provider: provider,
		cfg:      cfg,
		metrics:  metrics,
		logger:   logger.With("component", "variant_scraper"),
	}
}

// Scrape opens a session, reads every enabled capacity price on detailURL
// and releases the session.
func (s *VariantScraper) Scrape(ctx context.Context, detailURL string) (*types.VariantPrices, error) {
	var prices *types.VariantPrices
	err := WithSession(ctx, s.provider, func(page Page) error {
		s.metrics.SessionOpened()
		var err error
		prices, err = s.ScrapePage(ctx, page, detailURL)
		return err
	})
	if err != nil {
		var autoErr *types.AutomationError
		if errors.As(err, &autoErr) && autoErr.URL == "" {
			autoErr.URL = detailURL
		}
		return nil, err
	}
	return prices, nil
}

// ScrapePage runs the click-and-read loop on an already acquired page.
func (s *VariantScraper) ScrapePage(ctx context.Context, page Page, detailURL string) (*types.VariantPrices, error) {
	fail := func(step string, err error) error {
		return &types.AutomationError{URL: detailURL, Step: step, Err: err}
	}

	if err := page.Navigate(ctx, detailURL); err != nil {
		return nil, fail("navigate", err)
	}

	buttons, err := page.Buttons(ctx, s.cfg.GroupSelector, s.cfg.ButtonSelector)
	if err != nil {
		return nil, fail("locate_buttons", err)
	}

	prices := &types.VariantPrices{}
	for i, btn := range buttons {
		disabled, err := btn.Disabled()
		if err != nil {
			return nil, fail("read_button", err)
		}
		if disabled {
			s.logger.Debug("skipping disabled button", "url", detailURL, "index", i)
			continue
		}

		label, err := btn.Value()
		if err != nil {
			return nil, fail("read_button", err)
		}

		before, _, err := page.Text(ctx, s.cfg.PriceSelector)
		if err != nil {
			return nil, fail("read_price", err)
		}

		if err := btn.Click(ctx); err != nil {
			return nil, fail("click", err)
		}

		price, err := s.waitForPrice(ctx, page, btn, before)
		if err != nil {
			return nil, fail("wait_price", err)
		}

		prices.Set(label, price)
		s.metrics.VariantRead()
		s.logger.Debug("variant price", "url", detailURL, "label", label, "price", price)
	}

	return prices, nil
}

// waitForPrice polls the price display after a click. A reading is accepted
// as soon as it parses and differs from the pre-click text; an unchanged
// reading is accepted once it has been stable for the settle window. Both
// require the button to carry the active class when one is configured.
func (s *VariantScraper) waitForPrice(ctx context.Context, page Page, btn Button, before string) (float64, error) {
	pollCtx, cancel := context.WithTimeout(ctx, s.cfg.ClickTimeout)
	defer cancel()

	ticker := time.NewTicker(s.cfg.PollInterval)
	defer ticker.Stop()

	var (
		last        string
		stableSince time.Time
	)
	for {
		text, ok, err := page.Text(pollCtx, s.cfg.PriceSelector)
		if err != nil && pollCtx.Err() == nil {
			return 0, err
		}

		active := true
		if err == nil && s.cfg.ActiveClass != "" {
			active, err = btn.HasClass(s.cfg.ActiveClass)
			if err != nil && pollCtx.Err() == nil {
				return 0, err
			}
		}

		if err == nil && ok && active {
			if price, perr := parser.ParsePrice(text); perr == nil {
				now := time.Now()
				if text != last || stableSince.IsZero() {
					stableSince = now
				}
				if text != before || now.Sub(stableSince) >= s.cfg.Settle {
					return price, nil
				}
			} else {
				stableSince = time.Time{}
			}
		} else {
			stableSince = time.Time{}
		}
		last = text

		select {
		case <-pollCtx.Done():
			if ctx.Err() != nil {
				return 0, ctx.Err()
			}
			return 0, fmt.Errorf("%w after %s (last text %q)", types.ErrPollTimeout, s.cfg.ClickTimeout, last)
		case <-ticker.C:
		}
	}
}
