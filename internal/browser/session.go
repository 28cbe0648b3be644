package browser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"

	"github.com/IshaanNene/PriceStalk/internal/config"
)

// NewProvider returns a pooled provider when browser.pool_size > 0 and a
// fresh-browser-per-product provider otherwise.
func NewProvider(cfg *config.BrowserConfig, logger *slog.Logger) Provider {
	if cfg.PoolSize > 0 {
		return NewPoolProvider(cfg, logger)
	}
	return NewFreshProvider(cfg, logger)
}

// instance is a launched Chromium process and its CDP connection.
type instance struct {
	browser  *rod.Browser
	launcher *launcher.Launcher
}

// launch starts a Chromium instance with appropriate flags.
func launch(cfg *config.BrowserConfig) (*instance, error) {
	l := launcher.New().
		Headless(cfg.Headless).
		Set("disable-gpu").
		Set("disable-dev-shm-usage").
		Set("no-sandbox").
		Set("disable-blink-features", "AutomationControlled")
	if cfg.Bin != "" {
		l = l.Bin(cfg.Bin)
	}

	controlURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("launch browser: %w", err)
	}

	b := rod.New().ControlURL(controlURL)
	if err := b.Connect(); err != nil {
		l.Kill()
		return nil, fmt.Errorf("connect browser: %w", err)
	}
	return &instance{browser: b, launcher: l}, nil
}

// newPage opens a blank tab, patched against bot detection when stealth is on.
func (in *instance) newPage(stealthMode bool) (*rod.Page, error) {
	if stealthMode {
		return stealth.Page(in.browser)
	}
	return in.browser.Page(proto.TargetCreateTarget{URL: "about:blank"})
}

func (in *instance) close() error {
	err := in.browser.Close()
	in.launcher.Cleanup()
	return err
}

// FreshProvider launches a new browser for every session and closes it on release.
type FreshProvider struct {
	cfg    *config.BrowserConfig
	logger *slog.Logger
}

// NewFreshProvider creates a provider with no browser reuse.
func NewFreshProvider(cfg *config.BrowserConfig, logger *slog.Logger) *FreshProvider {
	return &FreshProvider{
		cfg:    cfg,
		logger: logger.With("component", "fresh_browser"),
	}
}

// Acquire implements Provider.
func (p *FreshProvider) Acquire(ctx context.Context) (Page, func(), error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	in, err := launch(p.cfg)
	if err != nil {
		return nil, nil, err
	}
	page, err := in.newPage(p.cfg.Stealth)
	if err != nil {
		_ = in.close()
		return nil, nil, fmt.Errorf("open page: %w", err)
	}

	release := func() {
		if err := in.close(); err != nil {
			p.logger.Warn("browser close failed", "error", err)
		}
	}
	return &rodPage{page: page, navTimeout: p.cfg.NavTimeout}, release, nil
}

// Close implements Provider. Sessions own their browsers, so there is nothing to release.
func (p *FreshProvider) Close() error { return nil }

// PoolProvider shares one browser and reuses up to PoolSize idle pages.
type PoolProvider struct {
	cfg    *config.BrowserConfig
	logger *slog.Logger

	mu     sync.Mutex
	in     *instance
	pages  chan *rod.Page
	closed bool
}

// NewPoolProvider creates a pooled provider. The browser launches on first use.
func NewPoolProvider(cfg *config.BrowserConfig, logger *slog.Logger) *PoolProvider {
	return &PoolProvider{
		cfg:    cfg,
		logger: logger.With("component", "browser_pool"),
		pages:  make(chan *rod.Page, cfg.PoolSize),
	}
}

// Acquire implements Provider.
func (p *PoolProvider) Acquire(ctx context.Context) (Page, func(), error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	in, err := p.instance()
	if err != nil {
		return nil, nil, err
	}

	var page *rod.Page
	select {
	case page = <-p.pages:
	default:
		page, err = in.newPage(p.cfg.Stealth)
		if err != nil {
			return nil, nil, fmt.Errorf("open page: %w", err)
		}
	}

	release := func() { p.put(page) }
	return &rodPage{page: page, navTimeout: p.cfg.NavTimeout}, release, nil
}

func (p *PoolProvider) instance() (*instance, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil, errors.New("browser pool closed")
	}
	if p.in == nil {
		in, err := launch(p.cfg)
		if err != nil {
			return nil, err
		}
		p.in = in
		p.logger.Info("browser pool ready", "pool_size", p.cfg.PoolSize, "stealth", p.cfg.Stealth)
	}
	return p.in, nil
}

// put returns a page to the pool, closing it when the pool is full or closed.
func (p *PoolProvider) put(page *rod.Page) {
	// Navigate to blank to free memory from the last product
	_ = page.Navigate("about:blank")

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		_ = page.Close()
		return
	}
	select {
	case p.pages <- page:
	default:
		_ = page.Close()
	}
}

// Close implements Provider.
func (p *PoolProvider) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}
	p.closed = true
	close(p.pages)
	for page := range p.pages {
		_ = page.Close()
	}
	if p.in != nil {
		return p.in.close()
	}
	return nil
}
