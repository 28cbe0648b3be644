package config

import (
	"fmt"
	"net/url"
)

// Validate checks the configuration for invalid values.
func Validate(cfg *Config) error {
	if err := ValidateURL(cfg.Site.BaseURL); err != nil {
		return fmt.Errorf("site.base_url: %w", err)
	}
	if len(cfg.Site.Categories) == 0 {
		return fmt.Errorf("site.categories must not be empty")
	}
	seen := make(map[string]bool, len(cfg.Site.Categories))
	for i, cat := range cfg.Site.Categories {
		if cat.Name == "" {
			return fmt.Errorf("site.categories[%d].name must not be empty", i)
		}
		if seen[cat.Name] {
			return fmt.Errorf("site.categories: duplicate name %q", cat.Name)
		}
		seen[cat.Name] = true
		if _, err := cfg.CategoryURL(cat); err != nil {
			return fmt.Errorf("site.categories[%d]: %w", i, err)
		}
	}

	if cfg.Fetcher.RequestTimeout <= 0 {
		return fmt.Errorf("fetcher.request_timeout must be > 0")
	}
	if cfg.Fetcher.MaxBodySize <= 0 {
		return fmt.Errorf("fetcher.max_body_size must be > 0")
	}
	if cfg.Fetcher.MaxRedirects < 0 {
		return fmt.Errorf("fetcher.max_redirects must be >= 0")
	}

	if cfg.Parser.Engine != "css" && cfg.Parser.Engine != "xpath" {
		return fmt.Errorf("parser.engine must be 'css' or 'xpath', got %q", cfg.Parser.Engine)
	}
	sel := cfg.Parser.Selectors()
	for name, value := range map[string]string{
		"card": sel.Card, "title": sel.Title, "description": sel.Description,
		"price": sel.Price, "rating": sel.Rating, "review_count": sel.ReviewCount,
	} {
		if value == "" {
			return fmt.Errorf("parser.%s.%s must not be empty", cfg.Parser.Engine, name)
		}
	}

	if cfg.Browser.Enabled {
		if cfg.Browser.PoolSize < 0 {
			return fmt.Errorf("browser.pool_size must be >= 0, got %d", cfg.Browser.PoolSize)
		}
		if cfg.Browser.NavTimeout <= 0 {
			return fmt.Errorf("browser.nav_timeout must be > 0")
		}
		if cfg.Browser.ClickTimeout <= 0 {
			return fmt.Errorf("browser.click_timeout must be > 0")
		}
		if cfg.Browser.PollInterval <= 0 || cfg.Browser.PollInterval > cfg.Browser.ClickTimeout {
			return fmt.Errorf("browser.poll_interval must be in (0, click_timeout]")
		}
		if cfg.Browser.Settle < 0 || cfg.Browser.Settle >= cfg.Browser.ClickTimeout {
			return fmt.Errorf("browser.settle must be in [0, click_timeout)")
		}
		if cfg.Browser.GroupSelector == "" || cfg.Browser.ButtonSelector == "" || cfg.Browser.PriceSelector == "" {
			return fmt.Errorf("browser selectors must not be empty")
		}
	}

	if cfg.Storage.OutputDir == "" {
		return fmt.Errorf("storage.output_dir must not be empty")
	}
	if cfg.Storage.Mongo.Enabled {
		if cfg.Storage.Mongo.URI == "" || cfg.Storage.Mongo.Database == "" || cfg.Storage.Mongo.Collection == "" {
			return fmt.Errorf("storage.mongo requires uri, database and collection")
		}
	}

	if cfg.Run.OnError != OnErrorAbort && cfg.Run.OnError != OnErrorSkip {
		return fmt.Errorf("run.on_error must be 'abort' or 'skip', got %q", cfg.Run.OnError)
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[cfg.Logging.Level] {
		return fmt.Errorf("logging.level must be debug/info/warn/error, got %q", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "text" && cfg.Logging.Format != "json" {
		return fmt.Errorf("logging.format must be 'text' or 'json', got %q", cfg.Logging.Format)
	}

	if cfg.Metrics.Enabled {
		if cfg.Metrics.Port < 1 || cfg.Metrics.Port > 65535 {
			return fmt.Errorf("metrics.port must be 1-65535, got %d", cfg.Metrics.Port)
		}
	}

	return nil
}

// ValidateURL checks if a URL string is usable as a scrape root.
func ValidateURL(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("URL scheme must be http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("URL must have a host")
	}
	return nil
}
