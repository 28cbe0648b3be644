package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Load reads configuration from file, environment, and a local .env file.
// Priority (highest to lowest): env vars > config file > defaults.
// CLI flags are applied on top by the caller.
func Load(configPath string) (*Config, error) {
	if err := loadDotEnv(".env"); err != nil {
		return nil, err
	}

	cfg := DefaultConfig()

	v := viper.New()
	v.SetConfigType("yaml")

	setDefaults(v, cfg)

	// Environment variable support
	v.SetEnvPrefix("PRICESTALK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("pricestalk")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		home, err := os.UserHomeDir()
		if err == nil {
			v.AddConfigPath(filepath.Join(home, ".pricestalk"))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) || configPath != "" {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// A configured category list replaces the defaults instead of merging by index.
	cfg.Site.Categories = nil

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return cfg, nil
}

// loadDotEnv exports variables from path into the process environment.
// Variables that are already set win. A missing file is not an error.
func loadDotEnv(path string) error {
	err := godotenv.Load(path)
	if err == nil || errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return fmt.Errorf("load %s: %w", path, err)
}

// setDefaults registers default values in viper.
func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("site.base_url", cfg.Site.BaseURL)
	categories := make([]map[string]any, len(cfg.Site.Categories))
	for i, c := range cfg.Site.Categories {
		categories[i] = map[string]any{"name": c.Name, "path": c.Path}
	}
	v.SetDefault("site.categories", categories)

	v.SetDefault("fetcher.request_timeout", cfg.Fetcher.RequestTimeout)
	v.SetDefault("fetcher.user_agent", cfg.Fetcher.UserAgent)
	v.SetDefault("fetcher.max_body_size", cfg.Fetcher.MaxBodySize)
	v.SetDefault("fetcher.max_redirects", cfg.Fetcher.MaxRedirects)
	v.SetDefault("fetcher.tls_insecure", cfg.Fetcher.TLSInsecure)
	v.SetDefault("fetcher.idle_conn_timeout", cfg.Fetcher.IdleConnTimeout)

	v.SetDefault("parser.engine", cfg.Parser.Engine)
	setSelectorDefaults(v, "parser.css", cfg.Parser.CSS)
	setSelectorDefaults(v, "parser.xpath", cfg.Parser.XPath)

	v.SetDefault("browser.enabled", cfg.Browser.Enabled)
	v.SetDefault("browser.headless", cfg.Browser.Headless)
	v.SetDefault("browser.bin", cfg.Browser.Bin)
	v.SetDefault("browser.stealth", cfg.Browser.Stealth)
	v.SetDefault("browser.pool_size", cfg.Browser.PoolSize)
	v.SetDefault("browser.nav_timeout", cfg.Browser.NavTimeout)
	v.SetDefault("browser.click_timeout", cfg.Browser.ClickTimeout)
	v.SetDefault("browser.poll_interval", cfg.Browser.PollInterval)
	v.SetDefault("browser.settle", cfg.Browser.Settle)
	v.SetDefault("browser.group_selector", cfg.Browser.GroupSelector)
	v.SetDefault("browser.button_selector", cfg.Browser.ButtonSelector)
	v.SetDefault("browser.price_selector", cfg.Browser.PriceSelector)
	v.SetDefault("browser.active_class", cfg.Browser.ActiveClass)

	v.SetDefault("pipeline.trim", cfg.Pipeline.Trim)
	v.SetDefault("pipeline.dedup", cfg.Pipeline.Dedup)

	v.SetDefault("storage.output_dir", cfg.Storage.OutputDir)
	v.SetDefault("storage.mongo.enabled", cfg.Storage.Mongo.Enabled)
	v.SetDefault("storage.mongo.uri", cfg.Storage.Mongo.URI)
	v.SetDefault("storage.mongo.database", cfg.Storage.Mongo.Database)
	v.SetDefault("storage.mongo.collection", cfg.Storage.Mongo.Collection)

	v.SetDefault("run.on_error", cfg.Run.OnError)

	v.SetDefault("logging.level", cfg.Logging.Level)
	v.SetDefault("logging.format", cfg.Logging.Format)

	v.SetDefault("metrics.enabled", cfg.Metrics.Enabled)
	v.SetDefault("metrics.port", cfg.Metrics.Port)
	v.SetDefault("metrics.path", cfg.Metrics.Path)
}

func setSelectorDefaults(v *viper.Viper, prefix string, s SelectorSet) {
	v.SetDefault(prefix+".card", s.Card)
	v.SetDefault(prefix+".title", s.Title)
	v.SetDefault(prefix+".description", s.Description)
	v.SetDefault(prefix+".price", s.Price)
	v.SetDefault(prefix+".rating", s.Rating)
	v.SetDefault(prefix+".review_count", s.ReviewCount)
}
