package config

import (
	"fmt"
	"net/url"
	"time"
)

// Version is set at build time via ldflags.
var Version = "dev"

// Config is the root configuration for PriceStalk.
type Config struct {
	Site     SiteConfig     `mapstructure:"site"     yaml:"site"`
	Fetcher  FetcherConfig  `mapstructure:"fetcher"  yaml:"fetcher"`
	Parser   ParserConfig   `mapstructure:"parser"   yaml:"parser"`
	Browser  BrowserConfig  `mapstructure:"browser"  yaml:"browser"`
	Pipeline PipelineConfig `mapstructure:"pipeline" yaml:"pipeline"`
	Storage  StorageConfig  `mapstructure:"storage"  yaml:"storage"`
	Run      RunConfig      `mapstructure:"run"      yaml:"run"`
	Logging  LoggingConfig  `mapstructure:"logging"  yaml:"logging"`
	Metrics  MetricsConfig  `mapstructure:"metrics"  yaml:"metrics"`
}

// SiteConfig describes the shop being scraped.
type SiteConfig struct {
	BaseURL    string     `mapstructure:"base_url"   yaml:"base_url"`
	Categories []Category `mapstructure:"categories" yaml:"categories"`
}

// Category is a named listing page, relative to the base URL.
type Category struct {
	Name string `mapstructure:"name" yaml:"name"`
	Path string `mapstructure:"path" yaml:"path"`
}

// FetcherConfig controls the listing page fetcher.
type FetcherConfig struct {
	RequestTimeout  time.Duration `mapstructure:"request_timeout"   yaml:"request_timeout"`
	UserAgent       string        `mapstructure:"user_agent"        yaml:"user_agent"`
	MaxBodySize     int64         `mapstructure:"max_body_size"     yaml:"max_body_size"`
	MaxRedirects    int           `mapstructure:"max_redirects"     yaml:"max_redirects"`
	TLSInsecure     bool          `mapstructure:"tls_insecure"      yaml:"tls_insecure"`
	IdleConnTimeout time.Duration `mapstructure:"idle_conn_timeout" yaml:"idle_conn_timeout"`
}

// ParserConfig controls product card extraction.
type ParserConfig struct {
	Engine string      `mapstructure:"engine" yaml:"engine"` // css, xpath
	CSS    SelectorSet `mapstructure:"css"    yaml:"css"`
	XPath  SelectorSet `mapstructure:"xpath"  yaml:"xpath"`
}

// SelectorSet locates each product field inside a listing page.
// Card is evaluated against the page, every other selector against one card.
type SelectorSet struct {
	Card        string `mapstructure:"card"         yaml:"card"`
	Title       string `mapstructure:"title"        yaml:"title"`
	Description string `mapstructure:"description"  yaml:"description"`
	Price       string `mapstructure:"price"        yaml:"price"`
	Rating      string `mapstructure:"rating"       yaml:"rating"`
	ReviewCount string `mapstructure:"review_count" yaml:"review_count"`
}

// BrowserConfig controls the detail page automation.
type BrowserConfig struct {
	Enabled        bool          `mapstructure:"enabled"          yaml:"enabled"`
	Headless       bool          `mapstructure:"headless"         yaml:"headless"`
	Bin            string        `mapstructure:"bin"              yaml:"bin"`
	Stealth        bool          `mapstructure:"stealth"          yaml:"stealth"`
	PoolSize       int           `mapstructure:"pool_size"        yaml:"pool_size"` // 0 = fresh browser per product
	NavTimeout     time.Duration `mapstructure:"nav_timeout"      yaml:"nav_timeout"`
	ClickTimeout   time.Duration `mapstructure:"click_timeout"    yaml:"click_timeout"`
	PollInterval   time.Duration `mapstructure:"poll_interval"    yaml:"poll_interval"`
	Settle         time.Duration `mapstructure:"settle"           yaml:"settle"`
	GroupSelector  string        `mapstructure:"group_selector"   yaml:"group_selector"`
	ButtonSelector string        `mapstructure:"button_selector"  yaml:"button_selector"`
	PriceSelector  string        `mapstructure:"price_selector"   yaml:"price_selector"`
	ActiveClass    string        `mapstructure:"active_class"     yaml:"active_class"`
}

// PipelineConfig controls post-extraction processing.
type PipelineConfig struct {
	Trim  bool `mapstructure:"trim"  yaml:"trim"`
	Dedup bool `mapstructure:"dedup" yaml:"dedup"`
}

// StorageConfig controls output.
type StorageConfig struct {
	OutputDir string      `mapstructure:"output_dir" yaml:"output_dir"`
	Mongo     MongoConfig `mapstructure:"mongo"      yaml:"mongo"`
}

// MongoConfig controls the optional MongoDB sink.
type MongoConfig struct {
	Enabled    bool   `mapstructure:"enabled"    yaml:"enabled"`
	URI        string `mapstructure:"uri"        yaml:"uri"`
	Database   string `mapstructure:"database"   yaml:"database"`
	Collection string `mapstructure:"collection" yaml:"collection"`
}

// Failure policies for RunConfig.OnError.
const (
	OnErrorAbort = "abort"
	OnErrorSkip  = "skip"
)

// RunConfig controls how the scraper reacts to failures.
type RunConfig struct {
	OnError string `mapstructure:"on_error" yaml:"on_error"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	Level  string `mapstructure:"level"  yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// MetricsConfig controls Prometheus metrics.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Port    int    `mapstructure:"port"    yaml:"port"`
	Path    string `mapstructure:"path"    yaml:"path"`
}

// DefaultCategories returns the six listing pages of the demo shop, in scrape order.
func DefaultCategories() []Category {
	return []Category{
		{Name: "home", Path: "test-sites/e-commerce/more/"},
		{Name: "computers", Path: "test-sites/e-commerce/more/computers"},
		{Name: "laptops", Path: "test-sites/e-commerce/more/computers/laptops"},
		{Name: "tablets", Path: "test-sites/e-commerce/more/computers/tablets"},
		{Name: "phones", Path: "test-sites/e-commerce/more/phones"},
		{Name: "touch", Path: "test-sites/e-commerce/more/phones/touch"},
	}
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Site: SiteConfig{
			BaseURL:    "https://webscraper.io/",
			Categories: DefaultCategories(),
		},
		Fetcher: FetcherConfig{
			RequestTimeout:  30 * time.Second,
			UserAgent:       "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
			MaxBodySize:     10 * 1024 * 1024, // 10MB
			MaxRedirects:    10,
			IdleConnTimeout: 90 * time.Second,
		},
		Parser: ParserConfig{
			Engine: "css",
			CSS: SelectorSet{
				Card:        ".thumbnail",
				Title:       ".title",
				Description: ".description",
				Price:       ".price",
				Rating:      "p[data-rating]",
				ReviewCount: ".review-count",
			},
			XPath: SelectorSet{
				Card:        `//*[contains(concat(' ', normalize-space(@class), ' '), ' thumbnail ')]`,
				Title:       `.//*[contains(concat(' ', normalize-space(@class), ' '), ' title ')]`,
				Description: `.//*[contains(concat(' ', normalize-space(@class), ' '), ' description ')]`,
				Price:       `.//*[contains(concat(' ', normalize-space(@class), ' '), ' price ')]`,
				Rating:      `.//p[@data-rating]`,
				ReviewCount: `.//*[contains(concat(' ', normalize-space(@class), ' '), ' review-count ')]`,
			},
		},
		Browser: BrowserConfig{
			Enabled:        true,
			Headless:       true,
			NavTimeout:     30 * time.Second,
			ClickTimeout:   5 * time.Second,
			PollInterval:   100 * time.Millisecond,
			Settle:         300 * time.Millisecond,
			GroupSelector:  ".swatches",
			ButtonSelector: "button",
			PriceSelector:  ".price",
		},
		Pipeline: PipelineConfig{
			Trim: true,
		},
		Storage: StorageConfig{
			OutputDir: ".",
			Mongo: MongoConfig{
				URI:        "mongodb://localhost:27017",
				Database:   "pricestalk",
				Collection: "products",
			},
		},
		Run: RunConfig{
			OnError: OnErrorAbort,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Port:    9090,
			Path:    "/metrics",
		},
	}
}

// Selectors returns the selector set for the configured engine.
func (c *ParserConfig) Selectors() SelectorSet {
	if c.Engine == "xpath" {
		return c.XPath
	}
	return c.CSS
}

// CategoryURL resolves a category path against the base URL.
func (c *Config) CategoryURL(cat Category) (string, error) {
	base, err := url.Parse(c.Site.BaseURL)
	if err != nil {
		return "", fmt.Errorf("parse base URL: %w", err)
	}
	ref, err := url.Parse(cat.Path)
	if err != nil {
		return "", fmt.Errorf("parse path for category %q: %w", cat.Name, err)
	}
	return base.ResolveReference(ref).String(), nil
}

// SelectCategories keeps only the named categories, in configured order.
// An empty names list selects every category.
func (c *Config) SelectCategories(names []string) ([]Category, error) {
	if len(names) == 0 {
		return append([]Category(nil), c.Site.Categories...), nil
	}

	wanted := make(map[string]bool, len(names))
	for _, n := range names {
		wanted[n] = true
	}

	var selected []Category
	for _, cat := range c.Site.Categories {
		if wanted[cat.Name] {
			selected = append(selected, cat)
			delete(wanted, cat.Name)
		}
	}
	for n := range wanted {
		return nil, fmt.Errorf("unknown category %q", n)
	}
	return selected, nil
}
