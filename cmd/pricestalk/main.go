package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/IshaanNene/PriceStalk/internal/config"
	"github.com/IshaanNene/PriceStalk/internal/observability"
	"github.com/IshaanNene/PriceStalk/internal/scraper"
)

var (
	cfgFile     string
	verbose     bool
	categories  []string
	outputDir   string
	onError     string
	browserPool int
	noVariants  bool
	engineName  string
	headless    bool
	metricsOn   bool
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "pricestalk",
		Short: "PriceStalk scrapes product listings into per-category CSV files",
		Long: `PriceStalk walks the listing pages of an e-commerce shop, extracts every
product card and opens each product page in a browser to read the price of
every storage option. Each category is written to <category>.csv.`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(scrapeCmd())
	rootCmd.AddCommand(categoriesCmd())
	rootCmd.AddCommand(configCmd())
	rootCmd.AddCommand(versionCmd())
	return rootCmd
}

// scrapeCmd creates the "scrape" subcommand.
func scrapeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scrape",
		Short: "Scrape the configured categories",
		Args:  cobra.NoArgs,
		RunE:  runScrape,
	}

	cmd.Flags().StringSliceVar(&categories, "category", nil, "category to scrape (repeatable, default all)")
	cmd.Flags().StringVarP(&outputDir, "output", "o", "", "directory the CSV files are written to")
	cmd.Flags().StringVar(&onError, "on-error", "", "failure policy: abort or skip")
	cmd.Flags().IntVar(&browserPool, "browser-pool", -1, "reuse pages of one browser (0 = fresh browser per product)")
	cmd.Flags().BoolVar(&noVariants, "no-variants", false, "skip the detail pages; additional_info stays empty")
	cmd.Flags().StringVar(&engineName, "engine", "", "selector engine: css or xpath")
	cmd.Flags().BoolVar(&headless, "headless", true, "run the browser headless")
	cmd.Flags().BoolVar(&metricsOn, "metrics", false, "serve Prometheus metrics while scraping")

	return cmd
}

// runScrape executes the scrape command.
func runScrape(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger := setupLogger(cfg)

	var metrics *observability.Metrics
	if cfg.Metrics.Enabled {
		metrics = observability.NewMetrics(logger)
		srv := metrics.StartServer(cfg.Metrics.Port, cfg.Metrics.Path)
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(ctx)
		}()
	}

	s, closeFn, err := scraper.Build(cfg, logger, metrics)
	if err != nil {
		return fmt.Errorf("setup: %w", err)
	}
	defer func() {
		if err := closeFn(); err != nil {
			logger.Error("close error", "error", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("starting scrape",
		"run_id", s.RunID(),
		"base_url", cfg.Site.BaseURL,
		"categories", len(cfg.Site.Categories),
		"output", cfg.Storage.OutputDir,
		"variants", cfg.Browser.Enabled,
	)

	report, runErr := s.Run(ctx)
	if report != nil {
		printReport(report, cfg)
	}
	if runErr != nil {
		if errors.Is(runErr, context.Canceled) {
			return fmt.Errorf("interrupted: %w", runErr)
		}
		return runErr
	}
	return nil
}

// printReport writes a short run summary to stdout.
func printReport(r *scraper.Report, cfg *config.Config) {
	fmt.Printf("\nRun %s finished in %s\n", r.RunID, r.Duration.Round(time.Millisecond))
	for _, c := range r.Categories {
		status := "written"
		switch {
		case c.Skipped:
			status = "skipped"
		case !c.Written:
			status = "not written"
		}
		fmt.Printf("   %-10s %3d products, %d failed, %d dropped (%s)\n", c.Name, c.Scraped, c.Failed, c.Dropped, status)
	}
	for _, f := range r.Failures {
		fmt.Printf("   ! %s [%s] %s: %v\n", f.Category, f.Stage, f.URL, f.Err)
	}
	fmt.Printf("   Output:    %s\n", cfg.Storage.OutputDir)
}

// categoriesCmd lists the configured categories.
func categoriesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "categories",
		Short: "List configured categories and their URLs",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			for _, cat := range cfg.Site.Categories {
				u, err := cfg.CategoryURL(cat)
				if err != nil {
					return err
				}
				fmt.Printf("%-10s %s\n", cat.Name, u)
			}
			return nil
		},
	}
}

// versionCmd creates the "version" subcommand.
func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("PriceStalk %s\n", config.Version)
		},
	}
}

// configCmd creates the "config" subcommand for inspecting configuration.
func configCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return err
			}
			fmt.Printf("Site:\n")
			fmt.Printf("  Base URL:          %s\n", cfg.Site.BaseURL)
			fmt.Printf("  Categories:        %d configured\n", len(cfg.Site.Categories))
			fmt.Printf("\nFetcher:\n")
			fmt.Printf("  Request Timeout:   %s\n", cfg.Fetcher.RequestTimeout)
			fmt.Printf("  Max Body Size:     %d bytes\n", cfg.Fetcher.MaxBodySize)
			fmt.Printf("\nParser:\n")
			fmt.Printf("  Engine:            %s\n", cfg.Parser.Engine)
			fmt.Printf("  Card Selector:     %s\n", cfg.Parser.Selectors().Card)
			fmt.Printf("\nBrowser:\n")
			fmt.Printf("  Enabled:           %v\n", cfg.Browser.Enabled)
			fmt.Printf("  Headless:          %v\n", cfg.Browser.Headless)
			fmt.Printf("  Pool Size:         %d\n", cfg.Browser.PoolSize)
			fmt.Printf("  Click Timeout:     %s\n", cfg.Browser.ClickTimeout)
			fmt.Printf("  Stealth:           %v\n", cfg.Browser.Stealth)
			fmt.Printf("\nStorage:\n")
			fmt.Printf("  Output Dir:        %s\n", cfg.Storage.OutputDir)
			fmt.Printf("  MongoDB:           %v\n", cfg.Storage.Mongo.Enabled)
			fmt.Printf("\nRun:\n")
			fmt.Printf("  On Error:          %s\n", cfg.Run.OnError)
			fmt.Printf("\nMetrics:\n")
			fmt.Printf("  Enabled:           %v\n", cfg.Metrics.Enabled)
			fmt.Printf("  Port:              %d\n", cfg.Metrics.Port)
			return nil
		},
	}
}

// loadConfig loads the config file, applies flags and validates the result.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := applyCLIOverrides(cmd, cfg); err != nil {
		return nil, err
	}
	if err := config.Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// setupLogger creates a structured logger.
func setupLogger(cfg *config.Config) *slog.Logger {
	level := slog.LevelInfo
	switch strings.ToLower(cfg.Logging.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	if verbose {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	var handler slog.Handler = slog.NewTextHandler(os.Stderr, opts)
	if cfg.Logging.Format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	}
	return slog.New(handler)
}

// applyCLIOverrides applies command-line flag values to the config.
func applyCLIOverrides(cmd *cobra.Command, cfg *config.Config) error {
	if len(categories) > 0 {
		selected, err := cfg.SelectCategories(categories)
		if err != nil {
			return err
		}
		cfg.Site.Categories = selected
	}
	if outputDir != "" {
		cfg.Storage.OutputDir = outputDir
	}
	if onError != "" {
		cfg.Run.OnError = strings.ToLower(onError)
	}
	if browserPool >= 0 {
		cfg.Browser.PoolSize = browserPool
	}
	if noVariants {
		cfg.Browser.Enabled = false
	}
	if engineName != "" {
		cfg.Parser.Engine = strings.ToLower(engineName)
	}
	if cmd.Flags().Changed("headless") {
		cfg.Browser.Headless = headless
	}
	if metricsOn {
		cfg.Metrics.Enabled = true
	}
	if verbose {
		cfg.Logging.Level = "debug"
	}
	return nil
}
