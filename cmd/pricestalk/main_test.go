package main

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/IshaanNene/PriceStalk/internal/config"
)

func TestApplyCLIOverrides(t *testing.T) {
	cmd := scrapeCmd()
	err := cmd.ParseFlags([]string{
		"--category", "phones,laptops",
		"--output", "/tmp/out",
		"--on-error", "SKIP",
		"--browser-pool", "2",
		"--engine", "xpath",
		"--headless=false",
		"--no-variants",
	})
	if err != nil {
		t.Fatalf("parse flags: %v", err)
	}

	cfg := config.DefaultConfig()
	if err := applyCLIOverrides(cmd, cfg); err != nil {
		t.Fatalf("apply: %v", err)
	}

	var names []string
	for _, c := range cfg.Site.Categories {
		names = append(names, c.Name)
	}
	if diff := cmp.Diff([]string{"laptops", "phones"}, names); diff != "" {
		t.Errorf("categories mismatch (-want +got):\n%s", diff)
	}
	if cfg.Storage.OutputDir != "/tmp/out" || cfg.Run.OnError != config.OnErrorSkip {
		t.Errorf("unexpected storage/run config: %+v %+v", cfg.Storage, cfg.Run)
	}
	if cfg.Browser.PoolSize != 2 || cfg.Browser.Headless || cfg.Browser.Enabled {
		t.Errorf("unexpected browser config: %+v", cfg.Browser)
	}
	if cfg.Parser.Engine != "xpath" {
		t.Errorf("expected xpath engine, got %s", cfg.Parser.Engine)
	}
	if err := config.Validate(cfg); err != nil {
		t.Errorf("overridden config should be valid: %v", err)
	}
}

func TestApplyCLIOverridesUnknownCategory(t *testing.T) {
	cmd := scrapeCmd()
	if err := cmd.ParseFlags([]string{"--category", "garden"}); err != nil {
		t.Fatal(err)
	}
	if err := applyCLIOverrides(cmd, config.DefaultConfig()); err == nil {
		t.Error("expected error for unknown category")
	}
}
