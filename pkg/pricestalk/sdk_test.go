package pricestalk

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/IshaanNene/PriceStalk/internal/types"
)

var testLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

const listing = `<html><body>
<div class="thumbnail"><div class="caption">
<h4 class="pull-right price">$300</h4>
<h4><a href="/product/1" class="title" title="Test HDD">Test HDD</a></h4>
<p class="description">A disk</p></div>
<div class="ratings"><p class="pull-right review-count">5 reviews</p><p data-rating="4"></p></div></div>
</body></html>`

func TestNewAppliesOptions(t *testing.T) {
	s := New(
		WithBaseURL("https://shop.local/"),
		WithOutputDir("/tmp/x"),
		WithBrowserPool(3),
		WithFailurePolicy(Skip),
		WithLogger(testLogger),
	)
	cfg := s.Config()
	if cfg.Site.BaseURL != "https://shop.local/" || cfg.Storage.OutputDir != "/tmp/x" {
		t.Errorf("unexpected config: %+v", cfg.Site)
	}
	if cfg.Browser.PoolSize != 3 || cfg.Run.OnError != Skip {
		t.Errorf("unexpected browser/run config")
	}
}

func TestRunWithoutVariants(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/shop/disks" {
			http.NotFound(w, r)
			return
		}
		fmt.Fprint(w, listing)
	}))
	defer srv.Close()

	dir := t.TempDir()
	s := New(
		WithBaseURL(srv.URL+"/shop/"),
		WithCategoryPaths(
			Category{Name: "disks", Path: "disks"},
			Category{Name: "other", Path: "other"},
		),
		WithCategories("disks"),
		WithOutputDir(dir),
		WithoutVariants(),
		WithLogger(testLogger),
	)

	report, err := s.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(report.Categories) != 1 || report.TotalScraped() != 1 {
		t.Fatalf("unexpected report: %+v", report.Categories)
	}

	data, err := os.ReadFile(filepath.Join(dir, "disks.csv"))
	if err != nil {
		t.Fatal(err)
	}
	want := "title,description,price,rating,num_of_reviews,additional_info\r\n" +
		"Test HDD,A disk,300.0,4,5,{'hdd_prices': {}}\r\n"
	if string(data) != want {
		t.Errorf("unexpected CSV:\n%q", data)
	}
}

func TestRunAbortsOnFetchFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	s := New(
		WithBaseURL(srv.URL+"/"),
		WithCategories("home"),
		WithOutputDir(t.TempDir()),
		WithoutVariants(),
		WithLogger(testLogger),
	)

	_, err := s.Run(context.Background())
	if !errors.Is(err, types.ErrAborted) || types.StageOf(err) != types.StageFetch {
		t.Fatalf("expected aborted fetch error, got %v", err)
	}
}

func TestRunRejectsUnknownCategory(t *testing.T) {
	s := New(WithCategories("garden"), WithLogger(testLogger))
	if _, err := s.Run(context.Background()); err == nil {
		t.Error("expected error for unknown category")
	}
}
