package scraper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/IshaanNene/PriceStalk/internal/config"
	"github.com/IshaanNene/PriceStalk/internal/fetcher"
	"github.com/IshaanNene/PriceStalk/internal/observability"
	"github.com/IshaanNene/PriceStalk/internal/parser"
	"github.com/IshaanNene/PriceStalk/internal/pipeline"
	"github.com/IshaanNene/PriceStalk/internal/storage"
	"github.com/IshaanNene/PriceStalk/internal/types"
)

var testLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

const header = "title,description,price,rating,num_of_reviews,additional_info\r\n"

func card(title, desc, price, rating, reviews, href string) string {
	return fmt.Sprintf(`<div class="thumbnail"><div class="caption">
<h4 class="pull-right price">%s</h4>
<h4><a href="%s" class="title" title="%s">%s</a></h4>
<p class="description">%s</p></div>
<div class="ratings"><p class="pull-right review-count">%s</p><p data-rating="%s"></p></div></div>`,
		price, href, title, title, desc, reviews, rating)
}

func page(cards ...string) string {
	return "<html><body>" + strings.Join(cards, "\n") + "</body></html>"
}

// fakeVariants returns canned tables keyed by detail URL path.
type fakeVariants struct {
	tables map[string][]types.Variant
	fail   map[string]error
	calls  []string
}

func (f *fakeVariants) Scrape(ctx context.Context, detailURL string) (*types.VariantPrices, error) {
	f.calls = append(f.calls, detailURL)
	for suffix, err := range f.fail {
		if strings.HasSuffix(detailURL, suffix) {
			return nil, &types.AutomationError{URL: detailURL, Step: "wait_price", Err: err}
		}
	}
	prices := &types.VariantPrices{}
	for suffix, table := range f.tables {
		if strings.HasSuffix(detailURL, suffix) {
			for _, v := range table {
				prices.Set(v.Label, v.Price)
			}
		}
	}
	return prices, nil
}

type fixture struct {
	cfg      *config.Config
	srv      *httptest.Server
	variants *fakeVariants
}

func newFixture(t *testing.T, pages map[string]string) *fixture {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, ok := pages[strings.TrimPrefix(r.URL.Path, "/")]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, body)
	}))
	t.Cleanup(srv.Close)

	cfg := config.DefaultConfig()
	cfg.Site.BaseURL = srv.URL + "/"
	cfg.Site.Categories = nil
	for name := range pages {
		cfg.Site.Categories = append(cfg.Site.Categories, config.Category{Name: name, Path: name})
	}
	cfg.Storage.OutputDir = t.TempDir()

	return &fixture{cfg: cfg, srv: srv, variants: &fakeVariants{}}
}

func (f *fixture) scraper(t *testing.T) *Scraper {
	t.Helper()
	s := New(f.cfg, testLogger)
	s.SetFetcher(fetcher.NewHTTPFetcher(f.cfg, testLogger))
	s.SetParser(parser.New(&f.cfg.Parser, testLogger))
	s.SetPipeline(pipeline.FromConfig(&f.cfg.Pipeline, testLogger))
	store, err := storage.NewCSVStorage(f.cfg.Storage.OutputDir, testLogger)
	if err != nil {
		t.Fatal(err)
	}
	s.SetStorage(store)
	s.SetVariantSource(f.variants)
	return s
}

func (f *fixture) read(t *testing.T, category string) (string, bool) {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(f.cfg.Storage.OutputDir, category+".csv"))
	if errors.Is(err, os.ErrNotExist) {
		return "", false
	}
	if err != nil {
		t.Fatal(err)
	}
	return string(data), true
}

func TestRunEndToEnd(t *testing.T) {
	f := newFixture(t, map[string]string{
		"hdd": page(card("Test HDD", "A disk", "$300", "4", "5 reviews", "/product/1")),
	})
	f.variants.tables = map[string][]types.Variant{"/product/1": {{Label: "250GB", Price: 250}}}

	report, err := f.scraper(t).Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	got, ok := f.read(t, "hdd")
	if !ok {
		t.Fatal("hdd.csv not written")
	}
	want := header + "Test HDD,A disk,300.0,4,5,{'hdd_prices': {'250GB': 250.0}}\r\n"
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("csv mismatch (-want +got):\n%s", diff)
	}

	if diff := cmp.Diff([]string{f.srv.URL + "/product/1"}, f.variants.calls); diff != "" {
		t.Errorf("variant calls mismatch (-want +got):\n%s", diff)
	}
	if report.TotalScraped() != 1 || report.TotalFailed() != 0 {
		t.Errorf("unexpected report totals: scraped=%d failed=%d", report.TotalScraped(), report.TotalFailed())
	}
	if report.RunID == "" || report.Duration <= 0 {
		t.Errorf("report missing run metadata: %+v", report)
	}
}

func TestRunAllCardsBecomeRows(t *testing.T) {
	var cards []string
	for i := 0; i < 6; i++ {
		cards = append(cards, card(fmt.Sprintf("P%d", i), "d", fmt.Sprintf("$%d.50", i), "3", "2 reviews", fmt.Sprintf("/product/%d", i)))
	}
	f := newFixture(t, map[string]string{"phones": page(cards...)})

	if _, err := f.scraper(t).Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}

	got, _ := f.read(t, "phones")
	lines := strings.Split(strings.TrimSuffix(got, "\r\n"), "\r\n")
	if len(lines) != 7 {
		t.Fatalf("expected 7 lines, got %d", len(lines))
	}
	if lines[3] != "P2,d,2.5,3,2,{'hdd_prices': {}}" {
		t.Errorf("unexpected row %q", lines[3])
	}
}

func TestRunAbortKeepsEarlierCategories(t *testing.T) {
	f := newFixture(t, map[string]string{
		"good": page(card("A", "d", "$1", "1", "1 reviews", "/p/a")),
		"bad": page(
			card("B", "d", "$2", "1", "1 reviews", "/p/b"),
			card("C", "d", "call us", "1", "1 reviews", "/p/c"),
		),
	})
	f.cfg.Site.Categories = []config.Category{{Name: "good", Path: "good"}, {Name: "bad", Path: "bad"}}

	report, err := f.scraper(t).Run(context.Background())
	if !errors.Is(err, types.ErrAborted) {
		t.Fatalf("expected ErrAborted, got %v", err)
	}
	var parseErr *types.ParseError
	if !errors.As(err, &parseErr) || parseErr.Field != "price" {
		t.Errorf("expected price parse error, got %v", err)
	}

	if _, ok := f.read(t, "good"); !ok {
		t.Error("earlier category should stay on disk")
	}
	if _, ok := f.read(t, "bad"); ok {
		t.Error("failing category must not be written")
	}
	if diff := cmp.Diff([]string{"good"}, report.Written()); diff != "" {
		t.Errorf("written mismatch (-want +got):\n%s", diff)
	}
}

func TestRunSkipPolicy(t *testing.T) {
	f := newFixture(t, map[string]string{
		"laptops": page(
			card("A", "d", "$1", "1", "1 reviews", "/p/a"),
			card("B", "d", "$2", "1", "1 reviews", "/p/b"),
			card("C", "d", "$3", "1", "1 reviews", "/p/c"),
		),
	})
	f.cfg.Site.Categories = append(f.cfg.Site.Categories, config.Category{Name: "missing", Path: "missing"})
	f.cfg.Run.OnError = config.OnErrorSkip
	f.variants.fail = map[string]error{"/p/b": types.ErrPollTimeout}

	report, err := f.scraper(t).Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	got, _ := f.read(t, "laptops")
	want := header +
		"A,d,1.0,1,1,{'hdd_prices': {}}\r\n" +
		"C,d,3.0,1,1,{'hdd_prices': {}}\r\n"
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("csv mismatch (-want +got):\n%s", diff)
	}
	if _, ok := f.read(t, "missing"); ok {
		t.Error("category with a failed fetch must not be written")
	}

	if len(report.Failures) != 2 {
		t.Fatalf("expected 2 failures, got %d", len(report.Failures))
	}
	if report.Failures[0].Stage != types.StageAutomation || !errors.Is(report.Failures[0].Err, types.ErrPollTimeout) {
		t.Errorf("unexpected product failure: %+v", report.Failures[0])
	}
	var fetchErr *types.FetchError
	if !errors.As(report.Failures[1].Err, &fetchErr) || fetchErr.StatusCode != http.StatusNotFound {
		t.Errorf("unexpected category failure: %+v", report.Failures[1])
	}
	if !report.Categories[1].Skipped {
		t.Error("missing category should be marked skipped")
	}
}

func TestRunWithoutVariants(t *testing.T) {
	f := newFixture(t, map[string]string{
		"tablets": page(card("Tab", "d", "$99.99", "5", "12 reviews", "/p/t")),
	})
	s := f.scraper(t)
	s.SetVariantSource(nil)

	if _, err := s.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	got, _ := f.read(t, "tablets")
	if got != header+"Tab,d,99.99,5,12,{'hdd_prices': {}}\r\n" {
		t.Errorf("unexpected output %q", got)
	}
}

func TestRunDedup(t *testing.T) {
	f := newFixture(t, map[string]string{
		"touch": page(
			card("A", "d", "$1", "1", "1 reviews", "/p/a"),
			card("A", "d", "$1", "1", "1 reviews", "/p/a"),
		),
	})
	f.cfg.Pipeline.Dedup = true

	report, err := f.scraper(t).Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if c := report.Categories[0]; c.Scraped != 1 || c.Dropped != 1 {
		t.Errorf("expected 1 scraped and 1 dropped, got %+v", c)
	}
}

func TestRunCancelled(t *testing.T) {
	f := newFixture(t, map[string]string{"home": page(card("A", "d", "$1", "1", "1 reviews", "/p/a"))})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.scraper(t).Run(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if _, ok := f.read(t, "home"); ok {
		t.Error("nothing should be written after cancellation")
	}
}

func TestRunOnce(t *testing.T) {
	f := newFixture(t, map[string]string{"home": page()})
	s := f.scraper(t)

	if _, err := s.Run(context.Background()); err != nil {
		t.Fatalf("first run: %v", err)
	}
	if _, err := s.Run(context.Background()); err == nil {
		t.Error("second run should fail")
	}
	if s.GetState() != StateStopped {
		t.Errorf("expected stopped state, got %s", s.GetState())
	}
}

func TestBuildWithoutBrowser(t *testing.T) {
	f := newFixture(t, map[string]string{
		"computers": page(card("PC", "d", "$10", "2", "3 reviews", "/p/pc")),
	})
	f.cfg.Browser.Enabled = false

	metrics := observability.NewMetrics(testLogger)
	s, closeFn, err := Build(f.cfg, testLogger, metrics)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	defer closeFn()

	report, err := s.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if report.TotalScraped() != 1 {
		t.Errorf("expected 1 product, got %d", report.TotalScraped())
	}
	if got := s.Stats().Snapshot()["files_written"]; got != int64(1) {
		t.Errorf("expected 1 file written, got %v", got)
	}
}
