package observability

import (
	"io"
	"log/slog"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

var testLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

func TestMetricsRecord(t *testing.T) {
	m := NewMetrics(testLogger)

	m.ObserveFetch(120 * time.Millisecond)
	m.ProductScraped("laptops")
	m.ProductScraped("laptops")
	m.ProductFailed("laptops", "parse")
	m.SessionOpened()
	m.VariantRead()
	m.BatchStored("csv")

	if got := testutil.ToFloat64(m.productsScraped.WithLabelValues("laptops")); got != 2 {
		t.Errorf("expected 2 scraped, got %v", got)
	}
	if got := testutil.ToFloat64(m.productsFailed.WithLabelValues("laptops", "parse")); got != 1 {
		t.Errorf("expected 1 failed, got %v", got)
	}
	if got := testutil.ToFloat64(m.pagesFetched); got != 1 {
		t.Errorf("expected 1 page, got %v", got)
	}
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.ObserveFetch(time.Second)
	m.ProductScraped("x")
	m.ProductFailed("x", "fetch")
	m.ProductDropped("x")
	m.SessionOpened()
	m.VariantRead()
	m.BatchStored("csv")
}

func TestMetricsHandler(t *testing.T) {
	m := NewMetrics(testLogger)
	m.SessionOpened()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), "pricestalk_browser_sessions_total 1") {
		t.Errorf("expected session counter in exposition, got:\n%s", body)
	}
}
