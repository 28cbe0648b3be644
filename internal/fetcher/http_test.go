package fetcher

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/andybalholm/brotli"

	"github.com/IshaanNene/PriceStalk/internal/config"
	"github.com/IshaanNene/PriceStalk/internal/types"
)

var testLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

func newRequest(t *testing.T, url string) *types.Request {
	t.Helper()
	req, err := types.NewRequest(url, "home")
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	return req
}

func TestFetchOK(t *testing.T) {
	var gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(`<div class="thumbnail"></div>`))
	}))
	defer srv.Close()

	cfg := config.DefaultConfig()
	cfg.Fetcher.UserAgent = "pricestalk-test"
	f := NewHTTPFetcher(cfg, testLogger)
	defer f.Close()

	resp, err := f.Fetch(context.Background(), newRequest(t, srv.URL+"/list"))
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if !resp.IsSuccess() {
		t.Errorf("expected 2xx, got %d", resp.StatusCode)
	}
	if !strings.Contains(string(resp.Body), "thumbnail") {
		t.Errorf("unexpected body %q", resp.Body)
	}
	if gotUA != "pricestalk-test" {
		t.Errorf("expected configured user agent, got %q", gotUA)
	}
	if resp.FinalURL != srv.URL+"/list" {
		t.Errorf("final URL: got %q", resp.FinalURL)
	}
}

func TestFetchNon2xxIsFetchError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	f := NewHTTPFetcher(config.DefaultConfig(), testLogger)
	defer f.Close()

	_, err := f.Fetch(context.Background(), newRequest(t, srv.URL))
	var fetchErr *types.FetchError
	if !errors.As(err, &fetchErr) {
		t.Fatalf("expected *types.FetchError, got %v", err)
	}
	if fetchErr.StatusCode != http.StatusNotFound {
		t.Errorf("expected status 404, got %d", fetchErr.StatusCode)
	}
	if types.StageOf(err) != types.StageFetch {
		t.Errorf("expected fetch stage, got %q", types.StageOf(err))
	}
}

func TestFetchNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	f := NewHTTPFetcher(config.DefaultConfig(), testLogger)
	_, err := f.Fetch(context.Background(), newRequest(t, url))
	var fetchErr *types.FetchError
	if !errors.As(err, &fetchErr) {
		t.Fatalf("expected *types.FetchError, got %v", err)
	}
	if fetchErr.StatusCode != 0 {
		t.Errorf("network error should carry no status, got %d", fetchErr.StatusCode)
	}
}

func TestFetchBrotli(t *testing.T) {
	var buf bytes.Buffer
	bw := brotli.NewWriter(&buf)
	bw.Write([]byte("<p>compressed listing</p>"))
	bw.Close()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Encoding", "br")
		w.Write(buf.Bytes())
	}))
	defer srv.Close()

	f := NewHTTPFetcher(config.DefaultConfig(), testLogger)
	defer f.Close()

	resp, err := f.Fetch(context.Background(), newRequest(t, srv.URL))
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if string(resp.Body) != "<p>compressed listing</p>" {
		t.Errorf("expected decompressed body, got %q", resp.Body)
	}
}
