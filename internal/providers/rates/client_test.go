package rates

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/nomadlabs/atlas/internal/config"
	"github.com/nomadlabs/atlas/internal/refresh/domain"
	"go.uber.org/zap"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg := config.DefaultRefreshConfig()
	cfg.RatesURL = srv.URL
	cfg.FetchTimeout = 2 * time.Second
	holder := config.NewStaticRefreshConfigHolder(cfg)

	return New(holder, zap.NewNop())
}

func TestFetchRates(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"base_code": "USD", "rates": {"ghs": 15.2, "JPY": 150.1}}`))
	})

	snapshot, err := client.FetchRates(context.Background())
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if snapshot.Base != "USD" {
		t.Fatalf("expected base USD, got %q", snapshot.Base)
	}
	if snapshot.Len() != 2 {
		t.Fatalf("expected 2 rates, got %d", snapshot.Len())
	}
	rate, ok := snapshot.Lookup("GHS")
	if !ok || rate != 15.2 {
		t.Fatalf("lowercase key not canonicalized: %v %v", rate, ok)
	}
}

func TestFetchRatesLegacyBaseField(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"base": "EUR", "rates": {}}`))
	})

	snapshot, err := client.FetchRates(context.Background())
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if snapshot.Base != "EUR" {
		t.Fatalf("expected base EUR, got %q", snapshot.Base)
	}
}

func TestFetchRatesMissingRatesField(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"base_code": "USD"}`))
	})

	_, err := client.FetchRates(context.Background())
	srcErr := domain.AsSourceError(err)
	if srcErr == nil || srcErr.Source != domain.SourceRates {
		t.Fatalf("expected a rates SourceError, got %v", err)
	}
}

func TestFetchRatesNonSuccessStatus(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	_, err := client.FetchRates(context.Background())
	srcErr := domain.AsSourceError(err)
	if srcErr == nil {
		t.Fatalf("expected a SourceError, got %v", err)
	}
	if srcErr.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("expected status 503, got %d", srcErr.StatusCode)
	}
}
