package countries

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

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg := config.DefaultRefreshConfig()
	cfg.CountriesURL = srv.URL
	cfg.FetchTimeout = 2 * time.Second
	holder := config.NewStaticRefreshConfigHolder(cfg)

	return New(holder, zap.NewNop()), srv
}

func TestFetchCountriesShapeVariance(t *testing.T) {
	body := `[
		{
			"name": "Ghana",
			"capital": "Accra",
			"region": "Africa",
			"population": 31072940,
			"flag": "https://flagcdn.com/gh.svg",
			"currencies": [{"code": "GHS", "name": "Ghanaian cedi", "symbol": "GH₵"}]
		},
		{
			"name": {"common": "Japan", "official": "Japan"},
			"capital": ["Tokyo"],
			"region": "Asia",
			"population": 125836021,
			"flags": {"png": "https://flagcdn.com/w320/jp.png", "svg": "https://flagcdn.com/jp.svg"},
			"currencies": {"JPY": {"name": "Japanese yen", "symbol": "¥"}}
		},
		{
			"name": "Null Island",
			"region": "Atlantic"
		}
	]`
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	})

	raws, err := client.FetchCountries(context.Background())
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(raws) != 3 {
		t.Fatalf("expected 3 records, got %d", len(raws))
	}

	ghana := raws[0]
	if ghana.Name != "Ghana" || ghana.Capital != "Accra" || ghana.Population != 31072940 {
		t.Fatalf("unexpected ghana record: %+v", ghana)
	}
	if ghana.FlagURL != "https://flagcdn.com/gh.svg" {
		t.Fatalf("unexpected ghana flag: %q", ghana.FlagURL)
	}
	if len(ghana.Currencies) != 1 || ghana.Currencies[0].Code != "GHS" {
		t.Fatalf("unexpected ghana currencies: %+v", ghana.Currencies)
	}

	japan := raws[1]
	if japan.Name != "Japan" {
		t.Fatalf("object name form not flattened: %q", japan.Name)
	}
	if japan.Capital != "Tokyo" {
		t.Fatalf("list capital form not flattened: %q", japan.Capital)
	}
	if japan.FlagURL != "https://flagcdn.com/w320/jp.png" {
		t.Fatalf("unexpected japan flag: %q", japan.FlagURL)
	}
	if len(japan.Currencies) != 1 || japan.Currencies[0].Code != "JPY" {
		t.Fatalf("object currencies form not flattened: %+v", japan.Currencies)
	}

	nullIsland := raws[2]
	if nullIsland.Population != 0 {
		t.Fatalf("missing population should default to 0, got %d", nullIsland.Population)
	}
	if len(nullIsland.Currencies) != 0 {
		t.Fatalf("expected no currencies, got %+v", nullIsland.Currencies)
	}
}

func TestFetchCountriesDropsUnusableEntries(t *testing.T) {
	body := `[
		{"name": "", "population": 10},
		{"name": "Negaland", "population": -5},
		{"population": 10},
		{"name": "Keepland", "population": 10}
	]`
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(body))
	})

	raws, err := client.FetchCountries(context.Background())
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(raws) != 1 || raws[0].Name != "Keepland" {
		t.Fatalf("expected only Keepland, got %+v", raws)
	}
}

func TestFetchCountriesNonSuccessStatus(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	_, err := client.FetchCountries(context.Background())
	srcErr := domain.AsSourceError(err)
	if srcErr == nil {
		t.Fatalf("expected a SourceError, got %v", err)
	}
	if srcErr.Source != domain.SourceCountries || srcErr.StatusCode != http.StatusBadGateway {
		t.Fatalf("unexpected SourceError: %+v", srcErr)
	}
}

func TestFetchCountriesMalformedBody(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"not": "a list"}`))
	})

	_, err := client.FetchCountries(context.Background())
	srcErr := domain.AsSourceError(err)
	if srcErr == nil || srcErr.Source != domain.SourceCountries {
		t.Fatalf("expected a countries SourceError, got %v", err)
	}
}

func TestFetchCountriesTimeout(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		_, _ = w.Write([]byte(`[]`))
	})

	cfg := config.DefaultRefreshConfig()
	cfg.CountriesURL = client.holder.Current().CountriesURL
	cfg.FetchTimeout = 50 * time.Millisecond
	client.holder = config.NewStaticRefreshConfigHolder(cfg)

	_, err := client.FetchCountries(context.Background())
	srcErr := domain.AsSourceError(err)
	if srcErr == nil || srcErr.Source != domain.SourceCountries {
		t.Fatalf("expected a countries SourceError on timeout, got %v", err)
	}
}
