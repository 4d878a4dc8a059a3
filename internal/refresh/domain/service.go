package domain

import "context"

// CountrySource fetches the country directory from its upstream.
type CountrySource interface {
	FetchCountries(ctx context.Context) ([]RawCountry, error)
}

// RateSource fetches the exchange-rate snapshot from its upstream.
type RateSource interface {
	FetchRates(ctx context.Context) (*RateSnapshot, error)
}

// MultiplierSource draws the stochastic GDP multiplier. Injected so tests can
// pin it while production draws real entropy.
type MultiplierSource interface {
	// Multiplier returns a value in [1000, 2000).
	Multiplier() float64
}

type ListRunsRequest struct {
	Limit int
}

type Service interface {
	// Refresh runs one full cycle. It returns a SourceError when the country
	// source is unreachable (no writes happened); every other outcome is a
	// Result the caller inspects.
	Refresh(ctx context.Context, trigger string) (Result, error)
	ListRuns(ctx context.Context, req ListRunsRequest) ([]RefreshRun, error)
}
