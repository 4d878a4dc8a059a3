package rates

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/nomadlabs/atlas/internal/config"
	"github.com/nomadlabs/atlas/internal/refresh/domain"
	"go.uber.org/zap"
)

// Client fetches one exchange-rate snapshot per refresh cycle.
type Client struct {
	holder *config.RefreshConfigHolder
	log    *zap.Logger
	client *http.Client
}

func New(holder *config.RefreshConfigHolder, log *zap.Logger) *Client {
	return &Client{
		holder: holder,
		log:    log.Named("providers.rates"),
		client: &http.Client{},
	}
}

type ratesPayload struct {
	Base     string             `json:"base"`
	BaseCode string             `json:"base_code"`
	Rates    map[string]float64 `json:"rates"`
}

func (c *Client) FetchRates(ctx context.Context) (*domain.RateSnapshot, error) {
	cfg := c.holder.Current()

	ctx, cancel := context.WithTimeout(ctx, cfg.FetchTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, cfg.RatesURL, nil)
	if err != nil {
		return nil, &domain.SourceError{Source: domain.SourceRates, Err: err}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, &domain.SourceError{Source: domain.SourceRates, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &domain.SourceError{
			Source:     domain.SourceRates,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("unexpected status %s", resp.Status),
		}
	}

	var payload ratesPayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, &domain.SourceError{
			Source: domain.SourceRates,
			Err:    fmt.Errorf("%w: %v", domain.ErrMalformedResponse, err),
		}
	}
	if payload.Rates == nil {
		return nil, &domain.SourceError{
			Source: domain.SourceRates,
			Err:    fmt.Errorf("%w: missing rates field", domain.ErrMalformedResponse),
		}
	}

	base := payload.BaseCode
	if base == "" {
		base = payload.Base
	}
	return domain.NewRateSnapshot(base, payload.Rates), nil
}
