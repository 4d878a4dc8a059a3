package countries

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/nomadlabs/atlas/internal/config"
	"github.com/nomadlabs/atlas/internal/refresh/domain"
	"go.uber.org/zap"
)

// Client fetches the country directory and normalizes its shape variance.
// Everything downstream sees only the canonical RawCountry form.
type Client struct {
	holder *config.RefreshConfigHolder
	log    *zap.Logger
	client *http.Client
}

func New(holder *config.RefreshConfigHolder, log *zap.Logger) *Client {
	return &Client{
		holder: holder,
		log:    log.Named("providers.countries"),
		client: &http.Client{},
	}
}

func (c *Client) FetchCountries(ctx context.Context) ([]domain.RawCountry, error) {
	cfg := c.holder.Current()

	ctx, cancel := context.WithTimeout(ctx, cfg.FetchTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, cfg.CountriesURL, nil)
	if err != nil {
		return nil, &domain.SourceError{Source: domain.SourceCountries, Err: err}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, &domain.SourceError{Source: domain.SourceCountries, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &domain.SourceError{
			Source:     domain.SourceCountries,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("unexpected status %s", resp.Status),
		}
	}

	var payload []map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, &domain.SourceError{
			Source: domain.SourceCountries,
			Err:    fmt.Errorf("%w: %v", domain.ErrMalformedResponse, err),
		}
	}

	raws := make([]domain.RawCountry, 0, len(payload))
	dropped := 0
	for _, entry := range payload {
		raw, ok := normalizeCountry(entry)
		if !ok {
			// Entries without a usable name or with a negative population
			// are excluded silently, not reported as record errors.
			dropped++
			continue
		}
		raws = append(raws, raw)
	}
	if dropped > 0 {
		c.log.Debug("dropped unusable entries", zap.Int("count", dropped))
	}

	return raws, nil
}

// normalizeCountry flattens the upstream's inconsistent field shapes into
// the canonical form: name as string or {common, official} object, capital
// as scalar or single-element list, the flag URL under several keys, and
// currencies as a list or a code-keyed object.
func normalizeCountry(entry map[string]any) (domain.RawCountry, bool) {
	raw := domain.RawCountry{
		Name:       normalizeName(entry["name"]),
		Capital:    normalizeScalarOrFirst(entry["capital"]),
		Region:     stringValue(entry["region"]),
		FlagURL:    normalizeFlag(entry),
		Currencies: normalizeCurrencies(entry["currencies"]),
	}

	population, ok := normalizePopulation(entry["population"])
	if !ok {
		return domain.RawCountry{}, false
	}
	raw.Population = population

	if strings.TrimSpace(raw.Name) == "" {
		return domain.RawCountry{}, false
	}
	return raw, true
}

func normalizeName(v any) string {
	switch name := v.(type) {
	case string:
		return strings.TrimSpace(name)
	case map[string]any:
		if common := stringValue(name["common"]); common != "" {
			return common
		}
		return stringValue(name["official"])
	default:
		return ""
	}
}

func normalizeScalarOrFirst(v any) string {
	switch value := v.(type) {
	case string:
		return strings.TrimSpace(value)
	case []any:
		if len(value) == 0 {
			return ""
		}
		return stringValue(value[0])
	default:
		return ""
	}
}

func normalizePopulation(v any) (int64, bool) {
	var population int64
	switch value := v.(type) {
	case nil:
		population = 0
	case float64:
		population = int64(value)
	case json.Number:
		parsed, err := value.Int64()
		if err != nil {
			return 0, false
		}
		population = parsed
	default:
		return 0, false
	}
	if population < 0 {
		return 0, false
	}
	return population, true
}

func normalizeFlag(entry map[string]any) string {
	if flag := stringValue(entry["flag"]); strings.HasPrefix(flag, "http") {
		return flag
	}
	if flag := stringValue(entry["flagUrl"]); flag != "" {
		return flag
	}
	if flags, ok := entry["flags"].(map[string]any); ok {
		if png := stringValue(flags["png"]); png != "" {
			return png
		}
		return stringValue(flags["svg"])
	}
	return ""
}

func normalizeCurrencies(v any) []domain.CurrencyEntry {
	switch currencies := v.(type) {
	case []any:
		entries := make([]domain.CurrencyEntry, 0, len(currencies))
		for _, item := range currencies {
			currency, ok := item.(map[string]any)
			if !ok {
				continue
			}
			entries = append(entries, domain.CurrencyEntry{
				Code:   stringValue(currency["code"]),
				Name:   stringValue(currency["name"]),
				Symbol: stringValue(currency["symbol"]),
			})
		}
		return entries
	case map[string]any:
		// Object-keyed form: the code is the key. Iteration order is not
		// stable, which matches the upstream's lack of ordering guarantees.
		entries := make([]domain.CurrencyEntry, 0, len(currencies))
		for code, item := range currencies {
			entry := domain.CurrencyEntry{Code: code}
			if details, ok := item.(map[string]any); ok {
				entry.Name = stringValue(details["name"])
				entry.Symbol = stringValue(details["symbol"])
			}
			entries = append(entries, entry)
		}
		return entries
	default:
		return nil
	}
}

func stringValue(v any) string {
	s, _ := v.(string)
	return strings.TrimSpace(s)
}
