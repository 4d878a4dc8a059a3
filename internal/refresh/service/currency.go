package service

import (
	"strings"

	"github.com/nomadlabs/atlas/internal/refresh/domain"
)

// ResolveCurrencyCode derives the canonical currency code for a record: the
// first currency entry's code, upper-cased. A record without currency entries
// resolves to nil. Only the first entry is ever consulted; an empty code on
// that entry still counts as present.
func ResolveCurrencyCode(raw domain.RawCountry) *string {
	if len(raw.Currencies) == 0 {
		return nil
	}
	code := strings.ToUpper(strings.TrimSpace(raw.Currencies[0].Code))
	return &code
}

// LookupRate resolves a code against the cycle's snapshot. A nil code, a
// missing snapshot, or a code absent from the table all resolve to nil; none
// of these are errors.
func LookupRate(code *string, snapshot *domain.RateSnapshot) *float64 {
	if code == nil || snapshot == nil {
		return nil
	}
	rate, ok := snapshot.Lookup(*code)
	if !ok {
		return nil
	}
	return &rate
}
