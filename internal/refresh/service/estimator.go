package service

import (
	"math"
	"math/rand/v2"

	"github.com/nomadlabs/atlas/internal/refresh/domain"
)

// EstimateGDP computes the derived GDP figure for one record.
//
// A nil or non-positive rate yields nil, never zero: estimated_gdp is null
// exactly when exchange_rate is null. A non-positive population with a valid
// rate yields exactly 0. Otherwise the estimate is
// round2(population * multiplier / rate) with a fresh multiplier draw per
// record, so re-running a refresh on unchanged inputs may change the value.
func EstimateGDP(population int64, rate *float64, mult domain.MultiplierSource) *float64 {
	if rate == nil || *rate <= 0 {
		return nil
	}
	if population <= 0 {
		zero := 0.0
		return &zero
	}
	estimate := round2(float64(population) * mult.Multiplier() / *rate)
	return &estimate
}

// round2 rounds half away from zero to 2 decimal places.
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

type entropyMultiplier struct{}

// NewMultiplierSource returns the production entropy source: uniform draws
// from [1000, 2000).
func NewMultiplierSource() domain.MultiplierSource {
	return entropyMultiplier{}
}

func (entropyMultiplier) Multiplier() float64 {
	return 1000 + rand.Float64()*1000
}
