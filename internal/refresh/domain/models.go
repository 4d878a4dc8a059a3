package domain

import (
	"strings"
	"time"

	"gorm.io/datatypes"
)

// RawCountry is the canonical shape produced by the country-directory
// adapter. It lives only for the duration of one refresh cycle.
type RawCountry struct {
	Name       string
	Capital    string
	Region     string
	Population int64
	FlagURL    string
	Currencies []CurrencyEntry
}

type CurrencyEntry struct {
	Code   string
	Name   string
	Symbol string
}

// RateSnapshot is the exchange-rate table fetched once per cycle and shared
// read-only across every record processed in that cycle.
type RateSnapshot struct {
	Base  string
	rates map[string]float64
}

// NewRateSnapshot canonicalizes the rate keys to upper case so lookups are
// case-insensitive.
func NewRateSnapshot(base string, rates map[string]float64) *RateSnapshot {
	canonical := make(map[string]float64, len(rates))
	for code, rate := range rates {
		canonical[strings.ToUpper(strings.TrimSpace(code))] = rate
	}
	return &RateSnapshot{
		Base:  strings.ToUpper(strings.TrimSpace(base)),
		rates: canonical,
	}
}

// Lookup returns the rate for the code. Absence is a valid terminal state,
// not an error.
func (s *RateSnapshot) Lookup(code string) (float64, bool) {
	if s == nil {
		return 0, false
	}
	rate, ok := s.rates[strings.ToUpper(strings.TrimSpace(code))]
	return rate, ok
}

// Len reports how many codes the snapshot carries.
func (s *RateSnapshot) Len() int {
	if s == nil {
		return 0
	}
	return len(s.rates)
}

// Result is the non-abort outcome of a refresh cycle.
type Result struct {
	Success   bool     `json:"success"`
	Processed int      `json:"processed"`
	Errors    []string `json:"errors"`
}

// RefreshRun is the audit row recorded for each cycle.
type RefreshRun struct {
	ID         string         `gorm:"primaryKey;size:36" json:"id"`
	Trigger    string         `gorm:"column:trigger_source;not null" json:"trigger"`
	Success    bool           `gorm:"not null" json:"success"`
	Processed  int            `gorm:"not null;default:0" json:"processed"`
	ErrorCount int            `gorm:"not null;default:0" json:"error_count"`
	Errors     datatypes.JSON `json:"errors,omitempty"`
	StartedAt  time.Time      `gorm:"not null" json:"started_at"`
	FinishedAt time.Time      `gorm:"not null" json:"finished_at"`
}

func (RefreshRun) TableName() string {
	return "refresh_runs"
}

const (
	TriggerAPI       = "api"
	TriggerScheduler = "scheduler"
)
