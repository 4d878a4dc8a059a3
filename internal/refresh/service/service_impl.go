package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/bwmarrin/snowflake"
	"github.com/google/uuid"
	"github.com/nomadlabs/atlas/internal/clock"
	countrydomain "github.com/nomadlabs/atlas/internal/country/domain"
	obsmetrics "github.com/nomadlabs/atlas/internal/observability/metrics"
	"github.com/nomadlabs/atlas/internal/refresh/domain"
	statusdomain "github.com/nomadlabs/atlas/internal/status/domain"
	summarydomain "github.com/nomadlabs/atlas/internal/summary/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	maxNameLength         = 255
	maxCurrencyCodeLength = 10
)

type Params struct {
	fx.In

	DB          *gorm.DB
	Log         *zap.Logger
	Clock       clock.Clock
	GenID       *snowflake.Node
	Countries   domain.CountrySource
	Rates       domain.RateSource
	Multiplier  domain.MultiplierSource
	CountryRepo countrydomain.Repository
	RunRepo     domain.RunRepository
	StatusSvc   statusdomain.Service
	Summary     summarydomain.Generator `optional:"true"`
	Metrics     *obsmetrics.Metrics     `optional:"true"`
}

type Service struct {
	db          *gorm.DB
	log         *zap.Logger
	clock       clock.Clock
	genID       *snowflake.Node
	countries   domain.CountrySource
	rates       domain.RateSource
	multiplier  domain.MultiplierSource
	countryRepo countrydomain.Repository
	runRepo     domain.RunRepository
	statusSvc   statusdomain.Service
	summary     summarydomain.Generator
	metrics     *obsmetrics.Metrics
}

func New(p Params) domain.Service {
	return &Service{
		db:          p.DB,
		log:         p.Log.Named("refresh.service"),
		clock:       p.Clock,
		genID:       p.GenID,
		countries:   p.Countries,
		rates:       p.Rates,
		multiplier:  p.Multiplier,
		countryRepo: p.CountryRepo,
		runRepo:     p.RunRepo,
		statusSvc:   p.StatusSvc,
		summary:     p.Summary,
		metrics:     p.Metrics,
	}
}

// Refresh runs one cycle: fetch both sources, derive per-record fields,
// upsert each record, then reconcile the status row from storage truth.
//
// A countries-source failure aborts before any country write and propagates
// as a SourceError. A rates-source failure does not abort: every record's
// rate and GDP resolve to null for this cycle.
func (s *Service) Refresh(ctx context.Context, trigger string) (domain.Result, error) {
	cycleID := uuid.NewString()
	startedAt := s.clock.Now()
	log := s.log.With(
		zap.String("cycle_id", cycleID),
		zap.String("trigger", trigger),
	)

	raws, err := s.countries.FetchCountries(ctx)
	if err != nil {
		return domain.Result{}, s.abort(ctx, log, cycleID, trigger, startedAt, err)
	}
	if len(raws) == 0 {
		err := &domain.SourceError{Source: domain.SourceCountries, Err: domain.ErrEmptyResponse}
		return domain.Result{}, s.abort(ctx, log, cycleID, trigger, startedAt, err)
	}
	log.Info("countries fetched", zap.Int("count", len(raws)))

	// The needed code set is derived before the rates call so the cycle's
	// fetch order stays countries-then-rates.
	codes := distinctCurrencyCodes(raws)
	log.Debug("currency codes needed", zap.Int("count", len(codes)))

	snapshot, err := s.rates.FetchRates(ctx)
	if err != nil {
		// Degraded cycle: every record resolves to a null rate and GDP.
		snapshot = nil
		s.metrics.RecordSourceFailure(ctx, domain.SourceRates)
		log.Warn("rates fetch failed, continuing with null rates", zap.Error(err))
	} else {
		log.Info("rates fetched",
			zap.String("base", snapshot.Base),
			zap.Int("count", snapshot.Len()),
		)
	}

	processed := 0
	errs := make([]string, 0)
	for _, raw := range raws {
		if err := s.processRecord(ctx, raw, snapshot, startedAt); err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", recordName(raw), err))
			continue
		}
		processed++
	}

	result := domain.Result{
		Success:   processed > 0,
		Processed: processed,
		Errors:    errs,
	}

	if processed > 0 {
		if _, err := s.statusSvc.Recompute(ctx); err != nil {
			log.Error("status recompute failed", zap.Error(err))
		}
		s.generateSummary(ctx, log)
	}

	s.recordRun(ctx, log, domain.RefreshRun{
		ID:         cycleID,
		Trigger:    trigger,
		Success:    result.Success,
		Processed:  result.Processed,
		ErrorCount: len(result.Errors),
		Errors:     marshalErrors(result.Errors),
		StartedAt:  startedAt,
		FinishedAt: s.clock.Now(),
	})

	outcome := "success"
	if !result.Success {
		outcome = "failed"
	} else if len(errs) > 0 {
		outcome = "partial"
	}
	s.metrics.RecordRefreshCycle(ctx, trigger, outcome, processed, len(errs))
	log.Info("refresh cycle finished",
		zap.String("outcome", outcome),
		zap.Int("processed", processed),
		zap.Int("failed", len(errs)),
	)

	return result, nil
}

func (s *Service) ListRuns(ctx context.Context, req domain.ListRunsRequest) ([]domain.RefreshRun, error) {
	return s.runRepo.List(ctx, s.db, req.Limit)
}

// processRecord derives the record's currency, rate and GDP estimate, then
// upserts it. Its error is scoped to this record only; a failure here never
// aborts the cycle.
func (s *Service) processRecord(ctx context.Context, raw domain.RawCountry, snapshot *domain.RateSnapshot, refreshedAt time.Time) error {
	if err := validateRecord(raw); err != nil {
		return err
	}

	code := ResolveCurrencyCode(raw)
	if code != nil && utf8.RuneCountInString(*code) > maxCurrencyCodeLength {
		return fmt.Errorf("currency code %q exceeds %d characters", *code, maxCurrencyCodeLength)
	}
	rate := LookupRate(code, snapshot)
	gdp := EstimateGDP(raw.Population, rate, s.multiplier)

	country := &countrydomain.Country{
		ID:              s.genID.Generate(),
		Name:            strings.TrimSpace(raw.Name),
		Capital:         optional(raw.Capital),
		Region:          optional(raw.Region),
		Population:      raw.Population,
		CurrencyCode:    code,
		ExchangeRate:    rate,
		EstimatedGDP:    gdp,
		FlagURL:         optional(raw.FlagURL),
		LastRefreshedAt: refreshedAt,
		CreatedAt:       refreshedAt,
		UpdatedAt:       refreshedAt,
	}

	if _, err := s.countryRepo.Upsert(ctx, s.db, country); err != nil {
		return fmt.Errorf("upsert failed: %w", err)
	}
	return nil
}

// abort is the zero-write failure path: the country source was unusable, no
// country row was touched. Only the audit run row is written.
func (s *Service) abort(ctx context.Context, log *zap.Logger, cycleID, trigger string, startedAt time.Time, err error) error {
	srcErr := domain.AsSourceError(err)
	if srcErr == nil {
		srcErr = &domain.SourceError{Source: domain.SourceCountries, Err: err}
	}

	s.metrics.RecordSourceFailure(ctx, srcErr.Source)
	s.metrics.RecordRefreshCycle(ctx, trigger, "aborted", 0, 0)
	log.Error("refresh cycle aborted", zap.Error(srcErr))

	s.recordRun(ctx, log, domain.RefreshRun{
		ID:         cycleID,
		Trigger:    trigger,
		Success:    false,
		Processed:  0,
		ErrorCount: 1,
		Errors:     marshalErrors([]string{srcErr.Error()}),
		StartedAt:  startedAt,
		FinishedAt: s.clock.Now(),
	})

	return srcErr
}

func (s *Service) generateSummary(ctx context.Context, log *zap.Logger) {
	if s.summary == nil {
		return
	}
	if err := s.summary.Generate(ctx); err != nil {
		// The artifact is best-effort: its failure never fails the refresh.
		s.metrics.RecordSummaryRender(ctx, "failed")
		log.Warn("summary render failed", zap.Error(err))
		return
	}
	s.metrics.RecordSummaryRender(ctx, "success")
}

func (s *Service) recordRun(ctx context.Context, log *zap.Logger, run domain.RefreshRun) {
	if err := s.runRepo.Insert(ctx, s.db, &run); err != nil {
		log.Warn("refresh run not recorded", zap.Error(err))
	}
}

func validateRecord(raw domain.RawCountry) error {
	name := strings.TrimSpace(raw.Name)
	if name == "" {
		return fmt.Errorf("name is required")
	}
	if utf8.RuneCountInString(name) > maxNameLength {
		return fmt.Errorf("name exceeds %d characters", maxNameLength)
	}
	if raw.Population < 0 {
		return fmt.Errorf("population must be non-negative")
	}
	return nil
}

func optional(value string) *string {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	return &value
}

func distinctCurrencyCodes(raws []domain.RawCountry) []string {
	seen := make(map[string]struct{})
	codes := make([]string, 0)
	for _, raw := range raws {
		code := ResolveCurrencyCode(raw)
		if code == nil || *code == "" {
			continue
		}
		if _, ok := seen[*code]; ok {
			continue
		}
		seen[*code] = struct{}{}
		codes = append(codes, *code)
	}
	return codes
}

func recordName(raw domain.RawCountry) string {
	name := strings.TrimSpace(raw.Name)
	if name == "" {
		return "unknown"
	}
	return name
}

func marshalErrors(errs []string) datatypes.JSON {
	b, err := json.Marshal(errs)
	if err != nil {
		return nil
	}
	return datatypes.JSON(b)
}
