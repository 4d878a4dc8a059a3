package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/nomadlabs/atlas/internal/clock"
	countrydomain "github.com/nomadlabs/atlas/internal/country/domain"
	countryrepository "github.com/nomadlabs/atlas/internal/country/repository"
	"github.com/nomadlabs/atlas/internal/refresh/domain"
	refreshrepository "github.com/nomadlabs/atlas/internal/refresh/repository"
	statusdomain "github.com/nomadlabs/atlas/internal/status/domain"
	statusservice "github.com/nomadlabs/atlas/internal/status/service"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type countrySourceStub struct {
	raws []domain.RawCountry
	err  error
}

func (s *countrySourceStub) FetchCountries(ctx context.Context) ([]domain.RawCountry, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.raws, nil
}

type rateSourceStub struct {
	snapshot *domain.RateSnapshot
	err      error
}

func (s *rateSourceStub) FetchRates(ctx context.Context) (*domain.RateSnapshot, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.snapshot, nil
}

func setupRefreshService(
	t *testing.T,
	countries domain.CountrySource,
	rates domain.RateSource,
	mult domain.MultiplierSource,
	fc *clock.FakeClock,
) (domain.Service, *gorm.DB) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("db handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)

	err = db.AutoMigrate(
		&countrydomain.Country{},
		&statusdomain.SystemStatus{},
		&domain.RefreshRun{},
	)
	if err != nil {
		t.Fatalf("migrate: %v", err)
	}
	err = db.Create(&statusdomain.SystemStatus{ID: statusdomain.StatusRowID, UpdatedAt: fc.Now()}).Error
	if err != nil {
		t.Fatalf("seed status: %v", err)
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("snowflake node: %v", err)
	}

	countryRepo := countryrepository.Provide()
	statusSvc := statusservice.New(statusservice.Params{
		DB:          db,
		Log:         zap.NewNop(),
		Clock:       fc,
		CountryRepo: countryRepo,
	})

	svc := New(Params{
		DB:          db,
		Log:         zap.NewNop(),
		Clock:       fc,
		GenID:       node,
		Countries:   countries,
		Rates:       rates,
		Multiplier:  mult,
		CountryRepo: countryRepo,
		RunRepo:     refreshrepository.Provide(),
		StatusSvc:   statusSvc,
	})
	return svc, db
}

func testRawCountry(name, code string, population int64) domain.RawCountry {
	return domain.RawCountry{
		Name:       name,
		Capital:    "Capital City",
		Region:     "Testing",
		Population: population,
		FlagURL:    "https://flags.example/" + name + ".png",
		Currencies: []domain.CurrencyEntry{{Code: code}},
	}
}

func TestRefreshFullCycle(t *testing.T) {
	fc := clock.NewFakeClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	countries := &countrySourceStub{raws: []domain.RawCountry{
		testRawCountry("Testland", "ABC", 1_000_000),
	}}
	rates := &rateSourceStub{snapshot: domain.NewRateSnapshot("USD", map[string]float64{"ABC": 2.0})}

	svc, db := setupRefreshService(t, countries, rates, fixedMultiplier{value: 1500}, fc)
	ctx := context.Background()

	result, err := svc.Refresh(ctx, domain.TriggerAPI)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if !result.Success || result.Processed != 1 || len(result.Errors) != 0 {
		t.Fatalf("unexpected result: %+v", result)
	}

	var stored countrydomain.Country
	if err := db.Where("LOWER(name) = LOWER(?)", "testland").First(&stored).Error; err != nil {
		t.Fatalf("load country: %v", err)
	}
	if stored.CurrencyCode == nil || *stored.CurrencyCode != "ABC" {
		t.Fatalf("expected currency code ABC, got %v", stored.CurrencyCode)
	}
	if stored.ExchangeRate == nil || *stored.ExchangeRate != 2.0 {
		t.Fatalf("expected exchange rate 2.0, got %v", stored.ExchangeRate)
	}
	// 1_000_000 * 1500 / 2 with a pinned multiplier.
	if stored.EstimatedGDP == nil || *stored.EstimatedGDP != 750_000_000 {
		t.Fatalf("expected estimated GDP 750000000, got %v", stored.EstimatedGDP)
	}
	if !stored.LastRefreshedAt.Equal(fc.Now()) {
		t.Fatalf("expected last_refreshed_at %v, got %v", fc.Now(), stored.LastRefreshedAt)
	}

	var status statusdomain.SystemStatus
	if err := db.Where("id = ?", statusdomain.StatusRowID).First(&status).Error; err != nil {
		t.Fatalf("load status: %v", err)
	}
	if status.TotalCountries != 1 {
		t.Fatalf("expected total 1, got %d", status.TotalCountries)
	}
	if status.LastRefreshedAt == nil || !status.LastRefreshedAt.Equal(fc.Now()) {
		t.Fatalf("expected status last_refreshed_at %v, got %v", fc.Now(), status.LastRefreshedAt)
	}

	var runs []domain.RefreshRun
	if err := db.Find(&runs).Error; err != nil {
		t.Fatalf("load runs: %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("expected 1 run, got %d", len(runs))
	}
	if !runs[0].Success || runs[0].Processed != 1 || runs[0].Trigger != domain.TriggerAPI {
		t.Fatalf("unexpected run: %+v", runs[0])
	}
}

func TestRefreshRandomMultiplierBounds(t *testing.T) {
	fc := clock.NewFakeClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	countries := &countrySourceStub{raws: []domain.RawCountry{
		testRawCountry("Testland", "ABC", 1_000_000),
	}}
	rates := &rateSourceStub{snapshot: domain.NewRateSnapshot("USD", map[string]float64{"ABC": 2.0})}

	svc, db := setupRefreshService(t, countries, rates, NewMultiplierSource(), fc)

	if _, err := svc.Refresh(context.Background(), domain.TriggerAPI); err != nil {
		t.Fatalf("refresh: %v", err)
	}

	var stored countrydomain.Country
	if err := db.Where("name = ?", "Testland").First(&stored).Error; err != nil {
		t.Fatalf("load country: %v", err)
	}
	if stored.EstimatedGDP == nil {
		t.Fatal("expected an estimate, got nil")
	}
	// population 1_000_000, rate 2, multiplier in [1000, 2000).
	if *stored.EstimatedGDP < 500_000_000 || *stored.EstimatedGDP >= 1_000_000_000 {
		t.Fatalf("estimate %v outside [5e8, 1e9)", *stored.EstimatedGDP)
	}
}

func TestRefreshDegradedRates(t *testing.T) {
	fc := clock.NewFakeClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	countries := &countrySourceStub{raws: []domain.RawCountry{
		testRawCountry("Testland", "ABC", 1_000_000),
	}}
	rates := &rateSourceStub{err: &domain.SourceError{Source: domain.SourceRates, StatusCode: 502, Err: errors.New("bad gateway")}}

	svc, db := setupRefreshService(t, countries, rates, fixedMultiplier{value: 1500}, fc)

	result, err := svc.Refresh(context.Background(), domain.TriggerAPI)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if !result.Success || result.Processed != 1 {
		t.Fatalf("expected a degraded but successful cycle, got %+v", result)
	}

	var stored countrydomain.Country
	if err := db.Where("name = ?", "Testland").First(&stored).Error; err != nil {
		t.Fatalf("load country: %v", err)
	}
	if stored.CurrencyCode == nil || *stored.CurrencyCode != "ABC" {
		t.Fatalf("currency code must survive a rates failure, got %v", stored.CurrencyCode)
	}
	if stored.ExchangeRate != nil {
		t.Fatalf("expected nil exchange rate, got %v", *stored.ExchangeRate)
	}
	if stored.EstimatedGDP != nil {
		t.Fatalf("expected nil estimated GDP, got %v", *stored.EstimatedGDP)
	}
}

func TestRefreshCountriesFailureAborts(t *testing.T) {
	fc := clock.NewFakeClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	seedCountries := &countrySourceStub{raws: []domain.RawCountry{
		testRawCountry("Testland", "ABC", 1_000_000),
	}}
	rates := &rateSourceStub{snapshot: domain.NewRateSnapshot("USD", map[string]float64{"ABC": 2.0})}

	svc, db := setupRefreshService(t, seedCountries, rates, fixedMultiplier{value: 1500}, fc)
	ctx := context.Background()

	if _, err := svc.Refresh(ctx, domain.TriggerAPI); err != nil {
		t.Fatalf("seed refresh: %v", err)
	}

	var before countrydomain.Country
	if err := db.Where("name = ?", "Testland").First(&before).Error; err != nil {
		t.Fatalf("load country: %v", err)
	}
	var statusBefore statusdomain.SystemStatus
	if err := db.Where("id = ?", statusdomain.StatusRowID).First(&statusBefore).Error; err != nil {
		t.Fatalf("load status: %v", err)
	}

	fc.Advance(time.Hour)
	seedCountries.err = &domain.SourceError{Source: domain.SourceCountries, StatusCode: 500, Err: errors.New("upstream down")}

	_, err := svc.Refresh(ctx, domain.TriggerAPI)
	if err == nil {
		t.Fatal("expected an error when the country source fails")
	}
	srcErr := domain.AsSourceError(err)
	if srcErr == nil || srcErr.Source != domain.SourceCountries {
		t.Fatalf("expected a countries SourceError, got %v", err)
	}

	var count int64
	if err := db.Model(&countrydomain.Country{}).Count(&count).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 country row after abort, got %d", count)
	}

	var after countrydomain.Country
	if err := db.Where("name = ?", "Testland").First(&after).Error; err != nil {
		t.Fatalf("load country: %v", err)
	}
	if !after.LastRefreshedAt.Equal(before.LastRefreshedAt) {
		t.Fatalf("last_refreshed_at changed across an aborted cycle: %v vs %v", before.LastRefreshedAt, after.LastRefreshedAt)
	}
	var statusAfter statusdomain.SystemStatus
	if err := db.Where("id = ?", statusdomain.StatusRowID).First(&statusAfter).Error; err != nil {
		t.Fatalf("load status: %v", err)
	}
	if statusAfter.TotalCountries != statusBefore.TotalCountries {
		t.Fatalf("status total changed across an aborted cycle: %d vs %d", statusBefore.TotalCountries, statusAfter.TotalCountries)
	}

	var runs []domain.RefreshRun
	if err := db.Order("started_at ASC").Find(&runs).Error; err != nil {
		t.Fatalf("load runs: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("expected 2 runs, got %d", len(runs))
	}
	if runs[1].Success || runs[1].ErrorCount != 1 {
		t.Fatalf("unexpected aborted run: %+v", runs[1])
	}
}

func TestRefreshEmptyCountriesAborts(t *testing.T) {
	fc := clock.NewFakeClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	countries := &countrySourceStub{raws: nil}
	rates := &rateSourceStub{snapshot: domain.NewRateSnapshot("USD", nil)}

	svc, db := setupRefreshService(t, countries, rates, fixedMultiplier{value: 1500}, fc)

	_, err := svc.Refresh(context.Background(), domain.TriggerAPI)
	srcErr := domain.AsSourceError(err)
	if srcErr == nil || srcErr.Source != domain.SourceCountries {
		t.Fatalf("expected a countries SourceError for an empty payload, got %v", err)
	}
	if !errors.Is(err, domain.ErrEmptyResponse) {
		t.Fatalf("expected ErrEmptyResponse, got %v", err)
	}

	var count int64
	if err := db.Model(&countrydomain.Country{}).Count(&count).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected no country rows, got %d", count)
	}
}

func TestRefreshPerRecordFailureIsolation(t *testing.T) {
	fc := clock.NewFakeClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	countries := &countrySourceStub{raws: []domain.RawCountry{
		testRawCountry("Alpha", "AAA", 100),
		{Name: "", Population: 50},
		testRawCountry("Beta", "BBB", 200),
	}}
	rates := &rateSourceStub{snapshot: domain.NewRateSnapshot("USD", map[string]float64{"AAA": 1, "BBB": 2})}

	svc, db := setupRefreshService(t, countries, rates, fixedMultiplier{value: 1200}, fc)

	result, err := svc.Refresh(context.Background(), domain.TriggerAPI)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if !result.Success {
		t.Fatalf("expected success with partial failures, got %+v", result)
	}
	if result.Processed != 2 || len(result.Errors) != 1 {
		t.Fatalf("expected 2 processed and 1 error, got %+v", result)
	}

	var count int64
	if err := db.Model(&countrydomain.Country{}).Count(&count).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected 2 rows, got %d", count)
	}
}

func TestRefreshCaseInsensitiveIdentity(t *testing.T) {
	fc := clock.NewFakeClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	countries := &countrySourceStub{raws: []domain.RawCountry{
		testRawCountry("Japan", "JPY", 125_000_000),
	}}
	rates := &rateSourceStub{snapshot: domain.NewRateSnapshot("USD", map[string]float64{"JPY": 150})}

	svc, db := setupRefreshService(t, countries, rates, fixedMultiplier{value: 1500}, fc)
	ctx := context.Background()

	if _, err := svc.Refresh(ctx, domain.TriggerAPI); err != nil {
		t.Fatalf("first refresh: %v", err)
	}

	var first countrydomain.Country
	if err := db.Where("LOWER(name) = ?", "japan").First(&first).Error; err != nil {
		t.Fatalf("load country: %v", err)
	}

	fc.Advance(30 * time.Minute)
	countries.raws = []domain.RawCountry{testRawCountry("JAPAN", "JPY", 126_000_000)}

	if _, err := svc.Refresh(ctx, domain.TriggerAPI); err != nil {
		t.Fatalf("second refresh: %v", err)
	}

	var count int64
	if err := db.Model(&countrydomain.Country{}).Count(&count).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 row after case-variant refresh, got %d", count)
	}

	var second countrydomain.Country
	if err := db.Where("LOWER(name) = ?", "japan").First(&second).Error; err != nil {
		t.Fatalf("load country: %v", err)
	}
	if second.ID != first.ID {
		t.Fatalf("identity changed across upsert: %v vs %v", first.ID, second.ID)
	}
	if !second.CreatedAt.Equal(first.CreatedAt) {
		t.Fatalf("created_at changed across upsert: %v vs %v", first.CreatedAt, second.CreatedAt)
	}
	if second.Population != 126_000_000 {
		t.Fatalf("expected refreshed population, got %d", second.Population)
	}
	if !second.LastRefreshedAt.Equal(fc.Now()) {
		t.Fatalf("expected last_refreshed_at %v, got %v", fc.Now(), second.LastRefreshedAt)
	}
}

func TestRefreshStatusConvergesAfterDrift(t *testing.T) {
	fc := clock.NewFakeClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	countries := &countrySourceStub{raws: []domain.RawCountry{
		testRawCountry("Alpha", "AAA", 100),
		testRawCountry("Beta", "BBB", 200),
	}}
	rates := &rateSourceStub{snapshot: domain.NewRateSnapshot("USD", map[string]float64{"AAA": 1, "BBB": 2})}

	svc, db := setupRefreshService(t, countries, rates, fixedMultiplier{value: 1500}, fc)
	ctx := context.Background()

	if _, err := svc.Refresh(ctx, domain.TriggerAPI); err != nil {
		t.Fatalf("refresh: %v", err)
	}

	// Force drift behind the service's back.
	err := db.Model(&statusdomain.SystemStatus{}).
		Where("id = ?", statusdomain.StatusRowID).
		Update("total_countries", 99).Error
	if err != nil {
		t.Fatalf("force drift: %v", err)
	}

	fc.Advance(time.Hour)
	if _, err := svc.Refresh(ctx, domain.TriggerAPI); err != nil {
		t.Fatalf("second refresh: %v", err)
	}

	var status statusdomain.SystemStatus
	if err := db.Where("id = ?", statusdomain.StatusRowID).First(&status).Error; err != nil {
		t.Fatalf("load status: %v", err)
	}
	if status.TotalCountries != 2 {
		t.Fatalf("expected status reconciled to 2, got %d", status.TotalCountries)
	}
}

func TestListRuns(t *testing.T) {
	fc := clock.NewFakeClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	countries := &countrySourceStub{raws: []domain.RawCountry{
		testRawCountry("Testland", "ABC", 1_000),
	}}
	rates := &rateSourceStub{snapshot: domain.NewRateSnapshot("USD", map[string]float64{"ABC": 1})}

	svc, _ := setupRefreshService(t, countries, rates, fixedMultiplier{value: 1500}, fc)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := svc.Refresh(ctx, domain.TriggerScheduler); err != nil {
			t.Fatalf("refresh %d: %v", i, err)
		}
		fc.Advance(time.Minute)
	}

	runs, err := svc.ListRuns(ctx, domain.ListRunsRequest{Limit: 2})
	if err != nil {
		t.Fatalf("list runs: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("expected 2 runs, got %d", len(runs))
	}
	if runs[0].StartedAt.Before(runs[1].StartedAt) {
		t.Fatal("expected runs ordered newest first")
	}
}
