package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/nomadlabs/atlas/internal/country/domain"
	"github.com/nomadlabs/atlas/internal/country/repository"
	statusdomain "github.com/nomadlabs/atlas/internal/status/domain"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type statusStub struct {
	adjustCalls int
	lastDelta   int64
	adjustErr   error
}

func (s *statusStub) Get(ctx context.Context) (statusdomain.SystemStatus, error) {
	return statusdomain.SystemStatus{}, nil
}

func (s *statusStub) Recompute(ctx context.Context) (statusdomain.SystemStatus, error) {
	return statusdomain.SystemStatus{}, nil
}

func (s *statusStub) AdjustTotal(ctx context.Context, delta int64) error {
	s.adjustCalls++
	s.lastDelta = delta
	return s.adjustErr
}

func setupCountryService(t *testing.T) (domain.Service, *gorm.DB, *statusStub) {
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

	if err := db.AutoMigrate(&domain.Country{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	status := &statusStub{}
	svc := New(Params{
		DB:        db,
		Log:       zap.NewNop(),
		Repo:      repository.Provide(),
		StatusSvc: status,
	})
	return svc, db, status
}

func seedRows(t *testing.T, db *gorm.DB, names ...string) {
	t.Helper()

	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("snowflake node: %v", err)
	}
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	for i, name := range names {
		gdp := float64((i + 1) * 100)
		country := domain.Country{
			ID:              node.Generate(),
			Name:            name,
			Population:      int64(i + 1),
			EstimatedGDP:    &gdp,
			LastRefreshedAt: now,
			CreatedAt:       now,
			UpdatedAt:       now,
		}
		if err := db.Create(&country).Error; err != nil {
			t.Fatalf("seed %s: %v", name, err)
		}
	}
}

func TestListRejectsUnknownSort(t *testing.T) {
	svc, _, _ := setupCountryService(t)

	_, err := svc.List(context.Background(), domain.ListCountriesRequest{Sort: "population_desc"})
	if !errors.Is(err, domain.ErrInvalidSort) {
		t.Fatalf("expected ErrInvalidSort, got %v", err)
	}
}

func TestListRejectsBadPageToken(t *testing.T) {
	svc, _, _ := setupCountryService(t)

	_, err := svc.List(context.Background(), domain.ListCountriesRequest{PageToken: "not-base64!!"})
	if !errors.Is(err, domain.ErrInvalidPageToken) {
		t.Fatalf("expected ErrInvalidPageToken, got %v", err)
	}
}

func TestListPaginatesWithToken(t *testing.T) {
	svc, db, _ := setupCountryService(t)
	seedRows(t, db, "Alpha", "Beta", "Gamma")
	ctx := context.Background()

	first, err := svc.List(ctx, domain.ListCountriesRequest{Sort: domain.SortNameAsc, PageSize: 2})
	if err != nil {
		t.Fatalf("first page: %v", err)
	}
	if len(first.Countries) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(first.Countries))
	}
	if !first.HasMore || first.NextPageToken == "" {
		t.Fatalf("expected another page, got %+v", first.PageInfo)
	}

	second, err := svc.List(ctx, domain.ListCountriesRequest{
		Sort:      domain.SortNameAsc,
		PageSize:  2,
		PageToken: first.NextPageToken,
	})
	if err != nil {
		t.Fatalf("second page: %v", err)
	}
	if len(second.Countries) != 1 {
		t.Fatalf("expected 1 row, got %d", len(second.Countries))
	}
	if second.HasMore {
		t.Fatal("expected no further pages")
	}
	if second.Countries[0].Name != "Gamma" {
		t.Fatalf("expected Gamma, got %s", second.Countries[0].Name)
	}
}

func TestGetByName(t *testing.T) {
	svc, db, _ := setupCountryService(t)
	seedRows(t, db, "Ghana")
	ctx := context.Background()

	country, err := svc.GetByName(ctx, domain.GetCountryRequest{Name: "gHaNa"})
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if country.Name != "Ghana" {
		t.Fatalf("expected Ghana, got %s", country.Name)
	}

	_, err = svc.GetByName(ctx, domain.GetCountryRequest{Name: "Atlantis"})
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	_, err = svc.GetByName(ctx, domain.GetCountryRequest{Name: "   "})
	if !errors.Is(err, domain.ErrInvalidName) {
		t.Fatalf("expected ErrInvalidName, got %v", err)
	}
}

func TestDeleteByNameAdjustsStatus(t *testing.T) {
	svc, db, status := setupCountryService(t)
	seedRows(t, db, "Ghana")
	ctx := context.Background()

	if err := svc.DeleteByName(ctx, domain.DeleteCountryRequest{Name: "GHANA"}); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if status.adjustCalls != 1 || status.lastDelta != -1 {
		t.Fatalf("expected one decrement, got calls=%d delta=%d", status.adjustCalls, status.lastDelta)
	}

	err := svc.DeleteByName(ctx, domain.DeleteCountryRequest{Name: "Ghana"})
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if status.adjustCalls != 1 {
		t.Fatalf("status must not be adjusted for a missing row, got %d calls", status.adjustCalls)
	}
}

func TestDeleteByNameSurvivesStatusFailure(t *testing.T) {
	svc, db, status := setupCountryService(t)
	seedRows(t, db, "Ghana")
	status.adjustErr = errors.New("status table locked")

	if err := svc.DeleteByName(context.Background(), domain.DeleteCountryRequest{Name: "Ghana"}); err != nil {
		t.Fatalf("delete must succeed despite a status failure: %v", err)
	}

	var count int64
	if err := db.Model(&domain.Country{}).Count(&count).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected the row removed, got %d rows", count)
	}
}
