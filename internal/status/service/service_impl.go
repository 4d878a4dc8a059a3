package service

import (
	"context"

	"github.com/nomadlabs/atlas/internal/clock"
	countrydomain "github.com/nomadlabs/atlas/internal/country/domain"
	"github.com/nomadlabs/atlas/internal/status/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Params struct {
	fx.In

	DB          *gorm.DB
	Log         *zap.Logger
	Clock       clock.Clock
	CountryRepo countrydomain.Repository
}

type Service struct {
	db          *gorm.DB
	log         *zap.Logger
	clock       clock.Clock
	countryRepo countrydomain.Repository
}

func New(p Params) domain.Service {
	return &Service{
		db:          p.DB,
		log:         p.Log.Named("status.service"),
		clock:       p.Clock,
		countryRepo: p.CountryRepo,
	}
}

func (s *Service) Get(ctx context.Context) (domain.SystemStatus, error) {
	var status domain.SystemStatus
	err := s.db.WithContext(ctx).
		Where("id = ?", domain.StatusRowID).
		First(&status).Error
	if err != nil {
		return domain.SystemStatus{}, err
	}
	return status, nil
}

func (s *Service) Recompute(ctx context.Context) (domain.SystemStatus, error) {
	total, err := s.countryRepo.Count(ctx, s.db)
	if err != nil {
		return domain.SystemStatus{}, err
	}
	lastRefreshed, err := s.countryRepo.MaxLastRefreshedAt(ctx, s.db)
	if err != nil {
		return domain.SystemStatus{}, err
	}

	status := domain.SystemStatus{
		ID:              domain.StatusRowID,
		TotalCountries:  total,
		LastRefreshedAt: lastRefreshed,
		UpdatedAt:       s.clock.Now(),
	}
	err = s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			UpdateAll: true,
		}).
		Create(&status).Error
	if err != nil {
		return domain.SystemStatus{}, err
	}

	s.log.Debug("status recomputed",
		zap.Int64("total_countries", total),
	)
	return status, nil
}

func (s *Service) AdjustTotal(ctx context.Context, delta int64) error {
	return s.db.WithContext(ctx).Model(&domain.SystemStatus{}).
		Where("id = ?", domain.StatusRowID).
		Updates(map[string]any{
			"total_countries": gorm.Expr("total_countries + ?", delta),
			"updated_at":      s.clock.Now(),
		}).Error
}
