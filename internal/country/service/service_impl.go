package service

import (
	"context"
	"strings"

	"github.com/nomadlabs/atlas/internal/country/domain"
	statusdomain "github.com/nomadlabs/atlas/internal/status/domain"
	"github.com/nomadlabs/atlas/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB        *gorm.DB
	Log       *zap.Logger
	Repo      domain.Repository
	StatusSvc statusdomain.Service
}

type Service struct {
	db        *gorm.DB
	log       *zap.Logger
	repo      domain.Repository
	statusSvc statusdomain.Service
}

func New(p Params) domain.Service {
	return &Service{
		db:        p.DB,
		log:       p.Log.Named("country.service"),
		repo:      p.Repo,
		statusSvc: p.StatusSvc,
	}
}

func (s *Service) List(ctx context.Context, req domain.ListCountriesRequest) (domain.ListCountriesResponse, error) {
	sort := strings.TrimSpace(req.Sort)
	switch sort {
	case "", domain.SortEstimatedGDPDesc, domain.SortNameAsc:
	default:
		return domain.ListCountriesResponse{}, domain.ErrInvalidSort
	}

	pageSize := req.PageSize
	if pageSize <= 0 {
		pageSize = 50
	}

	offset := 0
	if req.PageToken != "" {
		cursor, err := pagination.DecodeCursor(req.PageToken)
		if err != nil {
			return domain.ListCountriesResponse{}, domain.ErrInvalidPageToken
		}
		offset = cursor.Offset
	}

	filter := domain.ListFilter{
		Region:       strings.TrimSpace(req.Region),
		CurrencyCode: strings.TrimSpace(req.CurrencyCode),
		Sort:         sort,
	}

	items, err := s.repo.List(ctx, s.db, filter, pagination.Pagination{
		PageToken: req.PageToken,
		PageSize:  pageSize,
	})
	if err != nil {
		return domain.ListCountriesResponse{}, err
	}

	pageInfo, items := pagination.BuildPageInfo(items, offset, pageSize)

	countries := make([]domain.Country, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		countries = append(countries, *item)
	}

	return domain.ListCountriesResponse{
		PageInfo:  *pageInfo,
		Countries: countries,
	}, nil
}

func (s *Service) GetByName(ctx context.Context, req domain.GetCountryRequest) (domain.Country, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return domain.Country{}, domain.ErrInvalidName
	}

	country, err := s.repo.FindByName(ctx, s.db, name)
	if err != nil {
		return domain.Country{}, err
	}
	if country == nil {
		return domain.Country{}, domain.ErrNotFound
	}
	return *country, nil
}

func (s *Service) DeleteByName(ctx context.Context, req domain.DeleteCountryRequest) error {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return domain.ErrInvalidName
	}

	removed, err := s.repo.DeleteByName(ctx, s.db, name)
	if err != nil {
		return err
	}
	if !removed {
		return domain.ErrNotFound
	}

	if err := s.statusSvc.AdjustTotal(ctx, -1); err != nil {
		// The counter drifts until the next full refresh reconciles it.
		s.log.Warn("status decrement failed", zap.String("name", name), zap.Error(err))
	}
	return nil
}
