package repository

import (
	"context"

	"github.com/nomadlabs/atlas/internal/refresh/domain"
	"gorm.io/gorm"
)

type runRepo struct{}

func Provide() domain.RunRepository {
	return &runRepo{}
}

func (r *runRepo) Insert(ctx context.Context, db *gorm.DB, run *domain.RefreshRun) error {
	return db.WithContext(ctx).Create(run).Error
}

func (r *runRepo) List(ctx context.Context, db *gorm.DB, limit int) ([]domain.RefreshRun, error) {
	if limit <= 0 {
		limit = 20
	}
	var runs []domain.RefreshRun
	err := db.WithContext(ctx).
		Order("started_at DESC").
		Limit(limit).
		Find(&runs).Error
	if err != nil {
		return nil, err
	}
	return runs, nil
}
