package domain

import (
	"context"

	"gorm.io/gorm"
)

type RunRepository interface {
	Insert(ctx context.Context, db *gorm.DB, run *RefreshRun) error
	List(ctx context.Context, db *gorm.DB, limit int) ([]RefreshRun, error)
}
