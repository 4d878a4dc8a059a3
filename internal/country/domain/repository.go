package domain

import (
	"context"
	"time"

	"github.com/nomadlabs/atlas/pkg/db/pagination"
	"gorm.io/gorm"
)

type Repository interface {
	// Upsert inserts the record, or overwrites the row whose name matches
	// case-insensitively. The lookup and write run in one transaction.
	Upsert(ctx context.Context, db *gorm.DB, country *Country) (*Country, error)
	FindByName(ctx context.Context, db *gorm.DB, name string) (*Country, error)
	List(ctx context.Context, db *gorm.DB, filter ListFilter, page pagination.Pagination) ([]*Country, error)
	// DeleteByName reports whether a row was actually removed.
	DeleteByName(ctx context.Context, db *gorm.DB, name string) (bool, error)
	Count(ctx context.Context, db *gorm.DB) (int64, error)
	MaxLastRefreshedAt(ctx context.Context, db *gorm.DB) (*time.Time, error)
	TopByEstimatedGDP(ctx context.Context, db *gorm.DB, limit int) ([]*Country, error)
}
