package domain

import (
	"context"
	"time"
)

// StatusRowID is the fixed identity of the singleton status row.
const StatusRowID int16 = 1

// SystemStatus is the singleton aggregate over the country snapshot.
type SystemStatus struct {
	ID              int16      `gorm:"primaryKey" json:"-"`
	TotalCountries  int64      `gorm:"not null;default:0" json:"total_countries"`
	LastRefreshedAt *time.Time `json:"last_refreshed_at"`
	UpdatedAt       time.Time  `gorm:"not null;default:CURRENT_TIMESTAMP" json:"-"`
}

func (SystemStatus) TableName() string {
	return "system_status"
}

type Service interface {
	// Get returns the current singleton row.
	Get(ctx context.Context) (SystemStatus, error)
	// Recompute rebuilds the aggregate from storage truth: row count plus the
	// maximum last_refreshed_at across all rows.
	Recompute(ctx context.Context) (SystemStatus, error)
	// AdjustTotal applies an incremental delta for single-record mutation
	// paths. Drift is corrected by the next Recompute.
	AdjustTotal(ctx context.Context, delta int64) error
}
