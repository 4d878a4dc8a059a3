package seed

import (
	"context"
	"errors"
	"time"

	statusdomain "github.com/nomadlabs/atlas/internal/status/domain"
	"gorm.io/gorm"
)

// EnsureStatusRow seeds the singleton system status row so reads never
// have to special-case a missing record.
func EnsureStatusRow(db *gorm.DB) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}

	ctx := context.Background()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var status statusdomain.SystemStatus
		err := tx.WithContext(ctx).Where("id = ?", statusdomain.StatusRowID).First(&status).Error
		if err == nil {
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		status = statusdomain.SystemStatus{
			ID:             statusdomain.StatusRowID,
			TotalCountries: 0,
			UpdatedAt:      time.Now().UTC(),
		}
		return tx.WithContext(ctx).Create(&status).Error
	})
}
