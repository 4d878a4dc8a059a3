package migration

import (
	"github.com/nomadlabs/atlas/internal/config"
	countrydomain "github.com/nomadlabs/atlas/internal/country/domain"
	refreshdomain "github.com/nomadlabs/atlas/internal/refresh/domain"
	"github.com/nomadlabs/atlas/internal/seed"
	statusdomain "github.com/nomadlabs/atlas/internal/status/domain"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config) error {
		if cfg.DBType == "postgres" {
			sqlDB, err := conn.DB()
			if err != nil {
				return err
			}
			if err := RunMigrations(sqlDB); err != nil {
				return err
			}
		} else {
			// sqlite and mysql deployments rely on gorm's schema sync.
			err := conn.AutoMigrate(
				&countrydomain.Country{},
				&statusdomain.SystemStatus{},
				&refreshdomain.RefreshRun{},
			)
			if err != nil {
				return err
			}
		}

		return seed.EnsureStatusRow(conn)
	}),
)
