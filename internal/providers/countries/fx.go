package countries

import (
	"github.com/nomadlabs/atlas/internal/config"
	"github.com/nomadlabs/atlas/internal/refresh/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("providers.countries",
	fx.Provide(NewSource),
)

func NewSource(holder *config.RefreshConfigHolder, log *zap.Logger) domain.CountrySource {
	return New(holder, log)
}
