package rates

import (
	"github.com/nomadlabs/atlas/internal/config"
	"github.com/nomadlabs/atlas/internal/refresh/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("providers.rates",
	fx.Provide(NewSource),
)

func NewSource(holder *config.RefreshConfigHolder, log *zap.Logger) domain.RateSource {
	return New(holder, log)
}
