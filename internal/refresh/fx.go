package refresh

import (
	"github.com/nomadlabs/atlas/internal/refresh/repository"
	"github.com/nomadlabs/atlas/internal/refresh/service"
	"go.uber.org/fx"
)

var Module = fx.Module("refresh.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewMultiplierSource),
	fx.Provide(service.New),
)
