package country

import (
	"github.com/nomadlabs/atlas/internal/country/repository"
	"github.com/nomadlabs/atlas/internal/country/service"
	"go.uber.org/fx"
)

var Module = fx.Module("country.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
