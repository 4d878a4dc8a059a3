package status

import (
	"github.com/nomadlabs/atlas/internal/status/service"
	"go.uber.org/fx"
)

var Module = fx.Module("status.service",
	fx.Provide(service.New),
)
