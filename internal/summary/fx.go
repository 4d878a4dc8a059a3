package summary

import (
	"github.com/nomadlabs/atlas/internal/summary/service"
	"go.uber.org/fx"
)

var Module = fx.Module("summary",
	fx.Provide(
		service.New,
	),
)
