package config

import "go.uber.org/fx"

// Module wires application and refresh configuration.
var Module = fx.Module("config",
	fx.Provide(
		Load,
		NewRefreshConfigHolder,
	),
)
