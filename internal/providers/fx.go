package providers

import (
	"github.com/nomadlabs/atlas/internal/providers/countries"
	"github.com/nomadlabs/atlas/internal/providers/rates"
	"go.uber.org/fx"
)

var Module = fx.Module("providers",
	countries.Module,
	rates.Module,
)
