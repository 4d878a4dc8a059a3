package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/nomadlabs/atlas/internal/clock"
	"github.com/nomadlabs/atlas/internal/config"
	"github.com/nomadlabs/atlas/internal/country"
	"github.com/nomadlabs/atlas/internal/migration"
	"github.com/nomadlabs/atlas/internal/observability"
	"github.com/nomadlabs/atlas/internal/providers"
	"github.com/nomadlabs/atlas/internal/refresh"
	"github.com/nomadlabs/atlas/internal/scheduler"
	"github.com/nomadlabs/atlas/internal/server"
	"github.com/nomadlabs/atlas/internal/status"
	"github.com/nomadlabs/atlas/internal/summary"
	"github.com/nomadlabs/atlas/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		// Core infrastructure
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		migration.Module,

		// Functional domains
		providers.Module,
		country.Module,
		status.Module,
		refresh.Module,
		summary.Module,
		scheduler.Module,

		server.Module,
	)
	app.Run()
}

func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}
