package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nomadlabs/atlas/internal/config"
	countrydomain "github.com/nomadlabs/atlas/internal/country/domain"
	"github.com/nomadlabs/atlas/internal/observability"
	obsmiddleware "github.com/nomadlabs/atlas/internal/observability/logger"
	obsmetrics "github.com/nomadlabs/atlas/internal/observability/metrics"
	obstracing "github.com/nomadlabs/atlas/internal/observability/tracing"
	refreshdomain "github.com/nomadlabs/atlas/internal/refresh/domain"
	statusdomain "github.com/nomadlabs/atlas/internal/status/domain"
	summarydomain "github.com/nomadlabs/atlas/internal/summary/domain"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
)

var Module = fx.Module("http.server",
	fx.Provide(NewEngine),
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(obsmetrics.GinMiddleware(httpMetrics))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func run(lc fx.Lifecycle, r *gin.Engine, cfg config.Config) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					panic(err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine     *gin.Engine
	cfg        config.Config
	countrySvc countrydomain.Service
	refreshSvc refreshdomain.Service
	statusSvc  statusdomain.Service
	summarySvc summarydomain.Generator
}

type ServerParams struct {
	fx.In

	Gin        *gin.Engine
	Cfg        config.Config
	CountrySvc countrydomain.Service
	RefreshSvc refreshdomain.Service
	StatusSvc  statusdomain.Service
	SummarySvc summarydomain.Generator
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:     p.Gin,
		cfg:        p.Cfg,
		countrySvc: p.CountrySvc,
		refreshSvc: p.RefreshSvc,
		statusSvc:  p.StatusSvc,
		summarySvc: p.SummarySvc,
	}

	svc.registerAPIRoutes()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api")

	countries := api.Group("/countries")
	{
		countries.POST("/refresh", s.RefreshCountries)
		countries.GET("", s.ListCountries)
		countries.GET("/:name", s.GetCountry)
		countries.DELETE("/:name", s.DeleteCountry)
	}

	api.GET("/status", s.GetStatus)
	api.GET("/refresh/runs", s.ListRefreshRuns)
	api.GET("/summary", s.GetSummary)
}
