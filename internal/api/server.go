// Package api exposes instruments, price bars and simulation runs over HTTP.
package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"portfolio-sim/internal/domain"
	"portfolio-sim/internal/ingestion"
	"portfolio-sim/internal/logging"
	"portfolio-sim/internal/metrics"
	"portfolio-sim/internal/observability"
	"portfolio-sim/internal/simulation"
	"portfolio-sim/internal/storage"
)

// StrategyResolver maps a preset name to its base configuration.
type StrategyResolver func(name string) (domain.SimulationConfig, bool)

// Server holds the dependencies of the HTTP handlers.
type Server struct {
	runner      *simulation.Runner
	instruments storage.InstrumentStore
	bars        storage.PriceBarStore
	runs        storage.RunStore
	remover     *ingestion.Remover
	strategies  StrategyResolver
	names       []string
	currency    string
	metrics     *observability.Metrics
	logger      *zap.Logger
	upgrader    websocket.Upgrader
}

// Options contains configuration for creating a Server.
// Runs is optional; without it simulations cannot be persisted or fetched by ID.
type Options struct {
	Runner        *simulation.Runner
	Instruments   storage.InstrumentStore
	Bars          storage.PriceBarStore
	Runs          storage.RunStore
	Remover       *ingestion.Remover // default: built from the stores above
	Strategies    StrategyResolver // default: built-in presets
	StrategyNames []string         // names listed by GET /api/v1/strategies, default: built-in presets
	Currency      string           // default: metrics.DefaultCurrency
	Metrics       *observability.Metrics
	Logger        *zap.Logger
}

// NewServer creates the API server.
func NewServer(opts Options) *Server {
	s := &Server{
		runner:      opts.Runner,
		instruments: opts.Instruments,
		bars:        opts.Bars,
		runs:        opts.Runs,
		remover:     opts.Remover,
		strategies:  opts.Strategies,
		names:       opts.StrategyNames,
		currency:    opts.Currency,
		metrics:     opts.Metrics,
		logger:      logging.OrNop(opts.Logger),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
	if s.strategies == nil {
		s.strategies = domain.PresetByName
	}
	if s.names == nil {
		s.names = domain.PresetNames()
	}
	if s.currency == "" {
		s.currency = metrics.DefaultCurrency
	}
	if s.metrics == nil {
		s.metrics = observability.DefaultMetrics
	}
	if s.remover == nil {
		s.remover = ingestion.NewRemover(ingestion.RemoverOptions{
			Instruments: s.instruments,
			Bars:        s.bars,
			Runs:        s.runs,
			Metrics:     s.metrics,
			Logger:      s.logger,
		})
	}
	return s
}

// Router configures the gin engine and its routes.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestID(), s.observe())

	r.GET("/metrics", gin.WrapH(observability.Handler()))
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := r.Group("/api/v1")
	{
		v1.GET("/instruments", s.listInstruments)
		v1.DELETE("/instruments/:symbol", s.deleteInstrument)
		v1.GET("/instruments/:symbol/bars", s.getBars)
		v1.GET("/instruments/:symbol/simulations", s.listSimulations)
		v1.GET("/strategies", s.listStrategies)
		v1.POST("/simulations", s.createSimulation)
		v1.GET("/simulations/:id", s.getSimulation)
	}

	r.GET("/ws/simulations/:id", s.streamSimulation)

	return r
}
