package api

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"portfolio-sim/internal/config"
	"portfolio-sim/internal/domain"
	"portfolio-sim/internal/metrics"
	"portfolio-sim/internal/simulation"
	"portfolio-sim/internal/storage"
)

// SimulationRequest is the body of POST /api/v1/simulations.
// Strategy selects the base preset; Config overrides individual fields of it.
type SimulationRequest struct {
	Symbol    string                `json:"symbol" binding:"required"`
	Strategy  string                `json:"strategy"`
	StartDate string                `json:"start_date"`
	EndDate   string                `json:"end_date"`
	Config    config.StrategyConfig `json:"config"`
	Persist   bool                  `json:"persist"`
}

// SimulationResponse carries a run and its formatted summary.
type SimulationResponse struct {
	Run     *domain.SimulationRun    `json:"run"`
	Summary metrics.FormattedSummary `json:"summary"`
}

func (s *Server) listInstruments(c *gin.Context) {
	instruments, err := s.instruments.List(c.Request.Context())
	if err != nil {
		s.internalError(c, "failed to list instruments", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"instruments": instruments})
}

// deleteInstrument removes an instrument with its bars and stored runs.
func (s *Server) deleteInstrument(c *gin.Context) {
	symbol := strings.ToUpper(c.Param("symbol"))

	res, err := s.remover.Remove(c.Request.Context(), symbol)
	if errors.Is(err, storage.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown symbol " + symbol})
		return
	}
	if err != nil {
		s.internalError(c, "failed to remove instrument", err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (s *Server) listStrategies(c *gin.Context) {
	presets := make(map[string]domain.SimulationConfig, len(s.names))
	for _, n := range s.names {
		if cfg, ok := s.strategies(n); ok {
			presets[n] = cfg
		}
	}
	c.JSON(http.StatusOK, gin.H{"strategies": presets})
}

func (s *Server) getBars(c *gin.Context) {
	symbol := strings.ToUpper(c.Param("symbol"))

	start, err := parseOptionalDate(c.Query("start"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	end, err := parseOptionalDate(c.Query("end"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	inst, err := s.instruments.GetBySymbol(c.Request.Context(), symbol)
	if errors.Is(err, storage.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown symbol " + symbol})
		return
	}
	if err != nil {
		s.internalError(c, "failed to resolve instrument", err)
		return
	}

	bars, err := s.bars.GetByDateRange(c.Request.Context(), inst.ID, start, end)
	if err != nil {
		s.internalError(c, "failed to load bars", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"symbol": inst.Symbol, "bars": bars})
}

// RunListing describes a stored run without its history and ledger.
type RunListing struct {
	RunID     string                   `json:"run_id"`
	Config    domain.SimulationConfig  `json:"config"`
	CreatedAt time.Time                `json:"created_at"`
	Summary   metrics.FormattedSummary `json:"summary"`
}

func (s *Server) listSimulations(c *gin.Context) {
	if s.runs == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "run storage is not configured"})
		return
	}
	symbol := strings.ToUpper(c.Param("symbol"))

	inst, err := s.instruments.GetBySymbol(c.Request.Context(), symbol)
	if errors.Is(err, storage.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown symbol " + symbol})
		return
	}
	if err != nil {
		s.internalError(c, "failed to resolve instrument", err)
		return
	}

	runs, err := s.runs.ListByInstrument(c.Request.Context(), inst.ID)
	if err != nil {
		s.internalError(c, "failed to list runs", err)
		return
	}

	listing := make([]RunListing, 0, len(runs))
	for _, run := range runs {
		listing = append(listing, RunListing{
			RunID:     run.RunID,
			Config:    run.Config,
			CreatedAt: run.CreatedAt,
			Summary:   s.response(run).Summary,
		})
	}
	c.JSON(http.StatusOK, gin.H{"symbol": inst.Symbol, "simulations": listing})
}

func (s *Server) createSimulation(c *gin.Context) {
	var req SimulationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	base, ok := s.strategies(req.Strategy)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown strategy " + req.Strategy})
		return
	}
	cfg := req.Config.Apply(base)

	var err error
	if cfg.StartDate, err = parseOptionalDate(req.StartDate); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if cfg.EndDate, err = parseOptionalDate(req.EndDate); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	run, err := s.runner.Run(c.Request.Context(), simulation.RunRequest{
		Symbol:  req.Symbol,
		Config:  cfg,
		Persist: req.Persist && s.runs != nil,
	})
	if err != nil {
		status := statusFor(err)
		if status == http.StatusInternalServerError {
			s.internalError(c, "simulation failed", err)
			return
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, s.response(run))
}

func (s *Server) getSimulation(c *gin.Context) {
	run, ok := s.loadRun(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, s.response(run))
}

// loadRun fetches the run named by the :id parameter and writes the error response on failure.
func (s *Server) loadRun(c *gin.Context) (*domain.SimulationRun, bool) {
	if s.runs == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "run storage is not configured"})
		return nil, false
	}

	id := c.Param("id")
	run, err := s.runs.GetByID(c.Request.Context(), id)
	if errors.Is(err, storage.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown run " + id})
		return nil, false
	}
	if err != nil {
		s.internalError(c, "failed to load run", err)
		return nil, false
	}
	return run, true
}

func (s *Server) response(run *domain.SimulationRun) SimulationResponse {
	summary := metrics.Summarize(&run.Result, run.Config)
	return SimulationResponse{Run: run, Summary: summary.Format(s.currency)}
}

func (s *Server) internalError(c *gin.Context, msg string, err error) {
	s.logger.Error(msg, zap.Error(err), zap.String(requestIDKey, c.GetString(requestIDKey)))
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
}

// statusFor maps runner errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, simulation.ErrInvalidConfig):
		return http.StatusBadRequest
	case errors.Is(err, storage.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, simulation.ErrNoData), errors.Is(err, simulation.ErrInvalidSeries):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func parseOptionalDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return domain.ParseDate(s)
}
