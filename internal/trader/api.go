package trader

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// APIServer provides an HTTP interface for the trading engine.
type APIServer struct {
	server *http.Server
	engine *Engine
	logger *zap.Logger
}

// StatusResponse is the body of /status.
type StatusResponse struct {
	UUID           string `json:"uuid"`
	OutcomeSource  string `json:"outcome_source"`
	Running        bool   `json:"running"`
	DryRun         bool   `json:"dry_run"`
	StartTime      string `json:"start_time,omitempty"`
	Uptime         string `json:"uptime,omitempty"`
	Capital        string `json:"capital"`
	EarnedToday    string `json:"earned_today"`
	DailyGoal      string `json:"daily_goal"`
	TradesExecuted int    `json:"trades_executed"`
	MaxTrades      int    `json:"max_trades"`
}

// NewAPIServer creates a new APIServer listening on the engine's api port.
func NewAPIServer(engine *Engine, logger *zap.Logger) *APIServer {
	s := &APIServer{
		engine: engine,
		logger: logger.Named("api-server"),
	}
	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", engine.cfg.ApiPort),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Handler returns the routes served by the API.
func (s *APIServer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/status", s.statusHandler)
	mux.HandleFunc("/health", s.healthHandler)
	mux.Handle("/metrics", s.engine.Metrics().Handler())
	return mux
}

// Start runs the HTTP server in a new goroutine.
func (s *APIServer) Start() {
	s.logger.Info("Starting API server", zap.String("address", s.server.Addr))
	go func() {
		if err := s.server.ListenAndServe(); err != http.ErrServerClosed {
			s.logger.Error("API server failed", zap.Error(err))
		}
	}()
}

// Stop gracefully shuts down the server.
func (s *APIServer) Stop(ctx context.Context) error {
	s.logger.Info("Stopping API server...")
	return s.server.Shutdown(ctx)
}

// Status builds the /status body from a consistent snapshot of the engine.
func (e *Engine) Status() StatusResponse {
	e.mu.RLock()
	defer e.mu.RUnlock()

	st := StatusResponse{
		UUID:           e.UUID,
		OutcomeSource:  e.outcomes.Name(),
		Running:        e.running,
		DryRun:         e.cfg.DryRun,
		Capital:        e.state.Capital.String(),
		EarnedToday:    e.state.EarnedToday.String(),
		DailyGoal:      e.state.DailyGoal.String(),
		TradesExecuted: e.state.TradesExecuted,
		MaxTrades:      e.cfg.MaxTrades,
	}
	if !e.startTime.IsZero() {
		st.StartTime = e.startTime.Format(time.RFC3339)
		st.Uptime = e.now().Sub(e.startTime).String()
	}
	return st
}

func (s *APIServer) statusHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(s.engine.Status()); err != nil {
		s.logger.Error("Failed to write status response", zap.Error(err))
		http.Error(w, "Failed to encode status", http.StatusInternalServerError)
	}
}

func (s *APIServer) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprintln(w, "OK")
}
