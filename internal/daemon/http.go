package daemon

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/HerbHall/runnerwatch/internal/monitor"
	"github.com/HerbHall/runnerwatch/internal/version"
)

// HostStatus is one host's current picture in the status API.
type HostStatus struct {
	Status             string `json:"status"`
	ConsecutiveOffline int    `json:"consecutive_offline"`
	ConsecutiveMissing int    `json:"consecutive_missing"`
	Labels             string `json:"labels,omitempty"`
}

// Status is the response for GET /api/v1/status.
type Status struct {
	LastRun    string                `json:"last_run,omitempty"`
	LastError  string                `json:"last_error,omitempty"`
	Hosts      map[string]HostStatus `json:"hosts"`
	OfflineSet []string              `json:"offline_set"`
	Unresolved []string              `json:"unresolved,omitempty"`
}

// Status reports the outcome of the most recent run.
func (d *Daemon) Status() Status {
	d.mu.Lock()
	defer d.mu.Unlock()

	st := Status{
		Hosts:      map[string]HostStatus{},
		OfflineSet: []string{},
	}
	if !d.lastRunAt.IsZero() {
		st.LastRun = monitor.FormatTimestamp(d.lastRunAt)
	}
	if d.lastErr != nil {
		st.LastError = d.lastErr.Error()
	}
	if d.lastResult != nil {
		for host, state := range d.lastResult.State.Runners {
			st.Hosts[host] = HostStatus{
				Status:             string(state.Status),
				ConsecutiveOffline: state.ConsecutiveOffline,
				ConsecutiveMissing: state.ConsecutiveMissing,
				Labels:             state.Labels,
			}
		}
		if d.lastResult.OfflineSet != nil {
			st.OfflineSet = d.lastResult.OfflineSet
		}
		st.Unresolved = d.lastResult.Unresolved
	}
	return st
}

// Server is the daemon's status HTTP server.
type Server struct {
	httpServer *http.Server
	daemon     *Daemon
	logger     *zap.Logger
	mux        *http.ServeMux
}

// NewServer creates the status server for a running daemon.
func NewServer(addr string, d *Daemon, logger *zap.Logger) *Server {
	mux := http.NewServeMux()
	s := &Server{daemon: d, logger: logger, mux: mux}

	mux.HandleFunc("GET /healthz", s.handleHealthz)
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /api/v1/status", s.handleStatus)
	mux.HandleFunc("GET /api/v1/runs", s.handleRuns)

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// Start begins serving HTTP requests.
func (s *Server) Start() error {
	s.logger.Info("starting status server", zap.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("status server error: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down status server")
	return s.httpServer.Shutdown(ctx)
}

// handleHealthz is a liveness probe -- returns 200 if the process is running.
func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{
		"status":  "alive",
		"version": version.Version,
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(s.daemon.Status())
}

func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	if s.daemon.arch == nil {
		http.Error(w, `{"error":"archive disabled"}`, http.StatusNotFound)
		return
	}

	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > 1000 {
			http.Error(w, `{"error":"invalid limit"}`, http.StatusBadRequest)
			return
		}
		limit = n
	}

	runs, err := s.daemon.arch.ListRecentRuns(r.Context(), limit)
	if err != nil {
		s.logger.Error("list runs failed", zap.Error(err))
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(runs)
}
