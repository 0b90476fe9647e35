// Package httpapi exposes the service's HTTP surface: POST /screenshot,
// GET /health and GET /ws, grounded on original_source/src/api/handlers.rs.
package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/BetterCallFirewall/urlscreen/internal/apierr"
	"github.com/BetterCallFirewall/urlscreen/internal/browserpool"
	"github.com/BetterCallFirewall/urlscreen/internal/model"
	"github.com/BetterCallFirewall/urlscreen/internal/urlanalyzer"
	"github.com/BetterCallFirewall/urlscreen/internal/worker"
	"github.com/BetterCallFirewall/urlscreen/internal/wsfeed"
)

// Server wires the worker pool, browser pool stats and websocket feed
// behind an http.Server.
type Server struct {
	log            *zap.Logger
	pool           *worker.Pool
	browserPool    *browserpool.Pool
	hub            *wsfeed.Hub
	requestTimeout time.Duration
	startedAt      time.Time

	httpServer *http.Server
}

// New builds a Server bound to addr (host:port).
func New(log *zap.Logger, addr string, pool *worker.Pool, browserPool *browserpool.Pool, hub *wsfeed.Hub, requestTimeout time.Duration) *Server {
	s := &Server{
		log:            log,
		pool:           pool,
		browserPool:    browserPool,
		hub:            hub,
		requestTimeout: requestTimeout,
		startedAt:      time.Now(),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /screenshot", s.handleScreenshot)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /ws", hub.ServeWS)

	s.httpServer = &http.Server{
		Addr:    addr,
		Handler: mux,
	}
	return s
}

// Start begins serving and blocks until the listener stops. It returns
// http.ErrServerClosed on a clean shutdown.
func (s *Server) Start() error {
	s.log.Info("starting HTTP server", zap.String("addr", s.httpServer.Addr))
	return s.httpServer.ListenAndServe()
}

// Stop gracefully shuts down the HTTP server, letting in-flight requests
// finish within ctx's deadline.
func (s *Server) Stop(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleScreenshot(w http.ResponseWriter, r *http.Request) {
	var req model.ScreenshotRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apierr.New(apierr.KindInvalidURL, "malformed request body"))
		return
	}

	jobID := uuid.New().String()
	log := s.log.With(zap.String("job_id", jobID), zap.String("url", req.URL))
	log.Info("received screenshot request")

	if err := urlanalyzer.ValidateURL(req.URL); err != nil {
		log.Warn("rejected invalid URL", zap.Error(err))
		writeError(w, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.requestTimeout)
	defer cancel()

	responseCh := make(chan worker.Outcome, 1)
	if err := s.pool.Enqueue(ctx, worker.Job{JobID: jobID, URL: req.URL, Response: responseCh}); err != nil {
		log.Warn("failed to enqueue screenshot job", zap.Error(err))
		writeError(w, err)
		return
	}

	s.hub.Publish("job_enqueued", jobID, req.URL)

	select {
	case outcome := <-responseCh:
		if outcome.Err != nil {
			log.Error("screenshot request failed", zap.Error(outcome.Err))
			s.hub.Publish("job_failed", jobID, outcome.Err.Error())
			writeError(w, outcome.Err)
			return
		}
		s.hub.Publish("job_completed", jobID, outcome.Response.FinalURL)
		writeJSON(w, http.StatusOK, outcome.Response)

	case <-ctx.Done():
		log.Warn("screenshot request timed out")
		writeError(w, apierr.Wrap(apierr.KindRequestTimeout, "request timed out", ctx.Err()))
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	stats := s.browserPool.Stats()
	workerStats := s.pool.Stats()

	status := healthStatusFor(stats.Active, stats.Total)
	if status != "healthy" {
		s.log.Warn("health check degraded", zap.String("status", status),
			zap.Int64("active", stats.Active), zap.Int64("total", stats.Total))
	}

	writeJSON(w, http.StatusOK, model.HealthStatus{
		Status:              status,
		ActiveConnections:   stats.Active,
		TotalConnections:    stats.Total,
		UptimeSeconds:       int64(time.Since(s.startedAt).Seconds()),
		JobsProcessed:       workerStats.JobsProcessed,
		JobsFailed:          workerStats.JobsFailed,
		AvgProcessingTimeMs: workerStats.AvgProcessingTimeMs,
	})
}

// healthStatusFor classifies pool utilization into healthy/degraded/
// unhealthy, treating full utilization (active == total) as degraded
// rather than unhealthy.
func healthStatusFor(active, total int64) string {
	switch {
	case total == 0 || active > total:
		return "unhealthy"
	case active == total:
		return "degraded"
	default:
		return "healthy"
	}
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, apierr.HTTPStatus(err), model.ErrorResponse{
		Status:  "error",
		Message: err.Error(),
	})
}
