// Package chi serves the admin HTTP surface: Prometheus metrics, health and token usage.
package chi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	chirouter "github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	domusage "github.com/kailas-cloud/talentrag/internal/domain/usage"
	"github.com/kailas-cloud/talentrag/internal/metrics"
	healthuc "github.com/kailas-cloud/talentrag/internal/usecase/health"
	usageuc "github.com/kailas-cloud/talentrag/internal/usecase/usage"
)

// NewAdminRouter builds the router for GET /metrics, GET /healthz and GET /usage.
// usage may be nil, in which case /usage is not mounted.
func NewAdminRouter(
	health *healthuc.Service, usage *usageuc.Service, apiKeys []string, logger *zap.Logger,
) http.Handler {
	r := chirouter.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(metrics.Middleware())
	r.Use(BearerAuthMiddleware(apiKeys))

	r.Method(http.MethodGet, "/metrics", promhttp.Handler())
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		report := health.Check(r.Context())
		status := http.StatusOK
		if report.Status != healthuc.Healthy {
			status = http.StatusServiceUnavailable
		}
		writeJSON(w, status, report)
	})
	if usage != nil {
		r.Get("/usage", func(w http.ResponseWriter, r *http.Request) {
			period, err := domusage.ParsePeriod(r.URL.Query().Get("period"))
			if err != nil {
				writeError(w, http.StatusBadRequest, err.Error())
				return
			}
			writeJSON(w, http.StatusOK, usage.GetReport(r.Context(), period))
		})
	}

	return r
}

// AdminServer runs the admin router until its context is cancelled.
type AdminServer struct {
	srv    *http.Server
	logger *zap.Logger
}

// NewAdminServer creates a server listening on addr.
func NewAdminServer(addr string, handler http.Handler, logger *zap.Logger) *AdminServer {
	return &AdminServer{
		srv: &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadHeaderTimeout: 5 * time.Second,
		},
		logger: logger,
	}
}

// Run serves until ctx is done, then shuts down gracefully.
func (s *AdminServer) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Starting admin server", zap.String("addr", s.srv.Addr))
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	s.logger.Info("Admin server stopped")
	return nil
}

// jsonRecoverer is a recovery middleware that returns JSON instead of a plain text stacktrace.
func jsonRecoverer(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rvr := recover(); rvr != nil {
					logger.Error("panic recovered",
						zap.Any("panic", rvr),
						zap.Stack("stacktrace"),
					)
					writeError(w, http.StatusInternalServerError, "internal error")
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

type errorResponse struct {
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Message: message})
}
