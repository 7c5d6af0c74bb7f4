package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/gray-logic-thermal/internal/panel"
)

// healthCheckTimeout bounds each dependency check on /health.
const healthCheckTimeout = 2 * time.Second

func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.corsMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/metrics", s.handleMetrics)
		r.Post("/auth/login", s.handleLogin)

		r.Route("/monitors", func(r chi.Router) {
			r.Get("/", s.handleListMonitors)

			r.Route("/{name}", func(r chi.Router) {
				r.Get("/", s.handleGetMonitor)
				r.Get("/disable", s.handleShowDisable)
				r.With(s.authMiddleware).Put("/disable", s.handleStoreDisable)
				r.Get("/history", s.handleHistory)
			})
		})

		r.Get("/ws", s.handleWebSocket)
	})

	if s.cfg.Dashboard.Enabled {
		r.Handle("/*", panel.Handler(s.cfg.Dashboard.Dir))
	}

	return r
}

// healthResponse is the body of GET /health.
type healthResponse struct {
	Status   string            `json:"status"`
	Version  string            `json:"version"`
	Monitors int               `json:"monitors"`
	Checks   map[string]string `json:"checks,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{
		Status:   "ok",
		Version:  s.version,
		Monitors: s.monitors.Len(),
	}

	status := http.StatusOK
	if len(s.checks) > 0 {
		resp.Checks = make(map[string]string, len(s.checks))
		for name, c := range s.checks {
			ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
			err := c.HealthCheck(ctx)
			cancel()
			if err != nil {
				resp.Checks[name] = err.Error()
				resp.Status = "degraded"
				status = http.StatusServiceUnavailable
				continue
			}
			resp.Checks[name] = "ok"
		}
	}

	writeJSON(w, status, resp)
}
