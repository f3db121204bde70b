package web

import (
	"context"
	"net/http"
	"time"

	"classroom-ai-platform/internal/infra/logging"
)

// HealthCheck is one dependency probed by the health endpoint.
type HealthCheck struct {
	Name string
	Ping func(ctx context.Context) error
}

const (
	healthAttempts = 3
	healthBackoff  = 200 * time.Millisecond
)

type healthResponse struct {
	Status string            `json:"status"` // "ok" | "degraded"
	Checks map[string]string `json:"checks"`
}

// handleHealth probes every dependency with a short retry. The endpoint
// always answers 200: a degraded dependency is reported in the body, not
// the status code, so load balancers keep the instance in rotation while
// it serves what it can.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{Status: "ok", Checks: map[string]string{}}
	for _, c := range s.checks {
		if err := pingWithRetry(r.Context(), c.Ping); err != nil {
			resp.Status = "degraded"
			resp.Checks[c.Name] = err.Error()
			logging.With(r.Context(), s.log).Warn().Err(err).Str("check", c.Name).Msg("health check failed")
			continue
		}
		resp.Checks[c.Name] = "ok"
	}
	writeJSON(w, http.StatusOK, resp)
}

func pingWithRetry(ctx context.Context, ping func(ctx context.Context) error) error {
	var err error
	for attempt := 0; attempt < healthAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(healthBackoff):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		if err = ping(ctx); err == nil {
			return nil
		}
	}
	return err
}
