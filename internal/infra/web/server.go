package web

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"classroom-ai-platform/internal/infra/redis"
	"classroom-ai-platform/internal/usecase"
)

type Server struct {
	queueUC    usecase.QueueUseCase
	authUC     usecase.AuthUseCase
	archiveUC  usecase.ArchiveUseCase
	cookies    *CookieManager
	limiter    *redis.RateLimiter
	checks     []HealthCheck
	cronSecret string
	dev        bool
	log        *zerolog.Logger
}

func NewServer(
	queueUC usecase.QueueUseCase,
	authUC usecase.AuthUseCase,
	archiveUC usecase.ArchiveUseCase,
	cookies *CookieManager,
	limiter *redis.RateLimiter,
	checks []HealthCheck,
	cronSecret string,
	dev bool,
	logger *zerolog.Logger,
) *Server {
	return &Server{
		queueUC:    queueUC,
		authUC:     authUC,
		archiveUC:  archiveUC,
		cookies:    cookies,
		limiter:    limiter,
		checks:     checks,
		cronSecret: cronSecret,
		dev:        dev,
		log:        logger,
	}
}

// Router wires all routes. Impersonation restore deliberately skips the
// session guard: it must work when the active session is already dead.
func (s *Server) Router() *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(traceMiddleware)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/health", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())
	r.Post("/internal/cron/archive", s.handleCronArchive)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/auth/impersonate/restore", s.handleRestoreImpersonation)

		r.Group(func(r chi.Router) {
			r.Use(s.requireSession)
			r.With(s.rateLimit(30, time.Minute)).Post("/jobs", s.handleEnqueue)
			r.Get("/jobs/{id}", s.handleJobStatus)
			r.Post("/jobs/stop", s.handleStopAll)
			r.Get("/queue/me", s.handleQueueMe)
			r.Get("/queue/rate-limit", s.handleRateLimitStatus)
			r.Get("/queue/stats", s.handleQueueStats)
			r.Post("/auth/logout", s.handleLogout)
			r.Post("/auth/impersonate", s.handleBeginImpersonation)
		})
	})
	return r
}
