package web

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"classroom-ai-platform/internal/domain/model"
	"classroom-ai-platform/internal/infra/logging"
	"classroom-ai-platform/internal/infra/redis"
)

type ctxKey int

const (
	ctxKeySession ctxKey = iota
	ctxKeyUser
)

func sessionFrom(ctx context.Context) *model.Session {
	s, _ := ctx.Value(ctxKeySession).(*model.Session)
	return s
}

func userFrom(ctx context.Context) *model.User {
	u, _ := ctx.Value(ctxKeyUser).(*model.User)
	return u
}

// traceMiddleware threads a trace id through the request context and
// response headers.
func traceMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Trace-ID")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Trace-ID", id)
		next.ServeHTTP(w, r.WithContext(logging.WithTraceID(r.Context(), id)))
	})
}

// requestLogger logs one line per request with status and latency.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		logging.With(r.Context(), s.log).Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("duration", time.Since(start)).
			Msg("http request")
	})
}

// requireSession resolves the session cookie to a (session, user) pair.
// Expired, revoked and absent tokens all land in the same 401.
func (s *Server) requireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := s.cookies.ReadSession(r)
		session, user, err := s.authUC.ValidateSession(r.Context(), token)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "session lookup failed")
			return
		}
		if session == nil {
			writeError(w, http.StatusUnauthorized, "authentication required")
			return
		}
		ctx := context.WithValue(r.Context(), ctxKeySession, session)
		ctx = context.WithValue(ctx, ctxKeyUser, user)
		ctx = logging.WithUserID(ctx, user.ID)
		ctx = logging.WithSessID(ctx, session.ID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// rateLimit throttles per user per route via redis. Fails open when the
// limiter backend is down; the admission controller still bounds the
// expensive work behind these routes.
func (s *Server) rateLimit(limit int, window time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if s.limiter == nil || limit <= 0 {
				next.ServeHTTP(w, r)
				return
			}
			who := r.RemoteAddr
			if u := userFrom(r.Context()); u != nil {
				who = u.ID
			}
			key := redis.UserRequestKey(who, r.URL.Path)
			ok, err := s.limiter.Allow(r.Context(), key, limit, window)
			if err != nil {
				logging.With(r.Context(), s.log).Warn().Err(err).Msg("rate limiter unavailable")
				next.ServeHTTP(w, r)
				return
			}
			if !ok {
				writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
