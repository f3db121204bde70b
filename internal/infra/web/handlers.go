package web

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"classroom-ai-platform/internal/domain"
	"classroom-ai-platform/internal/domain/model"
	"classroom-ai-platform/internal/infra/logging"
	"classroom-ai-platform/internal/infra/metrics"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// ===== queue =====

type enqueueRequest struct {
	Kind             string `json:"kind"`
	Input            string `json:"input"`
	LinkedEntityID   string `json:"linked_entity_id,omitempty"`
	LinkedEntityType string `json:"linked_entity_type,omitempty"`
}

// handleEnqueue accepts the job and returns 202 immediately; completion
// is observed by polling the status endpoint.
func (s *Server) handleEnqueue(w http.ResponseWriter, r *http.Request) {
	var req enqueueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	user := userFrom(r.Context())
	job, err := s.queueUC.Enqueue(r.Context(), user.ID, model.AIJobKind(req.Kind), req.Input, req.LinkedEntityID, req.LinkedEntityType)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidArgument) {
			writeError(w, http.StatusBadRequest, "invalid job kind or empty input")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to enqueue job")
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{
		"job_id": job.ID,
		"status": string(job.Status),
	})
}

func (s *Server) handleJobStatus(w http.ResponseWriter, r *http.Request) {
	info, err := s.queueUC.GetStatus(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrNotFound):
			writeError(w, http.StatusNotFound, "job not found")
		case errors.Is(err, domain.ErrInvalidArgument):
			writeError(w, http.StatusBadRequest, "job id required")
		default:
			writeError(w, http.StatusInternalServerError, "failed to get job status")
		}
		return
	}
	writeJSON(w, http.StatusOK, info)
}

func (s *Server) handleStopAll(w http.ResponseWriter, r *http.Request) {
	user := userFrom(r.Context())
	n, err := s.queueUC.StopAll(r.Context(), user.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to stop jobs")
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"stopped": n})
}

func (s *Server) handleQueueMe(w http.ResponseWriter, r *http.Request) {
	user := userFrom(r.Context())
	info, err := s.queueUC.GetUserQueueInfo(r.Context(), user.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get queue info")
		return
	}
	writeJSON(w, http.StatusOK, info)
}

func (s *Server) handleRateLimitStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.queueUC.GetRateLimitStatus())
}

// handleQueueStats serves the admission snapshot to everyone; per-status
// aggregates require platform staff and an explicit opt-in, since the
// underlying scan is the expensive part.
func (s *Server) handleQueueStats(w http.ResponseWriter, r *http.Request) {
	aggregates := r.URL.Query().Get("aggregates") == "true"
	if aggregates && !userFrom(r.Context()).IsPlatformStaff() {
		writeError(w, http.StatusForbidden, "aggregates require staff access")
		return
	}
	stats, err := s.queueUC.GetQueueStats(r.Context(), aggregates)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get queue stats")
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// ===== auth =====

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	token := s.cookies.ReadSession(r)
	if err := s.authUC.Logout(r.Context(), token); err != nil {
		writeError(w, http.StatusInternalServerError, "logout failed")
		return
	}
	s.cookies.ClearSession(w)
	s.cookies.ClearImpersonation(w)
	writeJSON(w, http.StatusOK, map[string]string{"redirect": "/login"})
}

type impersonateRequest struct {
	TargetUserID string `json:"target_user_id"`
	OrgSlug      string `json:"org_slug,omitempty"`
}

func (s *Server) handleBeginImpersonation(w http.ResponseWriter, r *http.Request) {
	var req impersonateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	adminToken := s.cookies.ReadSession(r)
	targetSession, imp, err := s.authUC.BeginImpersonation(r.Context(), adminToken, req.TargetUserID, req.OrgSlug)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrAuthRequired):
			writeError(w, http.StatusUnauthorized, "authentication required")
		case errors.Is(err, domain.ErrForbidden):
			writeError(w, http.StatusForbidden, "not allowed to impersonate")
		case errors.Is(err, domain.ErrNotFound):
			writeError(w, http.StatusNotFound, "target user not found")
		default:
			writeError(w, http.StatusInternalServerError, "impersonation failed")
		}
		return
	}
	if err := s.cookies.SetImpersonation(w, imp); err != nil {
		writeError(w, http.StatusInternalServerError, "impersonation failed")
		return
	}
	s.cookies.SetSession(w, targetSession.ID)
	writeJSON(w, http.StatusOK, map[string]string{"redirect": "/dashboard"})
}

// handleRestoreImpersonation exits impersonation. The side-channel
// cookies are cleared on every exit, including malformed ones; leaving
// them behind would replay the restore on the next request.
func (s *Server) handleRestoreImpersonation(w http.ResponseWriter, r *http.Request) {
	imp, err := s.cookies.ReadImpersonation(r)
	if err != nil {
		// Tampered or unparseable side channel: fail closed.
		metrics.IncImpersonation("restore_invalid", "unknown")
		s.cookies.ClearImpersonation(w)
		s.cookies.ClearSession(w)
		writeJSON(w, http.StatusOK, map[string]string{"redirect": "/login"})
		return
	}

	outcome := s.authUC.RestoreImpersonation(r.Context(), imp)
	s.cookies.ClearImpersonation(w)

	// Without a side channel the current session stays untouched; the
	// user simply was not impersonating.
	if imp != nil {
		// Drop the impersonated session unless it is the one being reinstated.
		if current := s.cookies.ReadSession(r); current != "" && current != outcome.SessionToken {
			if err := s.authUC.Logout(r.Context(), current); err != nil {
				logging.With(r.Context(), s.log).Warn().Err(err).Msg("failed to drop impersonated session")
			}
		}
		if outcome.SessionToken != "" {
			s.cookies.SetSession(w, outcome.SessionToken)
		} else {
			s.cookies.ClearSession(w)
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"redirect": outcome.Redirect})
}

// ===== cron =====

// handleCronArchive runs the archive sweep on demand. Guarded by a shared
// secret header; in dev mode with no secret configured the guard is open.
func (s *Server) handleCronArchive(w http.ResponseWriter, r *http.Request) {
	if s.cronSecret == "" && !s.dev {
		writeError(w, http.StatusForbidden, "cron secret not configured")
		return
	}
	if s.cronSecret != "" && r.Header.Get("X-Cron-Secret") != s.cronSecret {
		writeError(w, http.StatusUnauthorized, "bad cron secret")
		return
	}
	n, err := s.archiveUC.SweepEnded(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "archive sweep failed")
		return
	}
	if n > 0 {
		metrics.AddWorkItemsArchived(n)
	}
	writeJSON(w, http.StatusOK, map[string]int{"archived": n})
}
