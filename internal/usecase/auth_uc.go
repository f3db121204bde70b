// File: internal/usecase/auth_uc.go
package usecase

import (
	"context"
	"time"

	"classroom-ai-platform/internal/domain"
	"classroom-ai-platform/internal/domain/model"
	"classroom-ai-platform/internal/domain/ports/repository"
	"classroom-ai-platform/internal/infra/metrics"
)

// Compile-time check
var _ AuthUseCase = (*authUC)(nil)

// RestoreOutcome is the single terminal exit of the impersonation
// restore state machine. Side-channel cookies are cleared by the caller
// on every outcome, including failures.
type RestoreOutcome struct {
	// Redirect is where the browser goes next.
	Redirect string
	// SessionToken is non-empty only when the original session was valid
	// and must be reinstated as the active session cookie.
	SessionToken string
}

const (
	redirectDashboard = "/dashboard"
	redirectLogin     = "/login"
	redirectAdmin     = "/admin/users"
)

type AuthUseCase interface {
	// CreateSession issues a new session at login. Other sessions of the
	// same user stay valid; concurrent sessions are allowed.
	CreateSession(ctx context.Context, userID string) (*model.Session, error)
	// ValidateSession resolves a bearer token to (session, user).
	// Expired, revoked and absent tokens are indistinguishable: all
	// return (nil, nil, nil).
	ValidateSession(ctx context.Context, token string) (*model.Session, *model.User, error)
	// InvalidateCache drops the cached entry immediately. Must run
	// before the store record is deleted.
	InvalidateCache(ctx context.Context, token string)
	// Logout invalidates the cache, then deletes the session record.
	Logout(ctx context.Context, token string) error
	// BeginImpersonation swaps the active identity to targetUserID and
	// returns the impersonation context to stash in the side channel.
	// Org-admin impersonation is tenant-scoped: the target must belong
	// to orgSlug. The admin's original session is not deleted.
	BeginImpersonation(ctx context.Context, adminToken, targetUserID, orgSlug string) (*model.Session, *model.ImpersonationContext, error)
	// RestoreImpersonation runs the restore state machine; exactly one
	// terminal outcome per call.
	RestoreImpersonation(ctx context.Context, imp *model.ImpersonationContext) RestoreOutcome
}

type authUC struct {
	sessions repository.SessionRepository
	users    repository.UserRepository
	cache    repository.SessionCache // may be nil; store stays the source of truth
	ttl      time.Duration
}

func NewAuthUseCase(sessions repository.SessionRepository, users repository.UserRepository, cache repository.SessionCache, ttl time.Duration) *authUC {
	if ttl <= 0 {
		ttl = 30 * 24 * time.Hour
	}
	return &authUC{sessions: sessions, users: users, cache: cache, ttl: ttl}
}

func (a *authUC) CreateSession(ctx context.Context, userID string) (*model.Session, error) {
	if userID == "" {
		return nil, domain.ErrInvalidArgument
	}
	if _, err := a.users.FindByID(ctx, nil, userID); err != nil {
		return nil, err
	}
	s := model.NewSession(userID, a.ttl)
	if err := a.sessions.Save(ctx, nil, s); err != nil {
		return nil, err
	}
	return s, nil
}

func (a *authUC) ValidateSession(ctx context.Context, token string) (*model.Session, *model.User, error) {
	if token == "" {
		return nil, nil, nil
	}

	s, cached := a.lookup(ctx, token)
	if s == nil {
		return nil, nil, nil
	}
	// Expiry is always rechecked, even on a cache hit.
	if s.Expired(time.Now()) {
		if a.cache != nil {
			a.cache.Invalidate(ctx, token)
		}
		return nil, nil, nil
	}

	user, err := a.users.FindByID(ctx, nil, s.UserID)
	if err != nil {
		if err == domain.ErrNotFound {
			return nil, nil, nil
		}
		return nil, nil, err
	}
	if !cached && a.cache != nil {
		a.cache.Set(ctx, s)
	}
	return s, user, nil
}

// lookup tries the cache first, then the store. The cache is advisory.
func (a *authUC) lookup(ctx context.Context, token string) (*model.Session, bool) {
	if a.cache != nil {
		if s, ok := a.cache.Get(ctx, token); ok {
			metrics.IncCacheRequest("session", "hit")
			return s, true
		}
		metrics.IncCacheRequest("session", "miss")
	}
	s, err := a.sessions.FindByID(ctx, nil, token)
	if err != nil {
		return nil, false
	}
	return s, false
}

func (a *authUC) InvalidateCache(ctx context.Context, token string) {
	if a.cache != nil {
		a.cache.Invalidate(ctx, token)
	}
}

func (a *authUC) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	// Cache drop happens-before the store deletion completes, so no
	// request can observe a deleted-but-cached session as valid.
	a.InvalidateCache(ctx, token)
	if err := a.sessions.Delete(ctx, nil, token); err != nil && err != domain.ErrNotFound {
		return err
	}
	return nil
}

func (a *authUC) BeginImpersonation(ctx context.Context, adminToken, targetUserID, orgSlug string) (*model.Session, *model.ImpersonationContext, error) {
	adminSession, admin, err := a.ValidateSession(ctx, adminToken)
	if err != nil {
		return nil, nil, err
	}
	if adminSession == nil {
		return nil, nil, domain.ErrAuthRequired
	}

	kind := model.ImpersonationPlatformAdmin
	switch model.ComputeEffectiveRole(admin, orgSlug) {
	case model.EffectivePlatformAdmin:
	case model.EffectiveOrgAdmin:
		if orgSlug == "" {
			return nil, nil, domain.ErrForbidden
		}
		kind = model.ImpersonationOrgAdmin
	default:
		return nil, nil, domain.ErrForbidden
	}

	target, err := a.users.FindByID(ctx, nil, targetUserID)
	if err != nil {
		return nil, nil, err
	}
	// Org admins stay inside their tenant: a target outside the org is
	// denied, not silently impersonated platform-wide.
	if kind == model.ImpersonationOrgAdmin {
		if _, ok := target.Membership(orgSlug); !ok {
			return nil, nil, domain.ErrForbidden
		}
	}
	targetSession, err := a.CreateSession(ctx, target.ID)
	if err != nil {
		return nil, nil, err
	}

	imp := &model.ImpersonationContext{
		OriginalSessionID: adminSession.ID,
		Kind:              kind,
	}
	if kind == model.ImpersonationOrgAdmin {
		imp.ReturnOrgSlug = orgSlug
	}
	metrics.IncImpersonation("begin", string(kind))
	return targetSession, imp, nil
}

func (a *authUC) RestoreImpersonation(ctx context.Context, imp *model.ImpersonationContext) RestoreOutcome {
	// 1. No side-channel state: nothing to restore, not an error.
	if imp == nil || imp.OriginalSessionID == "" {
		return RestoreOutcome{Redirect: redirectDashboard}
	}

	// 2. Original session gone or expired: discard the context and
	// re-authenticate. Never surfaces as an error to the user.
	s, user, err := a.ValidateSession(ctx, imp.OriginalSessionID)
	if err != nil || s == nil {
		metrics.IncImpersonation("restore_invalid", string(imp.Kind))
		return RestoreOutcome{Redirect: redirectLogin}
	}

	// 3. Valid original session: reinstate it and land the admin on
	// their console.
	metrics.IncImpersonation("restore", string(imp.Kind))
	redirect := redirectAdmin
	if imp.Kind == model.ImpersonationOrgAdmin && imp.ReturnOrgSlug != "" {
		redirect = "/org/" + imp.ReturnOrgSlug + "/teachers"
	} else if !user.IsPlatformStaff() {
		redirect = redirectDashboard
	}
	return RestoreOutcome{Redirect: redirect, SessionToken: s.ID}
}
