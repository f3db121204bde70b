package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"classroom-ai-platform/internal/domain"
	"classroom-ai-platform/internal/domain/model"
)

func newAuthFixture(t *testing.T, ttl time.Duration) (*authUC, *memSessionRepo, *memUserRepo, *memSessionCache) {
	t.Helper()
	admin, _ := model.NewUser("admin-1", "admin@example.com", "Admin", model.RoleAdmin)
	support, _ := model.NewUser("support-1", "support@example.com", "Support", model.RoleSupport)
	teacher, _ := model.NewUser("teacher-1", "teacher@example.com", "Teacher", model.RoleTeacher)
	student, _ := model.NewUser("student-1", "student@example.com", "Student", model.RoleStudent)
	outsider, _ := model.NewUser("student-2", "outsider@example.com", "Outsider", model.RoleStudent)
	teacher.Memberships = []model.OrgMembership{{OrgID: "org-1", OrgSlug: "acme", Role: model.OrgRoleAdmin}}
	student.Memberships = []model.OrgMembership{{OrgID: "org-1", OrgSlug: "acme", Role: model.OrgRoleMember}}

	sessions := newMemSessionRepo()
	users := newMemUserRepo(admin, support, teacher, student, outsider)
	cache := newMemSessionCache()
	return NewAuthUseCase(sessions, users, cache, ttl), sessions, users, cache
}

func TestValidateSessionAbsentExpiredIndistinguishable(t *testing.T) {
	uc, sessions, _, _ := newAuthFixture(t, time.Hour)
	ctx := context.Background()

	// Absent token.
	s, u, err := uc.ValidateSession(ctx, "does-not-exist")
	if s != nil || u != nil || err != nil {
		t.Fatalf("absent = (%v, %v, %v), want all nil", s, u, err)
	}

	// Empty token.
	s, u, err = uc.ValidateSession(ctx, "")
	if s != nil || u != nil || err != nil {
		t.Fatalf("empty = (%v, %v, %v), want all nil", s, u, err)
	}

	// Expired token: stored but past its expiry.
	expired := model.NewSession("teacher-1", -time.Minute)
	if err := sessions.Save(ctx, nil, expired); err != nil {
		t.Fatal(err)
	}
	s, u, err = uc.ValidateSession(ctx, expired.ID)
	if s != nil || u != nil || err != nil {
		t.Fatalf("expired = (%v, %v, %v), want all nil", s, u, err)
	}
}

func TestValidateSessionWarmsCache(t *testing.T) {
	uc, _, _, cache := newAuthFixture(t, time.Hour)
	ctx := context.Background()

	s, err := uc.CreateSession(ctx, "teacher-1")
	if err != nil {
		t.Fatal(err)
	}

	// First validate misses the cache and warms it.
	if _, _, err := uc.ValidateSession(ctx, s.ID); err != nil {
		t.Fatal(err)
	}
	if !cache.contains(s.ID) {
		t.Fatal("cache must be warmed after a store hit")
	}

	// Second validate hits the cache.
	before := cache.hits
	if _, _, err := uc.ValidateSession(ctx, s.ID); err != nil {
		t.Fatal(err)
	}
	if cache.hits != before+1 {
		t.Fatalf("cache hits = %d, want %d", cache.hits, before+1)
	}
}

func TestLogoutNeverLeavesStaleCache(t *testing.T) {
	uc, sessions, _, cache := newAuthFixture(t, time.Hour)
	ctx := context.Background()

	s, err := uc.CreateSession(ctx, "teacher-1")
	if err != nil {
		t.Fatal(err)
	}
	if _, _, err := uc.ValidateSession(ctx, s.ID); err != nil {
		t.Fatal(err)
	}
	if !cache.contains(s.ID) {
		t.Fatal("precondition: session cached")
	}

	if err := uc.Logout(ctx, s.ID); err != nil {
		t.Fatal(err)
	}
	if cache.contains(s.ID) {
		t.Fatal("cache entry must be gone after logout")
	}
	if _, err := sessions.FindByID(ctx, nil, s.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatal("store record must be deleted")
	}
	if got, _, _ := uc.ValidateSession(ctx, s.ID); got != nil {
		t.Fatal("logged-out session must not validate")
	}

	// Logging out twice is harmless.
	if err := uc.Logout(ctx, s.ID); err != nil {
		t.Fatalf("repeat logout = %v, want nil", err)
	}
}

func TestValidateSessionWorksWithNilCache(t *testing.T) {
	admin, _ := model.NewUser("admin-1", "admin@example.com", "Admin", model.RoleAdmin)
	sessions := newMemSessionRepo()
	uc := NewAuthUseCase(sessions, newMemUserRepo(admin), nil, time.Hour)
	ctx := context.Background()

	s, err := uc.CreateSession(ctx, "admin-1")
	if err != nil {
		t.Fatal(err)
	}
	got, user, err := uc.ValidateSession(ctx, s.ID)
	if err != nil || got == nil || user == nil {
		t.Fatalf("validate with nil cache = (%v, %v, %v)", got, user, err)
	}
}

func TestBeginImpersonationAuthority(t *testing.T) {
	uc, sessions, _, _ := newAuthFixture(t, time.Hour)
	ctx := context.Background()

	adminSession, err := uc.CreateSession(ctx, "admin-1")
	if err != nil {
		t.Fatal(err)
	}

	// Platform admin can impersonate anyone, no org needed.
	targetSession, imp, err := uc.BeginImpersonation(ctx, adminSession.ID, "student-1", "")
	if err != nil {
		t.Fatal(err)
	}
	if targetSession.UserID != "student-1" {
		t.Fatalf("target session user = %s", targetSession.UserID)
	}
	if imp.Kind != model.ImpersonationPlatformAdmin || imp.OriginalSessionID != adminSession.ID {
		t.Fatalf("imp = %+v", imp)
	}
	// The admin's original session survives.
	if _, err := sessions.FindByID(ctx, nil, adminSession.ID); err != nil {
		t.Fatal("original session must not be deleted")
	}

	// Org admin within their org.
	orgSession, err := uc.CreateSession(ctx, "teacher-1")
	if err != nil {
		t.Fatal(err)
	}
	_, imp, err = uc.BeginImpersonation(ctx, orgSession.ID, "student-1", "acme")
	if err != nil {
		t.Fatal(err)
	}
	if imp.Kind != model.ImpersonationOrgAdmin || imp.ReturnOrgSlug != "acme" {
		t.Fatalf("imp = %+v", imp)
	}

	// Org admin outside their org is forbidden.
	if _, _, err := uc.BeginImpersonation(ctx, orgSession.ID, "student-1", "other-org"); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("err = %v, want ErrForbidden", err)
	}

	// Org admin targeting a user who is not a member of the org is
	// forbidden: impersonation never crosses the tenant boundary.
	if _, _, err := uc.BeginImpersonation(ctx, orgSession.ID, "student-2", "acme"); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("cross-tenant err = %v, want ErrForbidden", err)
	}

	// Plain student is forbidden.
	studentSession, err := uc.CreateSession(ctx, "student-1")
	if err != nil {
		t.Fatal(err)
	}
	if _, _, err := uc.BeginImpersonation(ctx, studentSession.ID, "teacher-1", ""); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("err = %v, want ErrForbidden", err)
	}

	// Dead admin token.
	if _, _, err := uc.BeginImpersonation(ctx, "no-such-token", "student-1", ""); !errors.Is(err, domain.ErrAuthRequired) {
		t.Fatalf("err = %v, want ErrAuthRequired", err)
	}
}

func TestRestoreImpersonationStateMachine(t *testing.T) {
	uc, sessions, _, _ := newAuthFixture(t, time.Hour)
	ctx := context.Background()

	// Exit 1: no side-channel state.
	out := uc.RestoreImpersonation(ctx, nil)
	if out.Redirect != "/dashboard" || out.SessionToken != "" {
		t.Fatalf("nil ctx outcome = %+v", out)
	}

	// Exit 2: original session gone.
	gone := &model.ImpersonationContext{OriginalSessionID: "vanished", Kind: model.ImpersonationPlatformAdmin}
	out = uc.RestoreImpersonation(ctx, gone)
	if out.Redirect != "/login" || out.SessionToken != "" {
		t.Fatalf("dead original outcome = %+v", out)
	}

	// Exit 3a: valid platform-admin original.
	adminSession, err := uc.CreateSession(ctx, "admin-1")
	if err != nil {
		t.Fatal(err)
	}
	out = uc.RestoreImpersonation(ctx, &model.ImpersonationContext{
		OriginalSessionID: adminSession.ID,
		Kind:              model.ImpersonationPlatformAdmin,
	})
	if out.Redirect != "/admin/users" || out.SessionToken != adminSession.ID {
		t.Fatalf("admin outcome = %+v", out)
	}

	// Exit 3b: valid org-admin original with a return org.
	orgSession, err := uc.CreateSession(ctx, "teacher-1")
	if err != nil {
		t.Fatal(err)
	}
	out = uc.RestoreImpersonation(ctx, &model.ImpersonationContext{
		OriginalSessionID: orgSession.ID,
		ReturnOrgSlug:     "acme",
		Kind:              model.ImpersonationOrgAdmin,
	})
	if out.Redirect != "/org/acme/teachers" || out.SessionToken != orgSession.ID {
		t.Fatalf("org-admin outcome = %+v", out)
	}

	// Exit 2 again: expired original behaves like a missing one.
	expired := model.NewSession("admin-1", -time.Minute)
	if err := sessions.Save(ctx, nil, expired); err != nil {
		t.Fatal(err)
	}
	out = uc.RestoreImpersonation(ctx, &model.ImpersonationContext{
		OriginalSessionID: expired.ID,
		Kind:              model.ImpersonationPlatformAdmin,
	})
	if out.Redirect != "/login" || out.SessionToken != "" {
		t.Fatalf("expired original outcome = %+v", out)
	}
}

func TestCreateSessionUnknownUser(t *testing.T) {
	uc, _, _, _ := newAuthFixture(t, time.Hour)
	if _, err := uc.CreateSession(context.Background(), "ghost"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}
