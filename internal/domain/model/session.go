package model

import (
	"crypto/rand"
	"encoding/base64"
	"time"
)

// Session is proof of an authenticated identity. The ID doubles as the
// opaque bearer token handed to the client; a user may hold any number
// of concurrent sessions.
type Session struct {
	ID        string
	UserID    string
	CreatedAt time.Time
	ExpiresAt time.Time
}

func NewSession(userID string, ttl time.Duration) *Session {
	now := time.Now()
	return &Session{
		ID:        newSessionToken(),
		UserID:    userID,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
}

func (s *Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.After(now)
}

func newSessionToken() string {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		panic("session token entropy unavailable: " + err.Error())
	}
	return base64.RawURLEncoding.EncodeToString(b)
}

type ImpersonationKind string

const (
	ImpersonationPlatformAdmin ImpersonationKind = "platform_admin"
	ImpersonationOrgAdmin      ImpersonationKind = "org_admin"
)

// ImpersonationContext is the transient escalation state carried in the
// cookie side channel while an admin operates as another identity. It
// always traces back to exactly one original session.
type ImpersonationContext struct {
	OriginalSessionID string
	ReturnOrgSlug     string // set only for org-admin impersonation
	Kind              ImpersonationKind
}
