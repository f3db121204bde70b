package web

import (
	"errors"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"classroom-ai-platform/internal/domain/model"
)

// Cookie names. The session cookie carries the opaque store token; the
// impersonation side channel is a signed JWT plus a plain org hint the
// frontend reads to render the "viewing as" banner.
const (
	sessionCookie          = "session"
	originalSessionCookie  = "original_session"
	impersonationOrgCookie = "impersonation_org"
)

type CookieConfig struct {
	HMACSecret   []byte
	CookieDomain string
	SecureCookie bool
	SessionTTL   time.Duration
}

// CookieManager mints and clears the session and impersonation cookies.
// Session tokens are opaque (validated against the store); only the
// impersonation side channel is JWT-signed, so a tampered cookie fails
// closed into the invalid-restore path.
type CookieManager struct{ cfg CookieConfig }

func NewCookieManager(secret string, secure bool, domain string, sessionTTL time.Duration) *CookieManager {
	return &CookieManager{cfg: CookieConfig{
		HMACSecret:   []byte(secret),
		CookieDomain: domain, // "" is fine for a host-only cookie
		SecureCookie: secure, // true in prod (TLS)
		SessionTTL:   sessionTTL,
	}}
}

func (m *CookieManager) SetSession(w http.ResponseWriter, token string) {
	http.SetCookie(w, m.cookie(sessionCookie, token, int(m.cfg.SessionTTL.Seconds()), true))
}

func (m *CookieManager) ClearSession(w http.ResponseWriter) {
	http.SetCookie(w, m.cookie(sessionCookie, "", -1, true))
}

func (m *CookieManager) ReadSession(r *http.Request) string {
	if c, err := r.Cookie(sessionCookie); err == nil {
		return c.Value
	}
	return ""
}

type impersonationClaims struct {
	OriginalSessionID string `json:"osid"`
	Kind              string `json:"kind"`
	OrgSlug           string `json:"org,omitempty"`
	jwt.RegisteredClaims
}

// SetImpersonation writes both side-channel cookies.
func (m *CookieManager) SetImpersonation(w http.ResponseWriter, imp *model.ImpersonationContext) error {
	now := time.Now()
	claims := impersonationClaims{
		OriginalSessionID: imp.OriginalSessionID,
		Kind:              string(imp.Kind),
		OrgSlug:           imp.ReturnOrgSlug,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.cfg.SessionTTL)),
			Subject:   "impersonation",
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.cfg.HMACSecret)
	if err != nil {
		return err
	}
	ttl := int(m.cfg.SessionTTL.Seconds())
	http.SetCookie(w, m.cookie(originalSessionCookie, signed, ttl, true))
	// Readable by the frontend, so not HttpOnly.
	http.SetCookie(w, m.cookie(impersonationOrgCookie, imp.ReturnOrgSlug, ttl, false))
	return nil
}

// ClearImpersonation drops both side-channel cookies. Called on every
// restore exit, valid or not.
func (m *CookieManager) ClearImpersonation(w http.ResponseWriter) {
	http.SetCookie(w, m.cookie(originalSessionCookie, "", -1, true))
	http.SetCookie(w, m.cookie(impersonationOrgCookie, "", -1, false))
}

// ReadImpersonation parses the signed side channel. A missing cookie is
// (nil, nil); a malformed or tampered one is an error.
func (m *CookieManager) ReadImpersonation(r *http.Request) (*model.ImpersonationContext, error) {
	c, err := r.Cookie(originalSessionCookie)
	if err != nil {
		return nil, nil
	}
	claims := &impersonationClaims{}
	tkn, err := jwt.ParseWithClaims(c.Value, claims, func(t *jwt.Token) (any, error) {
		return m.cfg.HMACSecret, nil
	})
	if err != nil || !tkn.Valid {
		return nil, errors.New("invalid impersonation cookie")
	}
	return &model.ImpersonationContext{
		OriginalSessionID: claims.OriginalSessionID,
		ReturnOrgSlug:     claims.OrgSlug,
		Kind:              model.ImpersonationKind(claims.Kind),
	}, nil
}

func (m *CookieManager) cookie(name, value string, maxAge int, httpOnly bool) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Domain:   m.cfg.CookieDomain,
		MaxAge:   maxAge,
		HttpOnly: httpOnly,
		Secure:   m.cfg.SecureCookie,
		SameSite: http.SameSiteLaxMode,
	}
}
