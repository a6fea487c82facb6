package session

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

type Kind string

const (
	KindAdmin Kind = "admin"
	KindVoter Kind = "voter"
)

const CookieName = "evoting_session"

type Claims struct {
	Subject     string   `json:"subject"`
	Name        string   `json:"name,omitempty"`
	Email       string   `json:"email,omitempty"`
	Roles       []string `json:"roles,omitempty"`
	Permissions []string `json:"permissions,omitempty"`
	IsSuper     bool     `json:"is_super,omitempty"`
}

// Session is one signed-in browser. Exactly one kind of principal is held,
// so a voter token can never be sent to an admin endpoint.
type Session struct {
	ID        string    `json:"-"`
	Kind      Kind      `json:"kind"`
	Token     string    `json:"-"`
	Claims    Claims    `json:"claims"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

func New(kind Kind, token string, claims Claims, now time.Time, ttl time.Duration) Session {
	expires := now.Add(ttl)
	if exp, ok := TokenExpiry(token); ok && exp.Before(expires) {
		expires = exp
	}
	return Session{
		ID:        uuid.NewString(),
		Kind:      kind,
		Token:     token,
		Claims:    claims,
		CreatedAt: now,
		ExpiresAt: expires,
	}
}

func (s Session) Anonymous() bool {
	return s.Kind == ""
}

func (s Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}

// Can reports whether an admin session holds perm. Super admins hold all.
func (s Session) Can(perm string) bool {
	if s.Kind != KindAdmin {
		return false
	}
	if s.Claims.IsSuper {
		return true
	}
	for _, granted := range s.Claims.Permissions {
		if granted == perm {
			return true
		}
	}
	return false
}

func (s Session) LoginPath() string {
	return LoginPath(s.Kind)
}

func LoginPath(kind Kind) string {
	if kind == KindVoter {
		return "/voter/login"
	}
	return "/admin/login"
}

func Cookie(s Session, secure bool) *http.Cookie {
	return &http.Cookie{
		Name:     CookieName,
		Value:    s.ID,
		Path:     "/",
		Expires:  s.ExpiresAt,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
}

func ClearCookie(secure bool) *http.Cookie {
	return &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
}

func IDFromRequest(r *http.Request) string {
	cookie, err := r.Cookie(CookieName)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(cookie.Value)
}

// TokenExpiry reads the exp claim of a JWT without verifying it. The backend
// remains the authority; this only keeps the session from outliving its token.
func TokenExpiry(token string) (time.Time, bool) {
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return time.Time{}, false
	}
	payload, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		return time.Time{}, false
	}
	var claims struct {
		Exp json.Number `json:"exp"`
	}
	if err := json.Unmarshal(payload, &claims); err != nil {
		return time.Time{}, false
	}
	seconds, err := claims.Exp.Int64()
	if err != nil || seconds <= 0 {
		return time.Time{}, false
	}
	return time.Unix(seconds, 0), true
}
