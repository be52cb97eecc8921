// internal/session/session.go
//
// Signed player cookie.
// /set_player_name issues an HS256 JWT carrying the chosen display name, so a
// browser can show "you are X" across reloads without the server persisting
// anything. The token is informational: game state never trusts it.

package session

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const CookieName = "bubble_player"

// ErrInvalidToken covers missing, malformed, expired or badly signed tokens.
var ErrInvalidToken = errors.New("session: invalid token")

// Manager signs and verifies player tokens.
type Manager struct {
	secret []byte
	ttl    time.Duration
	secure bool
	now    func() time.Time
}

// NewManager returns a Manager. secure marks cookies Secure + SameSite=None.
func NewManager(secret string, ttl time.Duration, secure bool) *Manager {
	if ttl <= 0 {
		ttl = 30 * 24 * time.Hour
	}
	return &Manager{secret: []byte(secret), ttl: ttl, secure: secure, now: time.Now}
}

// Sign creates a token for name, returning it with its expiry.
func (m *Manager) Sign(name string) (string, time.Time, error) {
	now := m.now()
	exp := now.Add(m.ttl)
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"name": name,
		"exp":  exp.Unix(),
		"iat":  now.Unix(),
	})
	ss, err := t.SignedString(m.secret)
	return ss, exp, err
}

// Parse verifies tok and returns the player name it carries.
func (m *Manager) Parse(tok string) (string, error) {
	if tok == "" {
		return "", ErrInvalidToken
	}
	claims := jwt.MapClaims{}
	t, err := jwt.ParseWithClaims(tok, claims, func(t *jwt.Token) (interface{}, error) {
		return m.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil || !t.Valid {
		return "", ErrInvalidToken
	}
	name, _ := claims["name"].(string)
	if name == "" {
		return "", ErrInvalidToken
	}
	return name, nil
}

// SetCookie writes the player cookie.
func (m *Manager) SetCookie(w http.ResponseWriter, token string, exp time.Time) {
	sameSite := http.SameSiteLaxMode
	if m.secure {
		sameSite = http.SameSiteNoneMode
	}
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: sameSite,
		Expires:  exp,
	})
}

// tokenFrom extracts a bearer token or the player cookie.
func tokenFrom(r *http.Request) string {
	if a := r.Header.Get("Authorization"); strings.HasPrefix(strings.ToLower(a), "bearer ") {
		return strings.TrimSpace(a[7:])
	}
	if c, err := r.Cookie(CookieName); err == nil {
		return c.Value
	}
	return ""
}

type ctxPlayerKey struct{}

// WithOptionalPlayer decorates requests with the player name when a valid
// token is present. It never rejects a request.
func (m *Manager) WithOptionalPlayer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if name, err := m.Parse(tokenFrom(r)); err == nil {
			r = r.WithContext(context.WithValue(r.Context(), ctxPlayerKey{}, name))
		}
		next.ServeHTTP(w, r)
	})
}

// PlayerFrom returns the name placed by WithOptionalPlayer, or "".
func PlayerFrom(ctx context.Context) string {
	name, _ := ctx.Value(ctxPlayerKey{}).(string)
	return name
}
