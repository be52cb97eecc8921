package session

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestSignParseRoundTrip(t *testing.T) {
	m := NewManager("s3cret", time.Hour, false)
	tok, exp, err := m.Sign("Ada")
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if !exp.After(time.Now()) {
		t.Errorf("expiry %v not in the future", exp)
	}
	name, err := m.Parse(tok)
	if err != nil || name != "Ada" {
		t.Fatalf("parse = %q, %v", name, err)
	}
}

func TestParse_WrongSecret(t *testing.T) {
	tok, _, _ := NewManager("a", time.Hour, false).Sign("Ada")
	if _, err := NewManager("b", time.Hour, false).Parse(tok); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("err = %v, want ErrInvalidToken", err)
	}
}

func TestParse_Expired(t *testing.T) {
	m := NewManager("k", time.Minute, false)
	tok, _, _ := m.Sign("Ada")
	m.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	if _, err := m.Parse(tok); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("err = %v, want ErrInvalidToken", err)
	}
}

func TestParse_Garbage(t *testing.T) {
	m := NewManager("k", time.Hour, false)
	for _, tok := range []string{"", "abc", "a.b.c"} {
		if _, err := m.Parse(tok); !errors.Is(err, ErrInvalidToken) {
			t.Errorf("Parse(%q) err = %v", tok, err)
		}
	}
}

func TestWithOptionalPlayer(t *testing.T) {
	m := NewManager("k", time.Hour, false)
	tok, exp, _ := m.Sign("Grace")

	var seen string
	h := m.WithOptionalPlayer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = PlayerFrom(r.Context())
	}))

	// cookie
	rec := httptest.NewRecorder()
	m.SetCookie(rec, tok, exp)
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	for _, c := range rec.Result().Cookies() {
		req.AddCookie(c)
	}
	h.ServeHTTP(httptest.NewRecorder(), req)
	if seen != "Grace" {
		t.Fatalf("cookie: player = %q, want Grace", seen)
	}

	// bearer
	req = httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	h.ServeHTTP(httptest.NewRecorder(), req)
	if seen != "Grace" {
		t.Fatalf("bearer: player = %q, want Grace", seen)
	}

	// none
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/me", nil))
	if seen != "" {
		t.Fatalf("anonymous: player = %q, want empty", seen)
	}
}

func TestSetCookieAttributes(t *testing.T) {
	rec := httptest.NewRecorder()
	NewManager("k", time.Hour, true).SetCookie(rec, "tok", time.Now().Add(time.Hour))
	cs := rec.Result().Cookies()
	if len(cs) != 1 {
		t.Fatalf("cookies = %d, want 1", len(cs))
	}
	c := cs[0]
	if c.Name != CookieName || !c.HttpOnly || !c.Secure || c.SameSite != http.SameSiteNoneMode {
		t.Errorf("unexpected cookie: %+v", c)
	}
}
