package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/wsrjk/bblgm/internal/game"
	"github.com/wsrjk/bblgm/internal/session"
	"github.com/wsrjk/bblgm/internal/store"
	"github.com/wsrjk/bblgm/internal/stream"
)

// newTestServer returns a server whose engine only gains bubbles via Spawn.
func newTestServer(t *testing.T, st store.Store) (*Server, *game.Engine) {
	t.Helper()
	tu := game.DefaultTuning()
	tu.SpawnY = 100
	eng := game.New(tu, game.WithSpawnDriver(game.SpawnOnTimer))
	if st == nil {
		st = store.NewMemoryStore()
	}
	return New(eng, st, Options{Session: session.NewManager("test", time.Hour, false)}), eng
}

func do(t *testing.T, s *Server, target string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return out
}

func TestIndexServesHTML(t *testing.T) {
	s, _ := newTestServer(t, nil)
	rec := do(t, s, "/")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("Content-Type = %q, want text/html", ct)
	}
	if !strings.Contains(rec.Body.String(), "/get_bubbles") {
		t.Error("page shell does not poll /get_bubbles")
	}
}

func TestHealth(t *testing.T) {
	s, _ := newTestServer(t, nil)
	rec := do(t, s, "/health")
	if rec.Code != http.StatusOK || strings.TrimSpace(rec.Body.String()) != `{"ok":true}` {
		t.Fatalf("health = %d %s", rec.Code, rec.Body.String())
	}
}

func TestGetBubblesAdvances(t *testing.T) {
	s, eng := newTestServer(t, nil)
	eng.Spawn("A", 50)

	rec := do(t, s, "/get_bubbles")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "application/json") {
		t.Errorf("Content-Type = %q", ct)
	}
	raw := decode[map[string]json.RawMessage](t, rec)
	if _, ok := raw["high_score"]; ok {
		t.Error("high_score should be omitted before any hit")
	}
	snap := decode[game.Snapshot](t, rec)
	if len(snap.Bubbles) != 1 || snap.Bubbles[0].Y != 98 || snap.Bubbles[0].Letter != "A" || snap.Bubbles[0].X != 50 {
		t.Fatalf("bubbles = %+v, want A at (50, 98)", snap.Bubbles)
	}
	if snap.Score != 0 || snap.Level != 1 {
		t.Errorf("score/level = %d/%d", snap.Score, snap.Level)
	}

	snap = decode[game.Snapshot](t, do(t, s, "/get_bubbles"))
	if snap.Bubbles[0].Y != 96 {
		t.Errorf("second poll y = %v, want 96", snap.Bubbles[0].Y)
	}
}

func TestHitBubble(t *testing.T) {
	s, eng := newTestServer(t, nil)
	eng.Spawn("B", 50)

	res := decode[hitRes](t, do(t, s, "/hit_bubble?letter=b"))
	if !res.Correct || res.Score != 1 || len(res.Bubbles) != 0 {
		t.Fatalf("first hit = %+v", res)
	}
	res = decode[hitRes](t, do(t, s, "/hit_bubble?letter=B"))
	if res.Correct || res.Score != 1 {
		t.Fatalf("second hit = %+v", res)
	}
	if res.Bubbles == nil {
		t.Error("bubbles should encode as [] not null")
	}

	snap := decode[game.Snapshot](t, do(t, s, "/get_bubbles"))
	if snap.HighScore == nil || snap.HighScore.Score != 1 {
		t.Errorf("high score = %+v", snap.HighScore)
	}
}

func TestHitBubbleMissingLetter(t *testing.T) {
	s, eng := newTestServer(t, nil)
	eng.Spawn("C", 50)
	rec := do(t, s, "/hit_bubble")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	res := decode[hitRes](t, rec)
	if res.Correct || res.Score != 0 || len(res.Bubbles) != 1 {
		t.Fatalf("hit without letter = %+v", res)
	}
}

func TestSetPlayerNameAndMe(t *testing.T) {
	s, eng := newTestServer(t, nil)

	rec := do(t, s, "/set_player_name?name=Ada")
	if got := decode[map[string]string](t, rec); got["status"] != "ok" {
		t.Fatalf("response = %v", got)
	}
	if eng.PlayerName() != "Ada" {
		t.Fatalf("player name = %q", eng.PlayerName())
	}
	cookies := rec.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Name != session.CookieName {
		t.Fatalf("cookies = %+v", cookies)
	}

	me := decode[map[string]string](t, do(t, s, "/me", cookies...))
	if me["name"] != "Ada" {
		t.Errorf("/me = %v, want Ada", me)
	}
	me = decode[map[string]string](t, do(t, s, "/me"))
	if me["name"] != "" {
		t.Errorf("/me without cookie = %v", me)
	}

	rec = do(t, s, "/set_player_name")
	if got := decode[map[string]string](t, rec); got["status"] != "ok" {
		t.Fatalf("empty name response = %v", got)
	}
	if len(rec.Result().Cookies()) != 0 {
		t.Error("empty name should not issue a cookie")
	}
	if eng.PlayerName() != "Ada" {
		t.Errorf("empty name changed player to %q", eng.PlayerName())
	}
}

func TestHighScoresRecordedOnHit(t *testing.T) {
	s, eng := newTestServer(t, nil)
	do(t, s, "/set_player_name?name=Ada")
	eng.Spawn("A", 10)
	eng.Spawn("B", 30)
	do(t, s, "/hit_bubble?letter=A")
	do(t, s, "/hit_bubble?letter=B")
	do(t, s, "/hit_bubble?letter=Z")

	board := decode[highScoresRes](t, do(t, s, "/high_scores?limit=5"))
	if len(board.Items) != 1 {
		t.Fatalf("items = %+v, want one row", board.Items)
	}
	if board.Items[0].Name != "Ada" || board.Items[0].Score != 2 {
		t.Errorf("row = %+v, want Ada/2", board.Items[0])
	}
}

func TestHighScoresEmpty(t *testing.T) {
	s, _ := newTestServer(t, nil)
	rec := do(t, s, "/high_scores?limit=bogus")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if strings.TrimSpace(rec.Body.String()) != `{"items":[]}` {
		t.Errorf("body = %s", rec.Body.String())
	}
}

type failingStore struct{}

func (failingStore) Record(context.Context, store.Entry) error { return errors.New("disk full") }
func (failingStore) Top(context.Context, int) ([]store.Entry, error) {
	return nil, errors.New("disk full")
}

func TestLedgerFailureDoesNotFailHit(t *testing.T) {
	s, eng := newTestServer(t, failingStore{})
	eng.Spawn("A", 10)
	rec := do(t, s, "/hit_bubble?letter=A")
	if rec.Code != http.StatusOK {
		t.Fatalf("hit status = %d", rec.Code)
	}
	if res := decode[hitRes](t, rec); !res.Correct || res.Score != 1 {
		t.Fatalf("hit = %+v", res)
	}
	if rec := do(t, s, "/high_scores"); rec.Code != http.StatusInternalServerError {
		t.Errorf("high_scores status = %d, want 500", rec.Code)
	}
}

func TestNotFoundJSON(t *testing.T) {
	s, _ := newTestServer(t, nil)
	rec := do(t, s, "/nope")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d", rec.Code)
	}
	got := decode[map[string]string](t, rec)
	if got["error"] != "not_found" || got["path"] != "/nope" {
		t.Errorf("body = %v", got)
	}
}

func TestCORSPreflight(t *testing.T) {
	s, _ := newTestServer(t, nil)
	req := httptest.NewRequest(http.MethodOptions, "/get_bubbles", nil)
	req.Header.Set("Origin", "http://example.com")
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("allow-origin = %q", got)
	}
	if got := rec.Header().Get("Access-Control-Allow-Credentials"); got != "" {
		t.Errorf("credentials must not be advertised with *: %q", got)
	}
}

func TestWebsocketReceivesPolledState(t *testing.T) {
	tu := game.DefaultTuning()
	eng := game.New(tu, game.WithSpawnDriver(game.SpawnOnTimer))
	hub := stream.NewHub("*")
	s := New(eng, store.NewMemoryStore(), Options{Hub: hub})
	ts := httptest.NewServer(s.Router())
	defer ts.Close()

	c, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http")+"/ws", nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer c.Close()

	deadline := time.Now().Add(time.Second)
	for hub.Len() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("subscriber never registered")
		}
		time.Sleep(5 * time.Millisecond)
	}

	eng.Spawn("Q", 40)
	resp, err := http.Get(ts.URL + "/get_bubbles")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()

	_ = c.SetReadDeadline(time.Now().Add(time.Second))
	_, msg, err := c.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var snap game.Snapshot
	typ, err := stream.Decode(msg, &snap)
	if err != nil || typ != stream.MsgState {
		t.Fatalf("decode: %q %v", typ, err)
	}
	if len(snap.Bubbles) != 1 || snap.Bubbles[0].Letter != "Q" {
		t.Errorf("pushed bubbles = %+v", snap.Bubbles)
	}
}

func TestQRServesPNG(t *testing.T) {
	s, _ := newTestServer(t, nil)
	rec := do(t, s, "/qr")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "image/png" {
		t.Errorf("Content-Type = %q", ct)
	}
	if !strings.HasPrefix(rec.Body.String(), "\x89PNG") {
		t.Error("body is not a PNG")
	}
}

func TestPageURL(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "http://bubbles.local:10000/qr", nil)
	if got := pageURL(req); got != "http://bubbles.local:10000/" {
		t.Errorf("pageURL = %q", got)
	}
	req.Header.Set("X-Forwarded-Proto", "https")
	if got := pageURL(req); got != "https://bubbles.local:10000/" {
		t.Errorf("pageURL behind proxy = %q", got)
	}
}
