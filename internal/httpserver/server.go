// internal/httpserver/server.go
//
// HTTP server wiring for the bubble game.
// Responsibilities:
//   - Router + middleware (JSON, CORS, timeouts, panic recovery, request IDs, access log).
//   - Page shell: "/".
//   - Poll API: /get_bubbles (ticks the game), /hit_bubble, /set_player_name.
//   - Player cookie: /me.
//   - High-score ledger: /high_scores (best effort writes on every new record).
//   - Share: /qr (PNG QR code of the page URL).
//   - Snapshot push stream: /ws, JSON or ?enc=msgpack (mounted outside the request timeout).
//
// Notes:
//   - Missing query parameters are empty input, never an error.
//   - Ledger and stream failures are logged and never fail a game request.

package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/hlog"
	"github.com/rs/zerolog/log"

	"github.com/wsrjk/bblgm/assets"
	"github.com/wsrjk/bblgm/internal/game"
	"github.com/wsrjk/bblgm/internal/session"
	"github.com/wsrjk/bblgm/internal/store"
	"github.com/wsrjk/bblgm/internal/stream"
)

// Options carries the optional collaborators; zero values get defaults.
type Options struct {
	ClientOrigin string           // CORS + websocket origin; "*" by default
	Session      *session.Manager // player cookie signer
	Hub          *stream.Hub      // snapshot subscribers
}

// Server bundles router, game engine, ledger and stream hub.
type Server struct {
	r       *chi.Mux
	game    *game.Engine
	store   store.Store
	hub     *stream.Hub
	session *session.Manager
	origin  string
	http    *http.Server
}

// New constructs a Server, installs middleware, and registers routes.
func New(eng *game.Engine, st store.Store, opts Options) *Server {
	if opts.ClientOrigin == "" {
		opts.ClientOrigin = "*"
	}
	if opts.Session == nil {
		opts.Session = session.NewManager("dev_secret_change_me", 0, false)
	}
	if opts.Hub == nil {
		opts.Hub = stream.NewHub(opts.ClientOrigin)
	}
	s := &Server{
		r:       chi.NewRouter(),
		game:    eng,
		store:   st,
		hub:     opts.Hub,
		session: opts.Session,
		origin:  opts.ClientOrigin,
	}

	// --- middleware ---
	s.r.Use(chimw.RequestID)             // add X-Request-ID
	s.r.Use(chimw.RealIP)                // set RemoteAddr from X-Forwarded-For etc.
	s.r.Use(hlog.NewHandler(log.Logger)) // request-scoped logger
	s.r.Use(chimw.Recoverer)             // recover from panics
	s.r.Use(s.cors)                      // CORS for the configured origin

	// Push stream: long-lived, so no handler timeout.
	s.r.Get("/ws", s.hub.ServeWS)

	s.r.Group(func(r chi.Router) {
		r.Use(accessLog)
		r.Use(chimw.Timeout(10 * time.Second)) // bound handler time
		r.Use(jsonContentType)                 // default JSON responses
		r.Use(s.session.WithOptionalPlayer)

		r.Get("/", s.handleIndex)
		r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(`{"ok":true}`))
		})

		r.Get("/get_bubbles", s.handleGetBubbles)
		r.Get("/hit_bubble", s.handleHitBubble)
		r.Get("/set_player_name", s.handleSetPlayerName)
		r.Get("/me", s.handleMe)
		s.mountScores(r)
		s.mountShare(r)

		// JSON 404 for easier debugging
		r.NotFound(func(w http.ResponseWriter, r *http.Request) {
			notFound, _ := json.Marshal(map[string]string{"error": "not_found", "path": r.URL.Path})
			http.Error(w, string(notFound), http.StatusNotFound)
		})
	})

	s.http = &http.Server{Handler: s.r, ReadHeaderTimeout: 5 * time.Second}
	return s
}

// Start serves HTTP on addr until Shutdown is called.
func (s *Server) Start(addr string) error {
	s.http.Addr = addr
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting connections and waits for in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error { return s.http.Shutdown(ctx) }

// Router exposes the internal router (useful for tests).
func (s *Server) Router() chi.Router { return s.r }

// ----------------------------- middleware ----------------------------------

// jsonContentType sets a default JSON Content-Type header on all responses.
func jsonContentType(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		next.ServeHTTP(w, r)
	})
}

// cors allows the configured origin. Credentials are only advertised for a
// concrete origin, since browsers reject them alongside "*".
func (s *Server) cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Vary", "Origin")
		w.Header().Set("Access-Control-Allow-Origin", s.origin)
		if s.origin != "*" {
			w.Header().Set("Access-Control-Allow-Credentials", "true")
		}
		w.Header().Set("Access-Control-Allow-Methods", "GET,OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// accessLog writes one debug line per request.
var accessLog = hlog.AccessHandler(func(r *http.Request, status, size int, d time.Duration) {
	hlog.FromRequest(r).Debug().
		Str("reqId", chimw.GetReqID(r.Context())).
		Str("method", r.Method).
		Str("path", r.URL.Path).
		Int("status", status).
		Int("size", size).
		Dur("duration", d).
		Msg("request")
})

// ------------------------------ PAGE ---------------------------------------

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(assets.Index())
}

// ------------------------------ GAME ---------------------------------------

// hitRes is the payload for GET /hit_bubble.
type hitRes struct {
	Bubbles []game.Bubble `json:"bubbles"`
	Score   int           `json:"score"`
	Level   int           `json:"level"`
	Correct bool          `json:"correct"`
}

// handleGetBubbles ticks the game and returns the new state.
func (s *Server) handleGetBubbles(w http.ResponseWriter, r *http.Request) {
	snap := s.game.Advance()
	s.hub.Publish(snap)
	_ = json.NewEncoder(w).Encode(snap)
}

// handleHitBubble removes every bubble matching ?letter= and records a new
// high score in the ledger (best effort).
func (s *Server) handleHitBubble(w http.ResponseWriter, r *http.Request) {
	res := s.game.Hit(r.URL.Query().Get("letter"))
	if res.NewHighScore {
		s.recordHighScore(r.Context(), res)
	}
	s.hub.Publish(res.Snapshot)
	_ = json.NewEncoder(w).Encode(hitRes{
		Bubbles: res.Bubbles,
		Score:   res.Score,
		Level:   res.Level,
		Correct: res.Correct,
	})
}

// handleSetPlayerName sets the display name and issues the player cookie.
// An empty name is a no-op.
func (s *Server) handleSetPlayerName(w http.ResponseWriter, r *http.Request) {
	raw := strings.TrimSpace(r.URL.Query().Get("name"))
	name := s.game.SetPlayerName(raw)
	if raw != "" {
		if tok, exp, err := s.session.Sign(name); err != nil {
			log.Warn().Err(err).Msg("sign player token")
		} else {
			s.session.SetCookie(w, tok, exp)
		}
	}
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

// handleMe reports the name carried by the player cookie ("" when absent).
func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	_ = json.NewEncoder(w).Encode(map[string]string{"name": session.PlayerFrom(r.Context())})
}
