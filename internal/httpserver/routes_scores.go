// internal/httpserver/routes_scores.go
//
// HTTP routes for the high-score ledger.
//   - GET /high_scores?limit=N → best score per player, highest first
//
// Writes happen from /hit_bubble whenever the live game beats its high score.

package httpserver

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/wsrjk/bblgm/internal/game"
	"github.com/wsrjk/bblgm/internal/store"
)

// mountScores registers the ledger routes.
func (s *Server) mountScores(r chi.Router) {
	r.Get("/high_scores", s.handleHighScores)
}

// recordHighScore stores a new high score. Failures are logged only: the hit
// that produced it has already been applied.
func (s *Server) recordHighScore(ctx context.Context, res game.HitResult) {
	if res.HighScore == nil {
		return
	}
	e := store.Entry{Name: res.HighScore.Name, Score: res.HighScore.Score, Level: res.Level}
	if err := s.store.Record(ctx, e); err != nil {
		log.Warn().Err(err).Str("name", e.Name).Int("score", e.Score).Msg("record high score")
		return
	}
	log.Debug().Str("name", e.Name).Int("score", e.Score).Msg("new high score")
}

// highScoresRes is returned by /high_scores.
type highScoresRes struct {
	Items []store.Entry `json:"items"`
}

// handleHighScores returns the top of the ledger. A missing or invalid limit
// uses store.DefaultLimit.
func (s *Server) handleHighScores(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	rows, err := s.store.Top(r.Context(), limit)
	if err != nil {
		log.Error().Err(err).Msg("load high scores")
		http.Error(w, `{"error":"db_error"}`, http.StatusInternalServerError)
		return
	}
	if rows == nil {
		rows = []store.Entry{}
	}
	_ = json.NewEncoder(w).Encode(highScoresRes{Items: rows})
}
