// internal/httpserver/routes_share.go
//
// Share route: GET /qr returns a PNG QR code pointing at the page shell, so a
// phone can open the game and tap bubbles.

package httpserver

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
	qrcode "github.com/skip2/go-qrcode"
)

const qrSize = 320

func (s *Server) mountShare(r chi.Router) {
	r.Get("/qr", s.handleQR)
}

// handleQR encodes the absolute URL of "/" as seen by the client. Behind a
// proxy, X-Forwarded-Proto decides the scheme.
func (s *Server) handleQR(w http.ResponseWriter, r *http.Request) {
	png, err := qrcode.Encode(pageURL(r), qrcode.Medium, qrSize)
	if err != nil {
		log.Warn().Err(err).Msg("qr encode")
		http.Error(w, `{"error":"qr_failed"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write(png)
}

func pageURL(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme = proto
	}
	return scheme + "://" + r.Host + "/"
}
