package http

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
)

const maxPlaceholderSide = 2000

func (h *Handler) root(w http.ResponseWriter, _ *http.Request) {
	writeText(w, http.StatusOK, "text/plain; charset=utf-8", "API is running...")
}

func (h *Handler) healthz(w http.ResponseWriter, _ *http.Request) {
	writeMessage(w, http.StatusOK, "ok")
}

func (h *Handler) readyz(w http.ResponseWriter, r *http.Request) {
	if h.ready != nil {
		if err := h.ready(r.Context()); err != nil {
			fail(r.Context(), w, "readyz", http.StatusServiceUnavailable, "NOT_READY", "dependency unavailable", err)
			return
		}
	}
	writeMessage(w, http.StatusOK, "ready")
}

func (h *Handler) jwks(w http.ResponseWriter, r *http.Request) {
	if h.keys == nil {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "key publication disabled")
		return
	}
	keys, err := h.keys.PublicJWKs()
	if err != nil {
		writeMappedError(r.Context(), w, "jwks", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"keys": keys})
}

// placeholder draws the grey box product cards fall back to when a product has no image.
func (h *Handler) placeholder(w http.ResponseWriter, r *http.Request) {
	width, werr := strconv.Atoi(chi.URLParam(r, "width"))
	height, herr := strconv.Atoi(chi.URLParam(r, "height"))
	if werr != nil || herr != nil || width < 1 || height < 1 || width > maxPlaceholderSide || height > maxPlaceholderSide {
		writeValidationError(r.Context(), w, "placeholder",
			fmt.Errorf("width and height must be integers between 1 and %d", maxPlaceholderSide))
		return
	}
	fontSize := min(width, height) / 8
	if fontSize < 8 {
		fontSize = 8
	}
	svg := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">`+
		`<rect width="100%%" height="100%%" fill="#e5e7eb"/>`+
		`<text x="50%%" y="50%%" dominant-baseline="middle" text-anchor="middle" font-family="sans-serif" font-size="%d" fill="#9ca3af">%d×%d</text>`+
		`</svg>`, width, height, width, height, fontSize, width, height)
	w.Header().Set("Cache-Control", "public, max-age=86400")
	writeText(w, http.StatusOK, "image/svg+xml", svg)
}
