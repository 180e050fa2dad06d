// Package views serves the control panel and the transparent overlay page.
// Both pages are thin clients of the /ws sync channel.
package views

import (
	"embed"
	"io/fs"
	"net/http"

	"github.com/rs/zerolog/log"
)

//go:embed static
var content embed.FS

// Handler serves the two views and their static assets
type Handler struct {
	static fs.FS
}

// NewHandler creates a view handler over the embedded pages
func NewHandler() *Handler {
	static, err := fs.Sub(content, "static")
	if err != nil {
		panic(err)
	}
	return &Handler{static: static}
}

// HandleControl serves the control view at /
func (h *Handler) HandleControl(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	h.servePage(w, "control.html")
}

// HandleOverlay serves the overlay view at /overlay
func (h *Handler) HandleOverlay(w http.ResponseWriter, r *http.Request) {
	h.servePage(w, "overlay.html")
}

func (h *Handler) servePage(w http.ResponseWriter, name string) {
	page, err := fs.ReadFile(h.static, name)
	if err != nil {
		log.Error().Err(err).Str("page", name).Msg("failed to read embedded page")
		http.Error(w, "page unavailable", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	if _, err := w.Write(page); err != nil {
		log.Debug().Err(err).Str("page", name).Msg("failed to write page")
	}
}

// RegisterRoutes registers the view routes with an HTTP mux
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/", h.HandleControl)
	mux.HandleFunc("/overlay", h.HandleOverlay)
	mux.Handle("/static/", http.StripPrefix("/static/", http.FileServer(http.FS(h.static))))
}
