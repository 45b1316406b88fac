// Defines HTTP routes and the embedded frontend handler.

package server

import (
	"embed"
	"io"
	"io/fs"
	"net/http"

	"github.com/maruel/contactcrm/frontend"
	"github.com/maruel/contactcrm/internal/server/dto"
	"github.com/maruel/contactcrm/internal/server/handlers"
	"github.com/maruel/contactcrm/internal/server/ratelimit"
)

// NewRouter creates and configures the HTTP router.
func NewRouter(svc *handlers.Services, cfg *handlers.Config, limiters *ratelimit.Limiters) http.Handler {
	mux := http.NewServeMux()

	ch := handlers.NewContactHandler(svc.Store)
	hh := handlers.NewHealthHandler(cfg.Version)
	sh := handlers.NewSchemaHandler(svc.Schema)
	hist := handlers.NewHistoryHandler(svc.History)

	mux.Handle("GET /api/health", Wrap(hh.Health, svc, cfg, limiters))
	mux.Handle("GET /api/schema", Wrap(sh.Schema, svc, cfg, limiters))
	mux.Handle("GET /api/history", Wrap(hist.History, svc, cfg, limiters))

	mux.Handle("GET /api/contacts", Wrap(ch.List, svc, cfg, limiters))
	mux.Handle("POST /api/contacts", Wrap(ch.Create, svc, cfg, limiters))
	mux.Handle("DELETE /api/contacts/_all", Wrap(ch.DeleteAll, svc, cfg, limiters))
	mux.Handle("PUT /api/contacts/{id}", Wrap(ch.Update, svc, cfg, limiters))
	mux.Handle("DELETE /api/contacts/{id}", Wrap(ch.Delete, svc, cfg, limiters))

	// Unknown API paths never fall through to the frontend.
	mux.HandleFunc("/api/", func(w http.ResponseWriter, r *http.Request) {
		writeError(w, dto.NotFound())
	})

	mux.Handle("/", NewEmbeddedSPAHandler(frontend.Files))

	return RequestLogMiddleware(mux)
}

// EmbeddedSPAHandler serves an embedded single-page application with fallback to index.html.
type EmbeddedSPAHandler struct {
	fs embed.FS
}

// NewEmbeddedSPAHandler creates a handler for the embedded frontend.
func NewEmbeddedSPAHandler(f embed.FS) *EmbeddedSPAHandler {
	return &EmbeddedSPAHandler{fs: f}
}

// ServeHTTP implements http.Handler for embedded SPA routing.
func (h *EmbeddedSPAHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" && r.URL.Path != "/index.html" {
		if f, err := h.fs.Open("dist" + r.URL.Path); err == nil {
			st, err := f.Stat()
			_ = f.Close()
			if err == nil && !st.IsDir() {
				fsys, _ := fs.Sub(h.fs, "dist")
				if containsDot(r.URL.Path) {
					w.Header().Set("Cache-Control", "public, max-age=3600")
				}
				http.FileServer(http.FS(fsys)).ServeHTTP(w, r)
				return
			}
		}
	}

	// Anything else is the application shell.
	indexFile, err := h.fs.Open("dist/index.html")
	if err != nil {
		http.NotFound(w, r)
		return
	}
	defer func() { _ = indexFile.Close() }()

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	if r.Method != http.MethodHead {
		_, _ = io.Copy(w, indexFile)
	}
}

// containsDot checks if the last path segment contains a dot (file extension).
func containsDot(path string) bool {
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '/' {
			return false
		}
		if path[i] == '.' {
			return true
		}
	}
	return false
}
