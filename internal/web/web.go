// Package web serves the browser call page.
package web

import (
	"bytes"
	"embed"
	"html/template"
	"io/fs"
	"net/http"

	"github.com/rs/zerolog"
)

//go:embed static
var content embed.FS

var indexTemplate = template.Must(template.ParseFS(content, "static/index.html"))

// Page is the copy rendered into the call page.
type Page struct {
	Title       string
	Description string
}

// Handler serves the call page at "/" and its assets under "/static/".
// page is consulted on every request so the copy can change at runtime.
func Handler(page func() Page, logger zerolog.Logger) http.Handler {
	static, err := fs.Sub(content, "static")
	if err != nil {
		panic(err)
	}

	mux := http.NewServeMux()
	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServer(http.FS(static))))
	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		var buf bytes.Buffer
		if err := indexTemplate.Execute(&buf, page()); err != nil {
			logger.Error().Err(err).Msg("Failed to render call page")
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Header().Set("Cache-Control", "no-store")
		_, _ = buf.WriteTo(w)
	})

	return mux
}
