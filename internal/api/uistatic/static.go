// Package uistatic embeds the chat UI.
package uistatic

import (
	"bytes"
	"embed"
	"html/template"
	"io/fs"
	"net/http"
	"path"
	"strings"
)

//go:embed all:app
var distFS embed.FS

const defaultTitle = "Shelfchat"

// Handler serves the embedded files and falls back to index.html for unknown
// paths. title replaces the page heading; empty means the default.
func Handler(title string) http.Handler {
	sub, err := fs.Sub(distFS, "app")
	if err != nil {
		return http.NotFoundHandler()
	}
	index, err := renderIndex(sub, title)
	if err != nil {
		return http.NotFoundHandler()
	}
	fileServer := http.FileServer(http.FS(sub))

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cleanPath := path.Clean(strings.TrimPrefix(r.URL.Path, "/"))
		if cleanPath == "." || cleanPath == "" || cleanPath == "index.html" {
			serveIndex(w, index)
			return
		}

		if _, err := fs.Stat(sub, cleanPath); err == nil {
			fileServer.ServeHTTP(w, r)
			return
		}
		serveIndex(w, index)
	})
}

func renderIndex(filesystem fs.FS, title string) ([]byte, error) {
	if strings.TrimSpace(title) == "" {
		title = defaultTitle
	}
	tmpl, err := template.ParseFS(filesystem, "index.html")
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, struct{ Title string }{Title: title}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func serveIndex(w http.ResponseWriter, index []byte) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(index)
}
