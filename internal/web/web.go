// Package web serves the browser shell of the portal. All data comes from the
// /portal/ JSON API.
package web

import (
	"embed"
	"net/http"
	"strings"
)

//go:embed static/index.html static/app.css static/app.js
var staticFS embed.FS

var assets = map[string]string{
	"/assets/app.css": "text/css; charset=utf-8",
	"/assets/app.js":  "text/javascript; charset=utf-8",
}

// Handler serves the assets and answers every other page path with the shell
// so client-side routes like /admin/login load directly.
func Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		if contentType, ok := assets[r.URL.Path]; ok {
			serveFile(w, "static/"+strings.TrimPrefix(r.URL.Path, "/assets/"), contentType, "private, max-age=300")
			return
		}
		if strings.HasPrefix(r.URL.Path, "/portal/") || strings.HasPrefix(r.URL.Path, "/assets/") {
			http.NotFound(w, r)
			return
		}
		serveFile(w, "static/index.html", "text/html; charset=utf-8", "no-cache")
	})
}

func serveFile(w http.ResponseWriter, name, contentType, cacheControl string) {
	data, err := staticFS.ReadFile(name)
	if err != nil {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", cacheControl)
	_, _ = w.Write(data)
}
