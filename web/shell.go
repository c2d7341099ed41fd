package web

import (
	"bytes"
	_ "embed"
	"html/template"
	"net/http"

	"github.com/studyhall/shell/internal/api/middleware"
)

//go:embed shell.html
var shellHTML string

var shellTemplate = template.Must(template.New("shell").Parse(shellHTML))

type shellData struct {
	Route  string
	View   string
	Path   string
	Params map[string]string
}

// ShellHandler serves the application shell for a navigation the guard let
// through. The page names the route and view the client should mount; a
// path that matches no route gets the same shell with status 404.
//
// Decisions depend on the credential cookie, so responses are never cached.
// Only GET and HEAD methods are allowed; other methods return 405 Method Not Allowed.
func ShellHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			w.Header().Set("Allow", "GET, HEAD")
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}

		loc, _ := middleware.LocationFromContext(r.Context())
		data := shellData{Route: loc.Name, View: loc.View, Path: r.URL.Path, Params: loc.Params}

		var buf bytes.Buffer
		if err := shellTemplate.Execute(&buf, data); err != nil {
			middleware.LoggerFromContext(r.Context()).Error().Err(err).Msg("render shell page")
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}

		status := http.StatusOK
		if !loc.Matched() {
			status = http.StatusNotFound
		}
		w.Header().Set("Cache-Control", "no-store")
		w.Header().Set("Vary", "Cookie")
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(status)
		if r.Method == http.MethodHead {
			return
		}
		_, _ = w.Write(buf.Bytes())
	})
}
