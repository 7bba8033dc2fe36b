package http

import (
	"bytes"
	stdhttp "net/http"
	"time"

	_ "embed"
)

//go:embed static/favicon.ico
var favicon []byte

//go:embed static/styles.css
var stylesheet []byte

func faviconHandler(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	if len(favicon) == 0 {
		w.WriteHeader(stdhttp.StatusNotFound)
		return
	}

	reader := bytes.NewReader(favicon)
	w.Header().Set("Content-Type", "image/x-icon")
	stdhttp.ServeContent(w, r, "favicon.ico", time.Time{}, reader)
}

func stylesHandler(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	reader := bytes.NewReader(stylesheet)
	w.Header().Set("Content-Type", "text/css; charset=utf-8")
	stdhttp.ServeContent(w, r, "styles.css", time.Time{}, reader)
}

// robotsHandler publishes the exclusion policy for the labyrinth prefix.
// Compliant crawlers stay out; the trap only ever catches the ones that
// ignore it.
func (s *Server) robotsHandler(w stdhttp.ResponseWriter, _ *stdhttp.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write(s.robotsBody)
}
