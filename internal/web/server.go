// Package web serves the mouse-debounce status page, its JSON twin and a
// health check that fails once the filter has stopped debouncing.
package web

import (
	"context"
	"fmt"
	"net"
	"net/http"

	"github.com/sweeney/mouse-debounce/internal/filter"
	"github.com/sweeney/mouse-debounce/internal/status"
)

// Server serves daemon status over HTTP.
type Server struct {
	httpServer *http.Server
	tracker    *status.Tracker
}

// New creates a Server that reads state from the given tracker.
func New(addr string, tracker *status.Tracker) *Server {
	s := &Server{tracker: tracker}

	mux := http.NewServeMux()
	mux.HandleFunc("/", s.page)
	mux.HandleFunc("/index.html", s.page)
	mux.HandleFunc("/index.json", s.json)
	mux.HandleFunc("/healthz", s.health)

	s.httpServer = &http.Server{Addr: addr, Handler: readOnly(mux)}
	return s
}

// Handler returns the request router.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// ListenAndServe blocks until the server is shut down.
func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

// Serve accepts connections on ln.
func (s *Server) Serve(ln net.Listener) error {
	return s.httpServer.Serve(ln)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// readOnly rejects everything but GET and HEAD.
func readOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			w.Header().Set("Allow", "GET, HEAD")
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) page(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" && r.URL.Path != "/index.html" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	renderHTML(w, s.tracker.Snapshot())
}

func (s *Server) json(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.Write(status.FormatJSON(s.tracker.Snapshot()))
}

// health answers 200 while buttons are being debounced and 503 once the
// gate has closed and events pass through unfiltered.
func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	phase := s.tracker.Snapshot().Phase
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	if phase != filter.PhaseActive {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	fmt.Fprintln(w, phase)
}
