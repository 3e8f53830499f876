// Package web provides an HTTP status server for the room-sentinel daemon.
package web

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/sweeney/room-sentinel/internal/camera"
	"github.com/sweeney/room-sentinel/internal/status"
)

const snapshotQuality = 80

// Server serves the status page and the latest camera frame over HTTP.
type Server struct {
	httpServer *http.Server
	tracker    *status.Tracker
	frames     *camera.Latest
	logger     *zap.Logger
}

// New creates a Server that reads state from the given tracker. frames may be
// nil, in which case /snapshot.jpg always returns 404.
func New(addr string, tracker *status.Tracker, frames *camera.Latest, logger *zap.Logger) *Server {
	s := &Server{tracker: tracker, frames: frames, logger: logger}

	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

func (s *Server) routes() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/", s.handleIndex).Methods(http.MethodGet)
	r.HandleFunc("/index.html", s.handleIndex).Methods(http.MethodGet)
	r.HandleFunc("/index.json", s.handleJSON).Methods(http.MethodGet)
	r.HandleFunc("/snapshot.jpg", s.handleSnapshot).Methods(http.MethodGet)

	stdLog := zap.NewStdLog(s.logger.Named("http"))
	logged := handlers.CombinedLoggingHandler(stdLog.Writer(), r)
	return handlers.RecoveryHandler(handlers.RecoveryLogger(stdLog))(logged)
}

// ListenAndServe starts listening. It blocks until the server is shut down.
func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

// Serve accepts connections on the given listener. Useful for tests.
func (s *Server) Serve(ln net.Listener) error {
	return s.httpServer.Serve(ln)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	snap := s.tracker.Snapshot()
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := renderHTML(w, snap); err != nil {
		s.logger.Warn("render status page", zap.Error(err))
	}
}

func (s *Server) handleJSON(w http.ResponseWriter, r *http.Request) {
	snap := s.tracker.Snapshot()
	w.Header().Set("Content-Type", "application/json")
	w.Write(status.FormatJSON(snap))
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	if s.frames == nil {
		http.NotFound(w, r)
		return
	}
	data, ok, err := s.frames.JPEG(snapshotQuality)
	if !ok {
		http.Error(w, "no frame captured yet", http.StatusNotFound)
		return
	}
	if err != nil {
		s.logger.Warn("encode snapshot", zap.Error(err))
		http.Error(w, "encode failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Header().Set("Cache-Control", "no-store")
	w.Write(data)
}
