// Package server is the reference backend for the triage client: it lists
// folders and files under a media root and moves files on request.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/Nomadcxx/swipesort/internal/logging"
	"github.com/Nomadcxx/swipesort/internal/mover"
)

// Config holds configuration for the backend server
type Config struct {
	Mover  *mover.Mover
	Listen string
	Watch  bool
	Logger *logging.Logger
}

// Server serves the folder, file, media and move endpoints
type Server struct {
	mover   *mover.Mover
	listen  string
	watch   bool
	log     *logging.Logger
	folders *folderCache
}

// New creates a server instance
func New(cfg Config) *Server {
	log := cfg.Logger
	if log == nil {
		log = logging.Nop()
	}

	return &Server{
		mover:   cfg.Mover,
		listen:  cfg.Listen,
		watch:   cfg.Watch,
		log:     log.With("server"),
		folders: newFolderCache(cfg.Mover),
	}
}

// Handler returns the routed HTTP handler
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.requestLogger)
	r.Use(decodedPath)

	r.Get("/folders", s.handleFolders)
	r.Get("/files", s.handleFiles)
	r.Get("/media/*", s.handleMedia)
	r.Post("/move", s.handleMove)
	r.Post("/addfolder", s.handleAddFolder)

	return r
}

// Run serves until ctx is cancelled. The folder watcher, when enabled,
// runs alongside and a failure in either stops both.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.listen)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.listen, err)
	}

	httpServer := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		s.log.Info().Str("addr", ln.Addr().String()).Str("root", s.mover.Root()).Msg("backend listening")
		if err := httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	if s.watch {
		g.Go(func() error {
			return s.watchFolders(gctx)
		})
	}

	return g.Wait()
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)

		s.log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Str("request_id", middleware.GetReqID(r.Context())).
			Int("status", ww.Status()).
			Dur("elapsed", time.Since(start)).
			Msg("request")
	})
}

// decodedPath makes the router match on the decoded path. Go keeps a raw
// path when a name has characters like "," or ";" escaped, and routing on
// that would hand handlers still-escaped parameters.
func decodedPath(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.URL.RawPath = ""
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleFolders(w http.ResponseWriter, r *http.Request) {
	folders, err := s.folders.Get()
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, folders)
}

func (s *Server) handleFiles(w http.ResponseWriter, r *http.Request) {
	files, err := listFiles(s.mover, r.URL.Query().Get("dir"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, files)
}

func (s *Server) handleMedia(w http.ResponseWriter, r *http.Request) {
	abs, err := s.mover.Resolve(chi.URLParam(r, "*"))
	if err != nil {
		s.fail(w, r, err)
		return
	}

	info, err := os.Stat(abs)
	if err != nil || info.IsDir() {
		http.NotFound(w, r)
		return
	}

	http.ServeFile(w, r, abs)
}

type moveRequest struct {
	FromPath     string `json:"fromPath"`
	TargetFolder string `json:"targetFolder"`
}

func (s *Server) handleMove(w http.ResponseWriter, r *http.Request) {
	var req moveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.FromPath == "" || req.TargetFolder == "" {
		http.Error(w, "body must be {fromPath, targetFolder}", http.StatusBadRequest)
		return
	}

	op, err := s.mover.Move(middleware.GetReqID(r.Context()), req.FromPath, req.TargetFolder)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.folders.Invalidate()

	s.log.Info().Str("from", op.Source).Str("to", op.Destination).Str("request_id", op.ID).Msg("moved")
	w.WriteHeader(http.StatusNoContent)
}

type addFolderRequest struct {
	Name   string `json:"name"`
	Target string `json:"target"`
}

func (s *Server) handleAddFolder(w http.ResponseWriter, r *http.Request) {
	var req addFolderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "body must be {name, target?}", http.StatusBadRequest)
		return
	}

	op, err := s.mover.AddFolder(middleware.GetReqID(r.Context()), req.Name, req.Target)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.folders.Invalidate()

	s.log.Info().Str("folder", op.Destination).Str("request_id", op.ID).Msg("folder created")
	w.WriteHeader(http.StatusCreated)
}

// statusFor maps mover errors to HTTP statuses
func statusFor(err error) int {
	switch {
	case errors.Is(err, mover.ErrPathEscape), errors.Is(err, mover.ErrProtected):
		return http.StatusForbidden
	case errors.Is(err, mover.ErrSourceNotFound), errors.Is(err, os.ErrNotExist):
		return http.StatusNotFound
	case errors.Is(err, mover.ErrDestinationExists), errors.Is(err, mover.ErrNotDirectory):
		return http.StatusConflict
	case errors.Is(err, mover.ErrInvalidName):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	event := s.log.Warn()
	if status == http.StatusInternalServerError {
		event = s.log.Error()
	}
	event.Err(err).
		Str("path", r.URL.Path).
		Str("request_id", middleware.GetReqID(r.Context())).
		Int("status", status).
		Msg("request failed")

	http.Error(w, err.Error(), status)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
