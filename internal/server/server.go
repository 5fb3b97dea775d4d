// Package server serves interactive plan views over HTTP. Every loaded plan
// is mounted in its own view; the page posts clicks and zoom to the view and
// gets the redrawn SVG back.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/mickamy/planview/internal/metrics"
	"github.com/mickamy/planview/internal/model"
	"github.com/mickamy/planview/internal/normalizer"
	"github.com/mickamy/planview/internal/parser"
	"github.com/mickamy/planview/internal/render/html"
	"github.com/mickamy/planview/internal/render/svg"
	"github.com/mickamy/planview/internal/view"
)

const defaultMaxPlanBytes = 16 << 20

// Config holds configuration for the server.
type Config struct {
	Addr            string
	Watch           bool
	ShutdownTimeout time.Duration
	// MaxPlanBytes caps uploaded plans; larger bodies are rejected with 413.
	MaxPlanBytes    int64
	View            view.Config
	Title           string
	Logger          zerolog.Logger
	Metrics         *metrics.Collector
}

// Server owns a view host and the plan files its views were loaded from.
type Server struct {
	cfg     Config
	logger  zerolog.Logger
	metrics *metrics.Collector
	host    *view.Host

	mu      sync.Mutex
	order   []string
	sources map[string][]string
}

// New creates a server. A nil Metrics gets a fresh collector.
func New(cfg Config) *Server {
	if cfg.Metrics == nil {
		cfg.Metrics = metrics.New()
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 5 * time.Second
	}
	if cfg.MaxPlanBytes <= 0 {
		cfg.MaxPlanBytes = defaultMaxPlanBytes
	}
	return &Server{
		cfg:     cfg,
		logger:  cfg.Logger,
		metrics: cfg.Metrics,
		host:    view.NewHost(cfg.Metrics),
		sources: map[string][]string{},
	}
}

// LoadFile parses the plan at path and mounts it in a new view. The view is
// refreshed when the file changes and watching is enabled.
func (s *Server) LoadFile(path string) (string, error) {
	root, stats, err := normalizer.LoadFile(path)
	if err != nil {
		if errors.Is(err, parser.ErrParse) {
			s.metrics.ParseFailure("file")
		}
		return "", err
	}
	id, err := s.mount(root, stats)
	if err != nil {
		return "", err
	}
	s.mu.Lock()
	s.sources[path] = append(s.sources[path], id)
	s.mu.Unlock()
	return id, nil
}

// Reload re-parses path and hands the new tree to every view loaded from it.
// Collapse state survives for nodes that keep their IDs.
func (s *Server) Reload(path string) error {
	s.mu.Lock()
	ids := append([]string(nil), s.sources[path]...)
	s.mu.Unlock()
	if len(ids) == 0 {
		return nil
	}

	root, stats, err := normalizer.LoadFile(path)
	if err != nil {
		if errors.Is(err, parser.ErrParse) {
			s.metrics.ParseFailure("watch")
		}
		return err
	}
	for _, id := range ids {
		v, ok := s.host.Get(id)
		if !ok {
			continue
		}
		if err := v.SetData(root, stats); err != nil {
			return fmt.Errorf("reload %s: %w", id, err)
		}
	}
	s.logger.Info().Str("file", path).Strs("views", ids).Msg("plan reloaded")
	return nil
}

func (s *Server) mount(root *model.PlanNode, stats *model.PlanStats) (string, error) {
	id := uuid.New().String()
	if _, err := s.host.Mount(&view.Container{ID: id}, s.cfg.View, root, stats); err != nil {
		return "", err
	}
	s.mu.Lock()
	s.order = append(s.order, id)
	s.mu.Unlock()
	s.metrics.SetViews(s.host.Len())
	s.logger.Debug().Str("view", id).Int("nodes", stats.NodeCount).Msg("view mounted")
	return id, nil
}

func (s *Server) unmount(id string) bool {
	if !s.host.Unmount(id) {
		return false
	}
	s.mu.Lock()
	for i, v := range s.order {
		if v == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	for path, ids := range s.sources {
		for i, v := range ids {
			if v == id {
				s.sources[path] = append(ids[:i], ids[i+1:]...)
				break
			}
		}
	}
	s.mu.Unlock()
	s.metrics.SetViews(s.host.Len())
	return true
}

// Views lists the mounted view IDs in mount order.
func (s *Server) Views() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.order...)
}

// Handler returns the HTTP routes.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.RequestID,
		middleware.Recoverer,
		s.requestLogger,
	)

	r.Get("/", s.handleIndex)
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	r.Method(http.MethodGet, "/metrics", s.metrics.Handler())

	r.Route("/views", func(r chi.Router) {
		r.Get("/", s.handleList)
		r.Post("/", s.handleUpload)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.handlePage)
			r.Delete("/", s.handleDelete)
			r.Get("/svg", s.handleSVG)
			r.Get("/snapshot", s.handleSnapshot)
			r.Post("/events", s.handleEvent)
		})
	})
	return r
}

// Serve runs the HTTP server, and the file watcher when enabled, until ctx
// is cancelled.
func (s *Server) Serve(ctx context.Context) error {
	eg, egctx := errgroup.WithContext(ctx)

	srv := &http.Server{
		Addr:    s.cfg.Addr,
		Handler: s.Handler(),
		BaseContext: func(_ net.Listener) context.Context {
			return egctx
		},
		ReadHeaderTimeout: 10 * time.Second,
	}

	if s.cfg.Watch {
		w, err := newWatcher(s)
		if err != nil {
			return err
		}
		eg.Go(func() error {
			return w.run(egctx)
		})
	}

	eg.Go(func() error {
		s.logger.Info().Str("addr", "http://"+s.cfg.Addr).Int("views", s.host.Len()).Msg("serving plans")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	eg.Go(func() error {
		<-egctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
		defer cancel()

		s.logger.Debug().Msg("shutting down server")
		return srv.Shutdown(shutdownCtx)
	})

	return eg.Wait()
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		duration := time.Since(start)
		s.metrics.ObserveRequest(route, status, duration)

		event := s.logger.Debug()
		if status >= http.StatusInternalServerError {
			event = s.logger.Error()
		}
		event.
			Str("method", r.Method).
			Str("route", route).
			Int("status", status).
			Int("bytes", ww.BytesWritten()).
			Dur("duration", duration).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("request")
	})
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	views := s.Views()
	if len(views) == 0 {
		http.Error(w, "no plan loaded; POST one to /views", http.StatusNotFound)
		return
	}
	http.Redirect(w, r, "/views/"+views[0], http.StatusFound)
}

func (s *Server) handleList(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"views": s.Views()})
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	root, stats, err := normalizer.Load(http.MaxBytesReader(w, r.Body, s.cfg.MaxPlanBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			http.Error(w, fmt.Sprintf("plan exceeds %d bytes", tooLarge.Limit), http.StatusRequestEntityTooLarge)
			return
		}
		if errors.Is(err, parser.ErrParse) {
			s.metrics.ParseFailure("upload")
			http.Error(w, err.Error(), http.StatusUnprocessableEntity)
			return
		}
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	id, err := s.mount(root, stats)
	if err != nil {
		writeViewError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"id": id, "url": "/views/" + id})
}

func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	v, ok := s.lookup(w, r)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	err := html.Render(w, v, html.Options{
		Title:         s.cfg.Title,
		IncludeStyles: true,
		Interactive:   true,
		EventsURL:     "/views/" + v.Container().ID + "/events",
	})
	if err != nil {
		s.logger.Error().Err(err).Msg("render page")
	}
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	if !s.unmount(chi.URLParam(r, "id")) {
		http.NotFound(w, r)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSVG(w http.ResponseWriter, r *http.Request) {
	v, ok := s.lookup(w, r)
	if !ok {
		return
	}
	s.writeSVG(w, v)
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	v, ok := s.lookup(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, v.Snapshot())
}

func (s *Server) handleEvent(w http.ResponseWriter, r *http.Request) {
	v, ok := s.lookup(w, r)
	if !ok {
		return
	}
	var e view.Event
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<16)).Decode(&e); err != nil {
		http.Error(w, "decode event: "+err.Error(), http.StatusBadRequest)
		return
	}
	s.metrics.Event(e.Name)
	if err := v.Dispatch(e); err != nil {
		writeViewError(w, err)
		return
	}
	s.writeSVG(w, v)
}

func (s *Server) writeSVG(w http.ResponseWriter, v *view.View) {
	out, err := svg.String(v.Snapshot(), svg.Options{Inline: true, ID: html.GraphID})
	if err != nil {
		writeViewError(w, err)
		return
	}
	w.Header().Set("Content-Type", "image/svg+xml")
	_, _ = io.WriteString(w, out)
}

func (s *Server) lookup(w http.ResponseWriter, r *http.Request) (*view.View, bool) {
	v, ok := s.host.Get(chi.URLParam(r, "id"))
	if !ok {
		http.NotFound(w, r)
		return nil, false
	}
	return v, true
}

func writeViewError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, view.ErrUnknownNode), errors.Is(err, view.ErrEmptyPlan):
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
