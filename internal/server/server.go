// Package server exposes scan sessions over HTTP with a server-sent event
// stream per scan.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"codeberg.org/mutker/vitalscan/internal/errors"
	"codeberg.org/mutker/vitalscan/internal/history"
	"codeberg.org/mutker/vitalscan/internal/logger"
	"codeberg.org/mutker/vitalscan/internal/scan"
	"codeberg.org/mutker/vitalscan/internal/wellness"
)

// ControllerFactory builds an Idle controller for one scan. The server passes
// its own options, which must be applied after the factory's.
type ControllerFactory func(user wellness.UserDetails, opts ...scan.Option) *scan.Controller

type Server struct {
	cfg     Config
	factory ControllerFactory
	history history.Recorder
	log     logger.Logger

	engine   *gin.Engine
	registry *registry
	hub      *streamHub

	wg       sync.WaitGroup
	stopOnce sync.Once
	stop     chan struct{}
}

func New(cfg Config, factory ControllerFactory, rec history.Recorder, log logger.Logger) *Server {
	gin.SetMode(gin.ReleaseMode)

	s := &Server{
		cfg:      cfg,
		factory:  factory,
		history:  rec,
		log:      log,
		engine:   gin.New(),
		registry: newRegistry(),
		hub:      newStreamHub(),
		stop:     make(chan struct{}),
	}

	s.engine.Use(gin.Recovery(), requestLogger(log))
	if len(cfg.CORSOrigins) > 0 {
		s.engine.Use(cors.New(cors.Config{
			AllowOrigins: cfg.CORSOrigins,
			AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowHeaders: []string{"accept", "content-type", "origin", "cache-control"},
			MaxAge:       12 * time.Hour,
		}))
	}
	s.routes()

	return s
}

func (s *Server) routes() {
	s.engine.GET("/healthz", s.health)

	v1 := s.engine.Group("/api/v1")
	v1.POST("/scans", s.createScan)
	v1.GET("/scans/:id", s.getScan)
	v1.POST("/scans/:id/start", s.startScan)
	v1.POST("/scans/:id/cancel", s.cancelScan)
	v1.POST("/scans/:id/retry", s.retryScan)
	v1.GET("/scans/:id/events", s.streamEvents)
	v1.GET("/history", s.listHistory)

	s.engine.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, errorBody(errors.ErrNotFound, "path not found"))
	})
}

func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully and
// closes every scan.
func (s *Server) Run(ctx context.Context, addr string) error {
	errFactory := errors.New()

	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info().Str("listen", addr).Msg("HTTP API listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		s.Close()
		if ok {
			return errFactory.Wrap(errors.ErrInitFailed, err)
		}
		return nil
	case <-ctx.Done():
	}

	// event streams only end when their scan does
	s.Close()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return errFactory.Wrap(errors.ErrShutdownFailed, err)
	}

	s.log.Info().Msg("HTTP API stopped")
	return nil
}

// Close cancels and releases every scan and ends their event streams.
func (s *Server) Close() {
	s.stopOnce.Do(func() { close(s.stop) })

	for _, e := range s.registry.drain() {
		s.closeEntry(e)
	}
	s.wg.Wait()
}

func (s *Server) register(user wellness.UserDetails) *entry {
	id := uuid.NewString()
	first := true
	ids := func() string {
		// the scan keeps the ID of its first session
		if first {
			first = false
			return id
		}
		return uuid.NewString()
	}

	ctrl := s.factory(user, scan.WithIDGenerator(ids), scan.WithLogger(s.log.With("scan")))
	e := &entry{id: id, ctrl: ctrl, user: user, createdAt: time.Now()}

	e.detach = append(e.detach,
		history.Attach(ctrl, user, s.history, s.log),
		ctrl.Subscribe(func(ev scan.Event) { s.publish(e.id, ev) }),
	)

	return e
}

// publish encodes ev as an SSE frame for the scan's stream.
func (s *Server) publish(id string, ev scan.Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		s.log.Error().Err(err).Str("scan_id", id).Msg("Failed to encode event")
		return
	}
	s.hub.Publish(id, []byte(fmt.Sprintf("event: %s\ndata: %s\n\n", ev.Type, data)))
}

// watch retires a scan once it has finished and the retention period has
// passed, or once it exceeds the maximum lifetime.
func (s *Server) watch(e *entry) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		lifetime := time.NewTimer(s.cfg.MaxLifetime)
		defer lifetime.Stop()

		select {
		case <-e.ctrl.Done():
			s.hub.CloseStream(e.id)
		case <-lifetime.C:
		case <-s.stop:
			return
		}

		retention := time.NewTimer(s.cfg.Retention)
		defer retention.Stop()

		select {
		case <-retention.C:
		case <-s.stop:
			return
		}

		if e, ok := s.registry.remove(e.id); ok {
			s.log.Debug().Str("scan_id", e.id).Msg("Retiring scan")
			s.closeEntry(e)
		}
	}()
}

func (s *Server) closeEntry(e *entry) {
	if err := e.ctrl.Close(); err != nil {
		s.log.Warn().Err(err).Str("scan_id", e.id).Msg("Failed to close scan")
	}
	<-e.ctrl.Done()
	for _, detach := range e.detach {
		detach()
	}
	s.hub.CloseStream(e.id)
}
