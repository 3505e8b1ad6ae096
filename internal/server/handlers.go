package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"codeberg.org/mutker/vitalscan/internal/errors"
	"codeberg.org/mutker/vitalscan/internal/logger"
	"codeberg.org/mutker/vitalscan/internal/scan"
	"codeberg.org/mutker/vitalscan/internal/wellness"
)

const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 100
)

type scanResponse struct {
	ID      string       `json:"id"`
	Session scan.Session `json:"session"`
}

func errorBody(code errors.ErrorCode, msg string) gin.H {
	return gin.H{"error": code, "message": msg}
}

func statusFor(code errors.ErrorCode) int {
	switch code {
	case errors.ErrInvalidArgument:
		return http.StatusBadRequest
	case errors.ErrNotFound:
		return http.StatusNotFound
	case errors.ErrPreconditionFailed, errors.ErrInvalidState:
		return http.StatusConflict
	case errors.ErrCaptureUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) fail(c *gin.Context, err error) {
	code := errors.CodeOf(err)
	status := statusFor(code)
	if status >= http.StatusInternalServerError {
		s.log.Error().Err(err).Str("path", c.FullPath()).Msg("Request failed")
	}
	c.AbortWithStatusJSON(status, errorBody(code, err.Error()))
}

func (s *Server) lookup(c *gin.Context) (*entry, bool) {
	id := c.Param("id")
	e, ok := s.registry.get(id)
	if !ok {
		s.fail(c, errors.New().WithData(errors.ErrNotFound, "scan "+id))
		return nil, false
	}
	return e, true
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "scans": s.registry.len()})
}

func (s *Server) createScan(c *gin.Context) {
	var user wellness.UserDetails
	if err := c.ShouldBindJSON(&user); err != nil {
		s.fail(c, errors.New().Wrap(errors.ErrInvalidArgument, err))
		return
	}
	if err := user.Validate(); err != nil {
		s.fail(c, err)
		return
	}

	e := s.register(user)
	s.registry.put(e)
	s.watch(e)

	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.AcquireTimeout)
	defer cancel()

	// a capture failure leaves the scan in a retryable error state
	if err := e.ctrl.Open(ctx); err != nil && !errors.HasCode(err, errors.ErrCaptureUnavailable) {
		s.fail(c, err)
		return
	}

	s.log.Info().Str("scan_id", e.id).Msg("Scan created")
	c.JSON(http.StatusCreated, scanResponse{ID: e.id, Session: e.ctrl.Snapshot()})
}

func (s *Server) getScan(c *gin.Context) {
	e, ok := s.lookup(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, scanResponse{ID: e.id, Session: e.ctrl.Snapshot()})
}

func (s *Server) startScan(c *gin.Context) {
	e, ok := s.lookup(c)
	if !ok {
		return
	}
	if err := e.ctrl.StartScan(); err != nil {
		s.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) cancelScan(c *gin.Context) {
	e, ok := s.lookup(c)
	if !ok {
		return
	}
	if err := e.ctrl.Cancel(); err != nil {
		s.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) retryScan(c *gin.Context) {
	e, ok := s.lookup(c)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.AcquireTimeout)
	defer cancel()

	if err := e.ctrl.RetryCapture(ctx); err != nil {
		s.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) listHistory(c *gin.Context) {
	limit := defaultHistoryLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			s.fail(c, errors.New().WithData(errors.ErrInvalidArgument, "limit must be a positive integer"))
			return
		}
		limit = min(n, maxHistoryLimit)
	}

	records, err := s.history.List(c.Request.Context(), limit)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"records": records})
}

// streamEvents relays a scan's events as server-sent events until the scan
// ends or the client goes away.
func (s *Server) streamEvents(c *gin.Context) {
	e, ok := s.lookup(c)
	if !ok {
		return
	}

	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		s.fail(c, errors.New().WithData(errors.ErrNotImplemented, "streaming unsupported"))
		return
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	frames := s.hub.Subscribe(ctx, e.id)
	log := s.log.With("sse")

	// the snapshot covers whatever happened before the subscription
	snapshot, err := json.Marshal(scanResponse{ID: e.id, Session: e.ctrl.Snapshot()})
	if err != nil {
		log.Error().Err(err).Str("scan_id", e.id).Msg("Failed to encode snapshot")
		return
	}
	if _, err := fmt.Fprintf(c.Writer, "event: snapshot\ndata: %s\n\n", snapshot); err != nil {
		return
	}
	flusher.Flush()

	select {
	case <-e.ctrl.Done():
		// nothing more will be published
		return
	default:
	}

	heartbeat := time.NewTicker(s.cfg.Heartbeat)
	defer heartbeat.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Debug().Str("scan_id", e.id).Msg("Client disconnected")
			return
		case <-s.stop:
			return
		case <-heartbeat.C:
			if _, err := c.Writer.Write([]byte(": heartbeat\n\n")); err != nil {
				return
			}
			flusher.Flush()
		case frame, ok := <-frames:
			if !ok {
				return
			}
			if _, err := c.Writer.Write(frame); err != nil {
				log.Debug().Err(err).Str("scan_id", e.id).Msg("Write failed")
				return
			}
			flusher.Flush()
		}
	}
}

func requestLogger(log logger.Logger) gin.HandlerFunc {
	httpLog := log.With("http")

	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		httpLog.Debug().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("latency", time.Since(start)).
			Msg("Request handled")
	}
}
