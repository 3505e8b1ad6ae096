// Package scan drives a single guided face scan: it holds the camera,
// samples frame quality, advances progress while the user is positioned
// correctly and hands off to the wellness estimator when the scan finishes.
package scan

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"

	"codeberg.org/mutker/vitalscan/internal/capture"
	"codeberg.org/mutker/vitalscan/internal/errors"
	"codeberg.org/mutker/vitalscan/internal/logger"
	"codeberg.org/mutker/vitalscan/internal/quality"
	"codeberg.org/mutker/vitalscan/internal/wellness"
)

type Option func(*Controller)

func WithLogger(log logger.Logger) Option {
	return func(c *Controller) { c.log = log }
}

func WithAnalyzer(a *quality.Analyzer) Option {
	return func(c *Controller) { c.analyzer = a }
}

func WithEstimator(e *wellness.Estimator) Option {
	return func(c *Controller) { c.estimator = e }
}

// WithIDGenerator replaces the session ID source.
func WithIDGenerator(fn func() string) Option {
	return func(c *Controller) { c.newID = fn }
}

// heldStream releases the underlying stream at most once, whichever of the
// loop, Cancel or Close gets there first.
type heldStream struct {
	capture.Stream
	once sync.Once
}

func (h *heldStream) release(log logger.Logger) {
	h.once.Do(func() {
		if err := h.Stream.Release(); err != nil {
			log.Warn().Err(err).Msg("Failed to release capture stream")
		}
	})
}

// Controller owns one scan at a time. A controller starts Idle, runs a
// session through to a terminal state and can start a fresh session only
// through RetryCapture after a recoverable capture failure.
type Controller struct {
	cfg       Config
	user      wellness.UserDetails
	source    capture.Source
	analyzer  *quality.Analyzer
	estimator *wellness.Estimator
	log       logger.Logger
	newID     func() string
	events    *dispatcher

	mu          sync.Mutex
	session     Session
	cause       errors.Error
	recoverable bool
	latest      *quality.Analysis
	previous    *capture.Frame
	ticks       int
	missed      int
	stream      *heldStream
	stop        chan struct{}
	loopDone    chan struct{}
}

// New creates an Idle controller for user. Analyzer and estimator default to
// the stock configuration with a time-seeded random source.
func New(cfg Config, user wellness.UserDetails, source capture.Source, opts ...Option) *Controller {
	c := &Controller{
		cfg:    cfg,
		user:   user,
		source: source,
		log:    logger.Nop(),
		newID:  uuid.NewString,
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.analyzer == nil {
		c.analyzer = quality.NewAnalyzer(quality.DefaultConfig(), newRand())
	}
	if c.estimator == nil {
		c.estimator = wellness.NewEstimator(wellness.DefaultConfig(), newRand())
	}

	c.events = newDispatcher(c.log)
	c.session = Session{State: StateIdle, CreatedAt: time.Now()}

	return c
}

func newRand() *rand.Rand {
	return rand.New(rand.NewSource(time.Now().UnixNano()))
}

// Subscribe registers fn for all future events and returns a function that
// removes it. Handlers run on the dispatcher goroutine, one event at a time.
func (c *Controller) Subscribe(fn func(Event)) func() {
	return c.events.subscribe(fn)
}

// Done is closed once the last event of the controller has been delivered:
// after Completed, Cancelled or a non-recoverable Error, or after Close.
func (c *Controller) Done() <-chan struct{} {
	return c.events.done
}

func (c *Controller) Snapshot() Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session.State
}

// Open starts the first session: it acquires the capture source and begins
// sampling. Acquisition failure moves the session to Error and is returned.
func (c *Controller) Open(ctx context.Context) error {
	c.mu.Lock()
	if c.session.State != StateIdle {
		err := c.invalidStateLocked("open")
		c.mu.Unlock()
		return err
	}
	c.beginLocked()
	c.mu.Unlock()

	return c.acquire(ctx)
}

// StartScan moves a Ready session to Scanning. It is rejected without a
// transition unless the latest sample shows the face detected and in frame.
func (c *Controller) StartScan() error {
	c.mu.Lock()

	if c.session.State != StateReady {
		err := c.invalidStateLocked("start scan")
		c.mu.Unlock()
		return err
	}

	if c.latest == nil || !c.latest.Usable() {
		msg := "face not positioned"
		if c.latest != nil {
			msg = string(c.latest.Message)
		}
		c.mu.Unlock()
		return errors.New().WithData(ErrPreconditionFailed, msg)
	}

	now := time.Now()
	c.session.State = StateScanning
	c.session.ScanStarted = now
	c.session.Paused = c.latest.Degraded()
	c.session.TipIndex = 0
	if len(c.cfg.Tips) > 0 {
		c.session.Tip = c.cfg.Tips[0]
	}
	c.ticks = 0
	ev := c.eventLocked(EventScanStarted)
	c.mu.Unlock()

	c.log.Info().Str("session_id", ev.SessionID).Msg("Scan started")
	c.emit(ev)

	return nil
}

// Cancel stops a non-terminal session. The loop has halted and the capture
// stream has been released by the time Cancel returns.
func (c *Controller) Cancel() error {
	c.mu.Lock()

	if c.session.State.Terminal() {
		err := c.invalidStateLocked("cancel")
		c.mu.Unlock()
		return err
	}

	c.session.State = StateCancelled
	c.session.Paused = false
	c.session.EndedAt = time.Now()
	done := c.haltLocked()
	c.mu.Unlock()

	if done != nil {
		<-done
	}
	c.releaseStream()

	c.mu.Lock()
	ev := c.eventLocked(EventCancelled)
	c.mu.Unlock()

	c.log.Info().Str("session_id", ev.SessionID).Float64("progress", ev.Progress).Msg("Scan cancelled")
	c.emitLast(ev)

	return nil
}

// RetryCapture starts a fresh session after a recoverable capture failure.
// The new session has a new ID and zero progress.
func (c *Controller) RetryCapture(ctx context.Context) error {
	c.mu.Lock()
	if c.session.State != StateError || !c.recoverable {
		err := c.invalidStateLocked("retry capture")
		c.mu.Unlock()
		return err
	}
	done := c.loopDone
	c.mu.Unlock()

	// the failed session's loop may still be releasing its stream
	if done != nil {
		<-done
	}

	c.mu.Lock()
	if c.session.State != StateError || !c.recoverable {
		err := c.invalidStateLocked("retry capture")
		c.mu.Unlock()
		return err
	}
	previousID := c.session.ID
	c.beginLocked()
	id := c.session.ID
	c.mu.Unlock()

	c.log.Info().Str("session_id", id).Str("previous_session_id", previousID).Msg("Retrying capture")

	return c.acquire(ctx)
}

// Close cancels any running session, releases the capture and stops event
// delivery once queued events have been handled.
func (c *Controller) Close() error {
	if err := c.Cancel(); err != nil && !errors.HasCode(err, ErrInvalidState) {
		return err
	}

	c.mu.Lock()
	done := c.haltLocked()
	c.mu.Unlock()

	if done != nil {
		<-done
	}
	c.releaseStream()
	c.events.close()

	return nil
}

func (c *Controller) beginLocked() {
	now := time.Now()
	c.session = Session{
		ID:        c.newID(),
		State:     StateInitializing,
		CreatedAt: now,
	}
	c.cause = nil
	c.recoverable = false
	c.latest = nil
	c.previous = nil
	c.ticks = 0
	c.missed = 0
	c.stop = nil
	c.loopDone = nil
}

func (c *Controller) acquire(ctx context.Context) error {
	c.mu.Lock()
	c.emitLocked(EventInitializing)
	id := c.session.ID
	c.mu.Unlock()

	c.log.Debug().Str("session_id", id).Msg("Acquiring capture source")

	stream, err := c.source.Acquire(ctx)

	c.mu.Lock()

	if c.session.ID != id || c.session.State != StateInitializing {
		// cancelled while the device was opening
		c.mu.Unlock()
		if stream != nil {
			(&heldStream{Stream: stream}).release(c.log)
		}
		return errors.New().WithData(ErrInvalidState, "session ended during capture acquisition")
	}

	if err != nil {
		var coded errors.Error
		if !errors.As(err, &coded) || coded.Code() != ErrCaptureUnavailable {
			coded = errors.New().Wrap(ErrCaptureUnavailable, err)
		}
		c.failLocked(coded, true)
		ev := c.eventLocked(EventError)
		c.mu.Unlock()

		c.log.ErrorWithCode(coded).Str("session_id", id).Msg("Capture acquisition failed")
		c.emit(ev)

		return coded
	}

	held := &heldStream{Stream: stream}
	stop := make(chan struct{})
	done := make(chan struct{})
	c.stream = held
	c.stop = stop
	c.loopDone = done
	c.mu.Unlock()

	go c.run(held, stop, done)

	return nil
}

// haltLocked signals the loop to stop and returns the channel closed when it
// has exited, or nil when no loop is running.
func (c *Controller) haltLocked() chan struct{} {
	if c.stop != nil {
		close(c.stop)
		c.stop = nil
	}
	return c.loopDone
}

func (c *Controller) releaseStream() {
	c.mu.Lock()
	held := c.stream
	c.stream = nil
	c.mu.Unlock()

	if held != nil {
		held.release(c.log)
	}
}

func (c *Controller) failLocked(err errors.Error, recoverable bool) {
	c.session.State = StateError
	c.session.Paused = false
	c.session.EndedAt = time.Now()
	c.session.ErrorCode = err.Code()
	c.session.Error = err.Error()
	c.session.Recoverable = recoverable
	c.cause = err
	c.recoverable = recoverable
}

func (c *Controller) invalidStateLocked(op string) error {
	return errors.New().WithData(ErrInvalidState, op+" not allowed in state "+string(c.session.State))
}

func (c *Controller) eventLocked(t EventType) Event {
	s := c.session
	ev := Event{
		Type:        t,
		SessionID:   s.ID,
		State:       s.State,
		Time:        time.Now(),
		Progress:    s.Progress,
		Paused:      s.Paused,
		Tip:         s.Tip,
		Metrics:     s.Metrics,
		ErrorCode:   s.ErrorCode,
		Error:       s.Error,
		Recoverable: s.Recoverable,
	}
	if s.Quality != nil {
		q := *s.Quality
		ev.Quality = &q
		ev.Message = q.Message
	}
	return ev
}

func (c *Controller) emitLocked(t EventType) {
	c.emit(c.eventLocked(t))
}

func (c *Controller) emit(ev Event) {
	if ev.Type == EventError && !ev.Recoverable {
		c.events.publish(ev, true)
		return
	}
	c.events.publish(ev, false)
}

func (c *Controller) emitLast(ev Event) {
	c.events.publish(ev, true)
}

// Err returns the cause of the current session's Error state, if any.
func (c *Controller) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cause == nil {
		return nil
	}
	return c.cause
}
