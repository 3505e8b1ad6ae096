package scan

import (
	"context"
	"fmt"
	"time"

	"codeberg.org/mutker/vitalscan/internal/capture"
	"codeberg.org/mutker/vitalscan/internal/errors"
	"codeberg.org/mutker/vitalscan/internal/quality"
)

type tickFunc func() ([]Event, bool)

// run is the session event loop. All three cadences share this goroutine so
// tick handlers never overlap.
func (c *Controller) run(stream *heldStream, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	sample := time.NewTicker(c.cfg.SampleInterval)
	defer sample.Stop()
	progress := time.NewTicker(c.cfg.ProgressInterval)
	defer progress.Stop()
	tip := time.NewTicker(c.cfg.TipInterval)
	defer tip.Stop()

	for {
		var fn tickFunc

		select {
		case <-stop:
			return
		case <-sample.C:
			fn = func() ([]Event, bool) { return c.sampleTick(stream) }
		case <-progress.C:
			fn = c.progressTick
		case <-tip.C:
			fn = c.tipTick
		}

		if !c.handle(fn) {
			c.finish()
			return
		}
	}
}

// handle runs one tick and publishes what it produced. It reports whether the
// loop should keep running.
func (c *Controller) handle(fn tickFunc) bool {
	events, cont := c.safely(fn)
	for _, ev := range events {
		c.emit(ev)
	}
	return cont
}

func (c *Controller) safely(fn tickFunc) (events []Event, cont bool) {
	defer func() {
		if r := recover(); r != nil {
			c.fault(fmt.Sprintf("tick handler panic: %v", r))
			events, cont = nil, false
		}
	}()

	return fn()
}

// fault moves a live session to Error with a non-recoverable internal fault.
func (c *Controller) fault(reason string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	err := errors.New().WithData(ErrInternalFault, reason)
	c.log.ErrorWithCode(err).Str("session_id", c.session.ID).Str("state", string(c.session.State)).Msg("Internal fault")

	if !c.session.State.Terminal() {
		c.failLocked(err, false)
	}
}

// finish runs on the loop goroutine after it stops itself. The stream is
// released before the terminal event goes out.
func (c *Controller) finish() {
	c.releaseStream()

	c.mu.Lock()
	state := c.session.State
	id := c.session.ID
	c.mu.Unlock()

	switch state {
	case StateCompleted:
		if c.cfg.CompletionDelay > 0 {
			time.Sleep(c.cfg.CompletionDelay)
		}

		metrics := c.estimator.Estimate(c.user)

		c.mu.Lock()
		c.session.Metrics = &metrics
		c.session.EndedAt = time.Now()
		ev := c.eventLocked(EventCompleted)
		c.mu.Unlock()

		c.log.Info().
			Str("session_id", id).
			Str("blood_pressure", string(metrics.BloodPressure.Status)).
			Float64("bmi", metrics.BMI.Value).
			Msg("Scan completed")
		c.emitLast(ev)

	case StateError:
		c.mu.Lock()
		ev := c.eventLocked(EventError)
		c.mu.Unlock()

		c.log.Warn().Str("session_id", id).Str("error_code", string(ev.ErrorCode)).Msg("Scan failed")
		c.emit(ev)
	}
}

func (c *Controller) sampleTick(stream capture.Stream) ([]Event, bool) {
	ctx, cancel := context.WithTimeout(context.Background(), c.cfg.FrameTimeout)
	frame, err := stream.LatestFrame(ctx)
	cancel()

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.session.State.Terminal() {
		return nil, false
	}

	var analysis quality.Analysis

	switch {
	case err == nil:
		c.missed = 0
		analysis = c.analyzer.Analyze(frame, c.previous, c.session.State == StateScanning)
		c.previous = frame

	case errors.HasCode(err, capture.ErrFrameUnavailable):
		c.missed++
		if c.cfg.MaxMissedFrames > 0 && c.missed >= c.cfg.MaxMissedFrames {
			c.failLocked(errors.New().Wrap(ErrCaptureUnavailable, err), true)
			return nil, false
		}
		analysis = quality.NoSignal()

	default:
		c.failLocked(errors.New().Wrap(ErrCaptureUnavailable, err), true)
		return nil, false
	}

	c.latest = &analysis
	q := analysis
	c.session.Quality = &q

	events := make([]Event, 0, 2)

	switch c.session.State {
	case StateInitializing:
		events = append(events, c.eventLocked(EventQuality))
		if analysis.Usable() {
			c.session.State = StateReady
			events = append(events, c.eventLocked(EventReady))
		}
	case StateScanning:
		c.session.Paused = analysis.Degraded()
		events = append(events, c.eventLocked(EventQuality))
	default:
		events = append(events, c.eventLocked(EventQuality))
	}

	return events, true
}

func (c *Controller) progressTick() ([]Event, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.session.State {
	case StateScanning:
	case StateInitializing, StateReady:
		return nil, true
	case StateCompleted:
		c.log.ErrorWithCode(errors.New().WithData(ErrInternalFault, "progress tick after completion")).
			Str("session_id", c.session.ID).
			Msg("Internal fault")
		return nil, false
	default:
		return nil, false
	}

	total := c.cfg.totalTicks()
	if c.ticks >= total {
		c.failLocked(errors.New().WithData(ErrInternalFault, fmt.Sprintf("scanning with %d of %d ticks", c.ticks, total)), false)
		return nil, false
	}

	if !c.session.Paused {
		c.ticks++
		c.session.Elapsed += c.cfg.ProgressInterval
		c.session.Progress = float64(c.ticks) * 100 / float64(total)
	}

	if c.ticks < total {
		return []Event{c.eventLocked(EventProgress)}, true
	}

	c.session.Progress = 100
	c.session.State = StateCompleted
	c.session.EndedAt = time.Now()
	ev := c.eventLocked(EventProgress)

	return []Event{ev}, false
}

func (c *Controller) tipTick() ([]Event, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.session.State.Terminal() {
		return nil, false
	}

	if c.session.State != StateScanning || c.session.Paused || len(c.cfg.Tips) == 0 {
		return nil, true
	}

	c.session.TipIndex = (c.session.TipIndex + 1) % len(c.cfg.Tips)
	c.session.Tip = c.cfg.Tips[c.session.TipIndex]

	return []Event{c.eventLocked(EventTip)}, true
}
