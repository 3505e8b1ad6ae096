package capture

import (
	"context"
	"math"
	"sync"
	"time"

	"codeberg.org/mutker/vitalscan/internal/errors"
)

// Synthetic is a Source that renders frames instead of reading a device.
// It backs the terminal runner and the API when no camera is configured.
type Synthetic struct {
	cfg Config

	mu       sync.Mutex
	failWith error
	acquired int
}

func NewSynthetic(cfg Config) *Synthetic {
	return &Synthetic{cfg: cfg}
}

// FailNextAcquire makes the next Acquire return err.
func (s *Synthetic) FailNextAcquire(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failWith = err
}

// Acquired returns the number of successful acquisitions.
func (s *Synthetic) Acquired() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.acquired
}

func (s *Synthetic) Acquire(ctx context.Context) (Stream, error) {
	errFactory := errors.New()

	if err := ctx.Err(); err != nil {
		return nil, errFactory.Wrap(ErrCaptureUnavailable, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failWith != nil {
		err := s.failWith
		s.failWith = nil
		return nil, errFactory.Wrap(ErrCaptureUnavailable, err)
	}

	s.acquired++

	return &syntheticStream{cfg: s.cfg, started: time.Now()}, nil
}

type syntheticStream struct {
	cfg     Config
	started time.Time

	mu       sync.Mutex
	released bool
}

func (s *syntheticStream) LatestFrame(ctx context.Context) (*Frame, error) {
	errFactory := errors.New()

	if err := ctx.Err(); err != nil {
		return nil, errFactory.Wrap(ErrFrameUnavailable, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.released {
		return nil, errFactory.New(ErrStreamReleased)
	}

	// slow drift of a few luma levels keeps motion well under any sane threshold
	now := time.Now()
	drift := 3 * math.Sin(now.Sub(s.started).Seconds())
	level := math.Max(0, math.Min(255, s.cfg.Brightness+drift))

	return Uniform(s.cfg.Width, s.cfg.Height, uint8(level), now), nil
}

func (s *syntheticStream) Release() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.released = true
	return nil
}
