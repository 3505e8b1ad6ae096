//go:build gocv

package capture

import (
	"context"
	"time"

	"codeberg.org/mutker/vitalscan/internal/errors"
	"gocv.io/x/gocv"
)

// Webcam is a Source backed by an OpenCV video capture device.
type Webcam struct {
	cfg Config
}

func NewWebcam(cfg Config) *Webcam {
	return &Webcam{cfg: cfg}
}

func (w *Webcam) Acquire(ctx context.Context) (Stream, error) {
	errFactory := errors.New()

	if err := ctx.Err(); err != nil {
		return nil, errFactory.Wrap(ErrCaptureUnavailable, err)
	}

	vc, err := gocv.OpenVideoCapture(w.cfg.DeviceID)
	if err != nil {
		return nil, errFactory.Wrap(ErrCaptureUnavailable, err)
	}
	if !vc.IsOpened() {
		vc.Close()
		return nil, errFactory.WithData(ErrCaptureUnavailable, "device not opened")
	}

	vc.Set(gocv.VideoCaptureFrameWidth, float64(w.cfg.Width))
	vc.Set(gocv.VideoCaptureFrameHeight, float64(w.cfg.Height))

	return &webcamStream{mu: make(chan struct{}, 1), vc: vc, mat: gocv.NewMat()}, nil
}

type webcamStream struct {
	// mu serialises device reads with Release; a read abandoned on timeout
	// still holds it until the driver returns.
	mu       chan struct{}
	vc       *gocv.VideoCapture
	mat      gocv.Mat
	released bool
}

type readResult struct {
	frame *Frame
	err   error
}

func (s *webcamStream) lock()   { s.mu <- struct{}{} }
func (s *webcamStream) unlock() { <-s.mu }

func (s *webcamStream) LatestFrame(ctx context.Context) (*Frame, error) {
	errFactory := errors.New()

	select {
	case s.mu <- struct{}{}:
	case <-ctx.Done():
		return nil, errFactory.Wrap(ErrFrameUnavailable, ctx.Err())
	}

	done := make(chan readResult, 1)
	go func() {
		defer s.unlock()
		done <- s.read()
	}()

	select {
	case res := <-done:
		return res.frame, res.err
	case <-ctx.Done():
		return nil, errFactory.Wrap(ErrFrameUnavailable, ctx.Err())
	}
}

func (s *webcamStream) read() readResult {
	errFactory := errors.New()

	if s.released {
		return readResult{err: errFactory.New(ErrStreamReleased)}
	}
	if ok := s.vc.Read(&s.mat); !ok || s.mat.Empty() {
		return readResult{err: errFactory.WithData(ErrFrameUnavailable, "empty read")}
	}

	img, err := s.mat.ToImage()
	if err != nil {
		return readResult{err: errFactory.Wrap(ErrFrameUnavailable, err)}
	}

	return readResult{frame: FromImage(img, time.Now())}
}

func (s *webcamStream) Release() error {
	s.lock()
	defer s.unlock()

	if s.released {
		return nil
	}
	s.released = true

	if err := s.mat.Close(); err != nil {
		return errors.New().Wrap(errors.ErrShutdownFailed, err)
	}
	if err := s.vc.Close(); err != nil {
		return errors.New().Wrap(errors.ErrShutdownFailed, err)
	}

	return nil
}
