package capture

import (
	"context"
	"image"
	"time"
)

// Source acquires a capture device.
type Source interface {
	// Acquire opens the device. On failure nothing is left open and the
	// returned error carries the capture_unavailable code.
	Acquire(ctx context.Context) (Stream, error)
}

// Stream is an acquired capture device.
type Stream interface {
	// LatestFrame returns the most recent frame. It must honour ctx so a
	// stalled device cannot block the caller past its deadline.
	LatestFrame(ctx context.Context) (*Frame, error)

	// Release frees the device. Calling it more than once is a no-op.
	Release() error
}

// Frame is a single captured image.
type Frame struct {
	Image     *image.RGBA
	Timestamp time.Time
}

// Bounds returns the frame dimensions.
func (f *Frame) Bounds() image.Rectangle {
	return f.Image.Bounds()
}
