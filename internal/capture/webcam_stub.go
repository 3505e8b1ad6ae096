//go:build !gocv

package capture

import (
	"context"

	"codeberg.org/mutker/vitalscan/internal/errors"
)

// Webcam is unavailable in builds without the gocv tag.
type Webcam struct {
	cfg Config
}

func NewWebcam(cfg Config) *Webcam {
	return &Webcam{cfg: cfg}
}

func (*Webcam) Acquire(context.Context) (Stream, error) {
	return nil, errors.New().WithData(ErrCaptureUnavailable, "built without webcam support (gocv tag)")
}
