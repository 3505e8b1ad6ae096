package capture

import "codeberg.org/mutker/vitalscan/internal/errors"

const (
	ErrCaptureUnavailable = errors.ErrCaptureUnavailable
	ErrStreamReleased     = errors.ErrorCode("capture_stream_released")
	ErrFrameUnavailable   = errors.ErrorCode("capture_frame_unavailable")
	ErrUnknownDriver      = errors.ErrorCode("capture_unknown_driver")
)
