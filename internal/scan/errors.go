package scan

import "codeberg.org/mutker/vitalscan/internal/errors"

const (
	ErrCaptureUnavailable = errors.ErrCaptureUnavailable
	ErrPreconditionFailed = errors.ErrPreconditionFailed
	ErrInternalFault      = errors.ErrInternalFault
	ErrInvalidState       = errors.ErrInvalidState
	ErrInvalidConfig      = errors.ErrorCode("scan_invalid_config")
)
