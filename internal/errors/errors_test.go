package errors_test

import (
	stderrors "errors"
	"fmt"
	"testing"

	"codeberg.org/mutker/vitalscan/internal/errors"
	"github.com/stretchr/testify/assert"
)

func TestErrorMessage(t *testing.T) {
	f := errors.New()

	assert.Equal(t, "Camera is unavailable", f.New(errors.ErrCaptureUnavailable).Error())
	assert.Equal(t, "permission denied", f.WithMessage(errors.ErrCaptureUnavailable, "permission denied").Error())
	assert.Equal(t, "Invalid argument provided: age out of range",
		f.WithData(errors.ErrInvalidArgument, "age out of range").Error())

	wrapped := f.Wrap(errors.ErrReadConfig, stderrors.New("bad toml"))
	assert.Equal(t, "Failed to read config file: bad toml", wrapped.Error())
}

func TestUnknownCodeFallsBackToCode(t *testing.T) {
	assert.Equal(t, "something_else", errors.GetErrorMessage("something_else"))
}

func TestCodeOf(t *testing.T) {
	f := errors.New()
	inner := f.New(errors.ErrPreconditionFailed)
	outer := fmt.Errorf("start scan: %w", inner)

	assert.Equal(t, errors.ErrPreconditionFailed, errors.CodeOf(outer))
	assert.Equal(t, errors.ErrInternal, errors.CodeOf(stderrors.New("plain")))
	assert.True(t, errors.HasCode(outer, errors.ErrPreconditionFailed))
	assert.False(t, errors.HasCode(outer, errors.ErrInvalidState))
}

func TestIsMatchesSentinelByCode(t *testing.T) {
	f := errors.New()
	sentinel := f.New(errors.ErrInvalidState)
	err := f.WithData(errors.ErrInvalidState, "cancelled")

	assert.True(t, errors.Is(err, sentinel))
	assert.False(t, errors.Is(err, f.New(errors.ErrInternalFault)))
}

func TestWithMessageKeepsCause(t *testing.T) {
	cause := stderrors.New("device busy")
	err := errors.New().Wrap(errors.ErrCaptureUnavailable, cause).WithMessage("camera in use")

	assert.Equal(t, errors.ErrCaptureUnavailable, err.Code())
	assert.ErrorIs(t, err, cause)
}
