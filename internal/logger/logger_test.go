package logger_test

import (
	"bytes"
	"testing"

	"codeberg.org/mutker/vitalscan/internal/errors"
	"codeberg.org/mutker/vitalscan/internal/logger"
	"github.com/stretchr/testify/assert"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]logger.LogLevel{
		"debug":   logger.DebugLevel,
		"info":    logger.InfoLevel,
		"warning": logger.WarnLevel,
		"warn":    logger.WarnLevel,
		"error":   logger.ErrorLevel,
		"":        logger.InfoLevel,
	}
	for in, want := range tests {
		assert.Equal(t, want, logger.ParseLevel(in), in)
	}
}

func TestComponentLoggerWritesComponentAndCode(t *testing.T) {
	var buf bytes.Buffer
	logger.InitWithWriter(&buf, "debug", true)

	log := logger.With("scan")
	log.Info().Str("session_id", "abc").Msg("session opened")
	log.ErrorWithCode(errors.New().New(errors.ErrCaptureUnavailable)).Msg("acquire failed")

	out := buf.String()
	assert.Contains(t, out, "session opened")
	assert.Contains(t, out, "component=scan")
	assert.Contains(t, out, "error_code=capture_unavailable")
}

func TestLevelFiltersDebug(t *testing.T) {
	var buf bytes.Buffer
	logger.InitWithWriter(&buf, "warning", true)
	defer logger.SetLogLevel(logger.InfoLevel)

	logger.With("scan").Debug().Msg("hidden")
	logger.With("scan").Warn().Msg("shown")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
}

func TestNopDiscards(t *testing.T) {
	l := logger.Nop()
	l.Info().Msg("nothing")
	l.With("child").Error().Msg("nothing")
}
