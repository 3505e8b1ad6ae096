package scan

import (
	"time"

	"codeberg.org/mutker/vitalscan/internal/errors"
)

type Config struct {
	Duration         time.Duration `mapstructure:"duration"`
	ProgressInterval time.Duration `mapstructure:"progress_interval"`
	SampleInterval   time.Duration `mapstructure:"sample_interval"`
	TipInterval      time.Duration `mapstructure:"tip_interval"`
	CompletionDelay  time.Duration `mapstructure:"completion_delay"`
	FrameTimeout     time.Duration `mapstructure:"frame_timeout"`
	// MaxMissedFrames is the number of consecutive frame timeouts tolerated
	// before the capture is considered lost. Zero disables the limit.
	MaxMissedFrames int      `mapstructure:"max_missed_frames"`
	Tips            []string `mapstructure:"tips"`
}

func DefaultConfig() Config {
	return Config{
		Duration:         30 * time.Second,
		ProgressInterval: 100 * time.Millisecond,
		SampleInterval:   500 * time.Millisecond,
		TipInterval:      4 * time.Second,
		CompletionDelay:  800 * time.Millisecond,
		FrameTimeout:     250 * time.Millisecond,
		MaxMissedFrames:  20,
		Tips: []string{
			"Keep your face centered in the frame",
			"Breathe normally and stay relaxed",
			"Avoid talking or moving your head",
			"Make sure your face is evenly lit",
			"Look straight at the camera",
		},
	}
}

func (c Config) Validate() error {
	errFactory := errors.New()

	for name, d := range map[string]time.Duration{
		"duration":          c.Duration,
		"progress_interval": c.ProgressInterval,
		"sample_interval":   c.SampleInterval,
		"tip_interval":      c.TipInterval,
		"frame_timeout":     c.FrameTimeout,
	} {
		if d <= 0 {
			return errFactory.WithData(ErrInvalidConfig, name+" must be positive")
		}
	}

	if c.ProgressInterval > c.Duration {
		return errFactory.WithData(ErrInvalidConfig, "progress_interval must not exceed duration")
	}
	if c.CompletionDelay < 0 {
		return errFactory.WithData(ErrInvalidConfig, "completion_delay must not be negative")
	}
	if c.MaxMissedFrames < 0 {
		return errFactory.WithData(ErrInvalidConfig, "max_missed_frames must not be negative")
	}

	return nil
}

// totalTicks is the number of unpaused progress ticks a scan takes.
func (c Config) totalTicks() int {
	n := int(c.Duration / c.ProgressInterval)
	if n < 1 {
		return 1
	}
	return n
}
