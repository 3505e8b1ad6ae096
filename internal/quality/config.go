package quality

import "codeberg.org/mutker/vitalscan/internal/errors"

const ErrInvalidThresholds = errors.ErrorCode("quality_invalid_thresholds")

type Config struct {
	PoorLightThreshold     float64 `mapstructure:"poor_light_threshold"`
	GoodLightThreshold     float64 `mapstructure:"good_light_threshold"`
	MotionThreshold        float64 `mapstructure:"motion_threshold"`
	SampleStride           int     `mapstructure:"sample_stride"`
	FaceInFrameProbability float64 `mapstructure:"face_in_frame_probability"`
}

func DefaultConfig() Config {
	return Config{
		PoorLightThreshold:     50,
		GoodLightThreshold:     100,
		MotionThreshold:        25,
		SampleStride:           10,
		FaceInFrameProbability: 0.9,
	}
}

func (c Config) Validate() error {
	errFactory := errors.New()

	if c.PoorLightThreshold < 0 || c.GoodLightThreshold <= c.PoorLightThreshold {
		return errFactory.WithData(ErrInvalidThresholds, "good_light_threshold must exceed poor_light_threshold")
	}
	if c.MotionThreshold <= 0 {
		return errFactory.WithData(ErrInvalidThresholds, "motion_threshold must be positive")
	}
	if c.SampleStride < 1 {
		return errFactory.WithData(ErrInvalidThresholds, "sample_stride must be at least 1")
	}
	if c.FaceInFrameProbability < 0 || c.FaceInFrameProbability > 1 {
		return errFactory.WithData(ErrInvalidThresholds, "face_in_frame_probability must be between 0 and 1")
	}

	return nil
}
