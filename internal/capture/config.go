package capture

import (
	"codeberg.org/mutker/vitalscan/internal/errors"
)

const (
	DriverSynthetic = "synthetic"
	DriverWebcam    = "webcam"
)

type Config struct {
	Driver     string  `mapstructure:"driver"`
	DeviceID   int     `mapstructure:"device_id"`
	Width      int     `mapstructure:"width"`
	Height     int     `mapstructure:"height"`
	Brightness float64 `mapstructure:"brightness"` // synthetic mean luma, 0-255
}

func DefaultConfig() Config {
	return Config{
		Driver:     DriverSynthetic,
		Width:      640,
		Height:     480,
		Brightness: 140,
	}
}

func (c Config) Validate() error {
	errFactory := errors.New()

	switch c.Driver {
	case DriverSynthetic, DriverWebcam:
	default:
		return errFactory.WithData(ErrUnknownDriver, c.Driver)
	}

	if c.Width < 16 || c.Height < 16 {
		return errFactory.WithData(errors.ErrInvalidConfig, "capture width and height must be at least 16")
	}

	if c.Brightness < 0 || c.Brightness > 255 {
		return errFactory.WithData(errors.ErrInvalidConfig, "capture brightness must be between 0 and 255")
	}

	return nil
}

// New returns the Source selected by cfg.Driver.
func New(cfg Config) (Source, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if cfg.Driver == DriverWebcam {
		return NewWebcam(cfg), nil
	}

	return NewSynthetic(cfg), nil
}
