package wellness

import "codeberg.org/mutker/vitalscan/internal/errors"

const ErrInvalidVariance = errors.ErrorCode("wellness_invalid_variance")

// Config holds the variance amplitudes. Each range bound is perturbed by a
// uniform draw in [-amplitude, +amplitude], scaled by VarianceScale.
type Config struct {
	VarianceScale       float64 `mapstructure:"variance_scale"`
	SystolicVariance    float64 `mapstructure:"systolic_variance"`
	DiastolicVariance   float64 `mapstructure:"diastolic_variance"`
	HeartRateVariance   float64 `mapstructure:"heart_rate_variance"`
	StressVariance      float64 `mapstructure:"stress_variance"`
	RespiratoryVariance float64 `mapstructure:"respiratory_variance"`
}

func DefaultConfig() Config {
	return Config{
		VarianceScale:       1,
		SystolicVariance:    3,
		DiastolicVariance:   2,
		HeartRateVariance:   3,
		StressVariance:      7.5,
		RespiratoryVariance: 1,
	}
}

func (c Config) Validate() error {
	for _, v := range []float64{
		c.VarianceScale, c.SystolicVariance, c.DiastolicVariance,
		c.HeartRateVariance, c.StressVariance, c.RespiratoryVariance,
	} {
		if v < 0 {
			return errors.New().WithData(ErrInvalidVariance, "variance settings must not be negative")
		}
	}
	return nil
}
