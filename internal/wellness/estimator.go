// Package wellness estimates indicative wellness ranges from demographic
// input. The values come from population formulas, not from camera data.
package wellness

import "math"

// Rand is the random source for the variance terms. *math/rand.Rand
// satisfies it.
type Rand interface {
	Float64() float64
	Intn(n int) int
}

type Estimator struct {
	cfg Config
	rnd Rand
}

func NewEstimator(cfg Config, rnd Rand) *Estimator {
	return &Estimator{cfg: cfg, rnd: rnd}
}

// Estimate derives the metrics for u.
func (e *Estimator) Estimate(u UserDetails) Metrics {
	bmi := BMIOf(u)

	systolic := e.spread(SystolicBase(u, bmi), 0.95, 1.06, e.cfg.SystolicVariance)
	diastolic := e.spread(DiastolicBase(u, bmi), 0.95, 1.06, e.cfg.DiastolicVariance)
	heartRate := e.spread(HeartRateBase(u, bmi), 0.88, 1.12, e.cfg.HeartRateVariance)
	respiratory := e.spread(RespiratoryBase(u, bmi), 0.9, 1.15, e.cfg.RespiratoryVariance)

	stress := clamp(int(math.Round(StressBase(u, bmi)+e.variance(e.cfg.StressVariance))), 0, 100)

	spo2Min := 96 + e.rnd.Intn(3)
	spo2Max := min(100, spo2Min+2)

	bmiRounded := math.Round(bmi*10) / 10

	return Metrics{
		BloodPressure: BloodPressure{
			Systolic:  systolic,
			Diastolic: diastolic,
			Status: WorseOf(
				ClassifySystolic(float64(systolic.Max)),
				ClassifyDiastolic(float64(diastolic.Max)),
			),
		},
		HeartRate: HeartRate{Range: heartRate, Status: ClassifyHeartRate(heartRate)},
		Stress:    Stress{Value: stress, Status: ClassifyStress(stress)},
		OxygenSaturation: OxygenSaturation{
			Range:  Range{Min: spo2Min, Max: spo2Max},
			Status: StatusNormal,
		},
		BMI:             BMI{Value: bmiRounded, Status: ClassifyBMI(bmiRounded)},
		RespiratoryRate: RespiratoryRate{Range: respiratory, Status: ClassifyRespiratoryRate(respiratory)},
	}
}

// spread turns a base value into a range with one variance draw per bound.
func (e *Estimator) spread(base, lowFactor, highFactor, amplitude float64) Range {
	lo := int(math.Round(base*lowFactor + e.variance(amplitude)))
	hi := int(math.Round(base*highFactor + e.variance(amplitude)))
	if lo > hi {
		lo, hi = hi, lo
	}
	return Range{Min: lo, Max: hi}
}

func (e *Estimator) variance(amplitude float64) float64 {
	return (e.rnd.Float64()*2 - 1) * amplitude * e.cfg.VarianceScale
}

// BMIOf returns the unrounded body mass index.
func BMIOf(u UserDetails) float64 {
	m := u.HeightCM / 100
	return u.WeightKG / (m * m)
}

func PostureModifier(p Posture) float64 {
	if p == Standing {
		return 1.05
	}
	return 1.0
}

func GenderModifier(g Gender) float64 {
	switch g {
	case Male:
		return 1.02
	case Female:
		return 0.98
	default:
		return 1.0
	}
}

func SystolicBase(u UserDetails, bmi float64) float64 {
	base := 110 + 0.4*float64(u.Age)
	if bmi > 25 {
		base += 8
	}
	return base * PostureModifier(u.Posture) * GenderModifier(u.Gender)
}

func DiastolicBase(u UserDetails, bmi float64) float64 {
	base := 70 + 0.25*float64(u.Age)
	if bmi > 25 {
		base += 5
	}
	return base * PostureModifier(u.Posture)
}

func HeartRateBase(u UserDetails, bmi float64) float64 {
	base := 72.0
	if u.Posture == Standing {
		base += 5
	}
	if u.Age > 40 {
		base -= 3
	}
	if bmi > 25 {
		base += 6
	}
	return base * GenderModifier(u.Gender)
}

func StressBase(u UserDetails, bmi float64) float64 {
	base := 25.0
	if u.Age > 35 {
		base += 12
	}
	if bmi > 28 {
		base += 8
	}
	if u.Posture == Standing {
		base += 5
	}
	return base
}

func RespiratoryBase(u UserDetails, bmi float64) float64 {
	base := 14.0
	if u.Age > 50 {
		base += 2
	}
	if bmi > 30 {
		base += 2
	}
	if u.Posture == Standing {
		base++
	}
	return base
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
