package wellness_test

import (
	"testing"

	"codeberg.org/mutker/vitalscan/internal/errors"
	"codeberg.org/mutker/vitalscan/internal/wellness"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// constRand returns the same draw every time. f=0.5 cancels every variance term.
type constRand struct {
	f float64
	n int
}

func (r constRand) Float64() float64 { return r.f }
func (r constRand) Intn(n int) int   { return r.n % n }

func reference() wellness.UserDetails {
	return wellness.UserDetails{
		Name:     "Alex",
		Age:      30,
		Gender:   wellness.Male,
		HeightCM: 170,
		WeightKG: 70,
		Posture:  wellness.Sitting,
	}
}

func TestReferenceUser(t *testing.T) {
	u := reference()
	bmi := wellness.BMIOf(u)

	assert.InDelta(t, 24.22, bmi, 0.01)
	assert.InDelta(t, 124.44, wellness.SystolicBase(u, bmi), 0.01)
	assert.Equal(t, wellness.StatusNormal, wellness.ClassifySystolic(wellness.SystolicBase(u, bmi)))

	m := wellness.NewEstimator(wellness.DefaultConfig(), constRand{f: 0.5}).Estimate(u)

	assert.Equal(t, 24.2, m.BMI.Value)
	assert.Equal(t, wellness.StatusNormal, m.BMI.Status)
	assert.Equal(t, wellness.Range{Min: 118, Max: 132}, m.BloodPressure.Systolic)
	assert.Equal(t, wellness.Range{Min: 74, Max: 82}, m.BloodPressure.Diastolic)
	assert.Equal(t, wellness.Range{Min: 65, Max: 82}, m.HeartRate.Range)
	assert.Equal(t, wellness.StatusNormal, m.HeartRate.Status)
	assert.Equal(t, 25, m.Stress.Value)
	assert.Equal(t, wellness.StatusLow, m.Stress.Status)
	assert.Equal(t, wellness.Range{Min: 13, Max: 16}, m.RespiratoryRate.Range)
	assert.Equal(t, wellness.StatusNormal, m.RespiratoryRate.Status)
	assert.Equal(t, wellness.Range{Min: 96, Max: 98}, m.OxygenSaturation.Range)
	assert.Equal(t, wellness.StatusNormal, m.OxygenSaturation.Status)
}

func TestReferenceUserSystolicStaysBelowHighAtVarianceExtreme(t *testing.T) {
	m := wellness.NewEstimator(wellness.DefaultConfig(), constRand{f: 0.999999}).Estimate(reference())
	assert.Less(t, m.BloodPressure.Systolic.Max, 140)
}

func TestBMIBoundaries(t *testing.T) {
	tests := []struct {
		bmi  float64
		want wellness.Status
	}{
		{18.4, wellness.StatusUnderweight},
		{18.5, wellness.StatusNormal},
		{24.9, wellness.StatusNormal},
		{25.0, wellness.StatusOverweight},
		{29.9, wellness.StatusOverweight},
		{30.0, wellness.StatusObese},
	}

	est := wellness.NewEstimator(wellness.DefaultConfig(), constRand{f: 0.5})
	for _, tt := range tests {
		assert.Equal(t, tt.want, wellness.ClassifyBMI(tt.bmi), "bmi %.1f", tt.bmi)

		// at 200cm the BMI is weight / 4
		u := reference()
		u.HeightCM = 200
		u.WeightKG = tt.bmi * 4
		m := est.Estimate(u)
		assert.Equal(t, tt.bmi, m.BMI.Value)
		assert.Equal(t, tt.want, m.BMI.Status, "estimated bmi %.1f", tt.bmi)
	}
}

func TestBloodPressureStatus(t *testing.T) {
	assert.Equal(t, wellness.StatusNormal, wellness.ClassifySystolic(130))
	assert.Equal(t, wellness.StatusElevated, wellness.ClassifySystolic(131))
	assert.Equal(t, wellness.StatusElevated, wellness.ClassifySystolic(140))
	assert.Equal(t, wellness.StatusHigh, wellness.ClassifySystolic(141))

	assert.Equal(t, wellness.StatusHigh, wellness.WorseOf(wellness.StatusElevated, wellness.StatusHigh))
	assert.Equal(t, wellness.StatusElevated, wellness.WorseOf(wellness.StatusElevated, wellness.StatusNormal))
	assert.Equal(t, wellness.StatusNormal, wellness.WorseOf(wellness.StatusNormal, wellness.StatusNormal))
}

func TestOlderStandingOverweightUser(t *testing.T) {
	u := wellness.UserDetails{
		Name: "Sam", Age: 60, Gender: wellness.Female,
		HeightCM: 160, WeightKG: 85, Posture: wellness.Standing,
	}
	bmi := wellness.BMIOf(u)
	require.Greater(t, bmi, 30.0)

	assert.InDelta(t, (110+24+8)*1.05*0.98, wellness.SystolicBase(u, bmi), 0.001)
	assert.InDelta(t, (70+15+5)*1.05, wellness.DiastolicBase(u, bmi), 0.001)
	assert.InDelta(t, (72+5-3+6)*0.98, wellness.HeartRateBase(u, bmi), 0.001)
	assert.InDelta(t, 25+12+8+5, wellness.StressBase(u, bmi), 0.001)
	assert.InDelta(t, 14+2+2+1, wellness.RespiratoryBase(u, bmi), 0.001)

	m := wellness.NewEstimator(wellness.DefaultConfig(), constRand{f: 0.5, n: 2}).Estimate(u)
	assert.Equal(t, wellness.StatusHigh, m.BloodPressure.Status)
	assert.Equal(t, wellness.StatusObese, m.BMI.Status)
	assert.Equal(t, wellness.StatusModerate, m.Stress.Status)
	assert.Equal(t, wellness.StatusElevated, m.RespiratoryRate.Status)
	assert.Equal(t, wellness.Range{Min: 98, Max: 100}, m.OxygenSaturation.Range)
}

func TestStressIsClamped(t *testing.T) {
	cfg := wellness.DefaultConfig()
	cfg.StressVariance = 200

	high := wellness.NewEstimator(cfg, constRand{f: 0.999999}).Estimate(reference())
	assert.Equal(t, 100, high.Stress.Value)
	assert.Equal(t, wellness.StatusHigh, high.Stress.Status)

	low := wellness.NewEstimator(cfg, constRand{f: 0}).Estimate(reference())
	assert.Equal(t, 0, low.Stress.Value)
	assert.Equal(t, wellness.StatusLow, low.Stress.Status)
}

func TestRangesAreOrderedUnderVariance(t *testing.T) {
	cfg := wellness.DefaultConfig()
	cfg.VarianceScale = 10

	for _, f := range []float64{0, 0.25, 0.75, 0.999} {
		m := wellness.NewEstimator(cfg, constRand{f: f}).Estimate(reference())
		for _, r := range []wellness.Range{
			m.BloodPressure.Systolic, m.BloodPressure.Diastolic,
			m.HeartRate.Range, m.RespiratoryRate.Range, m.OxygenSaturation.Range,
		} {
			assert.LessOrEqual(t, r.Min, r.Max)
		}
	}
}

func TestRateStatuses(t *testing.T) {
	assert.Equal(t, wellness.StatusElevated, wellness.ClassifyHeartRate(wellness.Range{Min: 55, Max: 101}))
	assert.Equal(t, wellness.StatusLow, wellness.ClassifyHeartRate(wellness.Range{Min: 59, Max: 80}))
	assert.Equal(t, wellness.StatusNormal, wellness.ClassifyHeartRate(wellness.Range{Min: 60, Max: 100}))

	assert.Equal(t, wellness.StatusElevated, wellness.ClassifyRespiratoryRate(wellness.Range{Min: 14, Max: 21}))
	assert.Equal(t, wellness.StatusLow, wellness.ClassifyRespiratoryRate(wellness.Range{Min: 11, Max: 15}))
	assert.Equal(t, wellness.StatusNormal, wellness.ClassifyRespiratoryRate(wellness.Range{Min: 12, Max: 20}))

	assert.Equal(t, wellness.StatusHigh, wellness.ClassifyStress(61))
	assert.Equal(t, wellness.StatusModerate, wellness.ClassifyStress(36))
	assert.Equal(t, wellness.StatusLow, wellness.ClassifyStress(35))
}

func TestUserDetailsValidate(t *testing.T) {
	require.NoError(t, reference().Validate())

	u := reference()
	u.Age = 17
	u.Posture = "lying"
	err := u.Validate()
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrInvalidArgument))
	assert.Contains(t, err.Error(), "age must be between 18 and 120")
	assert.Contains(t, err.Error(), "posture must be sitting or standing")

	u = reference()
	u.Name = "  "
	assert.Error(t, u.Validate())
}
