package wellness

type Status string

const (
	StatusNormal      Status = "normal"
	StatusElevated    Status = "elevated"
	StatusHigh        Status = "high"
	StatusLow         Status = "low"
	StatusModerate    Status = "moderate"
	StatusUnderweight Status = "underweight"
	StatusOverweight  Status = "overweight"
	StatusObese       Status = "obese"
)

// Range is an inclusive integer range.
type Range struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

type BloodPressure struct {
	Systolic  Range  `json:"systolic"`
	Diastolic Range  `json:"diastolic"`
	Status    Status `json:"status"`
}

type HeartRate struct {
	Range  Range  `json:"range"`
	Status Status `json:"status"`
}

type Stress struct {
	Value  int    `json:"value"`
	Status Status `json:"status"`
}

type OxygenSaturation struct {
	Range  Range  `json:"range"`
	Status Status `json:"status"`
}

type BMI struct {
	Value  float64 `json:"value"`
	Status Status  `json:"status"`
}

type RespiratoryRate struct {
	Range  Range  `json:"range"`
	Status Status `json:"status"`
}

// Metrics is the estimate produced once per completed scan.
type Metrics struct {
	BloodPressure    BloodPressure    `json:"blood_pressure"`
	HeartRate        HeartRate        `json:"heart_rate"`
	Stress           Stress           `json:"stress"`
	OxygenSaturation OxygenSaturation `json:"oxygen_saturation"`
	BMI              BMI              `json:"bmi"`
	RespiratoryRate  RespiratoryRate  `json:"respiratory_rate"`
}
