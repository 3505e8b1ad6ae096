package wellness

// severity orders blood pressure statuses.
var severity = map[Status]int{
	StatusNormal:   0,
	StatusElevated: 1,
	StatusHigh:     2,
}

func ClassifySystolic(max float64) Status {
	switch {
	case max > 140:
		return StatusHigh
	case max > 130:
		return StatusElevated
	default:
		return StatusNormal
	}
}

func ClassifyDiastolic(max float64) Status {
	switch {
	case max > 90:
		return StatusHigh
	case max > 80:
		return StatusElevated
	default:
		return StatusNormal
	}
}

// WorseOf returns the more severe of two blood pressure statuses.
func WorseOf(a, b Status) Status {
	if severity[b] > severity[a] {
		return b
	}
	return a
}

func ClassifyHeartRate(r Range) Status {
	switch {
	case r.Max > 100:
		return StatusElevated
	case r.Min < 60:
		return StatusLow
	default:
		return StatusNormal
	}
}

func ClassifyStress(value int) Status {
	switch {
	case value > 60:
		return StatusHigh
	case value > 35:
		return StatusModerate
	default:
		return StatusLow
	}
}

// ClassifyBMI expects bmi already rounded to one decimal.
func ClassifyBMI(bmi float64) Status {
	switch {
	case bmi < 18.5:
		return StatusUnderweight
	case bmi < 25:
		return StatusNormal
	case bmi < 30:
		return StatusOverweight
	default:
		return StatusObese
	}
}

func ClassifyRespiratoryRate(r Range) Status {
	switch {
	case r.Max > 20:
		return StatusElevated
	case r.Min < 12:
		return StatusLow
	default:
		return StatusNormal
	}
}
