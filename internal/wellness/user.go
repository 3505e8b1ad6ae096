package wellness

import (
	"strings"

	"codeberg.org/mutker/vitalscan/internal/errors"
)

type Gender string

const (
	Male   Gender = "male"
	Female Gender = "female"
	Other  Gender = "other"
)

type Posture string

const (
	Sitting  Posture = "sitting"
	Standing Posture = "standing"
)

// UserDetails is the demographic input to a scan. It is never mutated after
// the form produces it.
type UserDetails struct {
	Name     string  `json:"name"`
	Age      int     `json:"age"`
	Gender   Gender  `json:"gender"`
	HeightCM float64 `json:"height_cm"`
	WeightKG float64 `json:"weight_kg"`
	Posture  Posture `json:"posture"`
}

// Validate applies the form's domain rules. The estimator assumes they hold.
func (u UserDetails) Validate() error {
	errFactory := errors.New()

	var problems []string
	if strings.TrimSpace(u.Name) == "" {
		problems = append(problems, "name is required")
	}
	if u.Age < 18 || u.Age > 120 {
		problems = append(problems, "age must be between 18 and 120")
	}
	switch u.Gender {
	case Male, Female, Other:
	default:
		problems = append(problems, "gender must be male, female, or other")
	}
	if u.HeightCM < 100 || u.HeightCM > 250 {
		problems = append(problems, "height_cm must be between 100 and 250")
	}
	if u.WeightKG < 30 || u.WeightKG > 300 {
		problems = append(problems, "weight_kg must be between 30 and 300")
	}
	switch u.Posture {
	case Sitting, Standing:
	default:
		problems = append(problems, "posture must be sitting or standing")
	}

	if len(problems) > 0 {
		return errFactory.WithData(errors.ErrInvalidArgument, strings.Join(problems, "; "))
	}

	return nil
}
