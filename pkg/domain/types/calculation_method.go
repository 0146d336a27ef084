package types

import "fmt"

// CalculationMethod is the reduction that combines dimension scores into one risk score
type CalculationMethod string

const (
	CalculationMethodMax CalculationMethod = "max"
	CalculationMethodAvg CalculationMethod = "avg"
)

// AllCalculationMethods returns all valid calculation methods
func AllCalculationMethods() []CalculationMethod {
	return []CalculationMethod{
		CalculationMethodMax,
		CalculationMethodAvg,
	}
}

// IsValid checks if the calculation method is valid
func (m CalculationMethod) IsValid() bool {
	switch m {
	case CalculationMethodMax,
		CalculationMethodAvg:
		return true
	default:
		return false
	}
}

// Reduce combines scores with the method. The server-side matrix grid and the
// score calculation both go through here so they cannot drift apart.
// It returns 0 for no scores and for an unknown method.
func (m CalculationMethod) Reduce(scores ...float64) float64 {
	if len(scores) == 0 {
		return 0
	}

	switch m {
	case CalculationMethodMax:
		result := scores[0]
		for _, s := range scores[1:] {
			result = max(result, s)
		}
		return result

	case CalculationMethodAvg:
		var sum float64
		for _, s := range scores {
			sum += s
		}
		return sum / float64(len(scores))

	default:
		return 0
	}
}

// String returns the string representation of the calculation method
func (m CalculationMethod) String() string {
	return string(m)
}

// ParseCalculationMethod parses a string into a CalculationMethod
func ParseCalculationMethod(s string) (CalculationMethod, error) {
	method := CalculationMethod(s)
	if !method.IsValid() {
		return "", fmt.Errorf("invalid calculation method: %s", s)
	}
	return method, nil
}
