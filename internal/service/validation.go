package service

import (
	"fmt"
	"math"

	"github.com/neorisk-server/internal/domain"
)

// ValidateValue applies the semantic checks callers run before scoring:
// finiteness, binary-ness and the parameter's accepted precision. Range
// membership is left to ScoringEngine.ScoreParameter.
func ValidateValue(spec *domain.ParameterSpec, value float64) error {
	field := string(spec.Key)

	if math.IsNaN(value) || math.IsInf(value, 0) {
		return domain.NewValidationError(field, "value must be a finite number", value)
	}

	if spec.Binary {
		if value != 0 && value != 1 {
			return domain.NewValidationError(field, "value must be 0 or 1", value)
		}
		return nil
	}

	scaled := value * math.Pow10(spec.Decimals)
	if math.Abs(scaled-math.Round(scaled)) > 1e-6 {
		if spec.Decimals == 0 {
			return domain.NewValidationError(field, "value must be a whole number", value)
		}
		return domain.NewValidationError(field,
			fmt.Sprintf("value must have at most %d decimal places", spec.Decimals), value)
	}
	return nil
}

// NormalizeValue validates value and returns it snapped to the parameter's
// precision grid, so range lookup and the probability formula see exactly
// the value the precision check accepted.
func NormalizeValue(spec *domain.ParameterSpec, value float64) (float64, error) {
	if err := ValidateValue(spec, value); err != nil {
		return 0, err
	}
	return spec.Snap(value), nil
}
