package conversation

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/neorisk-server/internal/domain"
	"github.com/neorisk-server/internal/service"
)

// ParseValue turns one raw token into a number for the given parameter.
// It rejects non-numeric text, values finer than the parameter's precision
// and non-binary values for binary parameters, and snaps accepted values to
// the precision grid. Range checks are not done here.
func ParseValue(spec *domain.ParameterSpec, raw string) (float64, error) {
	token := strings.TrimSpace(raw)
	field := string(spec.Key)

	if token == "" {
		return 0, domain.NewValidationError(field, "a value is required", raw)
	}

	value, err := strconv.ParseFloat(token, 64)
	if err != nil {
		return 0, domain.NewValidationError(field, "must be a number", raw)
	}

	return service.NormalizeValue(spec, value)
}

// ParseBatch splits a comma-separated line into the seven values in
// canonical order.
func ParseBatch(config *domain.RiskConfig, text string) (domain.AssessmentInput, error) {
	tokens := strings.Split(text, ",")
	if len(tokens) != domain.ParameterCount {
		return nil, domain.NewValidationError("input",
			fmt.Sprintf("expected %d comma-separated values, got %d", domain.ParameterCount, len(tokens)), text)
	}

	input := make(domain.AssessmentInput, domain.ParameterCount)
	for i, key := range domain.ParameterOrder {
		spec, err := config.Parameter(key)
		if err != nil {
			return nil, err
		}
		value, err := ParseValue(spec, tokens[i])
		if err != nil {
			return nil, err
		}
		input[key] = value
	}
	return input, nil
}

// IsBatch reports whether text looks like a comma-separated batch entry.
func IsBatch(text string) bool {
	return strings.Contains(text, ",")
}
