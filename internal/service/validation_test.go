package service

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neorisk-server/internal/domain"
)

func TestValidateValue(t *testing.T) {
	cfg := loadDefaultConfig(t)

	tests := []struct {
		name    string
		key     domain.ParameterKey
		value   float64
		wantErr string
	}{
		{"pH with two decimals", domain.ParamPH, 7.25, ""},
		{"pH with three decimals", domain.ParamPH, 7.255, "at most 2 decimal places"},
		{"PaO2 with one decimal", domain.ParamPaO2, 4.8, ""},
		{"fractional weight", domain.ParamWeight, 1800.5, "whole number"},
		{"fractional age", domain.ParamAge, 2.5, "whole number"},
		{"binary zero", domain.ParamMalformations, 0, ""},
		{"binary one", domain.ParamIntubation, 1, ""},
		{"binary two", domain.ParamMalformations, 2, "must be 0 or 1"},
		{"binary half", domain.ParamIntubation, 0.5, "must be 0 or 1"},
		{"not a number", domain.ParamApgar, math.NaN(), "finite"},
		{"infinite", domain.ParamWeight, math.Inf(1), "finite"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec, err := cfg.Parameter(tt.key)
			require.NoError(t, err)

			err = ValidateValue(spec, tt.value)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			var vErr *domain.ValidationError
			require.True(t, errors.As(err, &vErr))
			assert.Equal(t, string(tt.key), vErr.Field)
			assert.Contains(t, vErr.Message, tt.wantErr)
		})
	}
}

func TestNormalizeValue_SnapsToPrecisionGrid(t *testing.T) {
	cfg := loadDefaultConfig(t)

	tests := []struct {
		name     string
		key      domain.ParameterKey
		value    float64
		expected float64
	}{
		{"pH just past a range edge", domain.ParamPH, 7.2900000001, 7.29},
		{"pH just below a range start", domain.ParamPH, 7.2999999999, 7.30},
		{"weight just past a range edge", domain.ParamWeight, 2499.0000001, 2499},
		{"PaO2 float noise", domain.ParamPaO2, 0.1 + 0.2 + 4.5, 4.8},
		{"binary untouched", domain.ParamIntubation, 1, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec, err := cfg.Parameter(tt.key)
			require.NoError(t, err)

			got, err := NormalizeValue(spec, tt.value)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)

			_, ok := spec.FindRange(got)
			assert.True(t, ok, "accepted value must fall in a range")
		})
	}

	spec, err := cfg.Parameter(domain.ParamPH)
	require.NoError(t, err)
	_, err = NormalizeValue(spec, 7.255)
	assert.Error(t, err)
}
