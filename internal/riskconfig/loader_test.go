package riskconfig

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neorisk-server/internal/domain"
)

// mutateDefault decodes the embedded document, applies fn and re-encodes it.
func mutateDefault(t *testing.T, fn func(doc map[string]any)) string {
	t.Helper()
	var doc map[string]any
	require.NoError(t, json.Unmarshal(defaultDocument, &doc))
	fn(doc)
	out, err := json.Marshal(doc)
	require.NoError(t, err)
	return string(out)
}

func parameter(doc map[string]any, key string) map[string]any {
	return doc["parameters"].(map[string]any)[key].(map[string]any)
}

func requireLoadError(t *testing.T, err error, contains string) {
	t.Helper()
	require.Error(t, err)
	var loadErr *domain.ConfigLoadError
	require.True(t, errors.As(err, &loadErr), "expected ConfigLoadError, got %T", err)
	if contains != "" {
		assert.Contains(t, err.Error(), contains)
	}
}

func TestLoadDefault(t *testing.T) {
	cfg, err := LoadDefault()
	require.NoError(t, err)

	assert.NotEmpty(t, cfg.Version)
	assert.Len(t, cfg.Parameters, domain.ParameterCount)
	for _, key := range domain.ParameterOrder {
		spec, err := cfg.Parameter(key)
		require.NoError(t, err)
		assert.Equal(t, key, spec.Key)
		assert.NotEmpty(t, spec.Description)
	}

	assert.Equal(t, 40, cfg.MaxScore())
	assert.Equal(t, 0, cfg.MinScore())
	assert.Len(t, cfg.RiskLevels, 4)
	assert.Equal(t, 23.5, cfg.ProbabilityFormula.Intercept)
	assert.Equal(t, -0.0012, cfg.ProbabilityFormula.WeightCoef)
}

func TestLoadDefault_BoundaryResolution(t *testing.T) {
	cfg, err := LoadDefault()
	require.NoError(t, err)

	tests := []struct {
		key   domain.ParameterKey
		value float64
		score int
	}{
		{domain.ParamPH, 7.09, 10},
		{domain.ParamPH, 7.10, 6},
		{domain.ParamPH, 7.19, 6},
		{domain.ParamPH, 7.20, 3},
		{domain.ParamPH, 7.45, 0},
		{domain.ParamPH, 7.46, 2},
		{domain.ParamAge, 1, 4},
		{domain.ParamAge, 2, 2},
		{domain.ParamApgar, 3, 6},
		{domain.ParamApgar, 7, 0},
		{domain.ParamWeight, 999, 8},
		{domain.ParamWeight, 1000, 5},
		{domain.ParamWeight, 2500, 0},
		{domain.ParamPaO2, 3.9, 6},
		{domain.ParamPaO2, 4.0, 3},
		{domain.ParamMalformations, 1, 3},
		{domain.ParamIntubation, 0, 0},
	}

	for _, tt := range tests {
		spec, err := cfg.Parameter(tt.key)
		require.NoError(t, err)
		r, ok := spec.FindRange(tt.value)
		require.True(t, ok, "%s=%g should match a range", tt.key, tt.value)
		assert.Equal(t, tt.score, r.Score, "%s=%g", tt.key, tt.value)
	}
}

func TestLoadDefault_RiskLevelsCoverEveryScore(t *testing.T) {
	cfg, err := LoadDefault()
	require.NoError(t, err)

	for score := cfg.MinScore(); score <= cfg.MaxScore(); score++ {
		matches := 0
		for _, level := range cfg.RiskLevels {
			if level.Contains(score) {
				matches++
			}
		}
		assert.Equal(t, 1, matches, "score %d must match exactly one level", score)
	}
}

func TestLoad_SortsUnorderedRanges(t *testing.T) {
	doc := mutateDefault(t, func(doc map[string]any) {
		ph := parameter(doc, "ph")
		ranges := ph["ranges"].([]any)
		for i, j := 0, len(ranges)-1; i < j; i, j = i+1, j-1 {
			ranges[i], ranges[j] = ranges[j], ranges[i]
		}
		levels := doc["risk_levels"].([]any)
		levels[0], levels[3] = levels[3], levels[0]
	})

	cfg, err := Load(strings.NewReader(doc), "reversed.json")
	require.NoError(t, err)

	ph, err := cfg.Parameter(domain.ParamPH)
	require.NoError(t, err)
	assert.Equal(t, 6.50, ph.Ranges[0].Min)
	assert.Equal(t, "Low risk", cfg.RiskLevels[0].Diagnosis)
}

func TestLoad_Failures(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(doc map[string]any)
		contains string
	}{
		{
			name: "missing parameter",
			mutate: func(doc map[string]any) {
				delete(doc["parameters"].(map[string]any), "apgar")
			},
		},
		{
			name: "unknown parameter",
			mutate: func(doc map[string]any) {
				doc["parameters"].(map[string]any)["lactate"] = parameter(doc, "apgar")
			},
			contains: "lactate",
		},
		{
			name: "gap between ranges",
			mutate: func(doc map[string]any) {
				ranges := parameter(doc, "ph")["ranges"].([]any)
				ranges[1].(map[string]any)["min"] = 7.12
			},
			contains: "gap",
		},
		{
			name: "overlapping ranges",
			mutate: func(doc map[string]any) {
				ranges := parameter(doc, "weight")["ranges"].([]any)
				ranges[1].(map[string]any)["min"] = 900
			},
			contains: "overlap",
		},
		{
			name: "inverted range",
			mutate: func(doc map[string]any) {
				ranges := parameter(doc, "age")["ranges"].([]any)
				ranges[0].(map[string]any)["max"] = -1
			},
			contains: "greater than max",
		},
		{
			name: "binary parameter covering two",
			mutate: func(doc map[string]any) {
				ranges := parameter(doc, "intubation")["ranges"].([]any)
				ranges[1].(map[string]any)["max"] = 2
			},
			contains: "exactly 0 and 1",
		},
		{
			name: "risk level gap",
			mutate: func(doc map[string]any) {
				levels := doc["risk_levels"].([]any)
				levels[2].(map[string]any)["minScore"] = 14
			},
			contains: "13..13",
		},
		{
			name: "risk levels stop below max score",
			mutate: func(doc map[string]any) {
				levels := doc["risk_levels"].([]any)
				levels[3].(map[string]any)["maxScore"] = 30
			},
			contains: "up to 40",
		},
		{
			name: "missing coefficient",
			mutate: func(doc map[string]any) {
				delete(doc["probabilityFormula"].(map[string]any), "pao2Coef")
			},
			contains: "malformed",
		},
		{
			name: "score is not an integer",
			mutate: func(doc map[string]any) {
				ranges := parameter(doc, "apgar")["ranges"].([]any)
				ranges[0].(map[string]any)["score"] = 2.5
			},
			contains: "malformed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(strings.NewReader(mutateDefault(t, tt.mutate)), "broken.json")
			requireLoadError(t, err, tt.contains)
		})
	}
}

func TestLoad_InvalidJSON(t *testing.T) {
	_, err := Load(strings.NewReader(`{"version": `), "truncated.json")
	requireLoadError(t, err, "truncated.json")
}

func TestLoadFile(t *testing.T) {
	t.Run("empty path selects default", func(t *testing.T) {
		cfg, err := LoadFile("")
		require.NoError(t, err)
		assert.Equal(t, 40, cfg.MaxScore())
	})

	t.Run("reads document from disk", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "risk.json")
		require.NoError(t, os.WriteFile(path, defaultDocument, 0o600))

		cfg, err := LoadFile(path)
		require.NoError(t, err)
		assert.Len(t, cfg.RiskLevels, 4)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadFile(filepath.Join(t.TempDir(), "absent.json"))
		requireLoadError(t, err, "cannot open")
		assert.ErrorIs(t, err, os.ErrNotExist)
	})
}
