package service

import (
	"fmt"
	"math"

	"github.com/neorisk-server/internal/domain"
)

// ScoringEngine maps parameter values to score contributions and computes the
// logistic mortality probability. It holds no mutable state; one engine may
// serve any number of concurrent assessments.
type ScoringEngine struct {
	config *domain.RiskConfig
}

// NewScoringEngine creates a scoring engine over a loaded configuration
func NewScoringEngine(config *domain.RiskConfig) *ScoringEngine {
	return &ScoringEngine{config: config}
}

// Config returns the configuration the engine scores against
func (e *ScoringEngine) Config() *domain.RiskConfig {
	return e.config
}

// ScoreParameter finds the range containing value and returns its score.
func (e *ScoringEngine) ScoreParameter(key domain.ParameterKey, value float64) (int, domain.Range, error) {
	spec, err := e.config.Parameter(key)
	if err != nil {
		return 0, domain.Range{}, err
	}

	r, ok := spec.FindRange(value)
	if !ok {
		lo, hi := spec.Bounds()
		return 0, domain.Range{}, &domain.ValueOutOfRangeError{Key: key, Value: value, Min: lo, Max: hi}
	}
	return r.Score, r, nil
}

// ScoreDetails scores every parameter in canonical order and returns the
// per-parameter breakdown alongside the total.
func (e *ScoringEngine) ScoreDetails(input domain.AssessmentInput) ([]domain.ParameterDetail, int, error) {
	details := make([]domain.ParameterDetail, 0, domain.ParameterCount)
	total := 0

	for _, key := range domain.ParameterOrder {
		value, ok := input[key]
		if !ok {
			return nil, 0, fmt.Errorf("%w: missing %s", domain.ErrIncompleteInput, key)
		}

		score, r, err := e.ScoreParameter(key, value)
		if err != nil {
			return nil, 0, err
		}

		spec, _ := e.config.Parameter(key)
		details = append(details, domain.ParameterDetail{
			Key:      key,
			Label:    spec.DisplayName(),
			Unit:     spec.Unit,
			Value:    value,
			Decimals: spec.Decimals,
			Range:    r,
		})
		total += score
	}

	return details, total, nil
}

// TotalScore sums the score contributions of all seven parameters.
func (e *ScoringEngine) TotalScore(input domain.AssessmentInput) (int, error) {
	_, total, err := e.ScoreDetails(input)
	return total, err
}

// Logit computes intercept + Σ coef_k * input[k] over the canonical keys.
func (e *ScoringEngine) Logit(input domain.AssessmentInput) (float64, error) {
	formula := e.config.ProbabilityFormula
	logit := formula.Intercept

	for _, key := range domain.ParameterOrder {
		value, ok := input[key]
		if !ok {
			return 0, fmt.Errorf("%w: missing %s", domain.ErrIncompleteInput, key)
		}
		coef, err := formula.Coefficient(key)
		if err != nil {
			return 0, err
		}
		logit += coef * value
	}

	return logit, nil
}

// MortalityProbability returns sigmoid(logit) for the given input.
func (e *ScoringEngine) MortalityProbability(input domain.AssessmentInput) (float64, error) {
	logit, err := e.Logit(input)
	if err != nil {
		return 0, err
	}
	return Sigmoid(logit), nil
}

// Sigmoid computes exp(x)/(1+exp(x)). For positive x the equivalent
// 1/(1+exp(-x)) is used so overflow saturates at 1 instead of producing NaN.
func Sigmoid(x float64) float64 {
	if x >= 0 {
		return 1 / (1 + math.Exp(-x))
	}
	ex := math.Exp(x)
	return ex / (1 + ex)
}
