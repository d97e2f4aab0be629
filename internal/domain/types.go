// Package domain contains the core entities for neonatal transport risk assessment:
// the table-driven parameter ranges, the risk levels over the total score and the
// logistic formula used to estimate mortality probability.
//
// The score follows the Hermansen-style transport risk index. Every threshold,
// score contribution and coefficient is data supplied by the risk configuration;
// nothing in this package hardcodes clinical values.
package domain

import (
	"errors"
	"fmt"
	"math"
)

// ParameterKey identifies one of the seven clinical inputs.
type ParameterKey string

const (
	ParamPH            ParameterKey = "ph"
	ParamAge           ParameterKey = "age"
	ParamApgar         ParameterKey = "apgar"
	ParamWeight        ParameterKey = "weight"
	ParamPaO2          ParameterKey = "pao2"
	ParamMalformations ParameterKey = "malformations"
	ParamIntubation    ParameterKey = "intubation"
)

// ParameterOrder is the canonical evaluation and reporting order.
var ParameterOrder = []ParameterKey{
	ParamPH,
	ParamAge,
	ParamApgar,
	ParamWeight,
	ParamPaO2,
	ParamMalformations,
	ParamIntubation,
}

// ParameterCount is the number of inputs an assessment requires.
const ParameterCount = 7

var (
	ErrIncompleteInput = errors.New("assessment input is incomplete")
)

// IsValid reports whether k is one of the seven known keys.
func (k ParameterKey) IsValid() bool {
	for _, known := range ParameterOrder {
		if k == known {
			return true
		}
	}
	return false
}

// String returns the string representation of ParameterKey
func (k ParameterKey) String() string {
	return string(k)
}

// Range is a closed interval [Min, Max] with its score contribution.
type Range struct {
	Min     float64 `json:"min"`
	Max     float64 `json:"max"`
	Score   int     `json:"score"`
	Comment string  `json:"comment"`
}

// Contains reports whether value lies in [Min, Max], both ends inclusive.
func (r Range) Contains(value float64) bool {
	return value >= r.Min && value <= r.Max
}

// ParameterSpec describes a single clinical input and its scoring table.
type ParameterSpec struct {
	Key         ParameterKey `json:"key"`
	Label       string       `json:"label,omitempty"`
	Unit        string       `json:"unit"`
	Description string       `json:"description"`
	Example     string       `json:"example,omitempty"`
	Decimals    int          `json:"decimals"`
	Binary      bool         `json:"binary,omitempty"`
	Ranges      []Range      `json:"ranges"`
}

// DisplayName returns the label, falling back to the key.
func (p *ParameterSpec) DisplayName() string {
	if p.Label != "" {
		return p.Label
	}
	return string(p.Key)
}

// Step is the smallest increment an accepted value can have.
func (p *ParameterSpec) Step() float64 {
	return math.Pow10(-p.Decimals)
}

// Snap rounds value to the parameter's precision grid. Binary values are
// returned unchanged.
func (p *ParameterSpec) Snap(value float64) float64 {
	if p.Binary {
		return value
	}
	scale := math.Pow10(p.Decimals)
	return math.Round(value*scale) / scale
}

// Bounds returns the lowest and highest value any range accepts.
func (p *ParameterSpec) Bounds() (float64, float64) {
	if len(p.Ranges) == 0 {
		return 0, 0
	}
	lo, hi := p.Ranges[0].Min, p.Ranges[0].Max
	for _, r := range p.Ranges[1:] {
		lo = math.Min(lo, r.Min)
		hi = math.Max(hi, r.Max)
	}
	return lo, hi
}

// FindRange returns the first range containing value.
func (p *ParameterSpec) FindRange(value float64) (Range, bool) {
	for _, r := range p.Ranges {
		if r.Contains(value) {
			return r, true
		}
	}
	return Range{}, false
}

// MaxScore is the highest contribution this parameter can make.
func (p *ParameterSpec) MaxScore() int {
	best := 0
	for i, r := range p.Ranges {
		if i == 0 || r.Score > best {
			best = r.Score
		}
	}
	return best
}

// MinScore is the lowest contribution this parameter can make.
func (p *ParameterSpec) MinScore() int {
	least := 0
	for i, r := range p.Ranges {
		if i == 0 || r.Score < least {
			least = r.Score
		}
	}
	return least
}

// RiskLevel is a classification bucket over the total score.
type RiskLevel struct {
	MinScore         int    `json:"minScore"`
	MaxScore         int    `json:"maxScore"`
	Diagnosis        string `json:"diagnosis"`
	Recommendation   string `json:"recommendation"`
	ProbabilityRange string `json:"probabilityRange"`
}

// Contains reports whether score falls inside the level's closed interval.
func (l RiskLevel) Contains(score int) bool {
	return score >= l.MinScore && score <= l.MaxScore
}

// ProbabilityFormula holds the intercept and one coefficient per parameter.
type ProbabilityFormula struct {
	Intercept         float64 `json:"intercept"`
	PHCoef            float64 `json:"phCoef"`
	AgeCoef           float64 `json:"ageCoef"`
	ApgarCoef         float64 `json:"apgarCoef"`
	WeightCoef        float64 `json:"weightCoef"`
	PaO2Coef          float64 `json:"pao2Coef"`
	MalformationsCoef float64 `json:"malformationsCoef"`
	IntubationCoef    float64 `json:"intubationCoef"`
}

// Coefficient returns the linear coefficient for key.
func (f ProbabilityFormula) Coefficient(key ParameterKey) (float64, error) {
	switch key {
	case ParamPH:
		return f.PHCoef, nil
	case ParamAge:
		return f.AgeCoef, nil
	case ParamApgar:
		return f.ApgarCoef, nil
	case ParamWeight:
		return f.WeightCoef, nil
	case ParamPaO2:
		return f.PaO2Coef, nil
	case ParamMalformations:
		return f.MalformationsCoef, nil
	case ParamIntubation:
		return f.IntubationCoef, nil
	default:
		return 0, &UnknownParameterError{Key: key}
	}
}

// RiskConfig is the loaded, immutable risk configuration. It is built once by
// the riskconfig loader and shared read-only by every assessment.
type RiskConfig struct {
	Version            string                           `json:"version"`
	Parameters         map[ParameterKey]*ParameterSpec `json:"parameters"`
	RiskLevels         []RiskLevel                      `json:"risk_levels"`
	ProbabilityFormula ProbabilityFormula               `json:"probabilityFormula"`
}

// Parameter looks up a parameter spec by key.
func (c *RiskConfig) Parameter(key ParameterKey) (*ParameterSpec, error) {
	spec, ok := c.Parameters[key]
	if !ok || spec == nil {
		return nil, &UnknownParameterError{Key: key}
	}
	return spec, nil
}

// MaxScore is the highest achievable total: the sum of every parameter's
// highest range score.
func (c *RiskConfig) MaxScore() int {
	total := 0
	for _, key := range ParameterOrder {
		if spec, ok := c.Parameters[key]; ok {
			total += spec.MaxScore()
		}
	}
	return total
}

// MinScore is the lowest achievable total.
func (c *RiskConfig) MinScore() int {
	total := 0
	for _, key := range ParameterOrder {
		if spec, ok := c.Parameters[key]; ok {
			total += spec.MinScore()
		}
	}
	return total
}

// AssessmentInput carries the seven validated values of one assessment.
type AssessmentInput map[ParameterKey]float64

// Validate checks that every canonical key is present and finite.
func (in AssessmentInput) Validate() error {
	for _, key := range ParameterOrder {
		v, ok := in[key]
		if !ok {
			return fmt.Errorf("%w: missing %s", ErrIncompleteInput, key)
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return NewValidationError(string(key), "value must be a finite number", v)
		}
	}
	return nil
}

// ParameterDetail is one line of the per-parameter breakdown.
type ParameterDetail struct {
	Key   ParameterKey `json:"key"`
	Label string       `json:"label"`
	Unit  string       `json:"unit"`
	Value float64      `json:"value"`
	// Decimals controls how Value is rendered.
	Decimals int   `json:"-"`
	Range    Range `json:"range"`
}

// AssessmentResult is the outcome of a single assessment.
type AssessmentResult struct {
	Score       int               `json:"score"`
	MaxScore    int               `json:"max_score"`
	Probability float64           `json:"probability"`
	RiskLevel   RiskLevel         `json:"risk_level"`
	Details     []ParameterDetail `json:"details"`
	Report      string            `json:"report"`
}

// AssessmentRequest is the wire form of an assessment. Absent fields stay nil
// so the caller can report which parameter is missing.
type AssessmentRequest struct {
	PH            *float64 `json:"ph"`
	Age           *float64 `json:"age"`
	Apgar         *float64 `json:"apgar"`
	Weight        *float64 `json:"weight"`
	PaO2          *float64 `json:"pao2"`
	Malformations *float64 `json:"malformations"`
	Intubation    *float64 `json:"intubation"`
}

// Input converts the request, skipping absent fields.
func (r AssessmentRequest) Input() AssessmentInput {
	in := make(AssessmentInput, ParameterCount)
	for key, v := range map[ParameterKey]*float64{
		ParamPH:            r.PH,
		ParamAge:           r.Age,
		ParamApgar:         r.Apgar,
		ParamWeight:        r.Weight,
		ParamPaO2:          r.PaO2,
		ParamMalformations: r.Malformations,
		ParamIntubation:    r.Intubation,
	} {
		if v != nil {
			in[key] = *v
		}
	}
	return in
}
