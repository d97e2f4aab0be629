// Package riskconfig loads and validates the risk configuration document that
// drives scoring, classification and the probability formula.
package riskconfig

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"sort"

	"github.com/neorisk-server/internal/domain"
)

// DefaultSource names the embedded table in errors and logs.
const DefaultSource = "embedded:default_risk_config.json"

//go:embed default_risk_config.json
var defaultDocument []byte

// relative tolerance when comparing boundaries against the precision step
const stepTolerance = 1e-6

// LoadDefault returns the embedded reference table.
func LoadDefault() (*domain.RiskConfig, error) {
	return Load(bytes.NewReader(defaultDocument), DefaultSource)
}

// LoadFile reads a risk configuration document from disk. An empty path
// selects the embedded default.
func LoadFile(path string) (*domain.RiskConfig, error) {
	if path == "" {
		return LoadDefault()
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, &domain.ConfigLoadError{Source: path, Reason: "cannot open document", Err: err}
	}
	defer f.Close()

	return Load(f, path)
}

// Load parses, validates and normalizes a risk configuration document.
// Every failure is a *domain.ConfigLoadError.
func Load(r io.Reader, source string) (*domain.RiskConfig, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, &domain.ConfigLoadError{Source: source, Reason: "cannot read document", Err: err}
	}

	if err := validateDocument(raw); err != nil {
		return nil, &domain.ConfigLoadError{Source: source, Reason: "malformed document", Err: err}
	}

	var cfg domain.RiskConfig
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return nil, &domain.ConfigLoadError{Source: source, Reason: "malformed document", Err: err}
	}

	if err := normalize(&cfg); err != nil {
		return nil, &domain.ConfigLoadError{Source: source, Reason: "inconsistent configuration", Err: err}
	}

	return &cfg, nil
}

func normalize(cfg *domain.RiskConfig) error {
	for key := range cfg.Parameters {
		if !key.IsValid() {
			return fmt.Errorf("unknown parameter %q", string(key))
		}
	}

	for _, key := range domain.ParameterOrder {
		spec, ok := cfg.Parameters[key]
		if !ok || spec == nil {
			return fmt.Errorf("parameter %q is missing", string(key))
		}
		spec.Key = key
		if err := validateParameter(spec); err != nil {
			return fmt.Errorf("parameter %q: %w", string(key), err)
		}
	}

	return validateRiskLevels(cfg)
}

func validateParameter(spec *domain.ParameterSpec) error {
	if len(spec.Ranges) == 0 {
		return fmt.Errorf("no ranges configured")
	}
	if spec.Decimals < 0 {
		return fmt.Errorf("decimals must not be negative")
	}

	for i, r := range spec.Ranges {
		if r.Min > r.Max {
			return fmt.Errorf("range %d has min %g greater than max %g", i, r.Min, r.Max)
		}
	}

	sort.SliceStable(spec.Ranges, func(i, j int) bool {
		return spec.Ranges[i].Min < spec.Ranges[j].Min
	})

	if spec.Binary {
		return validateBinary(spec)
	}

	step := spec.Step()
	for i := 1; i < len(spec.Ranges); i++ {
		prev, next := spec.Ranges[i-1], spec.Ranges[i]
		if next.Min <= prev.Max {
			return fmt.Errorf("ranges [%g, %g] and [%g, %g] overlap", prev.Min, prev.Max, next.Min, next.Max)
		}
		if gap := next.Min - prev.Max; math.Abs(gap-step) > step*stepTolerance {
			return fmt.Errorf("gap between %g and %g exceeds precision step %g", prev.Max, next.Min, step)
		}
	}
	return nil
}

func validateBinary(spec *domain.ParameterSpec) error {
	if spec.Decimals != 0 {
		return fmt.Errorf("binary parameter must have zero decimals")
	}
	lo, hi := spec.Bounds()
	if lo != 0 || hi != 1 {
		return fmt.Errorf("binary parameter must cover exactly 0 and 1")
	}
	if _, ok := spec.FindRange(0); !ok {
		return fmt.Errorf("binary parameter has no range for 0")
	}
	if _, ok := spec.FindRange(1); !ok {
		return fmt.Errorf("binary parameter has no range for 1")
	}
	for i := 1; i < len(spec.Ranges); i++ {
		if spec.Ranges[i].Min <= spec.Ranges[i-1].Max {
			return fmt.Errorf("binary ranges overlap")
		}
	}
	return nil
}

// validateRiskLevels sorts the levels and requires them to tile every
// achievable total score without gaps or overlaps.
func validateRiskLevels(cfg *domain.RiskConfig) error {
	levels := cfg.RiskLevels
	if len(levels) == 0 {
		return fmt.Errorf("no risk levels configured")
	}

	for i, l := range levels {
		if l.MinScore > l.MaxScore {
			return fmt.Errorf("risk level %d has minScore %d greater than maxScore %d", i, l.MinScore, l.MaxScore)
		}
		if l.Diagnosis == "" {
			return fmt.Errorf("risk level %d has no diagnosis", i)
		}
	}

	sort.SliceStable(levels, func(i, j int) bool {
		return levels[i].MinScore < levels[j].MinScore
	})

	for i := 1; i < len(levels); i++ {
		prev, next := levels[i-1], levels[i]
		if next.MinScore <= prev.MaxScore {
			return fmt.Errorf("risk levels %q and %q overlap", prev.Diagnosis, next.Diagnosis)
		}
		if next.MinScore != prev.MaxScore+1 {
			return fmt.Errorf("scores %d..%d are not covered by any risk level", prev.MaxScore+1, next.MinScore-1)
		}
	}

	if lo := cfg.MinScore(); levels[0].MinScore > lo {
		return fmt.Errorf("scores from %d are not covered by any risk level", lo)
	}
	if hi := cfg.MaxScore(); levels[len(levels)-1].MaxScore < hi {
		return fmt.Errorf("scores up to %d are not covered by any risk level", hi)
	}
	return nil
}
