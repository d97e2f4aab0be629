package service

import (
	"sort"

	"github.com/neorisk-server/internal/domain"
)

// RiskClassifier resolves a total score to its risk level
type RiskClassifier struct {
	levels []domain.RiskLevel
}

// NewRiskClassifier creates a classifier over the configured risk levels.
// The levels are copied and ordered by MinScore.
func NewRiskClassifier(levels []domain.RiskLevel) *RiskClassifier {
	sorted := make([]domain.RiskLevel, len(levels))
	copy(sorted, levels)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].MinScore < sorted[j].MinScore
	})
	return &RiskClassifier{levels: sorted}
}

// Classify returns the level whose closed interval contains score.
func (c *RiskClassifier) Classify(score int) (domain.RiskLevel, error) {
	// first level that does not end before score
	i := sort.Search(len(c.levels), func(i int) bool {
		return c.levels[i].MaxScore >= score
	})
	if i < len(c.levels) && c.levels[i].Contains(score) {
		return c.levels[i], nil
	}
	return domain.RiskLevel{}, &domain.UnclassifiedScoreError{Score: score}
}

// Levels returns the ordered risk levels
func (c *RiskClassifier) Levels() []domain.RiskLevel {
	out := make([]domain.RiskLevel, len(c.levels))
	copy(out, c.levels)
	return out
}
