package service

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/neorisk-server/internal/domain"
)

const reportHeader = "Neonatal transport risk assessment"

// BuildReport renders the assessment as plain text. Detail lines follow the
// order of details, which callers build in canonical parameter order.
func BuildReport(score, maxScore int, probability float64, level domain.RiskLevel, details []domain.ParameterDetail) string {
	var b strings.Builder

	b.WriteString(reportHeader)
	b.WriteString("\n\n")
	fmt.Fprintf(&b, "Total score: %d of %d\n", score, maxScore)
	fmt.Fprintf(&b, "Diagnosis: %s\n", level.Diagnosis)
	fmt.Fprintf(&b, "Mortality probability: %s%%", strconv.FormatFloat(probability*100, 'f', 2, 64))
	if level.ProbabilityRange != "" {
		fmt.Fprintf(&b, " (expected range %s)", level.ProbabilityRange)
	}
	b.WriteString("\n\nParameters:\n")

	for _, d := range details {
		fmt.Fprintf(&b, "- %s: %s", d.Label, FormatValue(d.Value, d.Decimals))
		if d.Unit != "" {
			b.WriteString(" " + d.Unit)
		}
		if d.Range.Comment != "" {
			b.WriteString(", " + d.Range.Comment)
		}
		fmt.Fprintf(&b, " (%s)\n", formatPoints(d.Range.Score))
	}

	if level.Recommendation != "" {
		b.WriteString("\nRecommendation: ")
		b.WriteString(level.Recommendation)
		b.WriteString("\n")
	}

	return b.String()
}

// FormatValue renders v with the parameter's configured precision.
func FormatValue(v float64, decimals int) string {
	return strconv.FormatFloat(v, 'f', decimals, 64)
}

func formatPoints(score int) string {
	if score == 1 || score == -1 {
		return fmt.Sprintf("%+d point", score)
	}
	return fmt.Sprintf("%+d points", score)
}
