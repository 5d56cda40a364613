// Package feedback turns an evaluation report into actionable, plain-text
// improvement guidance that can be injected into a retry attempt's context.
package feedback

import (
	"fmt"
	"sort"
	"strings"

	"github.com/dlai-sd/dojo/internal/models"
)

const (
	// maxWeaknesses caps how many low-scoring dimensions are surfaced.
	maxWeaknesses = 3
	// maxStrengths caps how many high-scoring dimensions are surfaced, so
	// feedback is not purely negative.
	maxStrengths = 2
	// strengthThreshold is the score at or above which a dimension counts
	// as a strength.
	strengthThreshold = 9.0
	// maxHintsPerDimension keeps feedback short enough to inject as context.
	maxHintsPerDimension = 3
)

// Generator produces retry feedback from evaluation reports.
type Generator struct{}

// NewGenerator creates a feedback generator.
func NewGenerator() *Generator {
	return &Generator{}
}

// Generate builds feedback text from the report's weakest applicable
// dimensions. Dimension scores arrive in rubric declaration order, which is
// the tie-break order when scores are equal.
func (g *Generator) Generate(report *models.EvaluationReport) string {
	applicable := report.ApplicableScores()
	if len(applicable) == 0 {
		return ""
	}

	// Stable sort keeps rubric declaration order for ties.
	weakest := make([]models.DimensionScore, len(applicable))
	copy(weakest, applicable)
	sort.SliceStable(weakest, func(i, j int) bool {
		return weakest[i].Score < weakest[j].Score
	})
	if len(weakest) > maxWeaknesses {
		weakest = weakest[:maxWeaknesses]
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Overall score %.2f/10 against a pass threshold of %.2f.\n\n", report.OverallScore, report.PassThreshold)
	if report.PreFlagged {
		b.WriteString("Warning: the output broke structural constraints badly enough to fail on its own. Fix the required structure before anything else.\n\n")
	}
	b.WriteString("Focus areas, weakest first:\n")
	for i, ds := range weakest {
		fmt.Fprintf(&b, "%d. %s scored %.2f/10\n", i+1, ds.Dimension, ds.Score)
		for _, hint := range hints(ds) {
			fmt.Fprintf(&b, "   - %s\n", hint)
		}
	}

	strengths := make([]models.DimensionScore, 0, maxStrengths)
	// Highest scores first; rubric order breaks ties.
	byScore := make([]models.DimensionScore, len(applicable))
	copy(byScore, applicable)
	sort.SliceStable(byScore, func(i, j int) bool {
		return byScore[i].Score > byScore[j].Score
	})
	for _, ds := range byScore {
		if ds.Score >= strengthThreshold {
			strengths = append(strengths, ds)
		}
		if len(strengths) == maxStrengths {
			break
		}
	}
	if len(strengths) > 0 {
		b.WriteString("\nKeep doing:\n")
		for _, ds := range strengths {
			fmt.Fprintf(&b, "- %s scored %.2f/10\n", ds.Dimension, ds.Score)
		}
	}

	return strings.TrimRight(b.String(), "\n")
}

// hints extracts the concrete remediation hints for a weak dimension,
// falling back to the rationale when no specific issues were recorded.
func hints(ds models.DimensionScore) []string {
	if len(ds.Issues) == 0 {
		if ds.Rationale != "" {
			return []string{ds.Rationale}
		}
		return nil
	}
	if len(ds.Issues) > maxHintsPerDimension {
		return ds.Issues[:maxHintsPerDimension]
	}
	return ds.Issues
}
