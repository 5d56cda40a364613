package evaluators

import (
	"context"
	"fmt"
	"math"

	"github.com/dlai-sd/dojo/internal/models"
)

const comparativeVersion = "comparative/1.0.0"

// defaultMinSimilarity is the similarity below which the output is flagged
// as diverging from the reference examples.
const defaultMinSimilarity = 0.3

// comparativeEvaluator scores the output relative to the scenario's
// reference examples (prior high-scoring outputs) using cosine similarity
// over term frequencies. It is only applicable when references exist.
type comparativeEvaluator struct {
	minSimilarity float64
}

// NewComparativeEvaluator creates the comparative evaluator. A zero
// minSimilarity selects the default divergence threshold.
func NewComparativeEvaluator(minSimilarity float64) *comparativeEvaluator {
	if minSimilarity <= 0 {
		minSimilarity = defaultMinSimilarity
	}
	return &comparativeEvaluator{minSimilarity: minSimilarity}
}

func (e *comparativeEvaluator) Name() string                { return "comparative" }
func (e *comparativeEvaluator) Dimension() models.Dimension { return models.DimensionComparison }
func (e *comparativeEvaluator) Version() string             { return comparativeVersion }

func (e *comparativeEvaluator) AppliesTo(scenario *models.Scenario) bool {
	return len(scenario.ReferenceExamples) > 0
}

func (e *comparativeEvaluator) Evaluate(ctx context.Context, scenario *models.Scenario, output string) (*models.DimensionScore, error) {
	return measureTime(func() (*models.DimensionScore, error) {
		if len(scenario.ReferenceExamples) == 0 {
			na := models.NotApplicable(models.DimensionComparison, comparativeVersion, "scenario has no reference examples")
			return &na, nil
		}

		outputVec := termFrequencies(output)
		best := 0.0
		for _, ref := range scenario.ReferenceExamples {
			if sim := cosineSimilarity(outputVec, termFrequencies(ref)); sim > best {
				best = sim
			}
		}

		var issues []string
		if best < e.minSimilarity {
			issues = append(issues, fmt.Sprintf("output diverges from reference examples (best similarity %.2f)", best))
		}

		return &models.DimensionScore{
			Dimension:        models.DimensionComparison,
			Score:            models.ScoreMax * best,
			Applicable:       true,
			Rationale:        fmt.Sprintf("best similarity to %d reference example(s): %.2f", len(scenario.ReferenceExamples), best),
			Issues:           issues,
			EvaluatorVersion: comparativeVersion,
		}, nil
	})
}

func termFrequencies(text string) map[string]float64 {
	freq := make(map[string]float64)
	for _, tok := range tokenize(text) {
		freq[tok]++
	}
	return freq
}

func cosineSimilarity(a, b map[string]float64) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	dot := 0.0
	for term, av := range a {
		if bv, ok := b[term]; ok {
			dot += av * bv
		}
	}
	if dot == 0 {
		return 0
	}
	normA := 0.0
	for _, v := range a {
		normA += v * v
	}
	normB := 0.0
	for _, v := range b {
		normB += v * v
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
