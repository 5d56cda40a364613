package evaluators

import (
	"context"
	"fmt"
	"strings"

	"github.com/dlai-sd/dojo/internal/models"
)

const contentVersion = "content_quality/1.0.0"

// contentEvaluator scores coherence, specificity, and readability with
// deterministic heuristics, so identical inputs always yield identical
// scores for a fixed version.
type contentEvaluator struct{}

// NewContentEvaluator creates the content quality evaluator.
func NewContentEvaluator() *contentEvaluator {
	return &contentEvaluator{}
}

func (e *contentEvaluator) Name() string                { return "content_quality" }
func (e *contentEvaluator) Dimension() models.Dimension { return models.DimensionContent }
func (e *contentEvaluator) Version() string             { return contentVersion }

func (e *contentEvaluator) AppliesTo(*models.Scenario) bool { return true }

func (e *contentEvaluator) Evaluate(ctx context.Context, scenario *models.Scenario, output string) (*models.DimensionScore, error) {
	return measureTime(func() (*models.DimensionScore, error) {
		trimmed := strings.TrimSpace(output)
		if trimmed == "" {
			// Empty output scores poorly rather than raising.
			return &models.DimensionScore{
				Dimension:        models.DimensionContent,
				Score:            0,
				Applicable:       true,
				Rationale:        "output is empty",
				Issues:           []string{"output is empty"},
				EvaluatorVersion: contentVersion,
			}, nil
		}

		var issues []string

		readability := readabilityScore(trimmed, &issues)
		specificity := specificityScore(trimmed, &issues)
		richness := richnessScore(trimmed, &issues)

		// Readability and specificity dominate; vocabulary richness is a
		// weaker signal.
		score := readability*4 + specificity*4 + richness*2

		return &models.DimensionScore{
			Dimension:  models.DimensionContent,
			Score:      score,
			Applicable: true,
			Rationale: fmt.Sprintf("readability %.2f, specificity %.2f, vocabulary richness %.2f",
				readability, specificity, richness),
			Issues:           issues,
			EvaluatorVersion: contentVersion,
		}, nil
	})
}

// readabilityScore returns a 0..1 signal from average sentence length.
// Sentences averaging 8-28 words read well; very short or run-on text
// degrades linearly.
func readabilityScore(text string, issues *[]string) float64 {
	sentences := splitSentences(text)
	if len(sentences) == 0 {
		*issues = append(*issues, "no complete sentences found")
		return 0
	}
	avg := float64(wordCount(text)) / float64(len(sentences))
	switch {
	case avg >= 8 && avg <= 28:
		return 1.0
	case avg < 8:
		*issues = append(*issues, fmt.Sprintf("sentences are very short (avg %.1f words); develop ideas more fully", avg))
		return avg / 8
	default:
		*issues = append(*issues, fmt.Sprintf("sentences are very long (avg %.1f words); break up run-on sentences", avg))
		overshoot := avg - 28
		s := 1.0 - overshoot/28
		if s < 0 {
			return 0
		}
		return s
	}
}

// specificityScore returns a 0..1 signal from the density of concrete
// detail: numbers, percentages, and citation-like markers per 100 words.
func specificityScore(text string, issues *[]string) float64 {
	words := wordCount(text)
	if words == 0 {
		return 0
	}

	signals := 0
	for _, f := range strings.Fields(text) {
		if strings.ContainsAny(f, "0123456789") || strings.Contains(f, "%") {
			signals++
		}
	}
	for _, marker := range []string{"according to", "for example", "e.g.", "source:", "study", "reported"} {
		signals += strings.Count(strings.ToLower(text), marker)
	}

	density := float64(signals) / float64(words) * 100
	if density >= 3 {
		return 1.0
	}
	if density < 1 {
		*issues = append(*issues, "few concrete details; add figures, examples, or sources")
	}
	return density / 3
}

// richnessScore returns a 0..1 signal from the ratio of distinct to total
// significant words.
func richnessScore(text string, issues *[]string) float64 {
	tokens := tokenize(text)
	if len(tokens) == 0 {
		return 0
	}
	distinct := make(map[string]struct{}, len(tokens))
	for _, tok := range tokens {
		distinct[tok] = struct{}{}
	}
	ratio := float64(len(distinct)) / float64(len(tokens))

	// Short texts are naturally rich; only flag clearly repetitive output.
	if ratio < 0.35 && len(tokens) > 50 {
		*issues = append(*issues, "wording is repetitive; vary vocabulary")
	}
	if ratio > 0.7 {
		return 1.0
	}
	return ratio / 0.7
}
