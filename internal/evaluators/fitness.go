package evaluators

import (
	"context"
	"fmt"
	"strings"

	"github.com/dlai-sd/dojo/internal/models"
)

const fitnessVersion = "fit_for_purpose/1.0.0"

// requirementCues mark sentences in the task description that state an
// explicit requirement on the output.
var requirementCues = []string{
	"must", "should", "include", "provide", "cover", "explain",
	"describe", "list", "compare", "recommend", "address",
}

// fitnessEvaluator checks whether the output satisfies the scenario's
// stated requirements: requirement coverage plus actionability. Of the
// subjective dimensions this one best predicts real-world usefulness,
// which is why curricula typically weight it highest.
type fitnessEvaluator struct{}

// NewFitnessEvaluator creates the fit-for-purpose evaluator.
func NewFitnessEvaluator() *fitnessEvaluator {
	return &fitnessEvaluator{}
}

func (e *fitnessEvaluator) Name() string                { return "fit_for_purpose" }
func (e *fitnessEvaluator) Dimension() models.Dimension { return models.DimensionFitness }
func (e *fitnessEvaluator) Version() string             { return fitnessVersion }

func (e *fitnessEvaluator) AppliesTo(*models.Scenario) bool { return true }

func (e *fitnessEvaluator) Evaluate(ctx context.Context, scenario *models.Scenario, output string) (*models.DimensionScore, error) {
	return measureTime(func() (*models.DimensionScore, error) {
		outputLower := strings.ToLower(output)
		var issues []string

		requirements := extractRequirements(scenario.TaskDescription)

		var covScore float64
		if len(requirements) == 0 {
			// No explicit requirement sentences: fall back to topical
			// overlap with the task description as a whole.
			covScore = 7.0 * topicalOverlap(outputLower, scenario.TaskDescription)
			if covScore < 3.5 {
				issues = append(issues, "output drifts from the stated task")
			}
		} else {
			covered := 0
			for _, req := range requirements {
				if mentioned(outputLower, req) {
					covered++
				} else {
					issues = append(issues, fmt.Sprintf("requirement not addressed: %s", summarize(req)))
				}
			}
			covScore = 7.0 * float64(covered) / float64(len(requirements))
		}

		actScore := 3.0 * actionability(output)
		if actScore < 1.5 {
			issues = append(issues, "output is hard to act on; use concrete steps, lists, or sections")
		}

		score := covScore + actScore

		return &models.DimensionScore{
			Dimension:  models.DimensionFitness,
			Score:      score,
			Applicable: true,
			Rationale: fmt.Sprintf("requirement coverage %.1f/7.0 (%d requirement(s)), actionability %.1f/3.0",
				covScore, len(requirements), actScore),
			Issues:           issues,
			EvaluatorVersion: fitnessVersion,
		}, nil
	})
}

// extractRequirements pulls the sentences of the task description that carry
// a requirement cue word.
func extractRequirements(task string) []string {
	var reqs []string
	for _, sentence := range splitSentences(task) {
		lower := strings.ToLower(sentence)
		for _, cue := range requirementCues {
			if strings.Contains(lower, cue) {
				reqs = append(reqs, sentence)
				break
			}
		}
	}
	return reqs
}

// topicalOverlap returns the fraction of the task's significant words that
// show up in the output.
func topicalOverlap(outputLower, task string) float64 {
	tokens := tokenize(task)
	if len(tokens) == 0 {
		return 0
	}
	seen := make(map[string]struct{})
	hit := 0
	for _, tok := range tokens {
		if _, dup := seen[tok]; dup {
			continue
		}
		seen[tok] = struct{}{}
		if strings.Contains(outputLower, tok) {
			hit++
		}
	}
	return float64(hit) / float64(len(seen))
}

// actionability returns a 0..1 signal from structural cues that make an
// output usable: lists, numbered steps, and section-like headings.
func actionability(output string) float64 {
	signal := 0.0
	if strings.Contains(output, "\n-") || strings.Contains(output, "\n*") {
		signal += 0.4
	}
	if strings.Contains(output, "\n1.") || strings.Contains(output, "\n1)") {
		signal += 0.4
	}
	for _, line := range strings.Split(output, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "#") || (strings.HasSuffix(trimmed, ":") && wordCount(trimmed) <= 6 && trimmed != ":") {
			signal += 0.2
			break
		}
	}
	if signal > 1.0 {
		return 1.0
	}
	return signal
}

// summarize truncates a requirement sentence for issue text.
func summarize(sentence string) string {
	const maxLen = 80
	s := strings.TrimSpace(sentence)
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
