package evaluators

import (
	"context"
	"fmt"
	"strings"

	"github.com/dlai-sd/dojo/internal/knowledge"
	"github.com/dlai-sd/dojo/internal/models"
)

const domainVersion = "domain_expertise/1.0.0"

// redFlagPenalty is subtracted per red-flag phrase found in the output.
const redFlagPenalty = 2.5

// domainEvaluator checks domain-specific terminology, red-flag phrases,
// and best-practice and regulatory-awareness markers against the configured
// knowledge table for the scenario's domain.
type domainEvaluator struct {
	kb *knowledge.Base
}

// NewDomainEvaluator creates the domain expertise evaluator. A nil
// knowledge base makes the evaluator inapplicable to every scenario.
func NewDomainEvaluator(kb *knowledge.Base) *domainEvaluator {
	return &domainEvaluator{kb: kb}
}

func (e *domainEvaluator) Name() string                { return "domain_expertise" }
func (e *domainEvaluator) Dimension() models.Dimension { return models.DimensionDomain }
func (e *domainEvaluator) Version() string             { return domainVersion }

func (e *domainEvaluator) AppliesTo(scenario *models.Scenario) bool {
	_, ok := e.kb.Lookup(scenario.Domain)
	return ok
}

func (e *domainEvaluator) Evaluate(ctx context.Context, scenario *models.Scenario, output string) (*models.DimensionScore, error) {
	return measureTime(func() (*models.DimensionScore, error) {
		table, ok := e.kb.Lookup(scenario.Domain)
		if !ok {
			na := models.NotApplicable(models.DimensionDomain, domainVersion,
				fmt.Sprintf("no knowledge table for domain %q", scenario.Domain))
			return &na, nil
		}

		outputLower := strings.ToLower(output)
		var issues []string

		// Terminology coverage carries most of the score.
		termScore := 6.0 * coverage(outputLower, table.Terminology, &issues, "expected terminology missing")
		practiceScore := 2.0 * coverage(outputLower, table.BestPractices, &issues, "best practice not addressed")
		regScore := 2.0 * coverage(outputLower, table.RegulatoryMarkers, &issues, "regulatory awareness marker missing")

		score := termScore + practiceScore + regScore

		redFlags := 0
		for _, flag := range table.RedFlags {
			if containsPhrase(outputLower, flag) {
				redFlags++
				issues = append(issues, fmt.Sprintf("red-flag phrase present: %q", flag))
			}
		}
		score -= float64(redFlags) * redFlagPenalty
		if score < models.ScoreMin {
			score = models.ScoreMin
		}

		return &models.DimensionScore{
			Dimension:  models.DimensionDomain,
			Score:      score,
			Applicable: true,
			Rationale: fmt.Sprintf("terminology %.1f/6.0, best practices %.1f/2.0, regulatory %.1f/2.0, %d red flag(s)",
				termScore, practiceScore, regScore, redFlags),
			Issues:           issues,
			EvaluatorVersion: domainVersion,
		}, nil
	})
}

// coverage returns the fraction of phrases mentioned in the text, recording
// an issue for each miss. Empty phrase lists count as fully covered so an
// unconfigured category does not drag the score down.
func coverage(textLower string, phrases []string, issues *[]string, issuePrefix string) float64 {
	if len(phrases) == 0 {
		return 1.0
	}
	hit := 0
	for _, p := range phrases {
		if mentioned(textLower, p) {
			hit++
		} else {
			*issues = append(*issues, fmt.Sprintf("%s: %s", issuePrefix, p))
		}
	}
	return float64(hit) / float64(len(phrases))
}
