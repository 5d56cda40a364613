package evaluators

import (
	"context"
	"fmt"
	"time"

	"github.com/dlai-sd/dojo/internal/knowledge"
	"github.com/dlai-sd/dojo/internal/models"
	"github.com/go-viper/mapstructure/v2"
)

// Kind identifies an evaluator implementation in configuration.
type Kind string

const (
	KindStructural  Kind = "structural"
	KindContent     Kind = "content_quality"
	KindDomain      Kind = "domain_expertise"
	KindFitness     Kind = "fit_for_purpose"
	KindComparative Kind = "comparative"
)

// Evaluator scores exactly one quality dimension of an agent output.
// Implementations are pure: deterministic for a fixed Version, no side
// effects. An evaluator that cannot assess its dimension returns the
// "not applicable" sentinel via models.NotApplicable, never a fabricated
// score.
type Evaluator interface {
	// Name returns the evaluator identifier used in results.
	Name() string

	// Dimension returns the quality axis this evaluator owns.
	Dimension() models.Dimension

	// Version pins the scoring behavior for reproducibility.
	Version() string

	// AppliesTo reports whether this evaluator can assess the scenario at
	// all. Inapplicable evaluators contribute no dimension score and are
	// excluded from weight normalization.
	AppliesTo(scenario *models.Scenario) bool

	// Evaluate scores the output for the scenario.
	Evaluate(ctx context.Context, scenario *models.Scenario, output string) (*models.DimensionScore, error)
}

// Create builds an evaluator from its configured kind and loosely-typed
// parameter map.
func Create(kind Kind, params map[string]any, kb *knowledge.Base) (Evaluator, error) {
	switch kind {
	case KindStructural:
		return NewStructuralEvaluator(), nil
	case KindContent:
		return NewContentEvaluator(), nil
	case KindDomain:
		var v struct {
			Tables string `mapstructure:"tables"`
		}
		if err := mapstructure.Decode(params, &v); err != nil {
			return nil, err
		}
		if v.Tables != "" {
			loaded, err := knowledge.Load(v.Tables)
			if err != nil {
				return nil, fmt.Errorf("loading knowledge tables: %w", err)
			}
			kb = loaded
		}
		return NewDomainEvaluator(kb), nil
	case KindFitness:
		return NewFitnessEvaluator(), nil
	case KindComparative:
		var v struct {
			MinSimilarity float64 `mapstructure:"min_similarity"`
		}
		if err := mapstructure.Decode(params, &v); err != nil {
			return nil, err
		}
		return NewComparativeEvaluator(v.MinSimilarity), nil
	default:
		return nil, fmt.Errorf("%q is not a valid evaluator kind", kind)
	}
}

// DefaultSet returns the recommended evaluator set. The knowledge base may
// be nil, in which case the domain expertise evaluator reports itself
// inapplicable for every scenario.
func DefaultSet(kb *knowledge.Base) []Evaluator {
	return []Evaluator{
		NewStructuralEvaluator(),
		NewContentEvaluator(),
		NewDomainEvaluator(kb),
		NewFitnessEvaluator(),
		NewComparativeEvaluator(0),
	}
}

// measureTime is a helper to record scoring duration on the result.
func measureTime(fn func() (*models.DimensionScore, error)) (*models.DimensionScore, error) {
	start := time.Now()
	result, err := fn()

	if result != nil {
		result.DurationMs = time.Since(start).Milliseconds()
	}

	return result, err
}
