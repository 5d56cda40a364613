package models

import (
	"fmt"
	"time"
)

// Dimension identifies one independently-scored quality axis.
type Dimension string

const (
	DimensionStructural Dimension = "structural"
	DimensionContent    Dimension = "content_quality"
	DimensionDomain     Dimension = "domain_expertise"
	DimensionFitness    Dimension = "fit_for_purpose"
	DimensionComparison Dimension = "comparative"
)

// Score bounds for a single dimension.
const (
	ScoreMin = 0.0
	ScoreMax = 10.0
)

// DimensionScore is the result of one evaluator for one (scenario, output)
// pair. When Applicable is false the score is a "not applicable" sentinel:
// the dimension produced no score and is excluded from weight normalization.
type DimensionScore struct {
	Dimension        Dimension `json:"dimension"`
	Score            float64   `json:"score"`
	Applicable       bool      `json:"applicable"`
	Rationale        string    `json:"rationale,omitempty"`
	Issues           []string  `json:"issues,omitempty"`
	EvaluatorVersion string    `json:"evaluator_version"`
	DurationMs       int64     `json:"duration_ms,omitempty"`
}

// NotApplicable builds the sentinel score for a dimension that could not be
// assessed. The reason lands in Issues so failed evaluators stay visible in
// the ledger.
func NotApplicable(dim Dimension, version, reason string) DimensionScore {
	ds := DimensionScore{
		Dimension:        dim,
		Applicable:       false,
		EvaluatorVersion: version,
	}
	if reason != "" {
		ds.Issues = []string{reason}
	}
	return ds
}

// Validate checks the in-range invariant for applicable scores.
func (ds *DimensionScore) Validate() error {
	if !ds.Applicable {
		return nil
	}
	if ds.Score < ScoreMin || ds.Score > ScoreMax {
		return fmt.Errorf("dimension %s: score %.4f outside [%v, %v]", ds.Dimension, ds.Score, ScoreMin, ScoreMax)
	}
	return nil
}

// DefaultPassThreshold applies when no curriculum phase overrides it.
const DefaultPassThreshold = 8.0

// EvaluationReport aggregates all dimension scores for one trial.
// OverallScore is always derivable from DimensionScores plus the scenario's
// rubric weights; it is never set independently. PreFlagged marks a trial
// whose structural score fell below the hard-fail floor.
type EvaluationReport struct {
	ScenarioID      string           `json:"scenario_id"`
	OverallScore    float64          `json:"overall_score"`
	Passed          bool             `json:"passed"`
	PassThreshold   float64          `json:"pass_threshold"`
	PreFlagged      bool             `json:"pre_flagged,omitempty"`
	DimensionScores []DimensionScore `json:"dimension_scores"`
	Feedback        string           `json:"feedback,omitempty"`
	EvaluatedAt     time.Time        `json:"evaluated_at"`
}

// WeightedScore recomputes the overall score from the stored dimension
// scores and the scenario's rubric, renormalizing weights over the
// dimensions that actually produced a score. Auditing a stored report
// amounts to comparing this against OverallScore.
func (r *EvaluationReport) WeightedScore(scenario *Scenario) (float64, error) {
	totalWeight := 0.0
	weightedSum := 0.0
	for _, ds := range r.DimensionScores {
		if !ds.Applicable {
			continue
		}
		w := scenario.Weight(ds.Dimension)
		if w <= 0 {
			continue
		}
		totalWeight += w
		weightedSum += w * ds.Score
	}
	if totalWeight == 0 {
		return 0, fmt.Errorf("scenario %s: no applicable dimension carries rubric weight", scenario.ID)
	}
	return weightedSum / totalWeight, nil
}

// ApplicableScores returns the subset of dimension scores that produced a
// real score, in stored order.
func (r *EvaluationReport) ApplicableScores() []DimensionScore {
	out := make([]DimensionScore, 0, len(r.DimensionScores))
	for _, ds := range r.DimensionScores {
		if ds.Applicable {
			out = append(out, ds)
		}
	}
	return out
}
