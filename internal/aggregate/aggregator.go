// Package aggregate fans an agent output out to every applicable dimension
// evaluator, fans the scores back in, and folds them into one evaluation
// report under the scenario's rubric weights.
package aggregate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/dlai-sd/dojo/internal/evaluators"
	"github.com/dlai-sd/dojo/internal/feedback"
	"github.com/dlai-sd/dojo/internal/models"
	"golang.org/x/sync/errgroup"
)

// ErrNoApplicableEvaluators indicates a configuration error: every
// evaluator declared itself inapplicable to the scenario. A vacuous pass is
// never emitted.
var ErrNoApplicableEvaluators = errors.New("no applicable evaluators for scenario")

// ErrNoScoredDimensions indicates that every applicable evaluator failed or
// returned the not-applicable sentinel, leaving nothing to renormalize over.
var ErrNoScoredDimensions = errors.New("no dimension produced a score")

// DefaultEvaluatorTimeout bounds a single evaluator invocation. Evaluators
// run concurrently, so this is also the target budget for one trial's full
// evaluation.
const DefaultEvaluatorTimeout = 5 * time.Second

// Aggregator coordinates the evaluator fan-out for single trials.
type Aggregator struct {
	evaluators []evaluators.Evaluator
	timeout    time.Duration
	feedback   *feedback.Generator
}

// Option configures an Aggregator.
type Option func(*Aggregator)

// WithEvaluatorTimeout overrides the per-evaluator timeout.
func WithEvaluatorTimeout(d time.Duration) Option {
	return func(a *Aggregator) {
		a.timeout = d
	}
}

// WithFeedback sets the generator used to populate feedback on failed
// reports.
func WithFeedback(g *feedback.Generator) Option {
	return func(a *Aggregator) {
		a.feedback = g
	}
}

// New creates an Aggregator over the given evaluator set. Each dimension
// may be owned by at most one evaluator.
func New(evals []evaluators.Evaluator, opts ...Option) (*Aggregator, error) {
	if len(evals) == 0 {
		return nil, errors.New("at least one evaluator is required")
	}
	seen := make(map[models.Dimension]string, len(evals))
	for _, ev := range evals {
		if prev, dup := seen[ev.Dimension()]; dup {
			return nil, fmt.Errorf("dimension %q claimed by both %s and %s", ev.Dimension(), prev, ev.Name())
		}
		seen[ev.Dimension()] = ev.Name()
	}

	a := &Aggregator{
		evaluators: evals,
		timeout:    DefaultEvaluatorTimeout,
	}
	for _, o := range opts {
		o(a)
	}
	return a, nil
}

// Evaluate runs all applicable evaluators concurrently and aggregates their
// scores into a report. Evaluator faults and timeouts degrade to
// not-applicable scores; they never abort the trial or cancel sibling
// evaluators.
func (a *Aggregator) Evaluate(ctx context.Context, scenario *models.Scenario, output string, passThreshold float64) (*models.EvaluationReport, error) {
	if passThreshold <= 0 {
		passThreshold = models.DefaultPassThreshold
	}

	applicable := make([]evaluators.Evaluator, 0, len(a.evaluators))
	for _, ev := range a.evaluators {
		if !ev.AppliesTo(scenario) {
			continue
		}
		if scenario.Weight(ev.Dimension()) <= 0 {
			slog.Debug("evaluator dimension not in scenario rubric, skipping",
				"evaluator", ev.Name(), "scenario", scenario.ID)
			continue
		}
		applicable = append(applicable, ev)
	}
	if len(applicable) == 0 {
		return nil, fmt.Errorf("scenario %s: %w", scenario.ID, ErrNoApplicableEvaluators)
	}

	scores := make([]models.DimensionScore, len(applicable))

	// Fan out. Workers always return nil so one evaluator's fault never
	// cancels its siblings; faults degrade to not-applicable sentinels.
	g, gctx := errgroup.WithContext(ctx)
	for i, ev := range applicable {
		g.Go(func() error {
			scores[i] = a.runEvaluator(gctx, ev, scenario, output)
			return nil
		})
	}
	_ = g.Wait()

	// Order scores by rubric declaration order so reports and feedback
	// tie-breaks are deterministic.
	ordered := make([]models.DimensionScore, len(scores))
	copy(ordered, scores)
	sort.SliceStable(ordered, func(i, j int) bool {
		return scenario.RubricOrder(ordered[i].Dimension) < scenario.RubricOrder(ordered[j].Dimension)
	})

	report := &models.EvaluationReport{
		ScenarioID:      scenario.ID,
		PassThreshold:   passThreshold,
		DimensionScores: ordered,
		EvaluatedAt:     time.Now().UTC(),
	}

	overall, err := report.WeightedScore(scenario)
	if err != nil {
		return nil, fmt.Errorf("scenario %s: %w", scenario.ID, ErrNoScoredDimensions)
	}
	report.OverallScore = overall
	// Full precision comparison; rounding happens only at presentation.
	report.Passed = overall >= passThreshold

	// A structural score below the floor flags the trial as a likely hard
	// fail regardless of the other dimensions.
	for _, ds := range ordered {
		if ds.Dimension == models.DimensionStructural && ds.Applicable && ds.Score < evaluators.StructuralFloor {
			report.PreFlagged = true
		}
	}

	if !report.Passed && a.feedback != nil {
		report.Feedback = a.feedback.Generate(report)
	}

	return report, nil
}

// runEvaluator invokes one evaluator with a bounded timeout and isolated
// panic handling.
func (a *Aggregator) runEvaluator(ctx context.Context, ev evaluators.Evaluator, scenario *models.Scenario, output string) (score models.DimensionScore) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("evaluator panicked", "evaluator", ev.Name(), "scenario", scenario.ID, "panic", r)
			score = models.NotApplicable(ev.Dimension(), ev.Version(), fmt.Sprintf("evaluator %s panicked: %v", ev.Name(), r))
		}
	}()

	evalCtx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	type outcome struct {
		ds  *models.DimensionScore
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- outcome{err: fmt.Errorf("evaluator %s panicked: %v", ev.Name(), r)}
			}
		}()
		ds, err := ev.Evaluate(evalCtx, scenario, output)
		done <- outcome{ds: ds, err: err}
	}()

	select {
	case <-evalCtx.Done():
		slog.Warn("evaluator timed out", "evaluator", ev.Name(), "scenario", scenario.ID, "timeout", a.timeout)
		return models.NotApplicable(ev.Dimension(), ev.Version(), fmt.Sprintf("evaluator %s timed out after %s", ev.Name(), a.timeout))
	case out := <-done:
		if out.err != nil {
			slog.Error("evaluator failed", "evaluator", ev.Name(), "scenario", scenario.ID, "error", out.err)
			return models.NotApplicable(ev.Dimension(), ev.Version(), fmt.Sprintf("evaluator %s failed: %v", ev.Name(), out.err))
		}
		if out.ds == nil {
			return models.NotApplicable(ev.Dimension(), ev.Version(), fmt.Sprintf("evaluator %s returned no score", ev.Name()))
		}
		if err := out.ds.Validate(); err != nil {
			slog.Error("evaluator produced out-of-range score", "evaluator", ev.Name(), "scenario", scenario.ID, "error", err)
			return models.NotApplicable(ev.Dimension(), ev.Version(), fmt.Sprintf("evaluator %s produced an invalid score: %v", ev.Name(), err))
		}
		return *out.ds
	}
}
