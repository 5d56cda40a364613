// Package curriculum drives an agent through an ordered phase ladder:
// drawing scenarios, invoking the agent with retry feedback, gating each
// phase on its observed pass rate, and graduating or failing the run.
package curriculum

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"sort"
	"time"

	"github.com/dlai-sd/dojo/internal/agent"
	"github.com/dlai-sd/dojo/internal/aggregate"
	"github.com/dlai-sd/dojo/internal/models"
	"github.com/dlai-sd/dojo/internal/report"
	"github.com/dlai-sd/dojo/internal/scenarios"
	"github.com/dlai-sd/dojo/internal/store"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// ErrAgentBusy is returned when a training run is already active for the
// agent. One agent advances through one curriculum at a time.
var ErrAgentBusy = errors.New("a training run is already active for this agent")

// ErrRunTerminal is returned when training is requested for an agent whose
// run already graduated or failed. Terminal states are never re-entered.
var ErrRunTerminal = errors.New("training run already reached a terminal state")

// Persistence retry policy for ledger appends and progress saves.
const (
	persistAttempts = 3
	persistBackoff  = 100 * time.Millisecond
)

// invocationVersion tags synthetic dimension scores recorded when the agent
// itself fails to produce an artifact.
const invocationVersion = "agent-invocation/1.0.0"

// Orchestrator runs curricula. It is safe for concurrent use across
// distinct agents; concurrent runs for the same agent are rejected.
type Orchestrator struct {
	def    *models.CurriculumDefinition
	source scenarios.Source
	agent  agent.Agent
	agg    *aggregate.Aggregator
	store  store.Store

	now   func() time.Time
	sleep func(time.Duration)

	notifier notifier
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) { o.now = now }
}

// New creates an Orchestrator. The curriculum definition is validated here
// so configuration errors surface before any agent is invoked.
func New(def *models.CurriculumDefinition, src scenarios.Source, ag agent.Agent, agg *aggregate.Aggregator, st store.Store, opts ...Option) (*Orchestrator, error) {
	if err := def.Validate(); err != nil {
		return nil, err
	}
	o := &Orchestrator{
		def:    def,
		source: src,
		agent:  ag,
		agg:    agg,
		store:  st,
		now:    time.Now,
		sleep:  time.Sleep,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o, nil
}

// OnProgress registers a progress listener
func (o *Orchestrator) OnProgress(listener ProgressListener) {
	o.notifier.add(listener)
}

// Train runs the curriculum for one agent, resuming from persisted progress
// when a prior run was interrupted. A phase falling short of its pass rate
// target is an outcome, not an error: the returned progress carries the
// PHASE_FAILED status and its diagnosis.
func (o *Orchestrator) Train(ctx context.Context, agentID string) (*models.TrainingProgress, error) {
	if agentID == "" {
		return nil, fmt.Errorf("agent id is required")
	}
	if !trainLocks.acquire(agentID) {
		return nil, fmt.Errorf("agent %s: %w", agentID, ErrAgentBusy)
	}
	defer trainLocks.release(agentID)

	// Stores shared between processes also hold an advisory lock so two
	// trainers on the same data directory cannot interleave writes.
	if locker, ok := o.store.(store.Locker); ok {
		release, err := locker.AcquireAgentLock(agentID)
		if err != nil {
			return nil, fmt.Errorf("agent %s: %w: %v", agentID, ErrAgentBusy, err)
		}
		defer release()
	}

	progress, err := o.loadOrCreateProgress(ctx, agentID)
	if err != nil {
		return nil, err
	}
	if progress.Status.Terminal() {
		return progress, fmt.Errorf("agent %s is %s: %w", agentID, progress.Status, ErrRunTerminal)
	}

	if err := o.agent.Initialize(ctx); err != nil {
		return progress, fmt.Errorf("initializing agent: %w", err)
	}
	defer func() {
		if err := o.agent.Shutdown(context.WithoutCancel(ctx)); err != nil {
			slog.Warn("agent shutdown failed", "agent", agentID, "error", err)
		}
	}()

	o.notifier.notify(ProgressEvent{
		EventType:   EventTrainingStart,
		AgentID:     agentID,
		PhaseNum:    progress.CurrentPhaseIndex + 1,
		TotalPhases: len(o.def.Phases),
	})

	for progress.CurrentPhaseIndex < len(o.def.Phases) {
		phase := &o.def.Phases[progress.CurrentPhaseIndex]
		phaseNum := progress.CurrentPhaseIndex + 1

		o.notifier.notify(ProgressEvent{
			EventType:   EventPhaseStart,
			AgentID:     agentID,
			Phase:       phase.Name,
			PhaseNum:    phaseNum,
			TotalPhases: len(o.def.Phases),
		})

		outcome, err := o.runPhase(ctx, agentID, progress.CurrentPhaseIndex, phase)
		if err != nil {
			// Interrupted or misconfigured: progress stays IN_PROGRESS so
			// the run can resume at this phase.
			if saveErr := o.persistProgress(ctx, progress); saveErr != nil {
				slog.Error("saving progress after interrupted phase", "agent", agentID, "error", saveErr)
			}
			o.notifier.notify(ProgressEvent{
				EventType: EventTrainingStopped,
				AgentID:   agentID,
				Phase:     phase.Name,
				PhaseNum:  phaseNum,
			})
			return progress, err
		}

		result := models.PhaseResult{
			PassRate:  outcome.passRate(),
			Target:    phase.PassRateTarget,
			Attempted: len(outcome.scenarios),
			Passed:    outcome.passedCount(),
		}
		if err := progress.RecordPhase(phase.Name, result, o.now().UTC()); err != nil {
			return progress, err
		}

		// Full precision comparison: 0.80 observed meets a 0.80 target.
		if result.PassRate < phase.PassRateTarget {
			diag := o.diagnose(phase, result, outcome)
			progress.Fail(diag, o.now().UTC())
			if err := o.persistProgress(ctx, progress); err != nil {
				return progress, err
			}
			o.notifier.notify(ProgressEvent{
				EventType:   EventPhaseFailed,
				AgentID:     agentID,
				Phase:       phase.Name,
				PhaseNum:    phaseNum,
				TotalPhases: len(o.def.Phases),
				PassRate:    result.PassRate,
			})
			return progress, nil
		}

		o.notifier.notify(ProgressEvent{
			EventType:   EventPhaseComplete,
			AgentID:     agentID,
			Phase:       phase.Name,
			PhaseNum:    phaseNum,
			TotalPhases: len(o.def.Phases),
			Passed:      true,
			PassRate:    result.PassRate,
		})

		if err := progress.Advance(o.now().UTC()); err != nil {
			return progress, err
		}
		if err := o.persistProgress(ctx, progress); err != nil {
			return progress, err
		}
	}

	return o.graduate(ctx, agentID, progress)
}

func (o *Orchestrator) loadOrCreateProgress(ctx context.Context, agentID string) (*models.TrainingProgress, error) {
	progress, err := o.store.LoadProgress(ctx, agentID)
	switch {
	case errors.Is(err, store.ErrNotFound):
		progress = models.NewTrainingProgress(agentID, o.def.Name, o.now().UTC())
		if err := o.persistProgress(ctx, progress); err != nil {
			return nil, err
		}
		return progress, nil
	case err != nil:
		return nil, fmt.Errorf("loading progress for agent %s: %w", agentID, err)
	}
	if progress.CurriculumName != o.def.Name {
		return nil, fmt.Errorf("agent %s has progress for curriculum %q, not %q", agentID, progress.CurriculumName, o.def.Name)
	}
	return progress, nil
}

// phaseOutcome collects the per-scenario results of one phase run.
type phaseOutcome struct {
	scenarios []*models.Scenario
	passed    []bool
	// finalReports holds the last attempt's report per scenario, used for
	// failure diagnosis.
	finalReports []*models.EvaluationReport
}

func (po *phaseOutcome) passedCount() int {
	n := 0
	for _, p := range po.passed {
		if p {
			n++
		}
	}
	return n
}

func (po *phaseOutcome) passRate() float64 {
	if len(po.passed) == 0 {
		return 0
	}
	return float64(po.passedCount()) / float64(len(po.passed))
}

func (o *Orchestrator) runPhase(ctx context.Context, agentID string, phaseIdx int, phase *models.CurriculumPhase) (*phaseOutcome, error) {
	drawn, err := o.drawScenarios(ctx, phaseIdx, phase)
	if err != nil {
		return nil, err
	}

	outcome := &phaseOutcome{
		scenarios:    drawn,
		passed:       make([]bool, len(drawn)),
		finalReports: make([]*models.EvaluationReport, len(drawn)),
	}

	workers := o.def.Workers
	if workers < 1 {
		workers = 1
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, sc := range drawn {
		g.Go(func() error {
			passed, final, err := o.runScenario(gctx, agentID, phase, sc)
			if err != nil {
				return err
			}
			outcome.passed[i] = passed
			outcome.finalReports[i] = final
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return outcome, nil
}

// drawScenarios deterministically selects the phase's scenarios: the
// filtered bank is shuffled with the curriculum seed offset by the phase
// index, without replacement. A bank too small for the phase is a
// configuration error.
func (o *Orchestrator) drawScenarios(ctx context.Context, phaseIdx int, phase *models.CurriculumPhase) ([]*models.Scenario, error) {
	bank, err := o.source.List(ctx, o.def.Domain, phase.DifficultyFilter)
	if err != nil {
		return nil, fmt.Errorf("phase %q: %w", phase.Name, err)
	}
	if len(bank) < phase.ScenarioCount {
		return nil, fmt.Errorf("phase %q needs %d %s scenarios, bank has %d", phase.Name, phase.ScenarioCount, phase.DifficultyFilter, len(bank))
	}

	rng := rand.New(rand.NewSource(o.def.Seed + int64(phaseIdx)))
	perm := rng.Perm(len(bank))

	drawn := make([]*models.Scenario, phase.ScenarioCount)
	for i := range drawn {
		drawn[i] = bank[perm[i]]
	}
	return drawn, nil
}

// runScenario attempts one scenario up to 1+MaxRetriesPerScenario times,
// feeding the feedback from each failed attempt into the next one. Every
// attempt lands in the ledger, including synthetic zero-score trials for
// agent invocation failures.
func (o *Orchestrator) runScenario(ctx context.Context, agentID string, phase *models.CurriculumPhase, sc *models.Scenario) (bool, *models.EvaluationReport, error) {
	maxAttempts := phase.MaxRetriesPerScenario + 1
	threshold := phase.EffectivePassThreshold()

	var feedbacks []string
	var final *models.EvaluationReport
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		// Cancellation lands between attempts so an in-flight trial is
		// always recorded whole.
		if err := ctx.Err(); err != nil {
			return false, final, err
		}

		o.notifier.notify(ProgressEvent{
			EventType:   EventTrialStart,
			AgentID:     agentID,
			Phase:       phase.Name,
			ScenarioID:  sc.ID,
			Attempt:     attempt,
			MaxAttempts: maxAttempts,
		})

		start := o.now()
		report, output, err := o.attemptScenario(ctx, phase, sc, feedbacks, threshold)
		if err != nil {
			return false, final, err
		}
		final = report

		trial := &models.TrialRecord{
			TrialID:       uuid.NewString(),
			AgentID:       agentID,
			ScenarioID:    sc.ID,
			Phase:         phase.Name,
			AttemptNumber: attempt,
			AgentOutput:   output,
			Report:        *report,
			RecordedAt:    o.now().UTC(),
		}
		if err := o.persistTrial(ctx, trial); err != nil {
			return false, final, err
		}

		o.notifier.notify(ProgressEvent{
			EventType:   EventTrialComplete,
			AgentID:     agentID,
			Phase:       phase.Name,
			ScenarioID:  sc.ID,
			Attempt:     attempt,
			MaxAttempts: maxAttempts,
			Passed:      report.Passed,
			PreFlagged:  report.PreFlagged,
			Score:       report.OverallScore,
			DurationMs:  o.now().Sub(start).Milliseconds(),
		})

		if report.Passed {
			return true, final, nil
		}
		if report.Feedback != "" {
			feedbacks = append(feedbacks, report.Feedback)
		}
	}
	return false, final, nil
}

// attemptScenario performs one agent invocation and evaluates its output.
// Agent failures degrade to a synthetic zero-score report; evaluator
// configuration errors propagate.
func (o *Orchestrator) attemptScenario(ctx context.Context, phase *models.CurriculumPhase, sc *models.Scenario, feedbacks []string, threshold float64) (*models.EvaluationReport, string, error) {
	req := &agent.InvocationRequest{
		ScenarioID:       sc.ID,
		TaskDescription:  sc.TaskDescription,
		Constraints:      sc.Constraints,
		ContextAdditions: feedbacks,
	}

	result, err := o.agent.Invoke(ctx, req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, "", ctx.Err()
		}
		slog.Warn("agent invocation failed, recording zero-score trial",
			"scenario", sc.ID, "error", err)
		return o.syntheticFailure(sc, threshold, err), "", nil
	}

	report, err := o.agg.Evaluate(ctx, sc, result.Output, threshold)
	if err != nil {
		return nil, "", fmt.Errorf("evaluating scenario %s: %w", sc.ID, err)
	}
	return report, result.Output, nil
}

// syntheticFailure builds the zero-score report recorded when the agent
// produced no artifact. The attempt still consumes a retry.
func (o *Orchestrator) syntheticFailure(sc *models.Scenario, threshold float64, cause error) *models.EvaluationReport {
	issue := fmt.Sprintf("agent invocation failed: %v", cause)
	scores := make([]models.DimensionScore, len(sc.RubricWeights))
	for i, rw := range sc.RubricWeights {
		scores[i] = models.DimensionScore{
			Dimension:        rw.Dimension,
			Score:            models.ScoreMin,
			Applicable:       true,
			Issues:           []string{issue},
			EvaluatorVersion: invocationVersion,
		}
	}
	return &models.EvaluationReport{
		ScenarioID:      sc.ID,
		OverallScore:    models.ScoreMin,
		Passed:          false,
		PassThreshold:   threshold,
		DimensionScores: scores,
		Feedback:        "The agent did not produce any output. " + issue,
		EvaluatedAt:     o.now().UTC(),
	}
}

// diagnose summarizes why a phase fell short: the observed rate versus the
// target, plus the weakest dimensions across the phase's final attempts.
func (o *Orchestrator) diagnose(phase *models.CurriculumPhase, result models.PhaseResult, outcome *phaseOutcome) models.PhaseDiagnosis {
	type dimAgg struct {
		sum float64
		n   int
	}
	byDim := make(map[models.Dimension]*dimAgg)
	var order []models.Dimension
	for _, rep := range outcome.finalReports {
		if rep == nil {
			continue
		}
		for _, ds := range rep.DimensionScores {
			if !ds.Applicable {
				continue
			}
			agg, ok := byDim[ds.Dimension]
			if !ok {
				agg = &dimAgg{}
				byDim[ds.Dimension] = agg
				order = append(order, ds.Dimension)
			}
			agg.sum += ds.Score
			agg.n++
		}
	}

	sort.SliceStable(order, func(i, j int) bool {
		a, b := byDim[order[i]], byDim[order[j]]
		return a.sum/float64(a.n) < b.sum/float64(b.n)
	})
	if len(order) > 3 {
		order = order[:3]
	}

	return models.PhaseDiagnosis{
		Phase:             phase.Name,
		ObservedPassRate:  result.PassRate,
		TargetPassRate:    phase.PassRateTarget,
		WeakestDimensions: order,
	}
}

// graduate finalizes a run that cleared every phase: terminal status, plus
// a graduation report built from the full trial ledger.
func (o *Orchestrator) graduate(ctx context.Context, agentID string, progress *models.TrainingProgress) (*models.TrainingProgress, error) {
	progress.Graduate(o.now().UTC())
	if err := o.persistProgress(ctx, progress); err != nil {
		return progress, err
	}

	trials, err := o.store.ListTrials(ctx, agentID, "")
	if err != nil {
		return progress, fmt.Errorf("listing trials for graduation report: %w", err)
	}
	grad := report.Build(o.def, progress, trials, o.now().UTC())
	if err := o.persistGraduation(ctx, grad); err != nil {
		return progress, err
	}

	o.notifier.notify(ProgressEvent{
		EventType:   EventGraduated,
		AgentID:     agentID,
		TotalPhases: len(o.def.Phases),
		Passed:      true,
		PassRate:    grad.OverallPassRate,
	})
	return progress, nil
}

// Persistence wrappers. A trial or progress write survives transient store
// failures via a short backoff; writes are detached from the run's
// cancellation so completed work is never dropped.

func (o *Orchestrator) persistTrial(ctx context.Context, trial *models.TrialRecord) error {
	return o.persistWithRetry(ctx, "trial", func(pctx context.Context) error {
		return o.store.AppendTrial(pctx, trial)
	})
}

func (o *Orchestrator) persistProgress(ctx context.Context, progress *models.TrainingProgress) error {
	return o.persistWithRetry(ctx, "progress", func(pctx context.Context) error {
		return o.store.SaveProgress(pctx, progress)
	})
}

func (o *Orchestrator) persistGraduation(ctx context.Context, grad *models.GraduationReport) error {
	return o.persistWithRetry(ctx, "graduation report", func(pctx context.Context) error {
		return o.store.SaveGraduationReport(pctx, grad)
	})
}

func (o *Orchestrator) persistWithRetry(ctx context.Context, what string, write func(context.Context) error) error {
	pctx := context.WithoutCancel(ctx)
	var err error
	for attempt := 1; attempt <= persistAttempts; attempt++ {
		if err = write(pctx); err == nil {
			return nil
		}
		if attempt < persistAttempts {
			backoff := persistBackoff << (attempt - 1)
			slog.Warn("persist failed, retrying", "what", what, "attempt", attempt, "backoff", backoff, "error", err)
			o.sleep(backoff)
		}
	}
	return fmt.Errorf("persisting %s after %d attempts: %w", what, persistAttempts, err)
}
