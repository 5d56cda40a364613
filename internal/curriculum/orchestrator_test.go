package curriculum

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dlai-sd/dojo/internal/agent"
	"github.com/dlai-sd/dojo/internal/aggregate"
	"github.com/dlai-sd/dojo/internal/evaluators"
	"github.com/dlai-sd/dojo/internal/feedback"
	"github.com/dlai-sd/dojo/internal/models"
	"github.com/dlai-sd/dojo/internal/scenarios"
	"github.com/dlai-sd/dojo/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedScoreEvaluator parses the agent output as a bare score, so mock
// agent scripts like "5.0" deterministically control pass and fail.
type scriptedScoreEvaluator struct{}

func (scriptedScoreEvaluator) Name() string                             { return "scripted-score" }
func (scriptedScoreEvaluator) Dimension() models.Dimension              { return models.DimensionContent }
func (scriptedScoreEvaluator) Version() string                          { return "scripted/1.0.0" }
func (scriptedScoreEvaluator) AppliesTo(scenario *models.Scenario) bool { return true }

func (scriptedScoreEvaluator) Evaluate(ctx context.Context, scenario *models.Scenario, output string) (*models.DimensionScore, error) {
	score, err := strconv.ParseFloat(strings.TrimSpace(output), 64)
	if err != nil {
		return nil, fmt.Errorf("output is not a score: %q", output)
	}
	return &models.DimensionScore{
		Dimension:        models.DimensionContent,
		Score:            score,
		Applicable:       true,
		Issues:           []string{"raise the scripted score"},
		EvaluatorVersion: "scripted/1.0.0",
	}, nil
}

// fixedStructuralEvaluator pins the structural score so rubric mixes can
// exercise the hard-fail floor.
type fixedStructuralEvaluator struct{ score float64 }

func (fixedStructuralEvaluator) Name() string                    { return "fixed-structural" }
func (fixedStructuralEvaluator) Dimension() models.Dimension     { return models.DimensionStructural }
func (fixedStructuralEvaluator) Version() string                 { return "fixed/1.0.0" }
func (fixedStructuralEvaluator) AppliesTo(*models.Scenario) bool { return true }

func (e fixedStructuralEvaluator) Evaluate(ctx context.Context, scenario *models.Scenario, output string) (*models.DimensionScore, error) {
	return &models.DimensionScore{
		Dimension:        models.DimensionStructural,
		Score:            e.score,
		Applicable:       true,
		Issues:           []string{"missing required sections"},
		EvaluatorVersion: "fixed/1.0.0",
	}, nil
}

func contentScenario(id string, difficulty models.Difficulty) *models.Scenario {
	return &models.Scenario{
		ID:              id,
		Domain:          "finance",
		Difficulty:      difficulty,
		TaskDescription: "Summarize the quarterly results for " + id + ".",
		RubricWeights: []models.RubricWeight{
			{Dimension: models.DimensionContent, Weight: 1.0},
		},
	}
}

func testCurriculum(phases ...models.CurriculumPhase) *models.CurriculumDefinition {
	return &models.CurriculumDefinition{
		Name:   "orchestrator-test",
		Domain: "finance",
		Seed:   42,
		Phases: phases,
	}
}

func scoreAggregator(t *testing.T) *aggregate.Aggregator {
	t.Helper()
	agg, err := aggregate.New(
		[]evaluators.Evaluator{scriptedScoreEvaluator{}},
		aggregate.WithFeedback(feedback.NewGenerator()),
	)
	require.NoError(t, err)
	return agg
}

type eventRecorder struct {
	mu     sync.Mutex
	events []ProgressEvent
}

func (r *eventRecorder) listen(ev ProgressEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *eventRecorder) ofType(et EventType) []ProgressEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []ProgressEvent
	for _, ev := range r.events {
		if ev.EventType == et {
			out = append(out, ev)
		}
	}
	return out
}

func TestTrain_GraduatesThroughAllPhases(t *testing.T) {
	def := testCurriculum(
		models.CurriculumPhase{Name: "foundations", DifficultyFilter: models.DifficultySimple, ScenarioCount: 2, PassRateTarget: 0.8},
		models.CurriculumPhase{Name: "applied", DifficultyFilter: models.DifficultyModerate, ScenarioCount: 2, PassRateTarget: 0.8},
	)
	src := scenarios.NewStaticSource(
		contentScenario("scn-s1", models.DifficultySimple),
		contentScenario("scn-s2", models.DifficultySimple),
		contentScenario("scn-m1", models.DifficultyModerate),
		contentScenario("scn-m2", models.DifficultyModerate),
	)
	mock := agent.NewMockAgent("mock-model")
	mock.SetFallback(func(*agent.InvocationRequest) string { return "9.5" })
	st := store.NewMemStore()

	o, err := New(def, src, mock, scoreAggregator(t), st)
	require.NoError(t, err)

	rec := &eventRecorder{}
	o.OnProgress(rec.listen)

	progress, err := o.Train(context.Background(), "agent-a")
	require.NoError(t, err)
	assert.Equal(t, models.TrainingGraduated, progress.Status)
	assert.Equal(t, 2, progress.CurrentPhaseIndex)
	assert.Nil(t, progress.Diagnosis)

	for _, phase := range []string{"foundations", "applied"} {
		result, ok := progress.PhaseResults[phase]
		require.True(t, ok, "missing result for phase %s", phase)
		assert.InDelta(t, 1.0, result.PassRate, 1e-9)
		assert.Equal(t, 2, result.Attempted)
		assert.Equal(t, 2, result.Passed)
	}

	// The persisted progress matches the returned one.
	stored, err := st.LoadProgress(context.Background(), "agent-a")
	require.NoError(t, err)
	assert.Equal(t, models.TrainingGraduated, stored.Status)

	// Graduating writes the report from the full ledger.
	grad, err := st.LoadGraduationReport(context.Background(), "agent-a")
	require.NoError(t, err)
	assert.Equal(t, "agent-a", grad.AgentID)
	assert.InDelta(t, 1.0, grad.OverallPassRate, 1e-9)
	assert.Equal(t, models.TierExpert, grad.Certification)

	trials, err := st.ListTrials(context.Background(), "agent-a", "")
	require.NoError(t, err)
	assert.Len(t, trials, 4)

	require.Len(t, rec.ofType(EventGraduated), 1)
	assert.Len(t, rec.ofType(EventPhaseComplete), 2)
	assert.Len(t, rec.ofType(EventTrialComplete), 4)
	assert.Empty(t, rec.ofType(EventPhaseFailed))
}

func TestTrain_RetryCarriesFeedbackForward(t *testing.T) {
	def := testCurriculum(models.CurriculumPhase{
		Name: "foundations", DifficultyFilter: models.DifficultySimple,
		ScenarioCount: 1, PassRateTarget: 1.0, MaxRetriesPerScenario: 2,
	})
	src := scenarios.NewStaticSource(contentScenario("scn-1", models.DifficultySimple))
	mock := agent.NewMockAgent("mock-model")
	mock.Script("scn-1", "5.0", "9.0")
	st := store.NewMemStore()

	o, err := New(def, src, mock, scoreAggregator(t), st)
	require.NoError(t, err)

	progress, err := o.Train(context.Background(), "agent-a")
	require.NoError(t, err)
	assert.Equal(t, models.TrainingGraduated, progress.Status)

	// The second invocation carries the first attempt's feedback.
	reqs := mock.Requests()
	require.Len(t, reqs, 2)
	assert.Empty(t, reqs[0].ContextAdditions)
	require.Len(t, reqs[1].ContextAdditions, 1)
	assert.Contains(t, reqs[1].ContextAdditions[0], "content_quality scored 5.00/10")

	// Both attempts land in the ledger, in order.
	trials, err := st.ListTrials(context.Background(), "agent-a", "foundations")
	require.NoError(t, err)
	require.Len(t, trials, 2)
	assert.Equal(t, 1, trials[0].AttemptNumber)
	assert.False(t, trials[0].Report.Passed)
	assert.Equal(t, 2, trials[1].AttemptNumber)
	assert.True(t, trials[1].Report.Passed)
}

func TestTrain_PhaseFailureIsAnOutcome(t *testing.T) {
	def := testCurriculum(models.CurriculumPhase{
		Name: "foundations", DifficultyFilter: models.DifficultySimple,
		ScenarioCount: 1, PassRateTarget: 1.0, MaxRetriesPerScenario: 2,
	})
	src := scenarios.NewStaticSource(contentScenario("scn-1", models.DifficultySimple))
	mock := agent.NewMockAgent("mock-model")
	mock.Script("scn-1", "5.0")
	st := store.NewMemStore()

	o, err := New(def, src, mock, scoreAggregator(t), st)
	require.NoError(t, err)

	rec := &eventRecorder{}
	o.OnProgress(rec.listen)

	progress, err := o.Train(context.Background(), "agent-a")
	require.NoError(t, err)
	assert.Equal(t, models.TrainingPhaseFailed, progress.Status)

	require.NotNil(t, progress.Diagnosis)
	assert.Equal(t, "foundations", progress.Diagnosis.Phase)
	assert.Zero(t, progress.Diagnosis.ObservedPassRate)
	assert.InDelta(t, 1.0, progress.Diagnosis.TargetPassRate, 1e-9)
	assert.Equal(t, []models.Dimension{models.DimensionContent}, progress.Diagnosis.WeakestDimensions)

	// All three attempts consumed and recorded.
	trials, err := st.ListTrials(context.Background(), "agent-a", "")
	require.NoError(t, err)
	assert.Len(t, trials, 3)

	require.Len(t, rec.ofType(EventPhaseFailed), 1)
	assert.Empty(t, rec.ofType(EventGraduated))

	// A terminal run cannot be restarted.
	_, err = o.Train(context.Background(), "agent-a")
	require.ErrorIs(t, err, ErrRunTerminal)
}

func TestTrain_PassRateTargetBoundary(t *testing.T) {
	def := testCurriculum(models.CurriculumPhase{
		Name: "foundations", DifficultyFilter: models.DifficultySimple,
		ScenarioCount: 5, PassRateTarget: 0.8,
	})
	bank := make([]*models.Scenario, 5)
	for i := range bank {
		bank[i] = contentScenario(fmt.Sprintf("scn-%d", i+1), models.DifficultySimple)
	}
	src := scenarios.NewStaticSource(bank...)

	mock := agent.NewMockAgent("mock-model")
	mock.SetFallback(func(*agent.InvocationRequest) string { return "9.0" })
	mock.Script("scn-3", "2.0")
	st := store.NewMemStore()

	o, err := New(def, src, mock, scoreAggregator(t), st)
	require.NoError(t, err)

	// Four of five pass: 0.80 observed meets the 0.80 target exactly.
	progress, err := o.Train(context.Background(), "agent-a")
	require.NoError(t, err)
	assert.Equal(t, models.TrainingGraduated, progress.Status)
	assert.InDelta(t, 0.8, progress.PhaseResults["foundations"].PassRate, 1e-9)
}

func TestTrain_PassRateJustBelowTargetFailsPhase(t *testing.T) {
	def := testCurriculum(models.CurriculumPhase{
		Name: "foundations", DifficultyFilter: models.DifficultySimple,
		ScenarioCount: 10, PassRateTarget: 0.9,
	})
	bank := make([]*models.Scenario, 10)
	for i := range bank {
		bank[i] = contentScenario(fmt.Sprintf("scn-%d", i+1), models.DifficultySimple)
	}
	src := scenarios.NewStaticSource(bank...)

	mock := agent.NewMockAgent("mock-model")
	mock.SetFallback(func(*agent.InvocationRequest) string { return "9.0" })
	mock.Script("scn-3", "2.0")
	mock.Script("scn-7", "2.0")
	st := store.NewMemStore()

	o, err := New(def, src, mock, scoreAggregator(t), st)
	require.NoError(t, err)

	// Eight of ten pass: 0.80 observed falls short of the 0.90 target.
	progress, err := o.Train(context.Background(), "agent-a")
	require.NoError(t, err)
	assert.Equal(t, models.TrainingPhaseFailed, progress.Status)

	require.NotNil(t, progress.Diagnosis)
	assert.InDelta(t, 0.8, progress.Diagnosis.ObservedPassRate, 1e-9)
	assert.InDelta(t, 0.9, progress.Diagnosis.TargetPassRate, 1e-9)
}

func TestTrain_AgentInvocationFailureRecordsZeroScoreTrial(t *testing.T) {
	def := testCurriculum(models.CurriculumPhase{
		Name: "foundations", DifficultyFilter: models.DifficultySimple,
		ScenarioCount: 1, PassRateTarget: 1.0,
	})
	src := scenarios.NewStaticSource(contentScenario("scn-1", models.DifficultySimple))
	st := store.NewMemStore()

	o, err := New(def, src, &failingAgent{}, scoreAggregator(t), st)
	require.NoError(t, err)

	progress, err := o.Train(context.Background(), "agent-a")
	require.NoError(t, err)
	assert.Equal(t, models.TrainingPhaseFailed, progress.Status)

	trials, err := st.ListTrials(context.Background(), "agent-a", "")
	require.NoError(t, err)
	require.Len(t, trials, 1)

	trial := trials[0]
	assert.Empty(t, trial.AgentOutput)
	assert.Zero(t, trial.Report.OverallScore)
	assert.False(t, trial.Report.Passed)
	assert.Contains(t, trial.Report.Feedback, "The agent did not produce any output.")
	require.Len(t, trial.Report.DimensionScores, 1)
	assert.Equal(t, "agent-invocation/1.0.0", trial.Report.DimensionScores[0].EvaluatorVersion)
}

func TestTrain_RejectsConcurrentRunsForSameAgent(t *testing.T) {
	def := testCurriculum(models.CurriculumPhase{
		Name: "foundations", DifficultyFilter: models.DifficultySimple,
		ScenarioCount: 1, PassRateTarget: 1.0,
	})
	src := scenarios.NewStaticSource(contentScenario("scn-1", models.DifficultySimple))
	blocking := newBlockingAgent("9.0")
	st := store.NewMemStore()

	o, err := New(def, src, blocking, scoreAggregator(t), st)
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		_, err := o.Train(context.Background(), "agent-a")
		done <- err
	}()

	select {
	case <-blocking.started:
	case <-time.After(5 * time.Second):
		t.Fatal("first run never invoked the agent")
	}

	_, err = o.Train(context.Background(), "agent-a")
	require.ErrorIs(t, err, ErrAgentBusy)

	close(blocking.release)
	require.NoError(t, <-done)

	// The lock is released once the first run finishes.
	_, err = o.Train(context.Background(), "agent-b")
	require.NoError(t, err)
}

func TestTrain_RejectsConcurrentRunsAcrossOrchestrators(t *testing.T) {
	def := testCurriculum(models.CurriculumPhase{
		Name: "foundations", DifficultyFilter: models.DifficultySimple,
		ScenarioCount: 1, PassRateTarget: 1.0,
	})
	src := scenarios.NewStaticSource(contentScenario("scn-1", models.DifficultySimple))
	blocking := newBlockingAgent("9.0")
	st := store.NewMemStore()

	first, err := New(def, src, blocking, scoreAggregator(t), st)
	require.NoError(t, err)
	mock := agent.NewMockAgent("mock-model")
	mock.SetFallback(func(*agent.InvocationRequest) string { return "9.0" })
	second, err := New(def, src, mock, scoreAggregator(t), st)
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		_, err := first.Train(context.Background(), "agent-a")
		done <- err
	}()

	select {
	case <-blocking.started:
	case <-time.After(5 * time.Second):
		t.Fatal("first run never invoked the agent")
	}

	// A different Orchestrator over the same store still sees the run.
	_, err = second.Train(context.Background(), "agent-a")
	require.ErrorIs(t, err, ErrAgentBusy)

	close(blocking.release)
	require.NoError(t, <-done)
}

func TestTrain_RespectsStoreLock(t *testing.T) {
	def := testCurriculum(models.CurriculumPhase{
		Name: "foundations", DifficultyFilter: models.DifficultySimple,
		ScenarioCount: 1, PassRateTarget: 1.0,
	})
	src := scenarios.NewStaticSource(contentScenario("scn-1", models.DifficultySimple))
	mock := agent.NewMockAgent("mock-model")
	mock.SetFallback(func(*agent.InvocationRequest) string { return "9.0" })

	fs := store.NewFileStore(t.TempDir())
	release, err := fs.AcquireAgentLock("agent-a")
	require.NoError(t, err)

	o, err := New(def, src, mock, scoreAggregator(t), fs)
	require.NoError(t, err)

	// Another trainer holds the data directory's lock.
	_, err = o.Train(context.Background(), "agent-a")
	require.ErrorIs(t, err, ErrAgentBusy)

	release()
	result, err := o.Train(context.Background(), "agent-a")
	require.NoError(t, err)
	assert.Equal(t, models.TrainingGraduated, result.Status)
}

func TestTrain_ResumesFromPersistedPhase(t *testing.T) {
	def := testCurriculum(
		models.CurriculumPhase{Name: "foundations", DifficultyFilter: models.DifficultySimple, ScenarioCount: 1, PassRateTarget: 1.0},
		models.CurriculumPhase{Name: "applied", DifficultyFilter: models.DifficultyModerate, ScenarioCount: 1, PassRateTarget: 1.0},
	)
	src := scenarios.NewStaticSource(
		contentScenario("scn-s1", models.DifficultySimple),
		contentScenario("scn-m1", models.DifficultyModerate),
	)
	mock := agent.NewMockAgent("mock-model")
	mock.SetFallback(func(*agent.InvocationRequest) string { return "9.0" })
	st := store.NewMemStore()

	// A prior run already cleared phase one.
	ctx := context.Background()
	prior := models.NewTrainingProgress("agent-a", def.Name, time.Now().UTC())
	require.NoError(t, prior.RecordPhase("foundations", models.PhaseResult{PassRate: 1.0, Target: 1.0, Attempted: 1, Passed: 1}, time.Now().UTC()))
	require.NoError(t, prior.Advance(time.Now().UTC()))
	require.NoError(t, st.SaveProgress(ctx, prior))

	o, err := New(def, src, mock, scoreAggregator(t), st)
	require.NoError(t, err)

	progress, err := o.Train(ctx, "agent-a")
	require.NoError(t, err)
	assert.Equal(t, models.TrainingGraduated, progress.Status)

	// Only the second phase ran.
	reqs := mock.Requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, "scn-m1", reqs[0].ScenarioID)
}

func TestTrain_RejectsProgressFromOtherCurriculum(t *testing.T) {
	def := testCurriculum(models.CurriculumPhase{
		Name: "foundations", DifficultyFilter: models.DifficultySimple,
		ScenarioCount: 1, PassRateTarget: 1.0,
	})
	src := scenarios.NewStaticSource(contentScenario("scn-1", models.DifficultySimple))
	st := store.NewMemStore()

	ctx := context.Background()
	other := models.NewTrainingProgress("agent-a", "some-other-curriculum", time.Now().UTC())
	require.NoError(t, st.SaveProgress(ctx, other))

	o, err := New(def, src, agent.NewMockAgent("mock-model"), scoreAggregator(t), st)
	require.NoError(t, err)

	_, err = o.Train(ctx, "agent-a")
	require.ErrorContains(t, err, `progress for curriculum "some-other-curriculum"`)
}

func TestTrain_InsufficientBankLeavesRunResumable(t *testing.T) {
	def := testCurriculum(models.CurriculumPhase{
		Name: "foundations", DifficultyFilter: models.DifficultySimple,
		ScenarioCount: 3, PassRateTarget: 1.0,
	})
	src := scenarios.NewStaticSource(contentScenario("scn-1", models.DifficultySimple))
	st := store.NewMemStore()

	o, err := New(def, src, agent.NewMockAgent("mock-model"), scoreAggregator(t), st)
	require.NoError(t, err)

	rec := &eventRecorder{}
	o.OnProgress(rec.listen)

	progress, err := o.Train(context.Background(), "agent-a")
	require.ErrorContains(t, err, `phase "foundations" needs 3 simple scenarios, bank has 1`)
	require.NotNil(t, progress)
	assert.Equal(t, models.TrainingInProgress, progress.Status)
	require.Len(t, rec.ofType(EventTrainingStopped), 1)
}

func TestTrain_CancellationPersistsInProgress(t *testing.T) {
	def := testCurriculum(models.CurriculumPhase{
		Name: "foundations", DifficultyFilter: models.DifficultySimple,
		ScenarioCount: 2, PassRateTarget: 1.0, MaxRetriesPerScenario: 2,
	})
	src := scenarios.NewStaticSource(
		contentScenario("scn-1", models.DifficultySimple),
		contentScenario("scn-2", models.DifficultySimple),
	)
	st := store.NewMemStore()

	ctx, cancel := context.WithCancel(context.Background())
	mock := agent.NewMockAgent("mock-model")
	mock.SetFallback(func(*agent.InvocationRequest) string { return "1.0" })

	o, err := New(def, src, mock, scoreAggregator(t), st)
	require.NoError(t, err)

	// Cancel once the first trial has been recorded; the retry loop
	// observes the cancellation between attempts.
	o.OnProgress(func(ev ProgressEvent) {
		if ev.EventType == EventTrialComplete {
			cancel()
		}
	})

	progress, err := o.Train(ctx, "agent-a")
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, models.TrainingInProgress, progress.Status)

	// The completed trial was persisted despite the cancelled context.
	trials, listErr := st.ListTrials(context.Background(), "agent-a", "")
	require.NoError(t, listErr)
	require.Len(t, trials, 1)
}

func TestTrain_PersistenceRetriesTransientFailures(t *testing.T) {
	def := testCurriculum(models.CurriculumPhase{
		Name: "foundations", DifficultyFilter: models.DifficultySimple,
		ScenarioCount: 1, PassRateTarget: 1.0,
	})
	src := scenarios.NewStaticSource(contentScenario("scn-1", models.DifficultySimple))
	mock := agent.NewMockAgent("mock-model")
	mock.SetFallback(func(*agent.InvocationRequest) string { return "9.0" })
	st := &flakyStore{Store: store.NewMemStore(), failuresLeft: 2}

	o, err := New(def, src, mock, scoreAggregator(t), st)
	require.NoError(t, err)
	o.sleep = func(time.Duration) {}

	progress, err := o.Train(context.Background(), "agent-a")
	require.NoError(t, err)
	assert.Equal(t, models.TrainingGraduated, progress.Status)

	trials, err := st.ListTrials(context.Background(), "agent-a", "")
	require.NoError(t, err)
	assert.Len(t, trials, 1)
}

func TestDrawScenarios_DeterministicForSeed(t *testing.T) {
	phase := models.CurriculumPhase{
		Name: "foundations", DifficultyFilter: models.DifficultySimple,
		ScenarioCount: 3, PassRateTarget: 1.0,
	}
	bank := make([]*models.Scenario, 8)
	for i := range bank {
		bank[i] = contentScenario(fmt.Sprintf("scn-%d", i+1), models.DifficultySimple)
	}

	draw := func(seed int64, phaseIdx int) []string {
		def := testCurriculum(phase)
		def.Seed = seed
		o, err := New(def, scenarios.NewStaticSource(bank...), agent.NewMockAgent("m"), scoreAggregator(t), store.NewMemStore())
		require.NoError(t, err)

		drawn, err := o.drawScenarios(context.Background(), phaseIdx, &phase)
		require.NoError(t, err)
		ids := make([]string, len(drawn))
		for i, sc := range drawn {
			ids[i] = sc.ID
		}
		return ids
	}

	first := draw(7, 0)
	require.Len(t, first, 3)
	assert.Equal(t, first, draw(7, 0))

	// The phase index offsets the seed, so later phases draw differently.
	assert.NotEqual(t, draw(7, 0), draw(7, 1))
}

func TestNew_RejectsInvalidCurriculum(t *testing.T) {
	def := testCurriculum(models.CurriculumPhase{
		Name: "foundations", DifficultyFilter: "impossible",
		ScenarioCount: 1, PassRateTarget: 1.0,
	})
	_, err := New(def, scenarios.NewStaticSource(), agent.NewMockAgent("m"), scoreAggregator(t), store.NewMemStore())
	require.ErrorContains(t, err, "unknown difficulty")
}

// failingAgent always errors on Invoke.
type failingAgent struct{}

func (failingAgent) Initialize(ctx context.Context) error { return nil }
func (failingAgent) Shutdown(ctx context.Context) error   { return nil }
func (failingAgent) Invoke(ctx context.Context, req *agent.InvocationRequest) (*agent.InvocationResult, error) {
	return nil, errors.New("model endpoint unreachable")
}

// blockingAgent parks the first invocation until released.
type blockingAgent struct {
	output  string
	started chan struct{}
	release chan struct{}
	once    sync.Once
}

func newBlockingAgent(output string) *blockingAgent {
	return &blockingAgent{
		output:  output,
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
}

func (b *blockingAgent) Initialize(ctx context.Context) error { return nil }
func (b *blockingAgent) Shutdown(ctx context.Context) error   { return nil }

func (b *blockingAgent) Invoke(ctx context.Context, req *agent.InvocationRequest) (*agent.InvocationResult, error) {
	b.once.Do(func() { close(b.started) })
	select {
	case <-b.release:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return &agent.InvocationResult{Output: b.output, ModelID: "blocking"}, nil
}

// flakyStore fails the first N writes to exercise the persistence retry.
type flakyStore struct {
	store.Store
	mu           sync.Mutex
	failuresLeft int
}

func (f *flakyStore) AppendTrial(ctx context.Context, trial *models.TrialRecord) error {
	f.mu.Lock()
	if f.failuresLeft > 0 {
		f.failuresLeft--
		f.mu.Unlock()
		return errors.New("transient write failure")
	}
	f.mu.Unlock()
	return f.Store.AppendTrial(ctx, trial)
}

func TestTrain_StructuralFloorSurfacesOnTrialEvents(t *testing.T) {
	def := testCurriculum(models.CurriculumPhase{
		Name: "foundations", DifficultyFilter: models.DifficultySimple,
		ScenarioCount: 1, PassRateTarget: 1.0,
	})
	sc := contentScenario("scn-1", models.DifficultySimple)
	sc.RubricWeights = []models.RubricWeight{
		{Dimension: models.DimensionContent, Weight: 0.6},
		{Dimension: models.DimensionStructural, Weight: 0.4},
	}
	src := scenarios.NewStaticSource(sc)

	agg, err := aggregate.New(
		[]evaluators.Evaluator{scriptedScoreEvaluator{}, fixedStructuralEvaluator{score: 2.0}},
		aggregate.WithFeedback(feedback.NewGenerator()),
	)
	require.NoError(t, err)

	mock := agent.NewMockAgent("mock-model")
	mock.SetFallback(func(*agent.InvocationRequest) string { return "9.0" })
	st := store.NewMemStore()

	o, err := New(def, src, mock, agg, st)
	require.NoError(t, err)

	rec := &eventRecorder{}
	o.OnProgress(rec.listen)

	progress, err := o.Train(context.Background(), "agent-a")
	require.NoError(t, err)
	assert.Equal(t, models.TrainingPhaseFailed, progress.Status)

	completions := rec.ofType(EventTrialComplete)
	require.Len(t, completions, 1)
	assert.False(t, completions[0].Passed)
	assert.True(t, completions[0].PreFlagged)

	trials, err := st.ListTrials(context.Background(), "agent-a", "")
	require.NoError(t, err)
	require.Len(t, trials, 1)
	assert.True(t, trials[0].Report.PreFlagged)
	assert.Contains(t, trials[0].Report.Feedback, "broke structural constraints")
}
