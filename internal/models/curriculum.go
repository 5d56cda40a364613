package models

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// CurriculumPhase is one ordered step of training. Phases are statically
// configured before a run starts and do not mutate during it.
type CurriculumPhase struct {
	Name                  string     `yaml:"name" json:"name"`
	DifficultyFilter      Difficulty `yaml:"difficulty" json:"difficulty"`
	ScenarioCount         int        `yaml:"scenario_count" json:"scenario_count"`
	PassRateTarget        float64    `yaml:"pass_rate_target" json:"pass_rate_target"`
	MaxRetriesPerScenario int        `yaml:"max_retries_per_scenario" json:"max_retries_per_scenario"`

	// PassThreshold overrides the default per-trial pass threshold (8.0)
	// for this phase when set.
	PassThreshold float64 `yaml:"pass_threshold,omitempty" json:"pass_threshold,omitempty"`
}

// EffectivePassThreshold returns the phase threshold, falling back to the
// engine default when unset.
func (p *CurriculumPhase) EffectivePassThreshold() float64 {
	if p.PassThreshold > 0 {
		return p.PassThreshold
	}
	return DefaultPassThreshold
}

// CurriculumDefinition describes a full training curriculum for one agent
// type: the scenario bank it draws from and the ordered phase ladder.
type CurriculumDefinition struct {
	Name   string `yaml:"name" json:"name"`
	Domain string `yaml:"domain" json:"domain"`

	// Seed drives the deterministic without-replacement scenario draw.
	// A run is replayable from (seed, scenario bank, phase ladder).
	Seed int64 `yaml:"seed,omitempty" json:"seed,omitempty"`

	// Workers bounds how many scenarios are evaluated concurrently within
	// a phase. Zero means sequential.
	Workers int `yaml:"max_workers,omitempty" json:"workers,omitempty"`

	// Scenarios holds glob patterns resolved relative to the curriculum
	// file's directory.
	Scenarios []string `yaml:"scenarios" json:"scenarios"`

	Phases []CurriculumPhase `yaml:"phases" json:"phases"`
}

// Validate checks the curriculum configuration. Configuration errors are
// fatal at orchestrator start and are never silently defaulted.
func (c *CurriculumDefinition) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return fmt.Errorf("curriculum name is required")
	}
	if len(c.Phases) == 0 {
		return fmt.Errorf("curriculum %s: at least one phase is required", c.Name)
	}
	seen := make(map[string]struct{}, len(c.Phases))
	for i, p := range c.Phases {
		if strings.TrimSpace(p.Name) == "" {
			return fmt.Errorf("curriculum %s: phase %d has no name", c.Name, i+1)
		}
		if _, dup := seen[p.Name]; dup {
			return fmt.Errorf("curriculum %s: duplicate phase name %q", c.Name, p.Name)
		}
		seen[p.Name] = struct{}{}
		if !p.DifficultyFilter.Valid() {
			return fmt.Errorf("curriculum %s: phase %q has unknown difficulty %q", c.Name, p.Name, p.DifficultyFilter)
		}
		if p.ScenarioCount < 1 {
			return fmt.Errorf("curriculum %s: phase %q scenario_count must be >= 1, got %d", c.Name, p.Name, p.ScenarioCount)
		}
		if p.PassRateTarget <= 0 || p.PassRateTarget > 1 {
			return fmt.Errorf("curriculum %s: phase %q pass_rate_target must be in (0, 1], got %v", c.Name, p.Name, p.PassRateTarget)
		}
		if p.MaxRetriesPerScenario < 0 {
			return fmt.Errorf("curriculum %s: phase %q max_retries_per_scenario must be >= 0, got %d", c.Name, p.Name, p.MaxRetriesPerScenario)
		}
		if p.PassThreshold < 0 || p.PassThreshold > ScoreMax {
			return fmt.Errorf("curriculum %s: phase %q pass_threshold must be in [0, %v], got %v", c.Name, p.Name, ScoreMax, p.PassThreshold)
		}
	}
	return nil
}

// LoadCurriculum loads and validates a curriculum definition from YAML.
func LoadCurriculum(path string) (*CurriculumDefinition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var def CurriculumDefinition
	if err := yaml.Unmarshal(data, &def); err != nil {
		return nil, fmt.Errorf("parsing curriculum: %w", err)
	}
	if err := def.Validate(); err != nil {
		return nil, err
	}
	return &def, nil
}

// TrainingStatus is the lifecycle state of one agent's curriculum run.
type TrainingStatus string

const (
	TrainingNotStarted  TrainingStatus = "NOT_STARTED"
	TrainingInProgress  TrainingStatus = "IN_PROGRESS"
	TrainingPhaseFailed TrainingStatus = "PHASE_FAILED"
	TrainingGraduated   TrainingStatus = "GRADUATED"
)

// Terminal reports whether the status admits no further transitions.
func (s TrainingStatus) Terminal() bool {
	return s == TrainingPhaseFailed || s == TrainingGraduated
}

// PhaseResult records the observed outcome of one completed phase.
type PhaseResult struct {
	PassRate  float64 `json:"pass_rate"`
	Target    float64 `json:"target"`
	Attempted int     `json:"attempted"`
	Passed    int     `json:"passed"`
}

// PhaseDiagnosis explains a PHASE_FAILED outcome well enough to act on
// without re-reading the whole ledger.
type PhaseDiagnosis struct {
	Phase             string      `json:"phase"`
	ObservedPassRate  float64     `json:"observed_pass_rate"`
	TargetPassRate    float64     `json:"target_pass_rate"`
	WeakestDimensions []Dimension `json:"weakest_dimensions,omitempty"`
}

// TrainingProgress is the durable curriculum position of one agent. It is
// mutated only by the orchestrator: CurrentPhaseIndex never regresses and a
// terminal status is never left.
type TrainingProgress struct {
	AgentID           string                 `json:"agent_id"`
	CurriculumName    string                 `json:"curriculum"`
	CurrentPhaseIndex int                    `json:"current_phase_index"`
	PhaseResults      map[string]PhaseResult `json:"phase_results"`
	Status            TrainingStatus         `json:"status"`
	Diagnosis         *PhaseDiagnosis        `json:"diagnosis,omitempty"`
	StartedAt         time.Time              `json:"started_at"`
	UpdatedAt         time.Time              `json:"updated_at"`
}

// NewTrainingProgress initializes progress at phase zero, in progress.
func NewTrainingProgress(agentID, curriculum string, now time.Time) *TrainingProgress {
	return &TrainingProgress{
		AgentID:        agentID,
		CurriculumName: curriculum,
		PhaseResults:   make(map[string]PhaseResult),
		Status:         TrainingInProgress,
		StartedAt:      now,
		UpdatedAt:      now,
	}
}

// RecordPhase stores a finished phase's observed result and advances or
// terminates the run.
func (tp *TrainingProgress) RecordPhase(phase string, result PhaseResult, now time.Time) error {
	if tp.Status.Terminal() {
		return fmt.Errorf("progress for agent %s is terminal (%s)", tp.AgentID, tp.Status)
	}
	if tp.PhaseResults == nil {
		tp.PhaseResults = make(map[string]PhaseResult)
	}
	tp.PhaseResults[phase] = result
	tp.UpdatedAt = now
	return nil
}

// Advance moves to the next phase. The index only ever grows.
func (tp *TrainingProgress) Advance(now time.Time) error {
	if tp.Status.Terminal() {
		return fmt.Errorf("progress for agent %s is terminal (%s)", tp.AgentID, tp.Status)
	}
	tp.CurrentPhaseIndex++
	tp.UpdatedAt = now
	return nil
}

// Fail terminates the run with a diagnosis of the failed phase.
func (tp *TrainingProgress) Fail(diag PhaseDiagnosis, now time.Time) {
	tp.Status = TrainingPhaseFailed
	tp.Diagnosis = &diag
	tp.UpdatedAt = now
}

// Graduate terminates the run successfully.
func (tp *TrainingProgress) Graduate(now time.Time) {
	tp.Status = TrainingGraduated
	tp.Diagnosis = nil
	tp.UpdatedAt = now
}
