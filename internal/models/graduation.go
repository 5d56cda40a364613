package models

import (
	"time"

	"github.com/dlai-sd/dojo/internal/statistics"
)

// CertificationTier is the readiness level derived from the overall pass
// rate of a graduated run.
type CertificationTier string

const (
	TierNovice     CertificationTier = "NOVICE"
	TierProficient CertificationTier = "PROFICIENT"
	TierExpert     CertificationTier = "EXPERT"
)

// Tier thresholds over the overall pass rate.
const (
	ProficientMinPassRate = 0.85
	ExpertMinPassRate     = 0.95
)

// TierFor maps an overall pass rate onto a certification tier.
func TierFor(passRate float64) CertificationTier {
	switch {
	case passRate >= ExpertMinPassRate:
		return TierExpert
	case passRate >= ProficientMinPassRate:
		return TierProficient
	default:
		return TierNovice
	}
}

// PhaseBreakdown is the per-phase slice of a graduation report.
type PhaseBreakdown struct {
	Phase       string  `json:"phase"`
	PassRate    float64 `json:"pass_rate"`
	Target      float64 `json:"target"`
	Attempted   int     `json:"attempted"`
	Passed      int     `json:"passed"`
	TrialCount  int     `json:"trial_count"`
	MeanScore   float64 `json:"mean_score"`
	RetriesUsed int     `json:"retries_used"`
}

// DimensionBreakdown is the per-dimension slice of a graduation report:
// mean and spread across every trial where the dimension produced a score.
type DimensionBreakdown struct {
	Dimension   Dimension `json:"dimension"`
	MeanScore   float64   `json:"mean_score"`
	StdDevScore float64   `json:"std_dev_score"`
	MinScore    float64   `json:"min_score"`
	MaxScore    float64   `json:"max_score"`
	Scored      int       `json:"scored"`
}

// GraduationReport is the terminal evidence artifact of a completed
// curriculum run. It is created exactly once and is re-computable at any
// time from the persisted trial ledger alone.
type GraduationReport struct {
	AgentID         string               `json:"agent_id"`
	CurriculumName  string               `json:"curriculum"`
	OverallPassRate float64              `json:"overall_pass_rate"`
	PerPhase        []PhaseBreakdown     `json:"per_phase"`
	PerDimension    []DimensionBreakdown `json:"per_dimension"`
	Certification   CertificationTier    `json:"certification_tier"`

	// ScoreCI is a bootstrap confidence interval over per-trial overall
	// scores, populated when enough trials exist.
	ScoreCI *statistics.ConfidenceInterval `json:"score_ci,omitempty"`

	GeneratedAt time.Time `json:"generated_at"`
}
