// Package report builds and renders graduation reports. A report is a pure
// function of the trial ledger and the final training progress, so it can
// be regenerated from storage at any time.
package report

import (
	"sort"
	"time"

	"github.com/dlai-sd/dojo/internal/models"
	"github.com/dlai-sd/dojo/internal/statistics"
)

// minTrialsForCI is the smallest ledger for which the bootstrap interval
// over trial scores says anything useful.
const minTrialsForCI = 5

// ciConfidenceLevel is the confidence level used for the score interval.
const ciConfidenceLevel = 0.95

// Build assembles a graduation report from the full trial ledger. Phase
// pass rates come from the recorded progress when present; everything else
// is recomputed from the trials.
func Build(def *models.CurriculumDefinition, progress *models.TrainingProgress, trials []models.TrialRecord, now time.Time) *models.GraduationReport {
	rep := &models.GraduationReport{
		AgentID:        progress.AgentID,
		CurriculumName: progress.CurriculumName,
		GeneratedAt:    now,
	}

	byPhase := make(map[string][]models.TrialRecord)
	for _, t := range trials {
		byPhase[t.Phase] = append(byPhase[t.Phase], t)
	}

	totalScenarios := 0
	totalPassed := 0
	for _, phase := range def.Phases {
		phaseTrials := byPhase[phase.Name]
		if len(phaseTrials) == 0 {
			continue
		}
		pb := buildPhaseBreakdown(&phase, phaseTrials)
		if recorded, ok := progress.PhaseResults[phase.Name]; ok {
			pb.PassRate = recorded.PassRate
			pb.Attempted = recorded.Attempted
			pb.Passed = recorded.Passed
		}
		rep.PerPhase = append(rep.PerPhase, pb)
		totalScenarios += pb.Attempted
		totalPassed += pb.Passed
	}
	if totalScenarios > 0 {
		rep.OverallPassRate = float64(totalPassed) / float64(totalScenarios)
	}
	rep.Certification = models.TierFor(rep.OverallPassRate)

	rep.PerDimension = buildDimensionBreakdowns(trials)

	if len(trials) >= minTrialsForCI {
		scores := make([]float64, len(trials))
		for i, t := range trials {
			scores[i] = t.Report.OverallScore
		}
		ci := statistics.BootstrapCI(scores, ciConfidenceLevel)
		rep.ScoreCI = &ci
	}

	return rep
}

func buildPhaseBreakdown(phase *models.CurriculumPhase, phaseTrials []models.TrialRecord) models.PhaseBreakdown {
	passedScenarios := make(map[string]bool)
	scoreSum := 0.0
	retries := 0
	for _, t := range phaseTrials {
		if t.Report.Passed {
			passedScenarios[t.ScenarioID] = true
		} else if !passedScenarios[t.ScenarioID] {
			passedScenarios[t.ScenarioID] = false
		}
		scoreSum += t.Report.OverallScore
		if t.AttemptNumber > 1 {
			retries++
		}
	}

	passed := 0
	for _, p := range passedScenarios {
		if p {
			passed++
		}
	}
	attempted := len(passedScenarios)

	pb := models.PhaseBreakdown{
		Phase:       phase.Name,
		Target:      phase.PassRateTarget,
		Attempted:   attempted,
		Passed:      passed,
		TrialCount:  len(phaseTrials),
		MeanScore:   scoreSum / float64(len(phaseTrials)),
		RetriesUsed: retries,
	}
	if attempted > 0 {
		pb.PassRate = float64(passed) / float64(attempted)
	}
	return pb
}

func buildDimensionBreakdowns(trials []models.TrialRecord) []models.DimensionBreakdown {
	type dimStats struct {
		scores []float64
	}
	byDim := make(map[models.Dimension]*dimStats)
	var order []models.Dimension
	for _, t := range trials {
		for _, ds := range t.Report.DimensionScores {
			if !ds.Applicable {
				continue
			}
			stats, ok := byDim[ds.Dimension]
			if !ok {
				stats = &dimStats{}
				byDim[ds.Dimension] = stats
				order = append(order, ds.Dimension)
			}
			stats.scores = append(stats.scores, ds.Score)
		}
	}
	sort.Slice(order, func(i, j int) bool { return order[i] < order[j] })

	out := make([]models.DimensionBreakdown, 0, len(order))
	for _, dim := range order {
		scores := byDim[dim].scores
		min, max := scores[0], scores[0]
		for _, s := range scores[1:] {
			if s < min {
				min = s
			}
			if s > max {
				max = s
			}
		}
		out = append(out, models.DimensionBreakdown{
			Dimension:   dim,
			MeanScore:   statistics.Mean(scores),
			StdDevScore: statistics.StdDev(scores),
			MinScore:    min,
			MaxScore:    max,
			Scored:      len(scores),
		})
	}
	return out
}
