package report

import (
	"fmt"
	"strings"

	"github.com/dlai-sd/dojo/internal/models"
)

// InterpretScore returns a plain-language label for a 0-10 trial score.
func InterpretScore(score float64) string {
	switch {
	case score >= 9.0:
		return "Excellent (9+)"
	case score >= 8.0:
		return "Passing (8-9)"
	case score >= 6.0:
		return "Needs Work (6-8)"
	default:
		return "Poor (<6)"
	}
}

// InterpretPassRate returns a human-readable explanation of a pass rate (0–1).
func InterpretPassRate(rate float64) string {
	pct := rate * 100
	switch {
	case pct >= 100:
		return fmt.Sprintf("Every scenario passed (%.0f%%)", pct)
	case pct >= 80:
		return fmt.Sprintf("Most scenarios passed (%.0f%%)", pct)
	case pct >= 50:
		return fmt.Sprintf("About half the scenarios passed (%.0f%%)", pct)
	default:
		return fmt.Sprintf("Few scenarios passed (%.0f%%)", pct)
	}
}

// InterpretTier explains what a certification tier means.
func InterpretTier(tier models.CertificationTier) string {
	switch tier {
	case models.TierExpert:
		return "Expert: ready for unsupervised production use in this domain."
	case models.TierProficient:
		return "Proficient: ready for production use with spot-check review."
	default:
		return "Novice: graduated, but outputs should be reviewed before use."
	}
}

// FormatSummary produces a plain-language interpretation of a graduation
// report.
func FormatSummary(rep *models.GraduationReport) string {
	var b strings.Builder

	b.WriteString("=== Interpretation ===\n\n")
	b.WriteString(fmt.Sprintf("Agent:         %s (%s)\n", rep.AgentID, rep.CurriculumName))
	b.WriteString(fmt.Sprintf("Certification: %s — %s\n", rep.Certification, InterpretTier(rep.Certification)))
	b.WriteString(fmt.Sprintf("Pass Rate:     %s\n", InterpretPassRate(rep.OverallPassRate)))
	if rep.ScoreCI != nil {
		b.WriteString(fmt.Sprintf("Trial Scores:  mean %.2f, %.0f%% CI [%.2f, %.2f]\n",
			rep.ScoreCI.Mean, rep.ScoreCI.ConfidenceLevel*100, rep.ScoreCI.Lower, rep.ScoreCI.Upper))
	}

	if len(rep.PerPhase) > 0 {
		b.WriteString("\nPer-Phase Interpretation:\n")
		for _, pb := range rep.PerPhase {
			icon := "✓"
			if pb.PassRate < pb.Target {
				icon = "✗"
			}
			b.WriteString(fmt.Sprintf("  %s %s: %d/%d scenarios passed (target %.0f%%)\n",
				icon, pb.Phase, pb.Passed, pb.Attempted, pb.Target*100))
			b.WriteString(fmt.Sprintf("    Mean score: %.2f — %s\n", pb.MeanScore, InterpretScore(pb.MeanScore)))
			if pb.RetriesUsed > 0 {
				b.WriteString(fmt.Sprintf("    Retries used: %d\n", pb.RetriesUsed))
			}
		}
	}

	if len(rep.PerDimension) > 0 {
		weakest := rep.PerDimension[0]
		for _, db := range rep.PerDimension[1:] {
			if db.MeanScore < weakest.MeanScore {
				weakest = db
			}
		}
		b.WriteString(fmt.Sprintf("\nWeakest dimension: %s (mean %.2f across %d trials)\n",
			weakest.Dimension, weakest.MeanScore, weakest.Scored))
	}

	return b.String()
}
