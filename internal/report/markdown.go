package report

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/dlai-sd/dojo/internal/models"
)

// RenderMarkdown renders a graduation report as a markdown document.
func RenderMarkdown(rep *models.GraduationReport) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Graduation Report: %s\n\n", rep.AgentID)
	fmt.Fprintf(&b, "- **Curriculum:** %s\n", rep.CurriculumName)
	fmt.Fprintf(&b, "- **Certification:** %s\n", rep.Certification)
	fmt.Fprintf(&b, "- **Overall pass rate:** %.1f%%\n", rep.OverallPassRate*100)
	if rep.ScoreCI != nil {
		fmt.Fprintf(&b, "- **Trial score:** %.2f mean, %.0f%% CI [%.2f, %.2f]\n",
			rep.ScoreCI.Mean, rep.ScoreCI.ConfidenceLevel*100, rep.ScoreCI.Lower, rep.ScoreCI.Upper)
	}
	fmt.Fprintf(&b, "- **Generated:** %s\n\n", rep.GeneratedAt.Format("2006-01-02 15:04:05 UTC"))

	if len(rep.PerPhase) > 0 {
		b.WriteString("## Phases\n\n")
		b.WriteString("| Phase | Passed | Pass Rate | Target | Mean Score | Trials | Retries |\n")
		b.WriteString("|-------|--------|-----------|--------|------------|--------|---------|\n")
		for _, pb := range rep.PerPhase {
			fmt.Fprintf(&b, "| %s | %d/%d | %.1f%% | %.0f%% | %.2f | %d | %d |\n",
				pb.Phase, pb.Passed, pb.Attempted, pb.PassRate*100, pb.Target*100,
				pb.MeanScore, pb.TrialCount, pb.RetriesUsed)
		}
		b.WriteString("\n")
	}

	if len(rep.PerDimension) > 0 {
		b.WriteString("## Dimensions\n\n")
		b.WriteString("| Dimension | Mean | Std Dev | Min | Max | Scored |\n")
		b.WriteString("|-----------|------|---------|-----|-----|--------|\n")
		for _, db := range rep.PerDimension {
			fmt.Fprintf(&b, "| %s | %.2f | %.2f | %.2f | %.2f | %d |\n",
				db.Dimension, db.MeanScore, db.StdDevScore, db.MinScore, db.MaxScore, db.Scored)
		}
		b.WriteString("\n")
	}

	return b.String()
}

// RenderJSON renders a graduation report as indented JSON.
func RenderJSON(rep *models.GraduationReport) (string, error) {
	data, err := json.MarshalIndent(rep, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data) + "\n", nil
}
