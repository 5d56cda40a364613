package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/dlai-sd/dojo/internal/models"
	"github.com/dlai-sd/dojo/internal/report"
	"github.com/dlai-sd/dojo/internal/store"
	"github.com/spf13/cobra"
)

var (
	reportDataDir    string
	reportFormat     string
	reportInterpret  bool
	reportOutput     string
	reportExportPath string
	reportCurriculum string
)

func newReportCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report <agent-id>",
		Short: "Render an agent's graduation report",
		Long: `Render the graduation report for an agent.

The stored report is used when one exists; otherwise it is rebuilt from
the trial ledger when --curriculum points at the curriculum definition.
--export writes the agent's raw trial ledger as zstd-compressed NDJSON.`,
		Args: cobra.ExactArgs(1),
		RunE: reportCommandE,
	}

	cmd.Flags().StringVar(&reportDataDir, "data-dir", ".dojo", "Directory for the trial ledger and progress documents")
	cmd.Flags().StringVar(&reportFormat, "format", "text", "Output format: text, markdown, json")
	cmd.Flags().BoolVar(&reportInterpret, "interpret", false, "Print a plain-language interpretation of the report")
	cmd.Flags().StringVarP(&reportOutput, "output", "o", "", "Write the report to a file instead of stdout")
	cmd.Flags().StringVar(&reportExportPath, "export", "", "Also export the trial ledger to this file (zstd NDJSON)")
	cmd.Flags().StringVar(&reportCurriculum, "curriculum", "", "Curriculum definition, used to rebuild a missing report")

	return cmd
}

func reportCommandE(cmd *cobra.Command, args []string) error {
	agentID := args[0]
	st := store.NewFileStore(reportDataDir)

	rep, err := loadOrRebuildReport(cmd, st, agentID)
	if err != nil {
		return err
	}

	var rendered string
	switch reportFormat {
	case "text":
		rendered = report.FormatSummary(rep)
	case "markdown":
		rendered = report.RenderMarkdown(rep)
	case "json":
		rendered, err = report.RenderJSON(rep)
		if err != nil {
			return err
		}
	default:
		return fmt.Errorf("unknown format %q (expected text, markdown, or json)", reportFormat)
	}

	if reportInterpret && reportFormat != "text" {
		rendered += "\n" + report.FormatSummary(rep)
	}

	if reportOutput != "" {
		if err := os.WriteFile(reportOutput, []byte(rendered), 0o644); err != nil {
			return fmt.Errorf("failed to write report: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Report written to %s\n", reportOutput)
	} else {
		fmt.Fprint(cmd.OutOrStdout(), rendered)
	}

	if reportExportPath != "" {
		if err := exportLedger(cmd, st, agentID); err != nil {
			return err
		}
	}
	return nil
}

func loadOrRebuildReport(cmd *cobra.Command, st store.Store, agentID string) (*models.GraduationReport, error) {
	ctx := cmd.Context()

	rep, err := st.LoadGraduationReport(ctx, agentID)
	if err == nil {
		return rep, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}
	if reportCurriculum == "" {
		return nil, fmt.Errorf("agent %s has no stored graduation report; pass --curriculum to rebuild it from the ledger", agentID)
	}

	def, err := models.LoadCurriculum(reportCurriculum)
	if err != nil {
		return nil, fmt.Errorf("failed to load curriculum: %w", err)
	}
	progress, err := st.LoadProgress(ctx, agentID)
	if err != nil {
		return nil, fmt.Errorf("loading progress for agent %s: %w", agentID, err)
	}
	trials, err := st.ListTrials(ctx, agentID, "")
	if err != nil {
		return nil, err
	}
	if len(trials) == 0 {
		return nil, fmt.Errorf("agent %s has no recorded trials", agentID)
	}
	return report.Build(def, progress, trials, time.Now().UTC()), nil
}

func exportLedger(cmd *cobra.Command, st store.Store, agentID string) error {
	if err := os.MkdirAll(filepath.Dir(reportExportPath), 0o755); err != nil {
		return err
	}
	f, err := os.Create(reportExportPath)
	if err != nil {
		return fmt.Errorf("failed to create export file: %w", err)
	}

	n, err := store.ExportTrials(cmd.Context(), st, agentID, f)
	closeErr := f.Close()
	if err != nil {
		return fmt.Errorf("exporting trials: %w", err)
	}
	if closeErr != nil {
		return closeErr
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Exported %d trials to %s\n", n, reportExportPath)
	return nil
}
