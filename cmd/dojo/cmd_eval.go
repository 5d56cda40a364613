package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/dlai-sd/dojo/internal/models"
	"github.com/spf13/cobra"
)

var (
	evalKnowledge string
	evalThreshold float64
	evalJSON      bool
)

func newEvalCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "eval <scenario.yaml> [output-file]",
		Short: "Evaluate one agent output against a scenario",
		Long: `Evaluate a single agent output against one scenario's rubric.

The output is read from the given file, or from stdin when no file is
given. The command exits non-zero when the output fails the pass
threshold.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: evalCommandE,
	}

	cmd.Flags().StringVar(&evalKnowledge, "knowledge", "", "Knowledge base YAML (default: knowledge.yaml next to scenario)")
	cmd.Flags().Float64Var(&evalThreshold, "threshold", models.DefaultPassThreshold, "Pass threshold for the overall score")
	cmd.Flags().BoolVar(&evalJSON, "json", false, "Emit the full evaluation report as JSON")

	return cmd
}

func evalCommandE(cmd *cobra.Command, args []string) error {
	scenarioPath := args[0]

	sc, err := models.LoadScenario(scenarioPath)
	if err != nil {
		return fmt.Errorf("failed to load scenario: %w", err)
	}

	output, err := readEvalOutput(cmd, args)
	if err != nil {
		return err
	}

	kb, err := loadKnowledge(evalKnowledge, filepath.Dir(scenarioPath))
	if err != nil {
		return err
	}
	agg, err := buildAggregator(kb)
	if err != nil {
		return err
	}

	report, err := agg.Evaluate(cmd.Context(), sc, output, evalThreshold)
	if err != nil {
		return err
	}

	if evalJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		if err := enc.Encode(report); err != nil {
			return err
		}
	} else {
		printEvalReport(cmd.OutOrStdout(), sc, report)
	}

	if !report.Passed {
		return &FailureError{Message: fmt.Sprintf("output scored %.2f, below the %.2f threshold", report.OverallScore, report.PassThreshold)}
	}
	return nil
}

func readEvalOutput(cmd *cobra.Command, args []string) (string, error) {
	if len(args) == 2 {
		data, err := os.ReadFile(args[1])
		if err != nil {
			return "", fmt.Errorf("failed to read output file: %w", err)
		}
		return string(data), nil
	}
	data, err := io.ReadAll(cmd.InOrStdin())
	if err != nil {
		return "", fmt.Errorf("failed to read output from stdin: %w", err)
	}
	return string(data), nil
}

func printEvalReport(out io.Writer, sc *models.Scenario, report *models.EvaluationReport) {
	fmt.Fprintf(out, "Scenario: %s (%s, %s)\n\n", sc.ID, sc.Domain, sc.Difficulty)

	for _, ds := range report.DimensionScores {
		if !ds.Applicable {
			dimText.Fprintf(out, "  - %-18s not applicable", ds.Dimension)
			if len(ds.Issues) > 0 {
				dimText.Fprintf(out, " (%s)", ds.Issues[0])
			}
			fmt.Fprintln(out)
			continue
		}
		mark := passMark
		if ds.Score < report.PassThreshold {
			mark = failMark
		}
		fmt.Fprintf(out, "  %s %-18s %5.2f  weight %.2f\n", mark, ds.Dimension, ds.Score, sc.Weight(ds.Dimension))
		if ds.Rationale != "" {
			dimText.Fprintf(out, "      %s\n", ds.Rationale)
		}
	}

	verdict := passMark + " PASS"
	if !report.Passed {
		verdict = failMark + " FAIL"
	}
	fmt.Fprintf(out, "\nOverall: %.2f/10 (threshold %.2f) %s\n", report.OverallScore, report.PassThreshold, verdict)
	if report.PreFlagged {
		fmt.Fprintln(out, "Structural constraints were broken badly enough to flag the trial on their own.")
	}

	if report.Feedback != "" {
		fmt.Fprintf(out, "\n%s\n", report.Feedback)
	}
}
