package main

import (
	"errors"
	"fmt"

	"github.com/dlai-sd/dojo/internal/models"
	"github.com/dlai-sd/dojo/internal/store"
	"github.com/spf13/cobra"
)

var statusDataDir string

func newStatusCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status <agent-id>",
		Short: "Show an agent's training progress",
		Args:  cobra.ExactArgs(1),
		RunE:  statusCommandE,
	}

	cmd.Flags().StringVar(&statusDataDir, "data-dir", ".dojo", "Directory for the trial ledger and progress documents")

	return cmd
}

func statusCommandE(cmd *cobra.Command, args []string) error {
	agentID := args[0]
	st := store.NewFileStore(statusDataDir)

	progress, err := st.LoadProgress(cmd.Context(), agentID)
	if errors.Is(err, store.ErrNotFound) {
		fmt.Fprintf(cmd.OutOrStdout(), "Agent %s has no training history (%s).\n", agentID, models.TrainingNotStarted)
		return nil
	}
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Agent:      %s\n", progress.AgentID)
	fmt.Fprintf(out, "Curriculum: %s\n", progress.CurriculumName)
	fmt.Fprintf(out, "Status:     %s\n", progress.Status)
	if !progress.Status.Terminal() {
		fmt.Fprintf(out, "Phase:      %d (zero-based index)\n", progress.CurrentPhaseIndex)
	}
	fmt.Fprintf(out, "Started:    %s\n", progress.StartedAt.Format("2006-01-02 15:04:05 UTC"))
	fmt.Fprintf(out, "Updated:    %s\n", progress.UpdatedAt.Format("2006-01-02 15:04:05 UTC"))

	if len(progress.PhaseResults) > 0 {
		fmt.Fprintln(out, "\nCompleted phases:")
		for phase, result := range progress.PhaseResults {
			mark := passMark
			if result.PassRate < result.Target {
				mark = failMark
			}
			fmt.Fprintf(out, "  %s %s: %d/%d passed (%.0f%% vs %.0f%% target)\n",
				mark, phase, result.Passed, result.Attempted, result.PassRate*100, result.Target*100)
		}
	}

	printDiagnosis(out, progress.Diagnosis)
	return nil
}
