package main

import (
	"errors"
	"fmt"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/dlai-sd/dojo/internal/agent"
	"github.com/dlai-sd/dojo/internal/curriculum"
	"github.com/dlai-sd/dojo/internal/models"
	"github.com/dlai-sd/dojo/internal/scenarios"
	"github.com/dlai-sd/dojo/internal/store"
	"github.com/spf13/cobra"
)

var (
	trainAgentID   string
	trainAgentCmd  string
	trainAgentArgs []string
	trainMock      bool
	trainDataDir   string
	trainKnowledge string
	trainWorkers   int
	trainVerbose   bool
)

func newTrainCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "train <curriculum.yaml>",
		Short: "Run a training curriculum for an agent",
		Long: `Run a training curriculum from a curriculum definition file.

The definition names the scenario bank and the ordered phases. Each phase
draws scenarios, invokes the agent (with feedback on retries), and gates
advancement on the observed pass rate. Interrupted runs resume from the
persisted progress.`,
		Args: cobra.ExactArgs(1),
		RunE: trainCommandE,
	}

	cmd.Flags().StringVar(&trainAgentID, "agent-id", "", "Identifier of the agent being trained (required)")
	cmd.Flags().StringVar(&trainAgentCmd, "agent-cmd", "", "External agent command; prompt on stdin, artifact on stdout")
	cmd.Flags().StringArrayVar(&trainAgentArgs, "agent-arg", nil, "Argument for the agent command (can be repeated)")
	cmd.Flags().BoolVar(&trainMock, "mock", false, "Use the built-in mock agent (dry runs)")
	cmd.Flags().StringVar(&trainDataDir, "data-dir", ".dojo", "Directory for the trial ledger and progress documents")
	cmd.Flags().StringVar(&trainKnowledge, "knowledge", "", "Knowledge base YAML (default: knowledge.yaml next to curriculum)")
	cmd.Flags().IntVar(&trainWorkers, "workers", 0, "Concurrent scenarios per phase (overrides curriculum)")
	cmd.Flags().BoolVarP(&trainVerbose, "verbose", "v", false, "Per-trial progress output")
	_ = cmd.MarkFlagRequired("agent-id")

	return cmd
}

func trainCommandE(cmd *cobra.Command, args []string) error {
	curriculumPath := args[0]

	def, err := models.LoadCurriculum(curriculumPath)
	if err != nil {
		return fmt.Errorf("failed to load curriculum: %w", err)
	}
	if trainWorkers > 0 {
		def.Workers = trainWorkers
	}

	baseDir := filepath.Dir(curriculumPath)
	source := scenarios.NewDirSource(baseDir, def.Scenarios)

	kb, err := loadKnowledge(trainKnowledge, baseDir)
	if err != nil {
		return err
	}
	agg, err := buildAggregator(kb)
	if err != nil {
		return err
	}

	ag, err := buildAgent()
	if err != nil {
		return err
	}

	st := store.NewFileStore(trainDataDir)
	orch, err := curriculum.New(def, source, ag, agg, st)
	if err != nil {
		return err
	}

	disp := newDisplay(cmd.OutOrStdout(), trainVerbose)
	orch.OnProgress(disp.handle)
	defer disp.close()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	progress, err := orch.Train(ctx, trainAgentID)
	if err != nil {
		if errors.Is(err, curriculum.ErrRunTerminal) {
			disp.close()
			fmt.Fprintf(cmd.OutOrStdout(), "Agent %s already finished this curriculum (%s). Use dojo report to inspect it.\n",
				trainAgentID, progress.Status)
			return nil
		}
		return err
	}

	disp.close()
	if progress.Status == models.TrainingPhaseFailed {
		printDiagnosis(cmd.OutOrStdout(), progress.Diagnosis)
		return &FailureError{Message: fmt.Sprintf("agent %s failed phase %q", trainAgentID, progress.Diagnosis.Phase)}
	}

	fmt.Fprintf(cmd.OutOrStdout(), "\nAgent %s graduated from %s. Run dojo report %s for the full report.\n",
		trainAgentID, def.Name, trainAgentID)
	return nil
}

func buildAgent() (agent.Agent, error) {
	switch {
	case trainMock && trainAgentCmd != "":
		return nil, fmt.Errorf("--mock and --agent-cmd are mutually exclusive")
	case trainMock:
		return agent.NewMockAgent("mock"), nil
	case trainAgentCmd != "":
		return agent.NewCommandAgent(trainAgentCmd, trainAgentArgs...), nil
	default:
		return nil, fmt.Errorf("either --agent-cmd or --mock is required")
	}
}
