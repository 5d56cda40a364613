package main

import (
	"log/slog"

	"github.com/spf13/cobra"
)

var version = "dev"

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dojo",
		Short: "Dojo - evaluate agent outputs and train agents through curricula",
		Long: `Dojo scores agent-produced artifacts against multi-dimensional rubrics
and drives agents through staged curricula until they graduate.

It provides tools to evaluate single outputs, run full training curricula,
inspect training progress, and render graduation reports.`,
		Version:      version,
		SilenceUsage: true,
	}

	debugLogging := cmd.PersistentFlags().Bool("debug", false, "Enable debug logging")
	cmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		if *debugLogging {
			slog.SetLogLoggerLevel(slog.LevelDebug)
		}
	}

	// Add subcommands
	cmd.AddCommand(newTrainCommand())
	cmd.AddCommand(newEvalCommand())
	cmd.AddCommand(newStatusCommand())
	cmd.AddCommand(newReportCommand())
	cmd.AddCommand(newNewCommand())

	return cmd
}

func execute() error {
	rootCmd := newRootCommand()
	return rootCmd.Execute()
}
