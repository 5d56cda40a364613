package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/dlai-sd/dojo/internal/scaffold"
	"github.com/dlai-sd/dojo/internal/wizard"
	"github.com/spf13/cobra"
)

var (
	newDomain string
	newDir    string
)

func newNewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "new [name]",
		Short: "Scaffold a new curriculum project",
		Long: `Scaffold a starter curriculum project: a curriculum definition, a small
scenario bank covering every phase, and a skeleton knowledge base.

When name or --domain is missing, an interactive wizard collects them.`,
		Args: cobra.MaximumNArgs(1),
		RunE: newCommandE,
	}

	cmd.Flags().StringVar(&newDomain, "domain", "", "Domain for the scenarios and knowledge base")
	cmd.Flags().StringVar(&newDir, "dir", "", "Target directory (default: ./<name>)")

	return cmd
}

func newCommandE(cmd *cobra.Command, args []string) error {
	var name string
	if len(args) == 1 {
		name = args[0]
	}

	domain := strings.ToLower(strings.TrimSpace(newDomain))
	if name == "" || domain == "" {
		spec, err := wizard.RunCurriculumWizard(cmd.InOrStdin(), cmd.OutOrStdout(), name)
		if err != nil {
			return err
		}
		name = spec.Name
		domain = spec.Domain
	}
	if err := scaffold.ValidateName(name); err != nil {
		return err
	}

	dir := newDir
	if dir == "" {
		dir = name
	}

	if err := scaffold.WriteProject(dir, name, domain); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Created curriculum project %s in %s:\n", name, dir)
	fmt.Fprintf(out, "  %s\n", filepath.Join(dir, "curriculum.yaml"))
	fmt.Fprintf(out, "  %s\n", filepath.Join(dir, "knowledge.yaml"))
	fmt.Fprintf(out, "  %s\n", filepath.Join(dir, "scenarios")+string(filepath.Separator))
	fmt.Fprintf(out, "\nNext: dojo train %s --agent-id my-agent --mock\n", filepath.Join(dir, "curriculum.yaml"))
	return nil
}
