// Package wizard collects the inputs for a new curriculum project through
// an interactive form.
package wizard

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/dlai-sd/dojo/internal/scaffold"
	"golang.org/x/term"
)

// CurriculumSpec holds all fields collected during the interactive wizard.
type CurriculumSpec struct {
	Name   string
	Domain string
}

// RunCurriculumWizard runs an interactive huh form to collect curriculum
// metadata. If initialName is non-empty, it pre-populates the name field.
func RunCurriculumWizard(in io.Reader, out io.Writer, initialName string) (*CurriculumSpec, error) {
	var (
		name   = initialName
		domain string
	)

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Curriculum name").
				Description("A kebab-case name for your curriculum").
				Placeholder("content-writer-basics").
				Value(&name).
				Validate(func(s string) error {
					return scaffold.ValidateName(strings.TrimSpace(s))
				}),
			huh.NewInput().
				Title("Domain").
				Description("The subject area scenarios and knowledge tables belong to").
				Placeholder("healthcare").
				Value(&domain).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return fmt.Errorf("domain is required")
					}
					return nil
				}),
		),
	).
		WithInput(in).
		WithOutput(out)

	// Use accessible mode for non-TTY input (e.g., tests, piped input).
	if f, ok := in.(*os.File); !ok || !term.IsTerminal(int(f.Fd())) {
		form = form.WithAccessible(true)
	}

	if err := form.Run(); err != nil {
		return nil, fmt.Errorf("wizard failed: %w", err)
	}

	return &CurriculumSpec{
		Name:   strings.TrimSpace(name),
		Domain: strings.TrimSpace(strings.ToLower(domain)),
	}, nil
}
