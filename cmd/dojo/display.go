package main

import (
	"fmt"
	"io"
	"sync"

	"github.com/dlai-sd/dojo/internal/curriculum"
	"github.com/dlai-sd/dojo/internal/models"
	"github.com/dlai-sd/dojo/internal/spinner"
	"github.com/fatih/color"
)

var (
	passMark  = color.New(color.FgGreen).Sprint("✓")
	failMark  = color.New(color.FgRed).Sprint("✗")
	phaseText = color.New(color.Bold)
	dimText   = color.New(color.Faint)
)

// display renders curriculum progress events. In verbose mode every trial
// is printed; otherwise a spinner tracks the trial in flight and only phase
// boundaries are printed.
type display struct {
	out     io.Writer
	verbose bool

	mu   sync.Mutex
	spin *spinner.Spinner
}

func newDisplay(out io.Writer, verbose bool) *display {
	return &display{out: out, verbose: verbose}
}

// close stops any running spinner so regular output can resume cleanly.
func (d *display) close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopSpinnerLocked()
}

func (d *display) stopSpinnerLocked() {
	if d.spin != nil {
		d.spin.Stop()
		d.spin = nil
	}
}

func (d *display) handle(ev curriculum.ProgressEvent) {
	d.mu.Lock()
	defer d.mu.Unlock()

	switch ev.EventType {
	case curriculum.EventTrainingStart:
		fmt.Fprintf(d.out, "Training agent %s (starting at phase %d of %d)\n", ev.AgentID, ev.PhaseNum, ev.TotalPhases)

	case curriculum.EventPhaseStart:
		d.stopSpinnerLocked()
		phaseText.Fprintf(d.out, "\nPhase %d/%d: %s\n", ev.PhaseNum, ev.TotalPhases, ev.Phase)

	case curriculum.EventTrialStart:
		msg := fmt.Sprintf("%s: %s (attempt %d/%d)", ev.Phase, ev.ScenarioID, ev.Attempt, ev.MaxAttempts)
		if d.verbose {
			fmt.Fprintf(d.out, "  → %s\n", msg)
			return
		}
		if d.spin == nil {
			d.spin = spinner.Start(d.out, msg)
		} else {
			d.spin.SetMessage(msg)
		}

	case curriculum.EventTrialComplete:
		if !d.verbose {
			return
		}
		mark := passMark
		if !ev.Passed {
			mark = failMark
		}
		fmt.Fprintf(d.out, "  %s %s attempt %d: %.2f/10 ", mark, ev.ScenarioID, ev.Attempt, ev.Score)
		if ev.PreFlagged {
			fmt.Fprint(d.out, "[structural] ")
		}
		dimText.Fprintf(d.out, "(%dms)\n", ev.DurationMs)

	case curriculum.EventPhaseComplete:
		d.stopSpinnerLocked()
		fmt.Fprintf(d.out, "%s Phase %s passed (%.0f%% pass rate)\n", passMark, ev.Phase, ev.PassRate*100)

	case curriculum.EventPhaseFailed:
		d.stopSpinnerLocked()
		fmt.Fprintf(d.out, "%s Phase %s failed (%.0f%% pass rate)\n", failMark, ev.Phase, ev.PassRate*100)

	case curriculum.EventGraduated:
		d.stopSpinnerLocked()
		fmt.Fprintf(d.out, "\n%s Graduated with %.0f%% overall pass rate\n", passMark, ev.PassRate*100)

	case curriculum.EventTrainingStopped:
		d.stopSpinnerLocked()
		fmt.Fprintf(d.out, "Training stopped during phase %s; progress saved.\n", ev.Phase)
	}
}

// printDiagnosis renders a phase failure diagnosis.
func printDiagnosis(out io.Writer, diag *models.PhaseDiagnosis) {
	if diag == nil {
		return
	}
	fmt.Fprintf(out, "\nPhase %q fell short: %.0f%% pass rate against a %.0f%% target.\n",
		diag.Phase, diag.ObservedPassRate*100, diag.TargetPassRate*100)
	if len(diag.WeakestDimensions) > 0 {
		fmt.Fprint(out, "Weakest dimensions:")
		for _, dim := range diag.WeakestDimensions {
			fmt.Fprintf(out, " %s", dim)
		}
		fmt.Fprintln(out)
	}
}
