// Package store persists the training ledger: an append-only record of
// every trial plus each agent's current curriculum position and, once
// graduated, its graduation report.
package store

import (
	"context"
	"errors"

	"github.com/dlai-sd/dojo/internal/models"
)

// ErrNotFound is returned when an agent has no stored progress or report.
var ErrNotFound = errors.New("not found")

// Store is the persistence boundary the orchestrator and report builder
// depend on. Trials are append-only: no record is ever updated or deleted
// after creation. Progress is the single mutable document per agent and is
// replaced atomically.
type Store interface {
	// AppendTrial adds one trial record to the agent's ledger.
	AppendTrial(ctx context.Context, trial *models.TrialRecord) error

	// ListTrials returns the agent's trials in append order. An empty
	// phase returns all phases.
	ListTrials(ctx context.Context, agentID, phase string) ([]models.TrialRecord, error)

	// SaveProgress replaces the agent's training progress document.
	SaveProgress(ctx context.Context, progress *models.TrainingProgress) error

	// LoadProgress returns the agent's training progress, or ErrNotFound.
	LoadProgress(ctx context.Context, agentID string) (*models.TrainingProgress, error)

	// SaveGraduationReport stores the terminal report for a graduated run.
	SaveGraduationReport(ctx context.Context, report *models.GraduationReport) error

	// LoadGraduationReport returns the stored report, or ErrNotFound.
	LoadGraduationReport(ctx context.Context, agentID string) (*models.GraduationReport, error)
}

// Locker is implemented by stores whose backing data can be shared between
// processes. The orchestrator takes the lock for the duration of a training
// run so two trainers on the same data never interleave writes.
type Locker interface {
	// AcquireAgentLock takes an advisory lock on the agent's ledger. The
	// returned release function must be called when the run finishes.
	AcquireAgentLock(agentID string) (release func(), err error)
}
