package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/dlai-sd/dojo/internal/models"
)

// MemStore is an in-memory Store used by tests and dry runs. It applies the
// same append-only discipline as the file-backed store.
type MemStore struct {
	mu       sync.Mutex
	trials   map[string][]models.TrialRecord
	progress map[string]*models.TrainingProgress
	reports  map[string]*models.GraduationReport
}

// NewMemStore creates an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{
		trials:   make(map[string][]models.TrialRecord),
		progress: make(map[string]*models.TrainingProgress),
		reports:  make(map[string]*models.GraduationReport),
	}
}

func (m *MemStore) AppendTrial(ctx context.Context, trial *models.TrialRecord) error {
	if err := trial.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.trials[trial.AgentID] = append(m.trials[trial.AgentID], *trial)
	return nil
}

func (m *MemStore) ListTrials(ctx context.Context, agentID, phase string) ([]models.TrialRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.TrialRecord
	for _, t := range m.trials[agentID] {
		if phase != "" && t.Phase != phase {
			continue
		}
		out = append(out, t)
	}
	return out, nil
}

func (m *MemStore) SaveProgress(ctx context.Context, progress *models.TrainingProgress) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *progress
	m.progress[progress.AgentID] = &cp
	return nil
}

func (m *MemStore) LoadProgress(ctx context.Context, agentID string) (*models.TrainingProgress, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.progress[agentID]
	if !ok {
		return nil, fmt.Errorf("agent %s: %w", agentID, ErrNotFound)
	}
	cp := *p
	return &cp, nil
}

func (m *MemStore) SaveGraduationReport(ctx context.Context, report *models.GraduationReport) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *report
	m.reports[report.AgentID] = &cp
	return nil
}

func (m *MemStore) LoadGraduationReport(ctx context.Context, agentID string) (*models.GraduationReport, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.reports[agentID]
	if !ok {
		return nil, fmt.Errorf("agent %s: %w", agentID, ErrNotFound)
	}
	cp := *r
	return &cp, nil
}
