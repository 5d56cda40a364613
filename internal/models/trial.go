package models

import (
	"fmt"
	"time"
)

// TrialRecord is one attempt of one scenario by one agent. Records are
// created once per attempt and never mutated; the store treats them as an
// append-only ledger.
type TrialRecord struct {
	TrialID       string           `json:"trial_id"`
	AgentID       string           `json:"agent_id"`
	ScenarioID    string           `json:"scenario_id"`
	Phase         string           `json:"phase"`
	AttemptNumber int              `json:"attempt_number"`
	AgentOutput   string           `json:"agent_output"`
	Report        EvaluationReport `json:"report"`
	RecordedAt    time.Time        `json:"recorded_at"`
}

// Validate checks the invariants a record must satisfy before it is
// appended to the ledger.
func (t *TrialRecord) Validate() error {
	if t.TrialID == "" {
		return fmt.Errorf("trial id is required")
	}
	if t.AgentID == "" {
		return fmt.Errorf("trial %s: agent id is required", t.TrialID)
	}
	if t.ScenarioID == "" {
		return fmt.Errorf("trial %s: scenario id is required", t.TrialID)
	}
	if t.AttemptNumber < 1 {
		return fmt.Errorf("trial %s: attempt number must be >= 1, got %d", t.TrialID, t.AttemptNumber)
	}
	for i := range t.Report.DimensionScores {
		if err := t.Report.DimensionScores[i].Validate(); err != nil {
			return fmt.Errorf("trial %s: %w", t.TrialID, err)
		}
	}
	return nil
}
