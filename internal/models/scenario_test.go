package models

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validScenario() *Scenario {
	return &Scenario{
		ID:              "med-001",
		Domain:          "healthcare",
		Difficulty:      DifficultyModerate,
		TaskDescription: "Write a patient-facing summary of the new screening guidelines.",
		Constraints:     Constraints{MinWords: 100, MaxWords: 500},
		RubricWeights: []RubricWeight{
			{Dimension: DimensionStructural, Weight: 0.3},
			{Dimension: DimensionContent, Weight: 0.4},
			{Dimension: DimensionDomain, Weight: 0.3},
		},
	}
}

func TestScenarioValidate(t *testing.T) {
	require.NoError(t, validScenario().Validate())

	tests := []struct {
		name    string
		mutate  func(*Scenario)
		wantErr string
	}{
		{
			name:    "missing id",
			mutate:  func(s *Scenario) { s.ID = "  " },
			wantErr: "id is required",
		},
		{
			name:    "missing domain",
			mutate:  func(s *Scenario) { s.Domain = "" },
			wantErr: "domain is required",
		},
		{
			name:    "unknown difficulty",
			mutate:  func(s *Scenario) { s.Difficulty = "impossible" },
			wantErr: "unknown difficulty",
		},
		{
			name:    "empty rubric",
			mutate:  func(s *Scenario) { s.RubricWeights = nil },
			wantErr: "rubric is required",
		},
		{
			name: "weights do not sum to one",
			mutate: func(s *Scenario) {
				s.RubricWeights[0].Weight = 0.5
			},
			wantErr: "must sum to 1.0",
		},
		{
			name: "duplicate dimension",
			mutate: func(s *Scenario) {
				s.RubricWeights = []RubricWeight{
					{Dimension: DimensionContent, Weight: 0.5},
					{Dimension: DimensionContent, Weight: 0.5},
				}
			},
			wantErr: "duplicate rubric dimension",
		},
		{
			name: "negative weight",
			mutate: func(s *Scenario) {
				s.RubricWeights = []RubricWeight{
					{Dimension: DimensionContent, Weight: -0.5},
					{Dimension: DimensionDomain, Weight: 1.5},
				}
			},
			wantErr: "must be positive",
		},
		{
			name: "min words above max words",
			mutate: func(s *Scenario) {
				s.Constraints.MinWords = 600
			},
			wantErr: "exceeds max_words",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sc := validScenario()
			tt.mutate(sc)
			err := sc.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestScenarioValidate_WeightToleranceAbsorbsFloatError(t *testing.T) {
	sc := validScenario()
	// 0.1*3 + 0.7 accumulates float error but is 1.0 for any practical rubric.
	sc.RubricWeights = []RubricWeight{
		{Dimension: DimensionStructural, Weight: 0.1},
		{Dimension: DimensionContent, Weight: 0.1},
		{Dimension: DimensionDomain, Weight: 0.1},
		{Dimension: DimensionFitness, Weight: 0.7},
	}
	require.NoError(t, sc.Validate())
}

func TestScenarioWeightAndRubricOrder(t *testing.T) {
	sc := validScenario()

	assert.Equal(t, 0.4, sc.Weight(DimensionContent))
	assert.Equal(t, 0.0, sc.Weight(DimensionComparison))

	assert.Equal(t, 0, sc.RubricOrder(DimensionStructural))
	assert.Equal(t, 1, sc.RubricOrder(DimensionContent))
	assert.Equal(t, len(sc.RubricWeights), sc.RubricOrder(DimensionFitness))
}

func TestScenarioIsActive(t *testing.T) {
	sc := validScenario()
	assert.True(t, sc.IsActive(), "unset active defaults to true")

	inactive := false
	sc.Active = &inactive
	assert.False(t, sc.IsActive())
}

func TestLoadScenario(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "scenario.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`id: fin-001
domain: finance
difficulty: simple
task: Summarize the quarterly results for a retail investor.
constraints:
  min_words: 50
  required_sections:
    - Highlights
rubric:
  - dimension: structural
    weight: 0.5
  - dimension: content_quality
    weight: 0.5
`), 0o644))

	sc, err := LoadScenario(path)
	require.NoError(t, err)
	assert.Equal(t, "fin-001", sc.ID)
	assert.Equal(t, DifficultySimple, sc.Difficulty)
	assert.Equal(t, []string{"Highlights"}, sc.Constraints.RequiredSections)
	assert.Equal(t, 0.5, sc.Weight(DimensionStructural))
}

func TestLoadScenario_InvalidYAMLAndMissingFile(t *testing.T) {
	dir := t.TempDir()

	_, err := LoadScenario(filepath.Join(dir, "missing.yaml"))
	require.Error(t, err)

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("id: [broken"), 0o644))
	_, err = LoadScenario(bad)
	require.ErrorContains(t, err, "parsing scenario")
}

func TestDifficultyRank(t *testing.T) {
	assert.True(t, DifficultySimple.Rank() < DifficultyModerate.Rank())
	assert.True(t, DifficultyModerate.Rank() < DifficultyComplex.Rank())
	assert.True(t, DifficultyComplex.Rank() < DifficultyExpert.Rank())
	assert.False(t, Difficulty("mythic").Valid())
}
