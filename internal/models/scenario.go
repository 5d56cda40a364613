package models

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Difficulty is the ordered difficulty tier of a scenario.
type Difficulty string

const (
	DifficultySimple   Difficulty = "simple"
	DifficultyModerate Difficulty = "moderate"
	DifficultyComplex  Difficulty = "complex"
	DifficultyExpert   Difficulty = "expert"
)

var difficultyRank = map[Difficulty]int{
	DifficultySimple:   1,
	DifficultyModerate: 2,
	DifficultyComplex:  3,
	DifficultyExpert:   4,
}

// Rank returns the ordinal position of the difficulty tier, or 0 for an
// unknown tier.
func (d Difficulty) Rank() int { return difficultyRank[d] }

// Valid reports whether the difficulty is one of the known tiers.
func (d Difficulty) Valid() bool { return d.Rank() > 0 }

// Constraints describes the structural requirements a scenario places on the
// agent's output.
type Constraints struct {
	MinWords         int            `yaml:"min_words,omitempty" json:"min_words,omitempty"`
	MaxWords         int            `yaml:"max_words,omitempty" json:"max_words,omitempty"`
	RequiredSections []string       `yaml:"required_sections,omitempty" json:"required_sections,omitempty"`
	FormatMarkers    []string       `yaml:"format_markers,omitempty" json:"format_markers,omitempty"`
	TargetAudience   string         `yaml:"target_audience,omitempty" json:"target_audience,omitempty"`
	OutputSchema     map[string]any `yaml:"output_schema,omitempty" json:"output_schema,omitempty"`
}

// Empty reports whether no constraint is configured.
func (c Constraints) Empty() bool {
	return c.MinWords == 0 && c.MaxWords == 0 &&
		len(c.RequiredSections) == 0 && len(c.FormatMarkers) == 0 &&
		c.TargetAudience == "" && len(c.OutputSchema) == 0
}

// RubricWeight binds one dimension to its weight within a scenario's rubric.
// Declaration order in the rubric is significant: it is the tie-break order
// used when ranking dimensions for feedback.
type RubricWeight struct {
	Dimension Dimension `yaml:"dimension" json:"dimension"`
	Weight    float64   `yaml:"weight" json:"weight"`
}

// Scenario is one immutable task definition an agent must attempt.
type Scenario struct {
	ID                string         `yaml:"id" json:"id"`
	Domain            string         `yaml:"domain" json:"domain"`
	Difficulty        Difficulty     `yaml:"difficulty" json:"difficulty"`
	TaskDescription   string         `yaml:"task" json:"task"`
	Constraints       Constraints    `yaml:"constraints,omitempty" json:"constraints,omitempty"`
	RubricWeights     []RubricWeight `yaml:"rubric" json:"rubric"`
	ReferenceExamples []string       `yaml:"reference_examples,omitempty" json:"reference_examples,omitempty"`

	// Active defaults to true when unset; inactive scenarios are skipped by
	// the scenario source.
	Active *bool `yaml:"active,omitempty" json:"active,omitempty"`
}

// weightTolerance absorbs float accumulation error when checking that rubric
// weights sum to 1.0.
const weightTolerance = 1e-6

// Validate checks that the scenario is well-formed.
func (s *Scenario) Validate() error {
	if strings.TrimSpace(s.ID) == "" {
		return fmt.Errorf("scenario id is required")
	}
	if strings.TrimSpace(s.Domain) == "" {
		return fmt.Errorf("scenario %s: domain is required", s.ID)
	}
	if !s.Difficulty.Valid() {
		return fmt.Errorf("scenario %s: unknown difficulty %q", s.ID, s.Difficulty)
	}
	if strings.TrimSpace(s.TaskDescription) == "" {
		return fmt.Errorf("scenario %s: task description is required", s.ID)
	}
	if len(s.RubricWeights) == 0 {
		return fmt.Errorf("scenario %s: rubric is required", s.ID)
	}

	seen := make(map[Dimension]struct{}, len(s.RubricWeights))
	total := 0.0
	for _, rw := range s.RubricWeights {
		if rw.Dimension == "" {
			return fmt.Errorf("scenario %s: rubric dimension is required", s.ID)
		}
		if _, dup := seen[rw.Dimension]; dup {
			return fmt.Errorf("scenario %s: duplicate rubric dimension %q", s.ID, rw.Dimension)
		}
		seen[rw.Dimension] = struct{}{}
		if rw.Weight <= 0 {
			return fmt.Errorf("scenario %s: rubric weight for %q must be positive", s.ID, rw.Dimension)
		}
		total += rw.Weight
	}
	if total < 1.0-weightTolerance || total > 1.0+weightTolerance {
		return fmt.Errorf("scenario %s: rubric weights must sum to 1.0, got %.6f", s.ID, total)
	}
	if s.Constraints.MaxWords > 0 && s.Constraints.MinWords > s.Constraints.MaxWords {
		return fmt.Errorf("scenario %s: min_words (%d) exceeds max_words (%d)", s.ID, s.Constraints.MinWords, s.Constraints.MaxWords)
	}
	return nil
}

// Weight returns the rubric weight for a dimension, or 0 when the dimension
// is not part of this scenario's rubric.
func (s *Scenario) Weight(dim Dimension) float64 {
	for _, rw := range s.RubricWeights {
		if rw.Dimension == dim {
			return rw.Weight
		}
	}
	return 0
}

// RubricOrder returns the position of a dimension in the rubric's declaration
// order, or len(rubric) when absent.
func (s *Scenario) RubricOrder(dim Dimension) int {
	for i, rw := range s.RubricWeights {
		if rw.Dimension == dim {
			return i
		}
	}
	return len(s.RubricWeights)
}

// IsActive reports whether the scenario should be offered to agents.
func (s *Scenario) IsActive() bool {
	return s.Active == nil || *s.Active
}

// LoadScenario loads and validates a scenario from a YAML file.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var sc Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, fmt.Errorf("parsing scenario %s: %w", filepath.Base(path), err)
	}
	if err := sc.Validate(); err != nil {
		return nil, err
	}
	return &sc, nil
}
