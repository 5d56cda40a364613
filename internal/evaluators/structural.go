package evaluators

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/dlai-sd/dojo/internal/models"
	"github.com/santhosh-tekuri/jsonschema/v6"
)

const structuralVersion = "structural/1.0.0"

// StructuralFloor is the score below which a trial is considered a likely
// hard fail regardless of the other dimensions.
const StructuralFloor = 3.0

// structuralEvaluator runs deterministic, rule-based checks against the
// scenario's constraints: word bounds, required sections, format markers,
// and an optional JSON schema for structured outputs. It is the cheapest
// evaluator in the set.
type structuralEvaluator struct{}

// NewStructuralEvaluator creates the structural compliance evaluator.
func NewStructuralEvaluator() *structuralEvaluator {
	return &structuralEvaluator{}
}

func (e *structuralEvaluator) Name() string                { return "structural" }
func (e *structuralEvaluator) Dimension() models.Dimension { return models.DimensionStructural }
func (e *structuralEvaluator) Version() string             { return structuralVersion }

// AppliesTo reports false when the scenario configures no structural
// constraints; there is nothing to check and the dimension must not be
// scored from thin air.
func (e *structuralEvaluator) AppliesTo(scenario *models.Scenario) bool {
	return !scenario.Constraints.Empty()
}

func (e *structuralEvaluator) Evaluate(ctx context.Context, scenario *models.Scenario, output string) (*models.DimensionScore, error) {
	return measureTime(func() (*models.DimensionScore, error) {
		c := scenario.Constraints
		outputLower := strings.ToLower(output)
		words := wordCount(output)

		totalChecks := 0
		passedChecks := 0
		var issues []string

		check := func(ok bool, issue string) {
			totalChecks++
			if ok {
				passedChecks++
			} else {
				issues = append(issues, issue)
			}
		}

		if c.MinWords > 0 {
			check(words >= c.MinWords, fmt.Sprintf("output has %d words, minimum is %d", words, c.MinWords))
		}
		if c.MaxWords > 0 {
			check(words <= c.MaxWords, fmt.Sprintf("output has %d words, maximum is %d", words, c.MaxWords))
		}
		for _, section := range c.RequiredSections {
			check(containsPhrase(outputLower, section), fmt.Sprintf("missing required section: %s", section))
		}
		for _, marker := range c.FormatMarkers {
			check(strings.Contains(output, marker), fmt.Sprintf("missing format marker: %s", marker))
		}
		if len(c.OutputSchema) > 0 {
			ok, issue, err := validateOutputSchema(output, c.OutputSchema)
			if err != nil {
				// A malformed schema is a scenario configuration problem,
				// not a property of the output.
				return nil, err
			}
			check(ok, issue)
		}

		if totalChecks == 0 {
			na := models.NotApplicable(models.DimensionStructural, structuralVersion, "no structural constraints configured")
			return &na, nil
		}

		score := models.ScoreMax * float64(passedChecks) / float64(totalChecks)
		rationale := fmt.Sprintf("%d/%d structural checks passed", passedChecks, totalChecks)

		return &models.DimensionScore{
			Dimension:        models.DimensionStructural,
			Score:            score,
			Applicable:       true,
			Rationale:        rationale,
			Issues:           issues,
			EvaluatorVersion: structuralVersion,
		}, nil
	})
}

// validateOutputSchema checks the output against an inline JSON schema.
// Returns (false, issue, nil) when the output does not satisfy the schema
// and a non-nil error only for a broken schema definition.
func validateOutputSchema(output string, schemaMap map[string]any) (bool, string, error) {
	var outputValue any
	if err := json.Unmarshal([]byte(output), &outputValue); err != nil {
		return false, fmt.Sprintf("output is not valid JSON: %v", err), nil
	}

	// Round-trip the schema through JSON so YAML-decoded maps become plain
	// JSON values the compiler accepts.
	schemaJSON, err := json.Marshal(schemaMap)
	if err != nil {
		return false, "", fmt.Errorf("serializing output schema: %w", err)
	}
	var schemaValue any
	if err := json.Unmarshal(schemaJSON, &schemaValue); err != nil {
		return false, "", fmt.Errorf("parsing output schema: %w", err)
	}

	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("schema.json", schemaValue); err != nil {
		return false, "", fmt.Errorf("adding schema resource: %w", err)
	}
	schema, err := compiler.Compile("schema.json")
	if err != nil {
		return false, "", fmt.Errorf("compiling output schema: %w", err)
	}

	if err := schema.Validate(outputValue); err != nil {
		return false, fmt.Sprintf("output does not match schema: %v", err), nil
	}
	return true, "", nil
}
