package evaluators

import (
	"context"
	"strings"
	"testing"

	"github.com/dlai-sd/dojo/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func contentScenario() *models.Scenario {
	return &models.Scenario{
		ID:              "content-test",
		Domain:          "testing",
		Difficulty:      models.DifficultySimple,
		TaskDescription: "Write something worth reading.",
		RubricWeights: []models.RubricWeight{
			{Dimension: models.DimensionContent, Weight: 1.0},
		},
	}
}

func TestContentAppliesToEverything(t *testing.T) {
	assert.True(t, NewContentEvaluator().AppliesTo(contentScenario()))
}

func TestContentEvaluate_EmptyOutputScoresZero(t *testing.T) {
	e := NewContentEvaluator()

	ds, err := e.Evaluate(context.Background(), contentScenario(), "   \n ")
	require.NoError(t, err)
	// Empty output is a real (bad) result, not a missing one.
	assert.True(t, ds.Applicable)
	assert.Equal(t, 0.0, ds.Score)
	assert.Contains(t, ds.Issues, "output is empty")
}

func TestContentEvaluate_WellWrittenTextScoresHigh(t *testing.T) {
	e := NewContentEvaluator()
	output := "The survey of 120 stores showed revenue rising 8% across the region. " +
		"For example, urban branches gained 12% while rural branches stayed flat overall. " +
		"Managers attributed the gains to three targeted promotions launched in March 2026. " +
		"Each promotion reached roughly 40,000 customers through email and local press outreach. " +
		"The analysis recommends repeating the strongest promotion in at least 25 additional markets."

	ds, err := e.Evaluate(context.Background(), contentScenario(), output)
	require.NoError(t, err)
	require.True(t, ds.Applicable)
	assert.GreaterOrEqual(t, ds.Score, 8.0)
	assert.LessOrEqual(t, ds.Score, models.ScoreMax)
}

func TestContentEvaluate_ChoppyRepetitiveTextScoresLow(t *testing.T) {
	e := NewContentEvaluator()

	ds, err := e.Evaluate(context.Background(), contentScenario(), "Yes. Yes. Yes.")
	require.NoError(t, err)
	assert.Less(t, ds.Score, 4.0)
	assert.Contains(t, strings.Join(ds.Issues, "\n"), "very short")
}

func TestContentEvaluate_RunOnSentencesFlagged(t *testing.T) {
	e := NewContentEvaluator()
	// One long sentence, ~50 words, no terminator until the end.
	output := strings.Repeat("clause after clause with ever more words and qualifiers and asides ", 8) + "finally ends."

	ds, err := e.Evaluate(context.Background(), contentScenario(), output)
	require.NoError(t, err)
	assert.Contains(t, strings.Join(ds.Issues, "\n"), "very long")
}

func TestContentEvaluate_Deterministic(t *testing.T) {
	e := NewContentEvaluator()
	output := "A fixed input should always produce the same score. It had 3 examples."

	first, err := e.Evaluate(context.Background(), contentScenario(), output)
	require.NoError(t, err)
	second, err := e.Evaluate(context.Background(), contentScenario(), output)
	require.NoError(t, err)
	assert.Equal(t, first.Score, second.Score)
	assert.Equal(t, first.Rationale, second.Rationale)
}
