package pipeline

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"adlens/ai"
	"adlens/models"
)

const mislabeledEvaluatorResponse = `{
	"schema_version": "1.0.0",
	"evaluations": [
		{
			"hypothesis_id": "hyp_1",
			"validation_status": "confirmed",
			"confidence": 0.9,
			"evidence_summary": "s",
			"reasoning": "r",
			"reliability": "high"
		},
		{
			"hypothesis_id": "hyp_2",
			"validation_status": "refuted",
			"confidence": 0.9,
			"evidence_summary": "s",
			"reasoning": "r",
			"reliability": "high"
		}
	],
	"validated_insights": ["hyp_2"]
}`

func TestEvaluatorDerivesValidatedInsightsFromVerdicts(t *testing.T) {
	llm := &scriptedCompleter{responses: []string{mislabeledEvaluatorResponse}}
	e := NewEvaluator(llm, ai.NewPromptLibrary(writePrompts(t)), 0.7)

	insights := &models.InsightSet{Hypotheses: []models.Hypothesis{
		{ID: "hyp_1", Title: "a"},
		{ID: "hyp_2", Title: "b"},
	}}
	set, err := e.Execute(context.Background(), insights, &models.Analysis{RawAnalysis: "comparisons"})
	require.NoError(t, err)

	// The model listed the refuted hypothesis; the verdicts say otherwise.
	assert.Equal(t, []string{"hyp_1"}, set.ValidatedInsights)
	assert.Equal(t, 1, set.ValidatedCount)
	assert.Equal(t, 1, set.RejectedCount)
	assert.Equal(t, 2, set.TotalEvaluated)
	assert.Equal(t, 0.7, set.ConfidenceThreshold)
}

func TestEvaluatorCoercesUnknownStatus(t *testing.T) {
	response := `{
		"evaluations": [{
			"hypothesis_id": "hyp_1",
			"validation_status": "maybe",
			"confidence": 0.9,
			"evidence_summary": "s",
			"reasoning": "r",
			"reliability": "low"
		}],
		"validated_insights": []
	}`
	llm := &scriptedCompleter{responses: []string{response}}
	e := NewEvaluator(llm, ai.NewPromptLibrary(writePrompts(t)), 0.7)

	set, err := e.Execute(context.Background(), &models.InsightSet{}, &models.Analysis{RawAnalysis: "x"})
	require.NoError(t, err)
	assert.Equal(t, models.StatusInsufficientData, set.Evaluations[0].ValidationStatus)
	assert.Empty(t, set.ValidatedInsights)
	assert.Equal(t, 0, set.ValidatedCount)
}
