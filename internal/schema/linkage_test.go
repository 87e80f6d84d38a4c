package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"adlens/models"
)

func f(v float64) *float64 { return &v }

func TestEnsureEvidenceBackfillsFromStatisticalMeasures(t *testing.T) {
	evals := []models.Evaluation{{
		HypothesisID:     "hyp_1",
		ValidationStatus: models.StatusConfirmed,
		Confidence:       0.9,
		StatisticalMeasures: map[string]float64{
			"baseline_value":     2.0,
			"current_value":      1.5,
			"absolute_delta":     -0.5,
			"relative_delta_pct": -25.0,
		},
	}}

	out := EnsureEvidence(evals)
	require.NotNil(t, out[0].Evidence)
	require.True(t, out[0].Evidence.Complete())
	assert.Equal(t, 2.0, *out[0].Evidence.BaselineValue)
	assert.Equal(t, -25.0, *out[0].Evidence.RelativeDeltaPct)
}

func TestEnsureEvidenceNullsPartialBlocks(t *testing.T) {
	evals := []models.Evaluation{{
		HypothesisID:     "hyp_1",
		ValidationStatus: models.StatusInsufficientData,
		Evidence:         &models.Evidence{BaselineValue: f(2.0)},
	}}

	out := EnsureEvidence(evals)
	assert.False(t, out[0].Evidence.Partial())
	assert.Nil(t, out[0].Evidence.BaselineValue)
}

func TestEnsureEvidenceKeepsCompleteBlocks(t *testing.T) {
	evidence := &models.Evidence{
		MetricName:       "ROAS",
		BaselineValue:    f(2.0),
		CurrentValue:     f(1.5),
		AbsoluteDelta:    f(-0.5),
		RelativeDeltaPct: f(-25.0),
	}
	evals := []models.Evaluation{{HypothesisID: "hyp_1", Evidence: evidence}}

	out := EnsureEvidence(evals)
	assert.Same(t, evidence, out[0].Evidence)
	assert.Equal(t, 2.0, *out[0].Evidence.BaselineValue)
}

func evalsFixture() []models.Evaluation {
	return []models.Evaluation{
		{HypothesisID: "hyp_1", ValidationStatus: models.StatusConfirmed, Confidence: 0.9},
		{HypothesisID: "hyp_2", ValidationStatus: models.StatusRefuted, Confidence: 0.9},
		{HypothesisID: "hyp_3", ValidationStatus: models.StatusPartiallyConfirmed, Confidence: 0.5},
	}
}

func TestQualifying(t *testing.T) {
	ids := Qualifying(evalsFixture(), 0.7)
	assert.True(t, ids["hyp_1"])
	assert.False(t, ids["hyp_2"], "refuted never qualifies")
	assert.False(t, ids["hyp_3"], "below threshold never qualifies")
}

func TestCheckLinkage(t *testing.T) {
	recs := []models.Recommendation{
		{
			CampaignName:    "Campaign A",
			LinkedToInsight: "hyp_1",
			DiagnosedIssue:  &models.DiagnosedIssue{Metric: "ROAS", Summary: "dropped"},
		},
		{CampaignName: "Campaign B", LinkedToInsight: "hyp_404"},
		{CampaignName: "Campaign C"},
		{CampaignName: "Campaign D", LinkedToInsight: "hyp_1"},
	}

	linked, warnings := CheckLinkage(recs, evalsFixture(), 0.7)
	assert.Equal(t, 1, linked)
	require.Len(t, warnings, 3)
	assert.Contains(t, warnings[0], `"hyp_404" does not match`)
	assert.Contains(t, warnings[1], "no linked_to_insight")
	assert.Contains(t, warnings[2], "no diagnosed issue")
}
