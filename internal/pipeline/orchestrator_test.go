package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"adlens/ai"
	"adlens/internal/config"
	apperrors "adlens/internal/errors"
	"adlens/internal/testkit"
	"adlens/internal/tracelog"
	"adlens/models"
)

// scriptedCompleter returns canned responses in call order.
type scriptedCompleter struct {
	responses []string
	calls     int
	err       error
}

func (s *scriptedCompleter) Complete(ctx context.Context, prompt, system string) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	if s.calls >= len(s.responses) {
		return "", errors.New("unexpected completion call")
	}
	resp := s.responses[s.calls]
	s.calls++
	return resp, nil
}

const plannerResponse = `{
	"schema_version": "1.0.0",
	"query_understanding": "find the performance drop",
	"required_metrics": ["roas", "ctr"],
	"subtasks": [
		{"task_id": "task_1", "description": "compare periods", "assigned_agent": "data_agent", "priority": "high", "dependencies": []}
	],
	"expected_insights": ["which campaign regressed"]
}`

const analysisResponse = "```json\n" + `{
	"schema_version": "1.0.0",
	"key_findings": [
		{"finding": "Campaign A ROAS fell in the current week", "evidence": "ROAS comparison", "significance": "high"}
	]
}` + "\n```"

const insightResponse = `{
	"schema_version": "1.0.0",
	"hypotheses": [{
		"hypothesis_id": "hyp_1",
		"title": "Creative fatigue on Campaign A",
		"description": "Campaign A performance decayed in week two",
		"supporting_evidence": ["ROAS drop"],
		"affected_segments": ["Campaign A"],
		"confidence": 0.8,
		"testable": true
	}]
}`

const evaluatorResponse = `{
	"schema_version": "1.0.0",
	"evaluations": [{
		"hypothesis_id": "hyp_1",
		"validation_status": "confirmed",
		"confidence_score": 0.85,
		"evidence_summary": "ROAS fell about 40% for Campaign A",
		"reasoning": "the comparison shows a sustained drop",
		"reliability": "high",
		"statistical_measures": {
			"baseline_value": 2.0,
			"current_value": 1.2,
			"absolute_delta": -0.8,
			"relative_delta_pct": -40.0
		}
	}],
	"validated_insights": ["hyp_1"]
}`

const creativeResponse = `{
	"schema_version": "1.0.0",
	"recommendations": [{
		"campaign_name": "Campaign A",
		"linked_to_insight": "hyp_1",
		"diagnosed_issue": {"metric": "ROAS", "baseline": 2.0, "current": 1.2, "delta": -0.8, "summary": "ROAS fell 40%"},
		"creative_variations": [
			{"creative_type": "video", "headline": "Fresh angle", "message": "m", "cta": "Shop Now", "rationale": "r", "expected_improvement": "+20% CTR"},
			{"creative_type": "static", "headline": "New proof", "message": "m", "cta": "Learn More", "rationale": "r", "expected_improvement": "+10% ROAS"}
		]
	}]
}`

func writePrompts(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	templates := map[string]string{
		"planner":       "Q: {QUERY}\nD: {DATA_SUMMARY}",
		"data_analysis": "Q: {QUERY}\nA: {ANALYSIS}",
		"insight":       "Q: {QUERY}\nF: {FINDINGS}\nA: {ANALYSIS}",
		"evaluator":     "H: {HYPOTHESES}\nA: {ANALYSIS}\nT: {THRESHOLD}",
		"creative":      "Q: {QUERY}\nH: {HYPOTHESES}\nE: {EVALUATIONS}",
	}
	for name, body := range templates {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name+".md"), []byte(body), 0o644))
	}
	return dir
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		LLM: models.LLMConfig{
			Model:      "test-model",
			PromptsDir: writePrompts(t),
		},
		Thresholds: config.ThresholdConfig{
			ConfidenceMin:    0.7,
			LowCTRThreshold:  0.01,
			LowROASThreshold: 1.0,
		},
		Outputs: config.OutputConfig{ReportsDir: t.TempDir()},
	}
}

type capturingArchiver struct {
	records []models.RunRecord
}

func (c *capturingArchiver) Insert(ctx context.Context, rec models.RunRecord) error {
	c.records = append(c.records, rec)
	return nil
}

func testRows() []models.AdRow {
	return testkit.NewAdsDataGenerator(testkit.DefaultAdsConfig()).GenerateRows()
}

func TestRunCompletesFullPipeline(t *testing.T) {
	cfg := testConfig(t)
	llm := &scriptedCompleter{responses: []string{
		plannerResponse, analysisResponse, insightResponse, evaluatorResponse, creativeResponse,
	}}
	trace, err := tracelog.New("")
	require.NoError(t, err)
	archive := &capturingArchiver{}

	query := "Why did my ads performance drop in the last 7 days?"
	o := NewOrchestrator(cfg, llm, testRows(), trace.Quiet(), archive)
	result, err := o.Run(context.Background(), query)
	require.NoError(t, err)
	assert.Equal(t, 5, llm.calls)

	state := result.State
	require.NotNil(t, state.Plan)
	require.NotNil(t, state.Analysis)
	require.NotNil(t, state.Insights)
	require.NotNil(t, state.Evaluation)
	require.NotNil(t, state.Creatives)
	assert.NotEmpty(t, state.DataSummary)

	assert.Equal(t, 1, state.Plan.TotalSubtasks)
	assert.Equal(t, query, state.Plan.OriginalQuery)
	assert.NotEmpty(t, state.Analysis.RawAnalysis)

	assert.Equal(t, 1, state.Evaluation.ValidatedCount)
	assert.Equal(t, 0, state.Evaluation.RejectedCount)
	assert.Equal(t, 0.85, state.Evaluation.Evaluations[0].Confidence, "confidence_score alias must decode")
	require.NotNil(t, state.Evaluation.Evaluations[0].Evidence)
	assert.True(t, state.Evaluation.Evaluations[0].Evidence.Complete())

	assert.Equal(t, 1, state.Creatives.TotalRecommendations)
	assert.Equal(t, 1, state.Creatives.LinkedToInsights)
	assert.Empty(t, state.Creatives.LinkageWarnings)

	assert.Contains(t, result.Report, query)
	assert.Contains(t, result.Report, "Creative fatigue on Campaign A")
	assert.Contains(t, result.Report, "Dataset Overview:")

	saved, err := os.ReadFile(result.ReportPath)
	require.NoError(t, err)
	assert.Equal(t, result.Report, string(saved))

	// The insights export must carry the evaluation verdicts, not just the
	// hypotheses.
	matches, err := filepath.Glob(filepath.Join(cfg.Outputs.ReportsDir, "insights_*.json"))
	require.NoError(t, err)
	require.Len(t, matches, 1)
	exported, err := os.ReadFile(matches[0])
	require.NoError(t, err)

	var export struct {
		Query      string                `json:"query"`
		Hypotheses []models.Hypothesis   `json:"hypotheses"`
		Evaluation *models.EvaluationSet `json:"evaluation"`
	}
	require.NoError(t, json.Unmarshal(exported, &export))
	assert.Equal(t, query, export.Query)
	require.Len(t, export.Hypotheses, 1)
	require.NotNil(t, export.Evaluation)
	assert.Equal(t, 1, export.Evaluation.ValidatedCount)
	assert.Equal(t, models.StatusConfirmed, export.Evaluation.Evaluations[0].ValidationStatus)
	require.NotNil(t, export.Evaluation.Evaluations[0].Evidence)
	assert.True(t, export.Evaluation.Evaluations[0].Evidence.Complete())

	require.Len(t, archive.records, 1)
	assert.Equal(t, state.RunID, archive.records[0].ID)
	assert.Equal(t, "completed", archive.records[0].Status)
	assert.Equal(t, 1, archive.records[0].Validated)
}

func TestRunEmitsPairedTraceEvents(t *testing.T) {
	cfg := testConfig(t)
	llm := &scriptedCompleter{responses: []string{
		plannerResponse, analysisResponse, insightResponse, evaluatorResponse, creativeResponse,
	}}
	trace, err := tracelog.New("")
	require.NoError(t, err)

	o := NewOrchestrator(cfg, llm, testRows(), trace.Quiet(), nil)
	_, err = o.Run(context.Background(), "query")
	require.NoError(t, err)

	events := trace.Events()
	assert.Equal(t, "pipeline_start", events[0].Event)
	assert.Equal(t, "pipeline_complete", events[len(events)-1].Event)

	starts, completes := 0, 0
	for _, ev := range events {
		switch {
		case strings.HasSuffix(ev.Event, "_start"):
			starts++
		case strings.HasSuffix(ev.Event, "_complete"):
			completes++
			if ev.Event != "pipeline_complete" {
				assert.NotNil(t, ev.DurationMS, "event %s.%s should carry a duration", ev.Agent, ev.Event)
			}
		}
	}
	assert.Equal(t, starts, completes)
}

func TestRunAbortsOnStepFailure(t *testing.T) {
	cfg := testConfig(t)
	llm := &scriptedCompleter{err: errors.New("service unavailable")}
	trace, err := tracelog.New("")
	require.NoError(t, err)

	o := NewOrchestrator(cfg, llm, testRows(), trace.Quiet(), nil)
	result, err := o.Run(context.Background(), "query")
	require.Error(t, err)
	assert.Nil(t, result)

	entries, readErr := os.ReadDir(cfg.Outputs.ReportsDir)
	require.NoError(t, readErr)
	assert.Empty(t, entries, "no partial report on abort")

	events := trace.Events()
	assert.Equal(t, "ERROR", events[len(events)-1].Level)
}

func TestRunAbortsOnMalformedResponse(t *testing.T) {
	cfg := testConfig(t)
	llm := &scriptedCompleter{responses: []string{"this is not json at all"}}
	trace, err := tracelog.New("")
	require.NoError(t, err)

	o := NewOrchestrator(cfg, llm, testRows(), trace.Quiet(), nil)
	_, err = o.Run(context.Background(), "query")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "could not parse JSON")
	assert.Equal(t, apperrors.CodeMalformedResponse, apperrors.GetCode(err))
}

func TestRunCodesTransportFailures(t *testing.T) {
	cfg := testConfig(t)
	llm := &scriptedCompleter{err: &ai.TransportError{Kind: ai.ErrKindServer, StatusCode: 503, Message: "upstream down"}}
	trace, err := tracelog.New("")
	require.NoError(t, err)

	o := NewOrchestrator(cfg, llm, testRows(), trace.Quiet(), nil)
	_, err = o.Run(context.Background(), "query")
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeExternalService, apperrors.GetCode(err))
	assert.Contains(t, err.Error(), "upstream down")
}
