package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"adlens/ai"
	"adlens/internal/config"
	"adlens/internal/dataset"
	apperrors "adlens/internal/errors"
	"adlens/internal/tracelog"
	"adlens/models"
)

// RunArchiver persists completed run summaries. Archiving is best effort: a
// failed insert never fails the run.
type RunArchiver interface {
	Insert(ctx context.Context, rec models.RunRecord) error
}

// Orchestrator sequences the pipeline over a single dataset. Any step failure
// aborts the run: the error is traced and surfaced, and no partial report is
// written.
type Orchestrator struct {
	planner   *Planner
	analyst   *Analyst
	insight   *InsightAgent
	evaluator *Evaluator
	creative  *CreativeAgent
	artifacts *Artifacts
	trace     *tracelog.Logger
	archive   RunArchiver
	rows      []models.AdRow
	now       func() time.Time
}

// NewOrchestrator wires the agents from configuration. archive may be nil.
func NewOrchestrator(cfg *config.Config, llm Completer, rows []models.AdRow, trace *tracelog.Logger, archive RunArchiver) *Orchestrator {
	prompts := ai.NewPromptLibrary(cfg.LLM.PromptsDir)
	return &Orchestrator{
		planner:   NewPlanner(llm, prompts),
		analyst:   NewAnalyst(llm, prompts, cfg.Thresholds.LowCTRThreshold, cfg.Thresholds.LowROASThreshold),
		insight:   NewInsightAgent(llm, prompts),
		evaluator: NewEvaluator(llm, prompts, cfg.Thresholds.ConfidenceMin),
		creative:  NewCreativeAgent(llm, prompts),
		artifacts: NewArtifacts(cfg.Outputs.ReportsDir),
		trace:     trace,
		archive:   archive,
		rows:      rows,
		now:       time.Now,
	}
}

// WithClock replaces the time source. Used by tests.
func (o *Orchestrator) WithClock(now func() time.Time) *Orchestrator {
	o.now = now
	o.artifacts.WithClock(now)
	return o
}

// RunResult is a completed run: the final state, the report markdown and
// where it was saved.
type RunResult struct {
	State      *models.PipelineState
	Report     string
	ReportPath string
}

// Run executes the full pipeline for a query.
func (o *Orchestrator) Run(ctx context.Context, query string) (*RunResult, error) {
	startedAt := o.now()
	state := &models.PipelineState{
		RunID: uuid.New(),
		Query: query,
	}
	o.trace.Log("orchestrator", "pipeline_start", map[string]any{
		"run_id": state.RunID.String(),
		"query":  query,
		"rows":   len(o.rows),
	})

	o.trace.Log("data_agent", "data_summary_start", nil)
	state.DataSummary = dataset.Summary(o.rows)
	quality := dataset.Quality(o.rows)
	o.trace.LogDecision("data_agent", "dataset_accepted",
		fmt.Sprintf("data quality score %.1f across %d rows", quality.Score, quality.TotalRows),
		map[string]any{"rows": quality.TotalRows},
		map[string]any{"quality_score": quality.Score, "campaigns": quality.Campaigns})
	o.trace.Log("data_agent", "data_summary_complete", map[string]any{
		"quality_score": quality.Score,
	})

	o.trace.Log("planner", "planning_start", nil)
	plan, err := o.planner.Execute(ctx, query, state.DataSummary)
	if err != nil {
		return o.abort(state, "planner", err)
	}
	state.Plan = plan
	o.trace.Log("planner", "planning_complete", map[string]any{"subtasks": plan.TotalSubtasks})

	o.trace.Log("analyst", "analysis_start", nil)
	analysis, err := o.analyst.Execute(ctx, query, o.rows)
	if err != nil {
		return o.abort(state, "analyst", err)
	}
	state.Analysis = analysis
	o.trace.Log("analyst", "analysis_complete", map[string]any{"key_findings": len(analysis.KeyFindings)})

	o.trace.Log("insight_agent", "hypothesis_start", nil)
	insights, err := o.insight.Execute(ctx, query, analysis)
	if err != nil {
		return o.abort(state, "insight_agent", err)
	}
	state.Insights = insights
	o.trace.Log("insight_agent", "hypothesis_complete", map[string]any{"hypotheses": len(insights.Hypotheses)})

	o.trace.Log("evaluator", "evaluation_start", nil)
	evaluation, err := o.evaluator.Execute(ctx, insights, analysis)
	if err != nil {
		return o.abort(state, "evaluator", err)
	}
	state.Evaluation = evaluation
	o.trace.Log("evaluator", "evaluation_complete", map[string]any{
		"validated": evaluation.ValidatedCount,
		"rejected":  evaluation.RejectedCount,
		"total":     evaluation.TotalEvaluated,
	})

	o.trace.Log("creative_agent", "recommendation_start", nil)
	creatives, err := o.creative.Execute(ctx, query, insights, evaluation)
	if err != nil {
		return o.abort(state, "creative_agent", err)
	}
	state.Creatives = creatives
	for _, w := range creatives.LinkageWarnings {
		o.trace.LogWarning("creative_agent", w, nil)
	}
	o.trace.Log("creative_agent", "recommendation_complete", map[string]any{
		"recommendations": creatives.TotalRecommendations,
		"linked":          creatives.LinkedToInsights,
	})

	o.trace.Log("orchestrator", "report_start", nil)
	report := BuildReport(state, o.now())
	reportPath, err := o.artifacts.Save(state, report)
	if err != nil {
		return o.abort(state, "orchestrator", err)
	}
	o.trace.Log("orchestrator", "report_complete", map[string]any{"report_path": reportPath})

	o.trace.Log("orchestrator", "pipeline_complete", map[string]any{
		"hypotheses":      len(insights.Hypotheses),
		"validated":       evaluation.ValidatedCount,
		"recommendations": creatives.TotalRecommendations,
	})

	o.archiveRun(ctx, state, report, reportPath, startedAt)
	return &RunResult{State: state, Report: report, ReportPath: reportPath}, nil
}

func (o *Orchestrator) abort(state *models.PipelineState, agent string, err error) (*RunResult, error) {
	err = codedError(err)
	o.trace.LogError(agent, err, map[string]any{
		"run_id": state.RunID.String(),
		"query":  state.Query,
	})
	return nil, err
}

// codedError maps the failure taxonomy onto AppError codes at the pipeline
// boundary so callers can branch on the code instead of the concrete type.
func codedError(err error) error {
	var malformed *ai.MalformedResponseError
	if apperrors.As(err, &malformed) {
		return apperrors.WrapCode(err, apperrors.CodeMalformedResponse, "agent output could not be parsed")
	}
	var transport *ai.TransportError
	if apperrors.As(err, &transport) {
		return apperrors.ExternalServiceError("completion", err)
	}
	return err
}

func (o *Orchestrator) archiveRun(ctx context.Context, state *models.PipelineState, report, reportPath string, startedAt time.Time) {
	if o.archive == nil {
		return
	}
	completed := o.now()
	rec := models.RunRecord{
		ID:              state.RunID,
		Query:           state.Query,
		Status:          "completed",
		Hypotheses:      len(state.Insights.Hypotheses),
		Validated:       state.Evaluation.ValidatedCount,
		Recommendations: state.Creatives.TotalRecommendations,
		ReportPath:      reportPath,
		ReportMarkdown:  report,
		StartedAt:       startedAt,
		CompletedAt:     &completed,
	}
	if err := o.archive.Insert(ctx, rec); err != nil {
		o.trace.LogWarning("orchestrator", "run archive insert failed", map[string]any{
			"error": err.Error(),
		})
	}
}
