package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// SchemaVersion is the declared version for all structured agent outputs.
const SchemaVersion = "1.0.0"

// ValidationStatus is the outcome of evaluating one hypothesis.
type ValidationStatus string

const (
	StatusConfirmed          ValidationStatus = "confirmed"
	StatusPartiallyConfirmed ValidationStatus = "partially_confirmed"
	StatusRefuted            ValidationStatus = "refuted"
	StatusInsufficientData   ValidationStatus = "insufficient_data"
)

// Known reports whether the status is one of the four defined states.
func (s ValidationStatus) Known() bool {
	switch s {
	case StatusConfirmed, StatusPartiallyConfirmed, StatusRefuted, StatusInsufficientData:
		return true
	}
	return false
}

// Qualifies reports whether an evaluation with this status can back a recommendation.
func (s ValidationStatus) Qualifies() bool {
	return s == StatusConfirmed || s == StatusPartiallyConfirmed
}

// Hypothesis is one testable explanation of a performance pattern,
// produced by the insight step.
type Hypothesis struct {
	ID                 string   `json:"hypothesis_id"`
	Title              string   `json:"title"`
	Description        string   `json:"description"`
	SupportingEvidence []string `json:"supporting_evidence"`
	PotentialCauses    []string `json:"potential_causes,omitempty"`
	AffectedSegments   []string `json:"affected_segments"`
	Confidence         float64  `json:"confidence"`
	Testable           bool     `json:"testable"`
	ValidationApproach string   `json:"validation_approach,omitempty"`
}

// UnmarshalJSON defaults a missing confidence to 0.5 and clamps it into [0, 1].
func (h *Hypothesis) UnmarshalJSON(data []byte) error {
	type alias Hypothesis
	aux := struct {
		*alias
		Confidence *float64 `json:"confidence"`
	}{alias: (*alias)(h)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if aux.Confidence == nil {
		h.Confidence = 0.5
	} else {
		h.Confidence = clamp01(*aux.Confidence)
	}
	return nil
}

// Evidence holds the quantitative baseline/current/delta facts backing an
// evaluation. The four numeric fields are jointly present or jointly null;
// partial evidence is invalid.
type Evidence struct {
	MetricName       string   `json:"metric_name"`
	Segment          string   `json:"segment"`
	BaselineValue    *float64 `json:"baseline_value"`
	CurrentValue     *float64 `json:"current_value"`
	AbsoluteDelta    *float64 `json:"absolute_delta"`
	RelativeDeltaPct *float64 `json:"relative_delta_pct"`
	SampleSize       int      `json:"sample_size"`
}

// Complete reports whether all four numeric fields are present.
func (e *Evidence) Complete() bool {
	return e.BaselineValue != nil && e.CurrentValue != nil &&
		e.AbsoluteDelta != nil && e.RelativeDeltaPct != nil
}

// Partial reports whether some but not all numeric fields are present.
func (e *Evidence) Partial() bool {
	present := 0
	for _, v := range []*float64{e.BaselineValue, e.CurrentValue, e.AbsoluteDelta, e.RelativeDeltaPct} {
		if v != nil {
			present++
		}
	}
	return present > 0 && present < 4
}

// Evaluation is the validation verdict for one hypothesis.
type Evaluation struct {
	HypothesisID        string             `json:"hypothesis_id"`
	ValidationStatus    ValidationStatus   `json:"validation_status"`
	Confidence          float64            `json:"confidence"`
	Evidence            *Evidence          `json:"evidence,omitempty"`
	EvidenceSummary     string             `json:"evidence_summary,omitempty"`
	Reasoning           string             `json:"reasoning"`
	Reliability         string             `json:"reliability"`
	StatisticalMeasures map[string]float64 `json:"statistical_measures,omitempty"`
}

// UnmarshalJSON accepts the deprecated "confidence_score" key as an input
// alias for "confidence" and clamps the result into [0, 1]. Only the
// canonical key is ever emitted.
func (e *Evaluation) UnmarshalJSON(data []byte) error {
	type alias Evaluation
	aux := struct {
		*alias
		Confidence      *float64 `json:"confidence"`
		ConfidenceScore *float64 `json:"confidence_score"`
	}{alias: (*alias)(e)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	switch {
	case aux.Confidence != nil:
		e.Confidence = clamp01(*aux.Confidence)
	case aux.ConfidenceScore != nil:
		e.Confidence = clamp01(*aux.ConfidenceScore)
	default:
		e.Confidence = 0
	}
	return nil
}

// DiagnosedIssue pins a recommendation to a measured metric regression.
type DiagnosedIssue struct {
	Metric   string   `json:"metric,omitempty"`
	Baseline *float64 `json:"baseline,omitempty"`
	Current  *float64 `json:"current,omitempty"`
	Delta    *float64 `json:"delta,omitempty"`
	Summary  string   `json:"summary,omitempty"`
}

// CreativeVariant is one proposed creative for a campaign.
type CreativeVariant struct {
	CreativeType        string `json:"creative_type"`
	Headline            string `json:"headline"`
	Message             string `json:"message"`
	CTA                 string `json:"cta"`
	Rationale           string `json:"rationale"`
	ExpectedImprovement string `json:"expected_improvement"`
}

// Recommendation proposes creative changes for one campaign, citing the
// validated evaluation it addresses via LinkedToInsight.
type Recommendation struct {
	CampaignName       string            `json:"campaign_name"`
	DiagnosedIssue     *DiagnosedIssue   `json:"diagnosed_issue,omitempty"`
	LinkedToInsight    string            `json:"linked_to_insight,omitempty"`
	CreativeVariations []CreativeVariant `json:"creative_variations"`
}

// UnmarshalJSON accepts the legacy "current_issue" string as a textual
// diagnosed issue when no structured block is present.
func (r *Recommendation) UnmarshalJSON(data []byte) error {
	type alias Recommendation
	aux := struct {
		*alias
		CurrentIssue string `json:"current_issue"`
	}{alias: (*alias)(r)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if r.DiagnosedIssue == nil && aux.CurrentIssue != "" {
		r.DiagnosedIssue = &DiagnosedIssue{Summary: aux.CurrentIssue}
	}
	return nil
}

// HasDiagnosedIssue reports whether the recommendation names a concrete issue.
func (r *Recommendation) HasDiagnosedIssue() bool {
	return r.DiagnosedIssue != nil && (r.DiagnosedIssue.Metric != "" || r.DiagnosedIssue.Summary != "")
}

// Subtask is one unit of the planner's decomposition.
type Subtask struct {
	TaskID        string   `json:"task_id"`
	Description   string   `json:"description"`
	AssignedAgent string   `json:"assigned_agent"`
	Priority      string   `json:"priority"`
	Dependencies  []string `json:"dependencies"`
}

// Plan is the planner step's output.
type Plan struct {
	QueryUnderstanding string    `json:"query_understanding"`
	RequiredMetrics    []string  `json:"required_metrics"`
	Subtasks           []Subtask `json:"subtasks"`
	ExpectedInsights   []string  `json:"expected_insights"`
	OriginalQuery      string    `json:"original_query,omitempty"`
	TotalSubtasks      int       `json:"total_subtasks,omitempty"`
}

// Finding is one observation extracted by the analysis step.
type Finding struct {
	Finding      string   `json:"finding"`
	Evidence     string   `json:"evidence,omitempty"`
	MetricValue  *float64 `json:"metric_value,omitempty"`
	Significance string   `json:"significance,omitempty"`
}

// Analysis is the analysis step's output, carrying both the model's findings
// and the deterministic comparison text they were grounded on.
type Analysis struct {
	KeyFindings []Finding          `json:"key_findings"`
	Metrics     map[string]float64 `json:"metrics,omitempty"`
	RawAnalysis string             `json:"raw_analysis,omitempty"`
}

// InsightSet is the hypothesis-generation step's output.
type InsightSet struct {
	Hypotheses     []Hypothesis `json:"hypotheses"`
	InsightSummary string       `json:"insight_summary,omitempty"`
}

// EvaluationSet is the evaluation step's output plus derived counts.
type EvaluationSet struct {
	Evaluations         []Evaluation `json:"evaluations"`
	ValidatedInsights   []string     `json:"validated_insights"`
	RejectedHypotheses  []string     `json:"rejected_hypotheses,omitempty"`
	RequiresMoreData    []string     `json:"requires_more_data,omitempty"`
	ValidatedCount      int          `json:"validated_count"`
	RejectedCount       int          `json:"rejected_count"`
	TotalEvaluated      int          `json:"total_evaluated"`
	ConfidenceThreshold float64      `json:"confidence_threshold"`
	OverallAssessment   string       `json:"overall_assessment,omitempty"`
}

// CreativeSet is the recommendation step's output plus linkage accounting.
type CreativeSet struct {
	Recommendations      []Recommendation `json:"recommendations"`
	TotalRecommendations int              `json:"total_recommendations"`
	LinkedToInsights     int              `json:"linked_to_insights"`
	LinkageWarnings      []string         `json:"linkage_warnings,omitempty"`
	GeneratedAt          string           `json:"generated_at,omitempty"`
}

// PipelineState is the single mutable record for one run. Each pipeline step
// writes exactly one field; later steps and report assembly read it. It is
// owned exclusively by one orchestrator instance and never shared across runs.
type PipelineState struct {
	RunID       uuid.UUID      `json:"run_id"`
	Query       string         `json:"query"`
	Plan        *Plan          `json:"plan,omitempty"`
	DataSummary string         `json:"data_summary,omitempty"`
	Analysis    *Analysis      `json:"analysis,omitempty"`
	Insights    *InsightSet    `json:"insights,omitempty"`
	Evaluation  *EvaluationSet `json:"evaluation,omitempty"`
	Creatives   *CreativeSet   `json:"creatives,omitempty"`
}

// ErrorDetail captures a failure inside a LogEvent.
type ErrorDetail struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// LogEvent is one entry in a run's append-only execution trace.
type LogEvent struct {
	Timestamp  string         `json:"timestamp"`
	SessionID  string         `json:"session_id"`
	Agent      string         `json:"agent"`
	Event      string         `json:"event"`
	Level      string         `json:"level"`
	Data       map[string]any `json:"data"`
	DurationMS *float64       `json:"duration_ms,omitempty"`
	Error      *ErrorDetail   `json:"error,omitempty"`
}

// RunRecord is the archived summary of a completed run.
type RunRecord struct {
	ID              uuid.UUID  `json:"id" db:"id"`
	Query           string     `json:"query" db:"query"`
	Status          string     `json:"status" db:"status"`
	Hypotheses      int        `json:"hypotheses" db:"hypotheses"`
	Validated       int        `json:"validated" db:"validated"`
	Recommendations int        `json:"recommendations" db:"recommendations"`
	ReportPath      string     `json:"report_path" db:"report_path"`
	ReportMarkdown  string     `json:"report_markdown,omitempty" db:"report_md"`
	StartedAt       time.Time  `json:"started_at" db:"started_at"`
	CompletedAt     *time.Time `json:"completed_at,omitempty" db:"completed_at"`
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
