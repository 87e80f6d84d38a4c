package pipeline

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"adlens/models"
)

// Artifacts persists a run's outputs: the markdown report plus JSON exports of
// the insights and recommendations, all named by a shared timestamp.
type Artifacts struct {
	ReportsDir string
	now        func() time.Time
}

// NewArtifacts creates an artifact writer rooted at reportsDir.
func NewArtifacts(reportsDir string) *Artifacts {
	return &Artifacts{ReportsDir: reportsDir, now: time.Now}
}

// WithClock replaces the time source used for artifact naming.
func (a *Artifacts) WithClock(now func() time.Time) *Artifacts {
	a.now = now
	return a
}

// insightsExport is the on-disk shape of insights_<ts>.json: the query, the
// hypotheses and the full evaluation verdicts in one record, so a run's
// validated statuses and evidence stay inspectable without the database.
type insightsExport struct {
	Query          string                `json:"query"`
	Hypotheses     []models.Hypothesis   `json:"hypotheses"`
	InsightSummary string                `json:"insight_summary,omitempty"`
	Evaluation     *models.EvaluationSet `json:"evaluation,omitempty"`
}

// Save writes report_<ts>.md, insights_<ts>.json and creatives_<ts>.json and
// returns the report path. JSON exports are skipped when their state field is
// absent (a run aborted before that step produces no partial artifact).
func (a *Artifacts) Save(state *models.PipelineState, report string) (string, error) {
	if err := os.MkdirAll(a.ReportsDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create reports directory: %w", err)
	}
	ts := a.now().Format("20060102_150405")

	reportPath := filepath.Join(a.ReportsDir, fmt.Sprintf("report_%s.md", ts))
	if err := os.WriteFile(reportPath, []byte(report), 0o644); err != nil {
		return "", fmt.Errorf("failed to write report: %w", err)
	}
	log.Printf("[Artifacts] Report saved: %s", reportPath)

	if state.Insights != nil {
		export := insightsExport{
			Query:          state.Query,
			Hypotheses:     state.Insights.Hypotheses,
			InsightSummary: state.Insights.InsightSummary,
			Evaluation:     state.Evaluation,
		}
		if err := a.writeJSON(fmt.Sprintf("insights_%s.json", ts), export); err != nil {
			return reportPath, err
		}
	}
	if state.Creatives != nil {
		if err := a.writeJSON(fmt.Sprintf("creatives_%s.json", ts), state.Creatives); err != nil {
			return reportPath, err
		}
	}
	return reportPath, nil
}

func (a *Artifacts) writeJSON(name string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", name, err)
	}
	path := filepath.Join(a.ReportsDir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", name, err)
	}
	log.Printf("[Artifacts] Saved: %s", path)
	return nil
}
