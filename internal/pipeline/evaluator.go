package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"adlens/ai"
	"adlens/internal/schema"
	"adlens/models"
)

// Evaluator validates each hypothesis against the deterministic analysis and
// produces a verdict with quantitative evidence.
type Evaluator struct {
	llm       Completer
	prompts   *ai.PromptLibrary
	threshold float64
}

// NewEvaluator creates the hypothesis-validation agent.
func NewEvaluator(llm Completer, prompts *ai.PromptLibrary, confidenceThreshold float64) *Evaluator {
	return &Evaluator{llm: llm, prompts: prompts, threshold: confidenceThreshold}
}

// Execute evaluates the hypotheses. Unknown validation statuses are coerced to
// insufficient_data, evidence blocks are backfilled from each evaluation's own
// statistical measures, and the derived counts are recomputed locally rather
// than trusted from the model.
func (e *Evaluator) Execute(ctx context.Context, insights *models.InsightSet, analysis *models.Analysis) (*models.EvaluationSet, error) {
	hypothesesJSON, err := json.MarshalIndent(insights.Hypotheses, "", "  ")
	if err != nil {
		return nil, err
	}

	prompt, err := e.prompts.Render("evaluator", map[string]string{
		"HYPOTHESES": string(hypothesesJSON),
		"ANALYSIS":   analysis.RawAnalysis,
		"THRESHOLD":  fmt.Sprintf("%.2f", e.threshold),
	})
	if err != nil {
		return nil, err
	}

	raw, err := e.llm.Complete(ctx, prompt, "")
	if err != nil {
		return nil, fmt.Errorf("evaluation failed: %w", err)
	}

	record, err := extractValidated(raw, schema.Evaluator, "Evaluator")
	if err != nil {
		return nil, err
	}

	set, err := ai.DecodeInto[models.EvaluationSet](record)
	if err != nil {
		return nil, err
	}

	for i := range set.Evaluations {
		if !set.Evaluations[i].ValidationStatus.Known() {
			log.Printf("[Evaluator] Unknown validation status %q for %s, treating as insufficient_data",
				set.Evaluations[i].ValidationStatus, set.Evaluations[i].HypothesisID)
			set.Evaluations[i].ValidationStatus = models.StatusInsufficientData
		}
	}
	set.Evaluations = schema.EnsureEvidence(set.Evaluations)

	set.TotalEvaluated = len(set.Evaluations)
	set.ConfidenceThreshold = e.threshold
	set.ValidatedCount = 0
	set.RejectedCount = 0
	for _, ev := range set.Evaluations {
		switch {
		case ev.ValidationStatus.Qualifies() && ev.Confidence >= e.threshold:
			set.ValidatedCount++
		case ev.ValidationStatus == models.StatusRefuted:
			set.RejectedCount++
		}
	}

	// validated_insights is derived from the verdicts, never trusted from the
	// model's own list.
	qualifying := schema.Qualifying(set.Evaluations, e.threshold)
	set.ValidatedInsights = set.ValidatedInsights[:0]
	for _, ev := range set.Evaluations {
		if qualifying[ev.HypothesisID] {
			set.ValidatedInsights = append(set.ValidatedInsights, ev.HypothesisID)
		}
	}

	log.Printf("[Evaluator] Evaluated %d hypotheses: %d validated, %d rejected (threshold %.2f)",
		set.TotalEvaluated, set.ValidatedCount, set.RejectedCount, e.threshold)
	return set, nil
}
