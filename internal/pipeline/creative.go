package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"adlens/ai"
	"adlens/internal/schema"
	"adlens/models"
)

// CreativeAgent proposes creative variations for the validated insights.
type CreativeAgent struct {
	llm     Completer
	prompts *ai.PromptLibrary
	now     func() time.Time
}

// NewCreativeAgent creates the recommendation agent.
func NewCreativeAgent(llm Completer, prompts *ai.PromptLibrary) *CreativeAgent {
	return &CreativeAgent{llm: llm, prompts: prompts, now: time.Now}
}

// Execute generates recommendations grounded in the qualifying evaluations.
// Every recommendation is audited for evidence linkage; broken links produce
// warnings in the output, never silent drops.
func (ca *CreativeAgent) Execute(ctx context.Context, query string, insights *models.InsightSet, evaluation *models.EvaluationSet) (*models.CreativeSet, error) {
	validated := validatedHypotheses(insights, evaluation)
	validatedJSON, err := json.MarshalIndent(validated, "", "  ")
	if err != nil {
		return nil, err
	}
	evaluationsJSON, err := json.MarshalIndent(evaluation.Evaluations, "", "  ")
	if err != nil {
		return nil, err
	}

	prompt, err := ca.prompts.Render("creative", map[string]string{
		"QUERY":       query,
		"HYPOTHESES":  string(validatedJSON),
		"EVALUATIONS": string(evaluationsJSON),
	})
	if err != nil {
		return nil, err
	}

	raw, err := ca.llm.Complete(ctx, prompt, "")
	if err != nil {
		return nil, fmt.Errorf("recommendation generation failed: %w", err)
	}

	record, err := extractValidated(raw, schema.Creatives, "CreativeAgent")
	if err != nil {
		return nil, err
	}

	set, err := ai.DecodeInto[models.CreativeSet](record)
	if err != nil {
		return nil, err
	}

	linked, warnings := schema.CheckLinkage(set.Recommendations, evaluation.Evaluations, evaluation.ConfidenceThreshold)
	set.TotalRecommendations = len(set.Recommendations)
	set.LinkedToInsights = linked
	set.LinkageWarnings = warnings
	set.GeneratedAt = ca.now().Format(time.RFC3339)

	for _, w := range warnings {
		log.Printf("[CreativeAgent] Linkage warning: %s", w)
	}
	log.Printf("[CreativeAgent] Generated %d recommendations, %d fully linked",
		set.TotalRecommendations, set.LinkedToInsights)
	return set, nil
}

// validatedHypotheses returns the hypotheses whose evaluations qualify at the
// configured threshold.
func validatedHypotheses(insights *models.InsightSet, evaluation *models.EvaluationSet) []models.Hypothesis {
	qualifying := schema.Qualifying(evaluation.Evaluations, evaluation.ConfidenceThreshold)
	var out []models.Hypothesis
	for _, h := range insights.Hypotheses {
		if qualifying[h.ID] {
			out = append(out, h)
		}
	}
	return out
}
