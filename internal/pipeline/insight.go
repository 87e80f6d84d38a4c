package pipeline

import (
	"context"
	"fmt"
	"log"

	"adlens/ai"
	"adlens/internal/schema"
	"adlens/models"
)

// InsightAgent turns analysis findings into testable hypotheses.
type InsightAgent struct {
	llm     Completer
	prompts *ai.PromptLibrary
}

// NewInsightAgent creates the hypothesis-generation agent.
func NewInsightAgent(llm Completer, prompts *ai.PromptLibrary) *InsightAgent {
	return &InsightAgent{llm: llm, prompts: prompts}
}

// Execute generates hypotheses from the analysis. Hypotheses arriving without
// an ID are assigned a stable sequential one so downstream linkage can refer
// to them.
func (ia *InsightAgent) Execute(ctx context.Context, query string, analysis *models.Analysis) (*models.InsightSet, error) {
	prompt, err := ia.prompts.Render("insight", map[string]string{
		"QUERY":    query,
		"FINDINGS": findingsText(analysis),
		"ANALYSIS": analysis.RawAnalysis,
	})
	if err != nil {
		return nil, err
	}

	raw, err := ia.llm.Complete(ctx, prompt, "")
	if err != nil {
		return nil, fmt.Errorf("hypothesis generation failed: %w", err)
	}

	record, err := extractValidated(raw, schema.Insights, "InsightAgent")
	if err != nil {
		return nil, err
	}

	insights, err := ai.DecodeInto[models.InsightSet](record)
	if err != nil {
		return nil, err
	}

	for i := range insights.Hypotheses {
		if insights.Hypotheses[i].ID == "" {
			insights.Hypotheses[i].ID = fmt.Sprintf("hyp_%d", i+1)
		}
	}
	log.Printf("[InsightAgent] Generated %d hypotheses", len(insights.Hypotheses))
	return insights, nil
}

func findingsText(analysis *models.Analysis) string {
	text := ""
	for _, f := range analysis.KeyFindings {
		text += "- " + f.Finding
		if f.Evidence != "" {
			text += " (evidence: " + f.Evidence + ")"
		}
		text += "\n"
	}
	return text
}
