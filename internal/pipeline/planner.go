package pipeline

import (
	"context"
	"fmt"
	"log"

	"adlens/ai"
	"adlens/internal/schema"
	"adlens/models"
)

// Planner decomposes a user query into subtasks for the downstream agents.
type Planner struct {
	llm     Completer
	prompts *ai.PromptLibrary
}

// NewPlanner creates the planning agent.
func NewPlanner(llm Completer, prompts *ai.PromptLibrary) *Planner {
	return &Planner{llm: llm, prompts: prompts}
}

// Execute produces the analysis plan for a query against the dataset summary.
func (p *Planner) Execute(ctx context.Context, query, dataSummary string) (*models.Plan, error) {
	prompt, err := p.prompts.Render("planner", map[string]string{
		"QUERY":        query,
		"DATA_SUMMARY": dataSummary,
	})
	if err != nil {
		return nil, err
	}

	raw, err := p.llm.Complete(ctx, prompt, "")
	if err != nil {
		return nil, fmt.Errorf("planning failed: %w", err)
	}

	record, err := extractValidated(raw, schema.Planner, "Planner")
	if err != nil {
		return nil, err
	}

	plan, err := ai.DecodeInto[models.Plan](record)
	if err != nil {
		return nil, err
	}

	plan.OriginalQuery = query
	plan.TotalSubtasks = len(plan.Subtasks)
	log.Printf("[Planner] Plan ready: %d subtasks, %d expected insights",
		plan.TotalSubtasks, len(plan.ExpectedInsights))
	return plan, nil
}
