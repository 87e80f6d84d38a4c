// Package pipeline runs the analysis workflow: plan, analyze, hypothesize,
// evaluate, recommend, report. Each step is a small agent that renders a
// prompt, calls the completion client and decodes the structured response;
// the orchestrator sequences them over a shared PipelineState.
package pipeline

import (
	"context"
	"log"
	"strings"

	"adlens/ai"
	"adlens/internal/schema"
)

// Completer is the single capability agents need from the completion client.
type Completer interface {
	Complete(ctx context.Context, prompt, system string) (string, error)
}

// extractValidated parses a model response into a record and checks it against
// the step's schema. Validation issues are logged, never fatal: a partially
// valid record still moves the pipeline forward.
func extractValidated(raw string, s schema.Schema, component string) (map[string]any, error) {
	record, err := ai.Extract(raw)
	if err != nil {
		return nil, err
	}
	if ok, issues := schema.Validate(record, s); !ok {
		log.Printf("[%s] Output schema issues: %s", component, strings.Join(issues, "; "))
	}
	return record, nil
}
