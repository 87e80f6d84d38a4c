// Package schema checks structured agent outputs against declared shapes and
// enforces evidence-linkage invariants. Mismatches are reported as issues,
// never raised: a partially valid record is still usable downstream.
package schema

import (
	"fmt"

	"adlens/models"
)

// ListSchema describes a list-valued field whose items carry required fields.
type ListSchema struct {
	Field     string
	ItemLabel string
	Required  []string
	// Nested lists inside each item (e.g. creative variations inside a
	// recommendation).
	Nested []ListSchema
}

// Schema declares the expected shape of one agent's output record.
type Schema struct {
	Version  string
	Required []string
	Lists    []ListSchema
}

// Planner validates the planning step's output.
var Planner = Schema{
	Version:  models.SchemaVersion,
	Required: []string{"query_understanding", "required_metrics", "subtasks", "expected_insights"},
	Lists: []ListSchema{{
		Field:     "subtasks",
		ItemLabel: "Subtask",
		Required:  []string{"task_id", "description", "assigned_agent", "priority", "dependencies"},
	}},
}

// Analysis validates the data-analysis step's output.
var Analysis = Schema{
	Version:  models.SchemaVersion,
	Required: []string{"key_findings"},
	Lists: []ListSchema{{
		Field:     "key_findings",
		ItemLabel: "Finding",
		Required:  []string{"finding"},
	}},
}

// Insights validates the hypothesis-generation step's output.
var Insights = Schema{
	Version:  models.SchemaVersion,
	Required: []string{"hypotheses"},
	Lists: []ListSchema{{
		Field:     "hypotheses",
		ItemLabel: "Hypothesis",
		Required: []string{
			"hypothesis_id", "title", "description", "supporting_evidence",
			"affected_segments", "confidence", "testable",
		},
	}},
}

// Evaluator validates the hypothesis-validation step's output.
var Evaluator = Schema{
	Version:  models.SchemaVersion,
	Required: []string{"evaluations", "validated_insights"},
	Lists: []ListSchema{{
		Field:     "evaluations",
		ItemLabel: "Evaluation",
		Required: []string{
			"hypothesis_id", "validation_status", "confidence",
			"evidence_summary", "reasoning", "reliability",
		},
	}},
}

// Creatives validates the recommendation step's output.
var Creatives = Schema{
	Version:  models.SchemaVersion,
	Required: []string{"recommendations"},
	Lists: []ListSchema{{
		Field:     "recommendations",
		ItemLabel: "Recommendation",
		Required:  []string{"campaign_name", "creative_variations"},
		Nested: []ListSchema{{
			Field:     "creative_variations",
			ItemLabel: "Variation",
			Required: []string{
				"creative_type", "headline", "message", "cta",
				"rationale", "expected_improvement",
			},
		}},
	}},
}

// Validate checks a record against a schema. It never fails hard: the issue
// list names every missing field with its container index for traceability.
func Validate(record map[string]any, s Schema) (bool, []string) {
	var issues []string

	if declared, ok := record["schema_version"].(string); ok && declared != s.Version {
		issues = append(issues,
			fmt.Sprintf("schema version mismatch: record has %s, expected %s", declared, s.Version))
	}

	for _, field := range s.Required {
		if _, ok := record[field]; !ok {
			issues = append(issues, fmt.Sprintf("missing required field: %s", field))
		}
	}

	for _, list := range s.Lists {
		issues = append(issues, validateList(record, list, "")...)
	}

	return len(issues) == 0, issues
}

func validateList(container map[string]any, list ListSchema, prefix string) []string {
	items, ok := container[list.Field].([]any)
	if !ok {
		return nil
	}

	var issues []string
	for i, raw := range items {
		item, ok := raw.(map[string]any)
		if !ok {
			issues = append(issues, fmt.Sprintf("%s%s %d: not a structured record", prefix, list.ItemLabel, i))
			continue
		}
		for _, field := range list.Required {
			if _, present := item[field]; !present {
				// confidence_score is a deprecated alias still accepted on input.
				if field == "confidence" {
					if _, aliased := item["confidence_score"]; aliased {
						continue
					}
				}
				issues = append(issues,
					fmt.Sprintf("%s%s %d: missing required field '%s'", prefix, list.ItemLabel, i, field))
			}
		}
		for _, nested := range list.Nested {
			nestedPrefix := fmt.Sprintf("%s%s %d, ", prefix, list.ItemLabel, i)
			issues = append(issues, validateList(item, nested, nestedPrefix)...)
		}
	}
	return issues
}
