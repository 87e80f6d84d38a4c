package schema

import (
	"fmt"

	"adlens/models"
)

// EnsureEvidence backfills a missing or partial evidence block on each
// evaluation. Numbers are lifted only from the evaluation's own
// statistical_measures; when they are absent the numeric fields stay null.
// Nothing here invents a number the model did not produce.
func EnsureEvidence(evals []models.Evaluation) []models.Evaluation {
	for i := range evals {
		ev := evals[i].Evidence
		if ev != nil && ev.Complete() {
			continue
		}
		if ev == nil {
			ev = &models.Evidence{}
			evals[i].Evidence = ev
		}
		measures := evals[i].StatisticalMeasures
		fill(&ev.BaselineValue, measures, "baseline_value")
		fill(&ev.CurrentValue, measures, "current_value")
		fill(&ev.AbsoluteDelta, measures, "absolute_delta")
		fill(&ev.RelativeDeltaPct, measures, "relative_delta_pct")

		// A partially filled block is worse than an explicitly null one.
		if ev.Partial() {
			ev.BaselineValue = nil
			ev.CurrentValue = nil
			ev.AbsoluteDelta = nil
			ev.RelativeDeltaPct = nil
		}
	}
	return evals
}

func fill(dst **float64, measures map[string]float64, key string) {
	if *dst != nil {
		return
	}
	if v, ok := measures[key]; ok {
		value := v
		*dst = &value
	}
}

// Qualifying returns the hypothesis IDs whose evaluations can legitimately
// back a recommendation: confirmed or partially confirmed, at or above the
// confidence threshold.
func Qualifying(evals []models.Evaluation, threshold float64) map[string]bool {
	ids := make(map[string]bool, len(evals))
	for _, e := range evals {
		if e.ValidationStatus.Qualifies() && e.Confidence >= threshold {
			ids[e.HypothesisID] = true
		}
	}
	return ids
}

// CheckLinkage audits recommendations against the qualifying evaluations.
// Recommendations are never dropped; every broken link becomes a warning so
// the report can surface it. It also returns the count of recommendations
// that both link to a qualifying evaluation and carry a diagnosed issue.
func CheckLinkage(recs []models.Recommendation, evals []models.Evaluation, threshold float64) (linked int, warnings []string) {
	qualifying := Qualifying(evals, threshold)

	for i := range recs {
		rec := &recs[i]
		label := rec.CampaignName
		if label == "" {
			label = fmt.Sprintf("recommendation %d", i)
		}

		switch {
		case rec.LinkedToInsight == "":
			warnings = append(warnings,
				fmt.Sprintf("%s: no linked_to_insight, not grounded in a validated hypothesis", label))
		case !qualifying[rec.LinkedToInsight]:
			warnings = append(warnings,
				fmt.Sprintf("%s: linked_to_insight %q does not match any validated hypothesis", label, rec.LinkedToInsight))
		default:
			if rec.HasDiagnosedIssue() {
				linked++
			} else {
				warnings = append(warnings,
					fmt.Sprintf("%s: linked to %s but carries no diagnosed issue", label, rec.LinkedToInsight))
			}
		}
	}
	return linked, warnings
}
