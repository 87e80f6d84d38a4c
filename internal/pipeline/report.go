package pipeline

import (
	"fmt"
	"strings"
	"time"

	"adlens/models"
)

// BuildReport assembles the final markdown report from the completed pipeline
// state. The report only presents what earlier steps produced; no numbers are
// computed here.
func BuildReport(state *models.PipelineState, generatedAt time.Time) string {
	var b strings.Builder

	b.WriteString("# Ads Performance Analysis Report\n\n")
	b.WriteString(fmt.Sprintf("**Generated:** %s\n", generatedAt.Format("2006-01-02 15:04:05")))
	b.WriteString(fmt.Sprintf("**Run ID:** %s\n", state.RunID))
	b.WriteString(fmt.Sprintf("**Query:** %s\n\n", state.Query))

	writeExecutiveSummary(&b, state)
	writeValidatedInsights(&b, state)
	writeHypotheses(&b, state)
	writeRecommendations(&b, state)

	if state.DataSummary != "" {
		b.WriteString("## Data Summary\n\n```\n")
		b.WriteString(state.DataSummary)
		b.WriteString("\n```\n")
	}
	return b.String()
}

func writeExecutiveSummary(b *strings.Builder, state *models.PipelineState) {
	b.WriteString("## Executive Summary\n\n")

	hypotheses, validated, recommendations := 0, 0, 0
	if state.Insights != nil {
		hypotheses = len(state.Insights.Hypotheses)
	}
	if state.Evaluation != nil {
		validated = state.Evaluation.ValidatedCount
	}
	if state.Creatives != nil {
		recommendations = state.Creatives.TotalRecommendations
	}
	b.WriteString(fmt.Sprintf(
		"The analysis generated %d hypotheses, of which %d were validated against the data. %d creative recommendations were produced.\n\n",
		hypotheses, validated, recommendations))

	if state.Evaluation != nil && state.Evaluation.OverallAssessment != "" {
		b.WriteString(state.Evaluation.OverallAssessment + "\n\n")
	}
}

func writeValidatedInsights(b *strings.Builder, state *models.PipelineState) {
	if state.Evaluation == nil {
		return
	}
	b.WriteString("## Validated Insights\n\n")

	qualifying := 0
	for _, ev := range state.Evaluation.Evaluations {
		if !ev.ValidationStatus.Qualifies() || ev.Confidence < state.Evaluation.ConfidenceThreshold {
			continue
		}
		qualifying++
		title := ev.HypothesisID
		if h := findHypothesis(state, ev.HypothesisID); h != nil {
			title = h.Title
		}
		b.WriteString(fmt.Sprintf("### %s\n\n", title))
		b.WriteString(fmt.Sprintf("- **Status:** %s (confidence %.2f)\n", ev.ValidationStatus, ev.Confidence))
		if ev.EvidenceSummary != "" {
			b.WriteString(fmt.Sprintf("- **Evidence:** %s\n", ev.EvidenceSummary))
		}
		if ev.Evidence != nil && ev.Evidence.Complete() {
			b.WriteString(fmt.Sprintf("- **%s (%s):** %.4f → %.4f (Δ %.4f, %+.1f%%)\n",
				ev.Evidence.MetricName, ev.Evidence.Segment,
				*ev.Evidence.BaselineValue, *ev.Evidence.CurrentValue,
				*ev.Evidence.AbsoluteDelta, *ev.Evidence.RelativeDeltaPct))
		}
		if ev.Reasoning != "" {
			b.WriteString(fmt.Sprintf("- **Reasoning:** %s\n", ev.Reasoning))
		}
		b.WriteString("\n")
	}
	if qualifying == 0 {
		b.WriteString("No hypotheses cleared the confidence threshold.\n\n")
	}
}

func writeHypotheses(b *strings.Builder, state *models.PipelineState) {
	if state.Insights == nil || len(state.Insights.Hypotheses) == 0 {
		return
	}
	b.WriteString("## Hypotheses\n\n")
	for _, h := range state.Insights.Hypotheses {
		b.WriteString(fmt.Sprintf("- **%s** (%s, confidence %.2f): %s\n", h.Title, h.ID, h.Confidence, h.Description))
	}
	b.WriteString("\n")
}

func writeRecommendations(b *strings.Builder, state *models.PipelineState) {
	if state.Creatives == nil || len(state.Creatives.Recommendations) == 0 {
		return
	}
	b.WriteString("## Creative Recommendations\n\n")

	recs := state.Creatives.Recommendations
	if len(recs) > 3 {
		recs = recs[:3]
	}
	for _, rec := range recs {
		b.WriteString(fmt.Sprintf("### %s\n\n", rec.CampaignName))
		if rec.HasDiagnosedIssue() {
			b.WriteString(fmt.Sprintf("**Diagnosed issue:** %s\n\n", issueText(rec.DiagnosedIssue)))
		}
		if rec.LinkedToInsight != "" {
			b.WriteString(fmt.Sprintf("**Linked insight:** %s\n\n", rec.LinkedToInsight))
		}

		variants := rec.CreativeVariations
		if len(variants) > 2 {
			variants = variants[:2]
		}
		for i, v := range variants {
			b.WriteString(fmt.Sprintf("**Variation %d (%s)**\n", i+1, v.CreativeType))
			b.WriteString(fmt.Sprintf("- Headline: %s\n", v.Headline))
			b.WriteString(fmt.Sprintf("- Message: %s\n", v.Message))
			b.WriteString(fmt.Sprintf("- CTA: %s\n", v.CTA))
			b.WriteString(fmt.Sprintf("- Rationale: %s\n", v.Rationale))
			b.WriteString(fmt.Sprintf("- Expected improvement: %s\n\n", v.ExpectedImprovement))
		}
	}

	if len(state.Creatives.LinkageWarnings) > 0 {
		b.WriteString("**Linkage warnings:**\n\n")
		for _, w := range state.Creatives.LinkageWarnings {
			b.WriteString("- " + w + "\n")
		}
		b.WriteString("\n")
	}
}

func issueText(issue *models.DiagnosedIssue) string {
	if issue.Metric != "" && issue.Baseline != nil && issue.Current != nil {
		return fmt.Sprintf("%s moved %.4f → %.4f", issue.Metric, *issue.Baseline, *issue.Current)
	}
	return issue.Summary
}

func findHypothesis(state *models.PipelineState, id string) *models.Hypothesis {
	if state.Insights == nil {
		return nil
	}
	for i := range state.Insights.Hypotheses {
		if state.Insights.Hypotheses[i].ID == id {
			return &state.Insights.Hypotheses[i]
		}
	}
	return nil
}
