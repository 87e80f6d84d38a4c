package pipeline

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"

	"adlens/ai"
	"adlens/internal/compare"
	"adlens/internal/schema"
	"adlens/models"
)

// Analyst computes deterministic period comparisons over the dataset and asks
// the model to interpret them. The numbers in the raw analysis come from the
// compare package, not the model, so findings stay grounded in real deltas.
type Analyst struct {
	llm     Completer
	prompts *ai.PromptLibrary

	lowCTRThreshold  float64
	lowROASThreshold float64
}

// NewAnalyst creates the analysis agent.
func NewAnalyst(llm Completer, prompts *ai.PromptLibrary, lowCTR, lowROAS float64) *Analyst {
	return &Analyst{
		llm:              llm,
		prompts:          prompts,
		lowCTRThreshold:  lowCTR,
		lowROASThreshold: lowROAS,
	}
}

// Execute builds the period-comparison breakdown and extracts key findings.
func (a *Analyst) Execute(ctx context.Context, query string, rows []models.AdRow) (*models.Analysis, error) {
	rawAnalysis := a.buildRawAnalysis(rows)

	prompt, err := a.prompts.Render("data_analysis", map[string]string{
		"QUERY":    query,
		"ANALYSIS": rawAnalysis,
	})
	if err != nil {
		return nil, err
	}

	raw, err := a.llm.Complete(ctx, prompt, "")
	if err != nil {
		return nil, fmt.Errorf("analysis failed: %w", err)
	}

	record, err := extractValidated(raw, schema.Analysis, "Analyst")
	if err != nil {
		return nil, err
	}

	analysis, err := ai.DecodeInto[models.Analysis](record)
	if err != nil {
		return nil, err
	}

	analysis.RawAnalysis = rawAnalysis
	log.Printf("[Analyst] Analysis complete: %d key findings", len(analysis.KeyFindings))
	return analysis, nil
}

// buildRawAnalysis renders period comparisons at four granularities plus the
// threshold-based campaign callouts.
func (a *Analyst) buildRawAnalysis(rows []models.AdRow) string {
	baseline, current := compare.SplitWindows(rows)

	var b strings.Builder
	b.WriteString("=== Overall Performance (current 7 days vs prior 7 days) ===\n")
	writeComparison(&b, compare.Compare(baseline, current), 0)

	b.WriteString("\n=== Top Campaigns by Spend ===\n")
	for _, name := range topCampaignsBySpend(rows, 5) {
		b.WriteString(fmt.Sprintf("Campaign: %s\n", name))
		cb, cc := filterRows(baseline, current, func(r models.AdRow) bool { return r.CampaignName == name })
		writeComparison(&b, compare.Compare(cb, cc), 1)
	}

	b.WriteString("\n=== By Creative Type ===\n")
	for _, ct := range distinctValues(rows, func(r models.AdRow) string { return r.CreativeType }) {
		b.WriteString(fmt.Sprintf("Creative Type: %s\n", ct))
		cb, cc := filterRows(baseline, current, func(r models.AdRow) bool { return r.CreativeType == ct })
		writeComparison(&b, compare.Compare(cb, cc), 1)
	}

	b.WriteString("\n=== By Platform ===\n")
	for _, p := range distinctValues(rows, func(r models.AdRow) string { return r.Platform }) {
		b.WriteString(fmt.Sprintf("Platform: %s\n", p))
		pb, pc := filterRows(baseline, current, func(r models.AdRow) bool { return r.Platform == p })
		writeComparison(&b, compare.Compare(pb, pc), 1)
	}

	if low := LowCTRCampaigns(rows, a.lowCTRThreshold); len(low) > 0 {
		b.WriteString(fmt.Sprintf("\n=== Campaigns Below CTR Threshold (%.4f) ===\n", a.lowCTRThreshold))
		for _, name := range low {
			b.WriteString("- " + name + "\n")
		}
	}
	if top := TopPerformers(rows, a.lowROASThreshold); len(top) > 0 {
		b.WriteString(fmt.Sprintf("\n=== Campaigns Above ROAS Threshold (%.2f) ===\n", a.lowROASThreshold))
		for _, name := range top {
			b.WriteString("- " + name + "\n")
		}
	}
	return b.String()
}

func writeComparison(b *strings.Builder, c compare.Comparison, indent int) {
	for _, line := range compare.Format(c, indent) {
		b.WriteString(line + "\n")
	}
}

func filterRows(baseline, current []models.AdRow, keep func(models.AdRow) bool) (fb, fc []models.AdRow) {
	for _, r := range baseline {
		if keep(r) {
			fb = append(fb, r)
		}
	}
	for _, r := range current {
		if keep(r) {
			fc = append(fc, r)
		}
	}
	return fb, fc
}

func topCampaignsBySpend(rows []models.AdRow, limit int) []string {
	spend := map[string]float64{}
	for _, r := range rows {
		spend[r.CampaignName] += r.Spend
	}
	names := make([]string, 0, len(spend))
	for name := range spend {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		if spend[names[i]] != spend[names[j]] {
			return spend[names[i]] > spend[names[j]]
		}
		return names[i] < names[j]
	})
	if len(names) > limit {
		names = names[:limit]
	}
	return names
}

func distinctValues(rows []models.AdRow, key func(models.AdRow) string) []string {
	seen := map[string]bool{}
	var values []string
	for _, r := range rows {
		v := key(r)
		if v == "" || v == "unknown" || seen[v] {
			continue
		}
		seen[v] = true
		values = append(values, v)
	}
	sort.Strings(values)
	return values
}

// LowCTRCampaigns returns campaigns whose aggregate CTR falls below the
// threshold, sorted ascending by CTR so the worst offenders lead.
func LowCTRCampaigns(rows []models.AdRow, threshold float64) []string {
	clicks := map[string]float64{}
	impressions := map[string]float64{}
	for _, r := range rows {
		clicks[r.CampaignName] += r.Clicks
		impressions[r.CampaignName] += r.Impressions
	}

	ctr := map[string]float64{}
	var names []string
	for name, imp := range impressions {
		if imp <= 0 {
			continue
		}
		rate := clicks[name] / imp
		if rate < threshold {
			ctr[name] = rate
			names = append(names, name)
		}
	}
	sort.Slice(names, func(i, j int) bool {
		if ctr[names[i]] != ctr[names[j]] {
			return ctr[names[i]] < ctr[names[j]]
		}
		return names[i] < names[j]
	})
	return names
}

// TopPerformers returns campaigns whose aggregate ROAS clears the threshold,
// sorted descending by ROAS.
func TopPerformers(rows []models.AdRow, threshold float64) []string {
	spend := map[string]float64{}
	revenue := map[string]float64{}
	for _, r := range rows {
		spend[r.CampaignName] += r.Spend
		revenue[r.CampaignName] += r.Revenue
	}

	roas := map[string]float64{}
	var names []string
	for name, s := range spend {
		if s <= 0 {
			continue
		}
		ratio := revenue[name] / s
		if ratio >= threshold {
			roas[name] = ratio
			names = append(names, name)
		}
	}
	sort.Slice(names, func(i, j int) bool {
		if roas[names[i]] != roas[names[j]] {
			return roas[names[i]] > roas[names[j]]
		}
		return names[i] < names[j]
	})
	return names
}
