// Package compare computes deterministic baseline-vs-current metric deltas
// over two row-sets of the ads dataset. Everything here is a pure function of
// its inputs so comparisons stay independently testable and can ground the
// model's reasoning in real numbers.
package compare

import (
	"fmt"
	"math"
	"strings"
	"time"

	"adlens/models"

	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/stat/distuv"
)

// Unit controls only how a metric renders; the compute path is unit-agnostic.
type Unit int

const (
	UnitRatio Unit = iota
	UnitCurrency
	UnitCount
)

// MetricDelta is one baseline-vs-current comparison line.
type MetricDelta struct {
	Metric           string  `json:"metric"`
	Unit             Unit    `json:"-"`
	Baseline         float64 `json:"baseline"`
	Current          float64 `json:"current"`
	AbsoluteDelta    float64 `json:"absolute_delta"`
	RelativeDeltaPct float64 `json:"relative_delta_pct"`
	// NewData marks a metric whose baseline is zero: no percentage change is
	// computable.
	NewData bool `json:"new_data,omitempty"`
	// Significant is set only for CTR, from a two-proportion z-test at 95%.
	Significant *bool `json:"significant,omitempty"`
}

// Comparison is the ordered result of comparing two windows.
type Comparison struct {
	Deltas          []MetricDelta `json:"deltas"`
	Insufficient    bool          `json:"insufficient,omitempty"`
	BaselineSamples int           `json:"baseline_samples"`
	CurrentSamples  int           `json:"current_samples"`
}

// Compare computes the fixed metric set {ROAS, CTR, Spend, Revenue,
// Impressions} across two row-sets. Either window empty yields an explicit
// insufficient-data marker instead of computing.
func Compare(baseline, current []models.AdRow) Comparison {
	if len(baseline) == 0 || len(current) == 0 {
		return Comparison{
			Insufficient:    true,
			BaselineSamples: len(baseline),
			CurrentSamples:  len(current),
		}
	}

	b := aggregate(baseline)
	c := aggregate(current)

	deltas := []MetricDelta{
		delta("ROAS", UnitRatio, b.roas, c.roas),
		delta("CTR", UnitRatio, b.ctrMean, c.ctrMean),
		delta("Spend", UnitCurrency, b.spend, c.spend),
		delta("Revenue", UnitCurrency, b.revenue, c.revenue),
		delta("Impressions", UnitCount, b.impressions, c.impressions),
	}

	if sig, ok := ctrSignificance(b, c); ok {
		deltas[1].Significant = &sig
	}

	return Comparison{
		Deltas:          deltas,
		BaselineSamples: len(baseline),
		CurrentSamples:  len(current),
	}
}

// SplitWindows partitions rows into two consecutive 7-day windows ending at
// the dataset's maximum date: baseline (max-14d, max-7d] and current
// (max-7d, max].
func SplitWindows(rows []models.AdRow) (baseline, current []models.AdRow) {
	if len(rows) == 0 {
		return nil, nil
	}
	maxDate := rows[0].Date
	for _, r := range rows[1:] {
		if r.Date.After(maxDate) {
			maxDate = r.Date
		}
	}
	currentStart := maxDate.AddDate(0, 0, -7)
	baselineStart := maxDate.AddDate(0, 0, -14)

	for _, r := range rows {
		switch {
		case r.Date.After(currentStart):
			current = append(current, r)
		case r.Date.After(baselineStart) && !r.Date.After(currentStart):
			baseline = append(baseline, r)
		}
	}
	return baseline, current
}

// Format renders a comparison the way reports and prompts consume it.
func Format(c Comparison, indent int) []string {
	pad := strings.Repeat("  ", indent)
	if c.Insufficient {
		return []string{pad + "Insufficient data for comparison"}
	}

	lines := make([]string, 0, len(c.Deltas)+1)
	for _, d := range c.Deltas {
		lines = append(lines, pad+d.String())
	}
	lines = append(lines, fmt.Sprintf("%sSample Size: %d → %d", pad, c.BaselineSamples, c.CurrentSamples))
	return lines
}

// String renders one delta line with unit-appropriate formatting.
func (d MetricDelta) String() string {
	if d.NewData {
		return fmt.Sprintf("%s: N/A → %s (new data)", d.Metric, d.value(d.Current))
	}
	line := fmt.Sprintf("%s: %s → %s (Δ %s, %+.1f%%)",
		d.Metric, d.value(d.Baseline), d.value(d.Current), d.signedValue(d.AbsoluteDelta), d.RelativeDeltaPct)
	if d.Significant != nil {
		if *d.Significant {
			line += " [significant]"
		} else {
			line += " [not significant]"
		}
	}
	return line
}

func (d MetricDelta) value(v float64) string {
	switch d.Unit {
	case UnitCurrency:
		return fmt.Sprintf("$%.2f", v)
	case UnitCount:
		return fmt.Sprintf("%.0f", v)
	default:
		return fmt.Sprintf("%.4f", v)
	}
}

func (d MetricDelta) signedValue(v float64) string {
	switch d.Unit {
	case UnitCurrency:
		return fmt.Sprintf("$%+.2f", v)
	case UnitCount:
		return fmt.Sprintf("%+.0f", v)
	default:
		return fmt.Sprintf("%+.4f", v)
	}
}

type windowStats struct {
	spend       float64
	revenue     float64
	impressions float64
	clicks      float64
	ctrMean     float64
	roas        float64
	rows        int
}

func aggregate(rows []models.AdRow) windowStats {
	spend := make([]float64, len(rows))
	revenue := make([]float64, len(rows))
	impressions := make([]float64, len(rows))
	clicks := make([]float64, len(rows))
	ctr := make([]float64, len(rows))
	for i, r := range rows {
		spend[i] = r.Spend
		revenue[i] = r.Revenue
		impressions[i] = r.Impressions
		clicks[i] = r.Clicks
		ctr[i] = r.CTR
	}

	w := windowStats{rows: len(rows)}
	w.spend, _ = stats.Sum(spend)
	w.revenue, _ = stats.Sum(revenue)
	w.impressions, _ = stats.Sum(impressions)
	w.clicks, _ = stats.Sum(clicks)
	w.ctrMean, _ = stats.Mean(ctr)
	if w.spend > 0 {
		w.roas = w.revenue / w.spend
	}
	return w
}

func delta(metric string, unit Unit, baseline, current float64) MetricDelta {
	d := MetricDelta{Metric: metric, Unit: unit, Baseline: baseline, Current: current}
	if baseline == 0 {
		d.NewData = true
		return d
	}
	d.AbsoluteDelta = current - baseline
	d.RelativeDeltaPct = 100 * d.AbsoluteDelta / baseline
	return d
}

// ctrSignificance runs a two-proportion z-test on pooled click-through
// counts. Returns ok=false when either window lacks impressions.
func ctrSignificance(b, c windowStats) (significant, ok bool) {
	if b.impressions <= 0 || c.impressions <= 0 {
		return false, false
	}
	p1 := b.clicks / b.impressions
	p2 := c.clicks / c.impressions
	pooled := (b.clicks + c.clicks) / (b.impressions + c.impressions)
	se := math.Sqrt(pooled * (1 - pooled) * (1/b.impressions + 1/c.impressions))
	if se == 0 {
		return false, false
	}
	z := (p2 - p1) / se
	normal := distuv.Normal{Mu: 0, Sigma: 1}
	pValue := 2 * normal.Survival(math.Abs(z))
	return pValue < 0.05, true
}

// WindowBounds describes the date ranges used by SplitWindows, for report
// headers.
func WindowBounds(rows []models.AdRow) (baselineStart, baselineEnd, currentEnd time.Time, ok bool) {
	if len(rows) == 0 {
		return time.Time{}, time.Time{}, time.Time{}, false
	}
	maxDate := rows[0].Date
	for _, r := range rows[1:] {
		if r.Date.After(maxDate) {
			maxDate = r.Date
		}
	}
	return maxDate.AddDate(0, 0, -14), maxDate.AddDate(0, 0, -7), maxDate, true
}
