package dataset

import (
	"fmt"
	"time"

	"adlens/models"
)

// QualityReport summarizes dataset health after cleaning.
type QualityReport struct {
	TotalRows  int                `json:"total_rows"`
	ZeroValues map[string]int     `json:"zero_values,omitempty"`
	DateRange  *DateRange         `json:"date_range,omitempty"`
	Campaigns  int                `json:"campaigns"`
	Totals     map[string]float64 `json:"totals"`
	// Score is 0-100: the share of key metric cells carrying a non-zero value.
	Score float64 `json:"data_quality_score"`
}

// DateRange is the inclusive span of the dataset.
type DateRange struct {
	Min  string `json:"min"`
	Max  string `json:"max"`
	Days int    `json:"days"`
}

// Quality computes a data quality report over cleaned rows.
func Quality(rows []models.AdRow) QualityReport {
	report := QualityReport{
		TotalRows:  len(rows),
		ZeroValues: map[string]int{},
		Totals:     map[string]float64{},
	}
	if len(rows) == 0 {
		return report
	}

	campaigns := map[string]bool{}
	minDate, maxDate := rows[0].Date, rows[0].Date
	zeroCells, totalCells := 0, 0

	for _, r := range rows {
		campaigns[r.CampaignName] = true
		if r.Date.Before(minDate) {
			minDate = r.Date
		}
		if r.Date.After(maxDate) {
			maxDate = r.Date
		}

		for col, v := range map[string]float64{
			"spend":       r.Spend,
			"impressions": r.Impressions,
			"clicks":      r.Clicks,
			"revenue":     r.Revenue,
		} {
			totalCells++
			if v == 0 {
				zeroCells++
				report.ZeroValues[col]++
			}
			report.Totals[col] += v
		}
	}

	report.Campaigns = len(campaigns)
	report.DateRange = &DateRange{
		Min:  minDate.Format("2006-01-02"),
		Max:  maxDate.Format("2006-01-02"),
		Days: int(maxDate.Sub(minDate) / (24 * time.Hour)),
	}
	report.Score = 100 * float64(totalCells-zeroCells) / float64(totalCells)
	return report
}

// Summary returns the high-level dataset overview handed to the agents.
func Summary(rows []models.AdRow) string {
	if len(rows) == 0 {
		return "Dataset Overview: no rows"
	}

	q := Quality(rows)
	totalSpend := q.Totals["spend"]
	totalRevenue := q.Totals["revenue"]
	roas := 0.0
	if totalSpend > 0 {
		roas = totalRevenue / totalSpend
	}

	ctrSum := 0.0
	creativeTypes := map[string]bool{}
	platforms := map[string]bool{}
	countries := map[string]bool{}
	adsets := map[string]bool{}
	for _, r := range rows {
		ctrSum += r.CTR
		creativeTypes[r.CreativeType] = true
		platforms[r.Platform] = true
		countries[r.Country] = true
		adsets[r.AdsetName] = true
	}

	return fmt.Sprintf(`Dataset Overview:
- Total Records: %d
- Date Range: %s to %s
- Unique Campaigns: %d
- Unique Adsets: %d
- Total Spend: $%.2f
- Total Revenue: $%.2f
- Overall ROAS: %.2f
- Avg CTR: %.4f
- Creative Types: %d
- Platforms: %d
- Countries: %d`,
		len(rows), q.DateRange.Min, q.DateRange.Max,
		q.Campaigns, len(adsets),
		totalSpend, totalRevenue, roas, ctrSum/float64(len(rows)),
		len(creativeTypes), len(platforms), len(countries))
}
