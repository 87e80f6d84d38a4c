package pipeline

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"adlens/models"
)

func adRow(campaign string, day int, spend, impressions, clicks, revenue float64) models.AdRow {
	return models.AdRow{
		CampaignName: campaign,
		Date:         time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, day),
		Spend:        spend,
		Impressions:  impressions,
		Clicks:       clicks,
		Revenue:      revenue,
		CreativeType: "video",
		Platform:     "facebook",
	}
}

func TestLowCTRCampaigns(t *testing.T) {
	rows := []models.AdRow{
		adRow("Weak", 0, 100, 10000, 50, 100),    // CTR 0.005
		adRow("Weaker", 0, 100, 10000, 20, 100),  // CTR 0.002
		adRow("Healthy", 0, 100, 10000, 300, 100), // CTR 0.03
	}

	low := LowCTRCampaigns(rows, 0.01)
	assert.Equal(t, []string{"Weaker", "Weak"}, low, "worst CTR first")
}

func TestTopPerformers(t *testing.T) {
	rows := []models.AdRow{
		adRow("Winner", 0, 100, 1000, 20, 400),  // ROAS 4.0
		adRow("Break-even", 0, 100, 1000, 20, 100), // ROAS 1.0
		adRow("Loser", 0, 100, 1000, 20, 50),    // ROAS 0.5
	}

	top := TopPerformers(rows, 1.0)
	assert.Equal(t, []string{"Winner", "Break-even"}, top, "highest ROAS first, threshold inclusive")
}

func TestBuildRawAnalysisCoversAllGranularities(t *testing.T) {
	var rows []models.AdRow
	for d := 0; d < 14; d++ {
		rows = append(rows, adRow("Campaign A", d, 100, 10000, 200, 250))
		rows = append(rows, adRow("Campaign B", d, 50, 5000, 40, 30))
	}

	a := NewAnalyst(nil, nil, 0.01, 1.0)
	text := a.buildRawAnalysis(rows)

	assert.Contains(t, text, "=== Overall Performance")
	assert.Contains(t, text, "=== Top Campaigns by Spend ===")
	assert.Contains(t, text, "Campaign: Campaign A")
	assert.Contains(t, text, "=== By Creative Type ===")
	assert.Contains(t, text, "=== By Platform ===")
	assert.Contains(t, text, "ROAS:")
	assert.Contains(t, text, "Sample Size:")

	// Campaign B runs at CTR 0.008 and ROAS 0.6, so the callouts fire.
	assert.Contains(t, text, "Campaigns Below CTR Threshold")
	assert.Contains(t, text, "Campaigns Above ROAS Threshold")
	require.Contains(t, text, "- Campaign B")
	assert.Contains(t, text, "- Campaign A")
}
