package testkit

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateRowsIsDeterministic(t *testing.T) {
	cfg := DefaultAdsConfig()
	first := NewAdsDataGenerator(cfg).GenerateRows()
	second := NewAdsDataGenerator(cfg).GenerateRows()
	assert.Equal(t, first, second)
}

func TestGenerateRowsShape(t *testing.T) {
	cfg := DefaultAdsConfig()
	rows := NewAdsDataGenerator(cfg).GenerateRows()
	require.Len(t, rows, cfg.CampaignCount*cfg.Days)

	campaigns := map[string]int{}
	for _, r := range rows {
		campaigns[r.CampaignName]++
		assert.False(t, r.Date.After(cfg.EndDate))
		assert.Greater(t, r.Spend, 0.0)
		assert.GreaterOrEqual(t, r.CTR, 0.0)
		assert.LessOrEqual(t, r.CTR, 1.0)
	}
	assert.Len(t, campaigns, cfg.CampaignCount)
}

func TestFirstCampaignRegressesInSecondWeek(t *testing.T) {
	rows := NewAdsDataGenerator(DefaultAdsConfig()).GenerateRows()

	var earlyROAS, lateROAS float64
	var early, late int
	for _, r := range rows {
		if r.CampaignName != "Campaign A" {
			continue
		}
		if r.Date.Before(DefaultAdsConfig().EndDate.AddDate(0, 0, -6)) {
			earlyROAS += r.ROAS
			early++
		} else {
			lateROAS += r.ROAS
			late++
		}
	}
	require.Positive(t, early)
	require.Positive(t, late)
	assert.Greater(t, earlyROAS/float64(early), lateROAS/float64(late),
		"Campaign A should trend down so comparisons find a regression")
}
