// Package testkit generates deterministic synthetic ads datasets for tests.
package testkit

import (
	"fmt"
	"math/rand"
	"time"

	"adlens/models"
)

// AdsGeneratorConfig configures the synthetic ads data generator
type AdsGeneratorConfig struct {
	CampaignCount int       `json:"campaign_count"`
	Days          int       `json:"days"`
	EndDate       time.Time `json:"end_date"`
	Seed          int64     `json:"seed"`
}

// DefaultAdsConfig returns sensible defaults: 3 campaigns over two full weeks,
// which is exactly what the period comparator needs.
func DefaultAdsConfig() AdsGeneratorConfig {
	return AdsGeneratorConfig{
		CampaignCount: 3,
		Days:          14,
		EndDate:       time.Date(2024, 3, 14, 0, 0, 0, 0, time.UTC),
		Seed:          42,
	}
}

// AdsDataGenerator generates daily campaign rows with a seeded RNG so tests
// get the same dataset every run.
type AdsDataGenerator struct {
	config AdsGeneratorConfig
	rng    *rand.Rand
}

// NewAdsDataGenerator creates a new ads data generator
func NewAdsDataGenerator(config AdsGeneratorConfig) *AdsDataGenerator {
	return &AdsDataGenerator{
		config: config,
		rng:    rand.New(rand.NewSource(config.Seed)),
	}
}

var creativeTypes = []string{"video", "static", "carousel"}
var platforms = []string{"facebook", "instagram"}

// GenerateRows produces one row per campaign per day. The first campaign
// trends downward in the second week so comparisons have a real regression to
// find; the rest hold steady with noise.
func (g *AdsDataGenerator) GenerateRows() []models.AdRow {
	var rows []models.AdRow
	start := g.config.EndDate.AddDate(0, 0, -(g.config.Days - 1))

	for c := 0; c < g.config.CampaignCount; c++ {
		name := fmt.Sprintf("Campaign %c", 'A'+c)
		baseSpend := 100.0 + 50.0*float64(c)
		baseCTR := 0.02 + 0.005*float64(c)
		baseROAS := 2.0 + 0.5*float64(c)

		for d := 0; d < g.config.Days; d++ {
			date := start.AddDate(0, 0, d)

			decay := 1.0
			if c == 0 && d >= g.config.Days/2 {
				decay = 0.6
			}

			spend := baseSpend * g.jitter(0.1)
			impressions := float64(int(spend * 100 * g.jitter(0.1)))
			clicks := float64(int(impressions * baseCTR * decay * g.jitter(0.1)))
			revenue := spend * baseROAS * decay * g.jitter(0.1)

			rows = append(rows, models.AdRow{
				CampaignName:    name,
				AdsetName:       name + " / Adset 1",
				Date:            date,
				Spend:           spend,
				Impressions:     impressions,
				Clicks:          clicks,
				Revenue:         revenue,
				Purchases:       float64(int(revenue / 50)),
				CTR:             safeDiv(clicks, impressions),
				ROAS:            safeDiv(revenue, spend),
				CreativeType:    creativeTypes[c%len(creativeTypes)],
				CreativeMessage: "Limited time offer",
				Platform:        platforms[c%len(platforms)],
				Country:         "US",
				AudienceType:    "prospecting",
			})
		}
	}
	return rows
}

func (g *AdsDataGenerator) jitter(spread float64) float64 {
	return 1 + spread*(2*g.rng.Float64()-1)
}

func safeDiv(a, b float64) float64 {
	if b == 0 {
		return 0
	}
	return a / b
}
