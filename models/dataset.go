package models

import "time"

// AdRow is one cleaned row of the ads performance dataset.
type AdRow struct {
	CampaignName    string    `json:"campaign_name"`
	AdsetName       string    `json:"adset_name"`
	Date            time.Time `json:"date"`
	Spend           float64   `json:"spend"`
	Impressions     float64   `json:"impressions"`
	Clicks          float64   `json:"clicks"`
	Revenue         float64   `json:"revenue"`
	Purchases       float64   `json:"purchases"`
	CTR             float64   `json:"ctr"`
	ROAS            float64   `json:"roas"`
	CreativeType    string    `json:"creative_type"`
	CreativeMessage string    `json:"creative_message"`
	Platform        string    `json:"platform"`
	Country         string    `json:"country"`
	AudienceType    string    `json:"audience_type"`
}

// LLMConfig holds the completion-service settings shared by all agents.
type LLMConfig struct {
	APIKey        string
	BaseURL       string
	Model         string
	Temperature   float64
	MaxTokens     int
	SystemContext string
	PromptsDir    string
}
