package dataset

import (
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"adlens/internal/errors"
	"adlens/models"
)

// RequiredColumns must be present after cleaning; their absence is fatal.
var RequiredColumns = []string{"campaign_name", "date", "spend", "impressions", "clicks", "revenue"}

// optionalDefaults are applied when a column or cell is absent.
var optionalDefaults = map[string]string{
	"campaign_name":    "Unknown Campaign",
	"adset_name":       "Unknown Adset",
	"creative_type":    "unknown",
	"creative_message": "unknown",
	"platform":         "unknown",
	"country":          "unknown",
	"audience_type":    "unknown",
}

var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	time.RFC3339,
	"01/02/2006",
	"2006/01/02",
}

// Clean validates and normalizes a raw table into typed rows. Unparseable
// dates drop the row; numeric cells are coerced with negatives clamped to
// zero; CTR is computed when absent and clamped to [0, 1]; ROAS above 100 is
// flagged but not altered. A dataset that still fails schema checks after
// cleaning is a fatal error.
func Clean(table *RawTable) ([]models.AdRow, []string, error) {
	if table == nil || len(table.Rows) == 0 {
		return nil, nil, errors.DataValidation("dataset is empty (0 rows)")
	}

	if missing := missingRequired(table.Headers); len(missing) > 0 {
		return nil, nil, errors.DataValidation(
			fmt.Sprintf("missing required columns: %s", strings.Join(missing, ", ")))
	}

	var (
		rows          []models.AdRow
		warnings      []string
		droppedDates  int
		droppedEmpty  int
		negativeCount int
		clampedCTR    int
		highROAS      int
	)

	for _, raw := range table.Rows {
		date, ok := parseDate(raw["date"])
		if !ok {
			droppedDates++
			continue
		}

		row := models.AdRow{
			CampaignName:    textOrDefault(raw, "campaign_name"),
			AdsetName:       textOrDefault(raw, "adset_name"),
			Date:            date,
			CreativeType:    textOrDefault(raw, "creative_type"),
			CreativeMessage: textOrDefault(raw, "creative_message"),
			Platform:        textOrDefault(raw, "platform"),
			Country:         textOrDefault(raw, "country"),
			AudienceType:    textOrDefault(raw, "audience_type"),
		}

		row.Spend = coerceNumeric(raw["spend"], &negativeCount)
		row.Impressions = coerceNumeric(raw["impressions"], &negativeCount)
		row.Clicks = coerceNumeric(raw["clicks"], &negativeCount)
		row.Revenue = coerceNumeric(raw["revenue"], &negativeCount)
		row.Purchases = coerceNumeric(raw["purchases"], &negativeCount)

		// Rows with no activity at all carry no signal.
		if row.Spend+row.Impressions+row.Clicks+row.Revenue == 0 {
			droppedEmpty++
			continue
		}

		row.CTR = derivedCTR(raw["ctr"], row, &clampedCTR)
		row.ROAS = derivedROAS(raw["roas"], row)
		if row.ROAS > 100 {
			highROAS++
		}

		rows = append(rows, row)
	}

	if droppedDates > 0 {
		warnings = append(warnings, fmt.Sprintf("dropped %d rows with unparseable dates", droppedDates))
	}
	if droppedEmpty > 0 {
		warnings = append(warnings, fmt.Sprintf("dropped %d rows with all key metrics zero", droppedEmpty))
	}
	if negativeCount > 0 {
		warnings = append(warnings, fmt.Sprintf("clamped %d negative numeric values to zero", negativeCount))
	}
	if clampedCTR > 0 {
		warnings = append(warnings, fmt.Sprintf("clamped %d CTR values into [0, 1]", clampedCTR))
	}
	if highROAS > 0 {
		warnings = append(warnings, fmt.Sprintf("found %d rows with ROAS > 100 (suspicious, left unchanged)", highROAS))
	}
	for _, w := range warnings {
		log.Printf("[DatasetCleaner] %s", w)
	}

	if len(rows) == 0 {
		return nil, warnings, errors.DataValidation("no valid rows remain after cleaning")
	}
	return rows, warnings, nil
}

func missingRequired(headers []string) []string {
	present := make(map[string]bool, len(headers))
	for _, h := range headers {
		present[h] = true
	}
	var missing []string
	for _, col := range RequiredColumns {
		if !present[col] {
			missing = append(missing, col)
		}
	}
	return missing
}

func parseDate(value string) (time.Time, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func coerceNumeric(value string, negatives *int) float64 {
	value = strings.TrimSpace(strings.ReplaceAll(value, ",", ""))
	value = strings.TrimPrefix(value, "$")
	if value == "" {
		return 0
	}
	v, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0
	}
	if v < 0 {
		*negatives++
		return 0
	}
	return v
}

func textOrDefault(raw map[string]string, column string) string {
	if v := raw[column]; v != "" {
		return v
	}
	return optionalDefaults[column]
}

func derivedCTR(cell string, row models.AdRow, clamped *int) float64 {
	ctr, err := strconv.ParseFloat(strings.TrimSpace(cell), 64)
	if cell == "" || err != nil {
		if row.Impressions > 0 {
			ctr = row.Clicks / row.Impressions
		} else {
			ctr = 0
		}
	}
	if ctr < 0 || ctr > 1 {
		*clamped++
		if ctr < 0 {
			return 0
		}
		return 1
	}
	return ctr
}

func derivedROAS(cell string, row models.AdRow) float64 {
	roas, err := strconv.ParseFloat(strings.TrimSpace(cell), 64)
	if cell == "" || err != nil {
		if row.Spend > 0 {
			return row.Revenue / row.Spend
		}
		return 0
	}
	if roas < 0 {
		return 0
	}
	return roas
}
