package dataset

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "adlens/internal/errors"
)

func tableWith(rows ...map[string]string) *RawTable {
	return &RawTable{
		Headers: []string{"campaign_name", "date", "spend", "impressions", "clicks", "revenue"},
		Rows:    rows,
	}
}

func validRow() map[string]string {
	return map[string]string{
		"campaign_name": "Campaign A",
		"date":          "2024-03-01",
		"spend":         "100.50",
		"impressions":   "10000",
		"clicks":        "200",
		"revenue":       "250",
	}
}

func TestCleanMissingRequiredColumnsIsFatal(t *testing.T) {
	table := &RawTable{
		Headers: []string{"campaign_name", "date", "spend"},
		Rows:    []map[string]string{{"campaign_name": "A", "date": "2024-03-01", "spend": "10"}},
	}
	_, _, err := Clean(table)
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeDataValidation, apperrors.GetCode(err))
	assert.Contains(t, err.Error(), "impressions")
}

func TestCleanEmptyTableIsFatal(t *testing.T) {
	_, _, err := Clean(&RawTable{Headers: []string{"campaign_name"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "0 rows")
}

func TestCleanDropsUnparseableDates(t *testing.T) {
	bad := validRow()
	bad["date"] = "not-a-date"

	rows, warnings, err := Clean(tableWith(validRow(), bad))
	require.NoError(t, err)
	assert.Len(t, rows, 1)
	assert.Contains(t, warnings[0], "dropped 1 rows with unparseable dates")
}

func TestCleanAcceptsMultipleDateLayouts(t *testing.T) {
	slash := validRow()
	slash["date"] = "03/02/2024"

	rows, _, err := Clean(tableWith(validRow(), slash))
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, 2024, rows[1].Date.Year())
}

func TestCleanCoercesCurrencyAndNegatives(t *testing.T) {
	row := validRow()
	row["spend"] = "$1,200.50"
	row["clicks"] = "-5"

	rows, warnings, err := Clean(tableWith(row))
	require.NoError(t, err)
	assert.Equal(t, 1200.50, rows[0].Spend)
	assert.Equal(t, 0.0, rows[0].Clicks)
	assert.Contains(t, warnings[0], "negative")
}

func TestCleanDropsAllZeroRows(t *testing.T) {
	zero := validRow()
	zero["spend"], zero["impressions"], zero["clicks"], zero["revenue"] = "0", "0", "0", "0"

	rows, warnings, err := Clean(tableWith(validRow(), zero))
	require.NoError(t, err)
	assert.Len(t, rows, 1)
	assert.Contains(t, warnings[0], "all key metrics zero")
}

func TestCleanDerivesCTRAndROAS(t *testing.T) {
	rows, _, err := Clean(tableWith(validRow()))
	require.NoError(t, err)
	assert.InDelta(t, 0.02, rows[0].CTR, 1e-9)
	assert.InDelta(t, 250.0/100.50, rows[0].ROAS, 1e-9)
}

func TestCleanAppliesOptionalDefaults(t *testing.T) {
	rows, _, err := Clean(tableWith(validRow()))
	require.NoError(t, err)
	assert.Equal(t, "Unknown Adset", rows[0].AdsetName)
	assert.Equal(t, "unknown", rows[0].Platform)
}

func TestCleanFlagsSuspiciousROAS(t *testing.T) {
	row := validRow()
	row["spend"] = "1"
	row["revenue"] = "500"

	rows, warnings, err := Clean(tableWith(row))
	require.NoError(t, err)
	assert.Equal(t, 500.0, rows[0].ROAS, "high ROAS is flagged, never altered")
	require.NotEmpty(t, warnings)
	assert.Contains(t, warnings[len(warnings)-1], "ROAS > 100")
}

func TestQualityScore(t *testing.T) {
	rows, _, err := Clean(tableWith(validRow()))
	require.NoError(t, err)

	q := Quality(rows)
	assert.Equal(t, 1, q.TotalRows)
	assert.Equal(t, 1, q.Campaigns)
	assert.Equal(t, 100.0, q.Score)
	assert.Equal(t, "2024-03-01", q.DateRange.Min)
}

func TestSummaryMentionsKeyAggregates(t *testing.T) {
	rows, _, err := Clean(tableWith(validRow()))
	require.NoError(t, err)

	summary := Summary(rows)
	assert.Contains(t, summary, "Dataset Overview:")
	assert.Contains(t, summary, "Total Records: 1")
	assert.Contains(t, summary, "Total Spend: $100.50")
}
