package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "adlens/internal/errors"
	"adlens/models"
)

type memoryStore struct {
	runs map[uuid.UUID]models.RunRecord
}

func (m *memoryStore) Get(ctx context.Context, id uuid.UUID) (*models.RunRecord, error) {
	run, ok := m.runs[id]
	if !ok {
		return nil, apperrors.NotFound("run")
	}
	return &run, nil
}

func (m *memoryStore) List(ctx context.Context, limit int) ([]models.RunRecord, error) {
	var out []models.RunRecord
	for _, run := range m.runs {
		run.ReportMarkdown = ""
		out = append(out, run)
	}
	return out, nil
}

func fixtureStore() (*memoryStore, uuid.UUID) {
	id := uuid.New()
	return &memoryStore{runs: map[uuid.UUID]models.RunRecord{
		id: {
			ID:             id,
			Query:          "why did performance drop",
			Status:         "completed",
			Hypotheses:     3,
			Validated:      2,
			ReportMarkdown: "# Ads Performance Analysis Report\n\nSome **bold** text.",
			StartedAt:      time.Date(2024, 3, 14, 12, 0, 0, 0, time.UTC),
		},
	}}, id
}

func TestListRuns(t *testing.T) {
	store, _ := fixtureStore()
	ts := httptest.NewServer(New(store).Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/runs")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Runs []models.RunRecord `json:"runs"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Len(t, body.Runs, 1)
	assert.Equal(t, "completed", body.Runs[0].Status)
}

func TestGetRunOmitsReportBody(t *testing.T) {
	store, id := fixtureStore()
	ts := httptest.NewServer(New(store).Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/runs/" + id.String())
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var run models.RunRecord
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&run))
	assert.Equal(t, id, run.ID)
	assert.Empty(t, run.ReportMarkdown)
}

func TestGetRunNotFound(t *testing.T) {
	store, _ := fixtureStore()
	ts := httptest.NewServer(New(store).Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/runs/" + uuid.NewString())
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestGetRunInvalidID(t *testing.T) {
	store, _ := fixtureStore()
	ts := httptest.NewServer(New(store).Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/runs/not-a-uuid")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestGetReportRendersHTML(t *testing.T) {
	store, id := fixtureStore()
	ts := httptest.NewServer(New(store).Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/runs/" + id.String() + "/report")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/html")

	buf := make([]byte, 4096)
	n, _ := resp.Body.Read(buf)
	html := string(buf[:n])
	assert.Contains(t, html, "<h1")
	assert.Contains(t, html, "Ads Performance Analysis Report")
}

func TestHealthz(t *testing.T) {
	store, _ := fixtureStore()
	ts := httptest.NewServer(New(store).Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
