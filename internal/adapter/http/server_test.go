package http_test

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	httpadapter "github.com/couchcryptid/accident-data-etl/internal/adapter/http"
	"github.com/couchcryptid/accident-data-etl/internal/domain"
)

type mockReadiness struct {
	err error
}

func (m *mockReadiness) CheckReadiness(_ context.Context) error { return m.err }

type mockDatasets struct {
	ds *domain.Dataset
}

func (m *mockDatasets) LastDataset() (*domain.Dataset, bool) { return m.ds, m.ds != nil }

func newTestServer(readyErr error) *httpadapter.Server {
	return httpadapter.NewServer(":0", &mockReadiness{err: readyErr}, &mockDatasets{}, "", slog.Default())
}

func serve(srv *httpadapter.Server, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestHealthzReturns200(t *testing.T) {
	rec := serve(newTestServer(nil), "/healthz")

	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
}

func TestReadyzReturns200WhenReady(t *testing.T) {
	rec := serve(newTestServer(nil), "/readyz")

	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ready", body["status"])
}

func TestReadyzReturns503WhenNotReady(t *testing.T) {
	rec := serve(newTestServer(fmt.Errorf("no completed run")), "/readyz")

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "not ready", body["status"])
	assert.Equal(t, "no completed run", body["error"])
}

func TestMetricsEndpoint(t *testing.T) {
	rec := serve(newTestServer(nil), "/metrics")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestSummaryNotFoundBeforeRun(t *testing.T) {
	rec := serve(newTestServer(nil), "/summary")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSummaryReturnsLastRun(t *testing.T) {
	ds := &domain.Dataset{
		RunID:       "run-42",
		Source:      "accidents.csv",
		PreparedAt:  time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		Missingness: []domain.ColumnMissing{{Column: domain.ColWindSpeed, Missing: 12}},
		Medians:     map[string]float64{domain.ColWindSpeed: 7},
		Stats:       domain.PrepStats{Rows: 100, EndTimeFailures: 2, Imputed: map[string]int{domain.ColWindSpeed: 12}},
	}
	srv := httpadapter.NewServer(":0", &mockReadiness{}, &mockDatasets{ds: ds}, "", slog.Default())

	rec := serve(srv, "/summary")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		RunID       string `json:"run_id"`
		Rows        int    `json:"rows"`
		EndFailures int    `json:"end_time_failures"`
		Missingness []struct {
			Column  string `json:"column"`
			Missing int    `json:"missing"`
		} `json:"missingness"`
		Imputed map[string]int `json:"imputed"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "run-42", body.RunID)
	assert.Equal(t, 100, body.Rows)
	assert.Equal(t, 2, body.EndFailures)
	require.Len(t, body.Missingness, 1)
	assert.Equal(t, domain.ColWindSpeed, body.Missingness[0].Column)
	assert.Equal(t, 12, body.Imputed[domain.ColWindSpeed])
}

func TestArtifactsServesFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "hour_of_day.png"), []byte("png-bytes"), 0o600))
	srv := httpadapter.NewServer(":0", &mockReadiness{}, &mockDatasets{}, dir, slog.Default())

	rec := serve(srv, "/artifacts/hour_of_day.png")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "png-bytes", rec.Body.String())

	assert.Equal(t, http.StatusNotFound, serve(srv, "/artifacts/missing.png").Code)
}

func TestArtifactsDisabledWithoutDir(t *testing.T) {
	rec := serve(newTestServer(nil), "/artifacts/hour_of_day.png")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
