package dashboard

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/bonus-cli/internal/bonus"
	"github.com/sells-group/bonus-cli/internal/report"
	"github.com/sells-group/bonus-cli/internal/store"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	st := store.NewSheet(filepath.Join(t.TempDir(), "bonos.xlsx"), "Records")
	require.NoError(t, st.Migrate(context.Background()))

	rules := bonus.DefaultRules()
	srv := httptest.NewServer(NewRouter(bonus.NewEngine(st, rules), report.NewAggregator(st, rules)))
	t.Cleanup(srv.Close)
	return srv
}

func doJSON(t *testing.T, method, url, body string) (*http.Response, map[string]any) {
	t.Helper()
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, url, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })

	var decoded map[string]any
	if resp.StatusCode != http.StatusNoContent {
		_ = json.NewDecoder(resp.Body).Decode(&decoded)
	}
	return resp, decoded
}

func TestHealthEndpoint(t *testing.T) {
	srv := newTestServer(t)

	resp, body := doJSON(t, http.MethodGet, srv.URL+"/health", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", body["status"])
}

func TestSaveRecordComputesTotalServerSide(t *testing.T) {
	srv := newTestServer(t)

	// A client-supplied total is an unknown field and is ignored.
	resp, body := doJSON(t, http.MethodPost, srv.URL+"/api/records", `{
		"agent_id": "A1", "name": "Laura Gomez", "email": "laura@example.com",
		"sales": 150, "quality": 96, "absenteeism": 1,
		"recorded_at": "2024-05-01T10:00:00Z",
		"total_bono": "1"
	}`)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "427050", body["total_bono"])
}

func TestSaveRecordValidation(t *testing.T) {
	srv := newTestServer(t)

	resp, body := doJSON(t, http.MethodPost, srv.URL+"/api/records", `{"sales": 150}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, body["error"], "agent id")

	resp, _ = doJSON(t, http.MethodPost, srv.URL+"/api/records", `{not json`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestSaveRecordDuplicateConflict(t *testing.T) {
	srv := newTestServer(t)

	payload := `{"agent_id": "A1", "sales": 150, "recorded_at": "2024-05-01T10:00:00Z"}`
	resp, _ := doJSON(t, http.MethodPost, srv.URL+"/api/records", payload)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, _ = doJSON(t, http.MethodPost, srv.URL+"/api/records", payload)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestGetUpdateDeleteRecord(t *testing.T) {
	srv := newTestServer(t)

	_, _ = doJSON(t, http.MethodPost, srv.URL+"/api/records", `{
		"agent_id": "A1", "sales": 150, "quality": 96, "absenteeism": 1,
		"recorded_at": "2024-05-01T10:00:00Z"
	}`)

	recordURL := srv.URL + "/api/records/A1/2024-05-01T10:00:00Z"

	resp, body := doJSON(t, http.MethodGet, recordURL, "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "A1", body["agent_id"])

	resp, body = doJSON(t, http.MethodPut, recordURL, `{"sales": 130}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "384345", body["total_bono"])

	resp, _ = doJSON(t, http.MethodDelete, recordURL, "")
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, _ = doJSON(t, http.MethodGet, recordURL, "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestGetRecordBadTimestamp(t *testing.T) {
	srv := newTestServer(t)

	resp, _ := doJSON(t, http.MethodGet, srv.URL+"/api/records/A1/not-a-date", "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestListRecordsEmpty(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/api/records")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var records []any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&records))
	assert.Empty(t, records)
}

func TestKPIsEndpoint(t *testing.T) {
	srv := newTestServer(t)

	resp, body := doJSON(t, http.MethodGet, srv.URL+"/api/kpis", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(0), body["distinct_agents"])

	_, _ = doJSON(t, http.MethodPost, srv.URL+"/api/records", `{
		"agent_id": "A1", "sales": 150, "quality": 96, "absenteeism": 1,
		"recorded_at": "2024-05-01T10:00:00Z"
	}`)

	_, body = doJSON(t, http.MethodGet, srv.URL+"/api/kpis", "")
	assert.Equal(t, float64(1), body["distinct_agents"])
	assert.Equal(t, "427050", body["avg_bono"])
	assert.Equal(t, float64(96), body["avg_quality"])
}

func TestIndividualReportEndpoint(t *testing.T) {
	srv := newTestServer(t)

	_, _ = doJSON(t, http.MethodPost, srv.URL+"/api/records", `{
		"agent_id": "A1", "sales": 150, "quality": 96, "absenteeism": 1,
		"recorded_at": "2024-05-10T12:00:00Z"
	}`)

	resp, body := doJSON(t, http.MethodGet,
		srv.URL+"/api/agents/A1/report?start=2024-05-01&end=2024-05-10", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["earned"])
	assert.Equal(t, "427050", body["awarded"])

	// Window ending before the record's day finds nothing.
	resp, _ = doJSON(t, http.MethodGet,
		srv.URL+"/api/agents/A1/report?start=2024-05-01&end=2024-05-09", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = doJSON(t, http.MethodGet,
		srv.URL+"/api/agents/A1/report?start=bogus", "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
