package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TobiSchelling/histline/internal/database"
	"github.com/TobiSchelling/histline/internal/timeline"
)

// stubAnalyzer validates options like the engine does and fails on "boom".
type stubAnalyzer struct {
	lastOpts timeline.Options
}

func (s *stubAnalyzer) Analyze(text string, opts timeline.Options) (*timeline.Result, error) {
	s.lastOpts = opts
	if _, err := opts.Normalize(); err != nil {
		return nil, err
	}
	if strings.Contains(text, "boom") {
		return nil, errors.New("segmenter crashed")
	}
	year := 1949
	return &timeline.Result{
		TimeExpressions: []timeline.TimeExpression{},
		Events: []timeline.Event{{
			Sentence:       text,
			EventType:      timeline.EventPolitics,
			Entities:       []timeline.Entity{},
			Keywords:       []string{"成立"},
			Confidence:     0.8,
			NormalizedYear: &year,
			TimePrecision:  timeline.PrecisionYear,
		}},
		Timeline: timeline.Timeline{Nodes: []timeline.TimelineNode{}},
		Summary:  timeline.Summary{EventsCount: 1},
	}, nil
}

func newTestServer(t *testing.T) (*Server, *database.DB, *stubAnalyzer) {
	t.Helper()
	db, err := database.Open(filepath.Join(t.TempDir(), "test.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	analyzer := &stubAnalyzer{}
	srv, err := New(db, analyzer, Options{Version: "1.2.3", Timeline: timeline.DefaultOptions()}, nil)
	require.NoError(t, err)
	srv.now = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }
	return srv, db, analyzer
}

func do(t *testing.T, srv *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestHealth(t *testing.T) {
	srv, _, _ := newTestServer(t)
	rec := do(t, srv, "GET", "/api/health", "")

	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, "histline", body["service"])
	assert.Equal(t, "1.2.3", body["version"])
	assert.Equal(t, "2026-03-01T12:00:00Z", body["timestamp"])
}

func TestAnalyzeTimelineErrors(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		status int
		code   string
	}{
		{"no body", "", http.StatusBadRequest, CodeMissingText},
		{"no text field", `{"options":{}}`, http.StatusBadRequest, CodeMissingText},
		{"malformed json", `{"text":`, http.StatusBadRequest, CodeMissingText},
		{"blank text", `{"text":"  \n "}`, http.StatusBadRequest, CodeEmptyText},
		{"bad group_by", `{"text":"1949年","options":{"group_by":"decade"}}`, http.StatusBadRequest, CodeInvalidOptions},
		{"bad option type", `{"text":"1949年","options":{"max_events":"many"}}`, http.StatusBadRequest, CodeInvalidOptions},
		{"analysis failure", `{"text":"boom"}`, http.StatusInternalServerError, CodeTimelineError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, _, _ := newTestServer(t)
			rec := do(t, srv, "POST", "/api/analyze/timeline", tt.body)

			assert.Equal(t, tt.status, rec.Code)
			body := decode(t, rec)
			assert.Equal(t, false, body["success"])
			assert.Equal(t, tt.code, body["error_code"])
			assert.NotEmpty(t, body["message"])
		})
	}
}

func TestAnalyzeTimeline(t *testing.T) {
	srv, _, analyzer := newTestServer(t)
	rec := do(t, srv, "POST", "/api/analyze/timeline", `{"text":"1949年中华人民共和国成立。","options":{"group_by":"year","min_confidence":0.5}}`)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decode(t, rec)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "2026-03-01T12:00:00Z", body["timestamp"])

	data := body["data"].(map[string]any)
	assert.Len(t, data["events"], 1)
	assert.NotContains(t, data, "analysis_id")
	summary := data["summary"].(map[string]any)
	assert.EqualValues(t, 1, summary["events_count"])

	// Request options overlay the server defaults.
	assert.Equal(t, timeline.GroupByYear, analyzer.lastOpts.GroupBy)
	assert.Equal(t, 0.5, analyzer.lastOpts.MinConfidence)
	assert.Equal(t, timeline.DefaultMaxEvents, analyzer.lastOpts.MaxEvents)
}

func TestAnalyzeTimelineSave(t *testing.T) {
	srv, db, _ := newTestServer(t)
	rec := do(t, srv, "POST", "/api/analyze/timeline", `{"text":"1949年中华人民共和国成立。","save":true}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	data := decode(t, rec)["data"].(map[string]any)
	id, ok := data["analysis_id"].(string)
	require.True(t, ok)

	stored, err := db.GetAnalysis(id)
	require.NoError(t, err)
	assert.Nil(t, stored.DocumentID)
	assert.Equal(t, 1, stored.EventCount)

	rec = do(t, srv, "GET", "/api/analyses", "")
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode(t, rec)["data"].([]any)
	require.Len(t, list, 1)
	assert.Equal(t, id, list[0].(map[string]any)["id"])

	rec = do(t, srv, "GET", "/api/analyses/"+id, "")
	require.Equal(t, http.StatusOK, rec.Code)
	got := decode(t, rec)["data"].(map[string]any)
	assert.Equal(t, id, got["id"])
	assert.Contains(t, got, "result")
}

func TestListAnalysesBadLimit(t *testing.T) {
	srv, _, _ := newTestServer(t)
	rec := do(t, srv, "GET", "/api/analyses?limit=zero", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetAnalysisNotFound(t *testing.T) {
	srv, _, _ := newTestServer(t)

	rec := do(t, srv, "GET", "/api/analyses/missing", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, CodeNotFound, decode(t, rec)["error_code"])

	rec = do(t, srv, "GET", "/analysis/missing", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUnknownAPIRoute(t *testing.T) {
	srv, _, _ := newTestServer(t)
	rec := do(t, srv, "GET", "/api/nope", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, CodeNotFound, decode(t, rec)["error_code"])
}

func TestIndexRoute(t *testing.T) {
	srv, _, _ := newTestServer(t)
	rec := do(t, srv, "GET", "/", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Timelines")
	assert.Contains(t, rec.Body.String(), "No analyses yet")
}

func TestAnalysisPage(t *testing.T) {
	srv, db, analyzer := newTestServer(t)
	content := "1949年中华人民共和国成立。"
	docID, err := db.InsertDocument("https://example.com/1949", "开国大典", nil, &content)
	require.NoError(t, err)
	result, err := analyzer.Analyze(content, timeline.DefaultOptions())
	require.NoError(t, err)
	id, err := db.SaveAnalysis(&docID, timeline.DefaultOptions(), result)
	require.NoError(t, err)

	rec := do(t, srv, "GET", "/", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "/analysis/"+id)
	assert.Contains(t, rec.Body.String(), "开国大典")

	rec = do(t, srv, "GET", "/analysis/"+id, "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "<h1>开国大典</h1>")
	assert.Contains(t, body, "1 events")
}

func TestStaticAssets(t *testing.T) {
	srv, _, _ := newTestServer(t)
	rec := do(t, srv, "GET", "/static/style.css", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}
