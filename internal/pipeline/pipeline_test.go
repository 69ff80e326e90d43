package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/TobiSchelling/histline/internal/config"
	"github.com/TobiSchelling/histline/internal/database"
	"github.com/TobiSchelling/histline/internal/timeline"
)

var errAnalyzer = errors.New("analyzer failed")

// stubAnalyzer returns one event per call and fails on text containing failOn.
type stubAnalyzer struct {
	failOn string
	calls  []string
}

func (s *stubAnalyzer) Analyze(text string, _ timeline.Options) (*timeline.Result, error) {
	s.calls = append(s.calls, text)
	if s.failOn != "" && strings.Contains(text, s.failOn) {
		return nil, errAnalyzer
	}
	year := 1949
	return &timeline.Result{
		Events: []timeline.Event{{
			Sentence:       text,
			EventType:      timeline.EventPolitics,
			Confidence:     0.9,
			TimePrecision:  timeline.PrecisionYear,
			NormalizedYear: &year,
		}},
		Summary: timeline.Summary{TimeExpressionsCount: 1, EventsCount: 1, TimelinePeriods: 1},
	}, nil
}

func setup(t *testing.T) (*config.Config, *database.DB) {
	t.Helper()
	dir := t.TempDir()
	cfg := &config.Config{Timeline: timeline.DefaultOptions()}
	cfg.Output.DataDir = dir
	db, err := database.Open(filepath.Join(dir, "test.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return cfg, db
}

func insertDoc(t *testing.T, db *database.DB, url, title, content string) int64 {
	t.Helper()
	id, err := db.InsertDocument(url, title, nil, &content)
	require.NoError(t, err)
	return id
}

func TestRunAnalyzesAndReports(t *testing.T) {
	cfg, db := setup(t)
	insertDoc(t, db, "https://example.com/a", "开国", "1949年中华人民共和国成立。")
	insertDoc(t, db, "https://example.com/b", "迁都", "1421年迁都北京。")

	analyzer := &stubAnalyzer{}
	result := New(cfg, db, analyzer, nil).Run(context.Background())

	require.Len(t, result.Steps, 4)
	for _, step := range result.Steps {
		assert.NoError(t, step.Err, step.Name)
	}
	assert.Equal(t, []string{"Collect", "Fetch", "Analyze", "Report"},
		[]string{result.Steps[0].Name, result.Steps[1].Name, result.Steps[2].Name, result.Steps[3].Name})
	assert.Contains(t, result.Steps[2].Summary, "Analyzed 2 documents")
	require.Len(t, result.Analyses, 2)
	assert.Len(t, analyzer.calls, 2)

	for _, id := range result.Analyses {
		data, err := os.ReadFile(filepath.Join(cfg.GetDataDir(), "reports", id+".md"))
		require.NoError(t, err)
		assert.NotEmpty(t, data)
	}

	last, err := db.GetLastRun()
	require.NoError(t, err)
	assert.Equal(t, 2, last.AnalysisCount)
	assert.Equal(t, 2, last.EventCount)

	pending, err := db.CountUnanalyzedDocuments()
	require.NoError(t, err)
	assert.Zero(t, pending)
}

func TestRunSkipsFailingDocument(t *testing.T) {
	cfg, db := setup(t)
	insertDoc(t, db, "https://example.com/a", "好", "1949年中华人民共和国成立。")
	insertDoc(t, db, "https://example.com/b", "坏", "坏数据")

	core, logs := observer.New(zap.WarnLevel)
	analyzer := &stubAnalyzer{failOn: "坏数据"}
	result := New(cfg, db, analyzer, zap.New(core).Sugar()).Run(context.Background())

	require.Len(t, result.Steps, 4)
	assert.NoError(t, result.Steps[2].Err)
	assert.Contains(t, result.Steps[2].Summary, "1 failed")
	assert.Len(t, result.Analyses, 1)

	skipped := logs.FilterMessage("Skipping document").All()
	require.Len(t, skipped, 1)
	assert.Equal(t, "https://example.com/b", skipped[0].ContextMap()["url"])

	// The failed document stays pending for the next run.
	pending, err := db.CountUnanalyzedDocuments()
	require.NoError(t, err)
	assert.Equal(t, 1, pending)
}

func TestAnalyzeDocumentEmpty(t *testing.T) {
	cfg, db := setup(t)
	p := New(cfg, db, &stubAnalyzer{}, nil)

	blank := "   "
	_, _, err := p.AnalyzeDocument(database.Document{ID: 7, Content: &blank})
	assert.True(t, errors.Is(err, ErrEmptyDocument))

	_, _, err = p.AnalyzeDocument(database.Document{ID: 8})
	assert.True(t, errors.Is(err, ErrEmptyDocument))
}

func TestAnalyzeDocumentWrapsAnalyzerError(t *testing.T) {
	cfg, db := setup(t)
	p := New(cfg, db, &stubAnalyzer{failOn: "x"}, nil)

	content := "x"
	_, _, err := p.AnalyzeDocument(database.Document{ID: 3, Content: &content})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errAnalyzer))
	assert.Contains(t, err.Error(), "document 3")
}

func TestRunStopsOnCancelledContext(t *testing.T) {
	cfg, db := setup(t)
	insertDoc(t, db, "https://example.com/a", "a", "1949年。")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	analyzer := &stubAnalyzer{}
	result := New(cfg, db, analyzer, nil).Run(ctx)

	require.Len(t, result.Steps, 4)
	assert.ErrorIs(t, result.Steps[2].Err, context.Canceled)
	assert.Empty(t, analyzer.calls)
}

func TestDryRun(t *testing.T) {
	cfg, db := setup(t)
	cfg.Sources.Feeds = []config.Feed{{URL: "https://example.com/rss", Name: "Example"}}
	insertDoc(t, db, "https://example.com/a", "a", "1949年。")
	_, err := db.InsertDocument("https://example.com/b", "b", nil, nil)
	require.NoError(t, err)

	analyzer := &stubAnalyzer{}
	result := New(cfg, db, analyzer, nil).DryRun()

	require.Len(t, result.Steps, 4)
	for _, step := range result.Steps {
		assert.NoError(t, step.Err)
		assert.True(t, strings.HasPrefix(step.Summary, "[dry-run]"), step.Summary)
	}
	assert.Contains(t, result.Steps[0].Summary, "1 feeds")
	assert.Contains(t, result.Steps[1].Summary, "1 documents need content")
	assert.Contains(t, result.Steps[2].Summary, "1 documents need analysis")
	assert.Empty(t, analyzer.calls)
}
