package database

import (
	"database/sql"

	"github.com/cockroachdb/errors"
)

// InsertRunReport records a completed pipeline run.
func (db *DB) InsertRunReport(documentCount, analysisCount, eventCount int) (int64, error) {
	result, err := db.conn.Exec(
		`INSERT INTO run_reports (document_count, analysis_count, event_count) VALUES (?, ?, ?)`,
		documentCount, analysisCount, eventCount,
	)
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

// GetLastRun returns the most recent run report.
func (db *DB) GetLastRun() (*RunReport, error) {
	row := db.conn.QueryRow(
		`SELECT id, generated_at, document_count, analysis_count, event_count
		FROM run_reports ORDER BY id DESC LIMIT 1`,
	)
	var r RunReport
	if err := row.Scan(&r.ID, &r.GeneratedAt, &r.DocumentCount, &r.AnalysisCount, &r.EventCount); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errors.Wrap(ErrNotFound, "run report")
		}
		return nil, err
	}
	return &r, nil
}

// GetStats returns aggregate database statistics.
func (db *DB) GetStats() (*Stats, error) {
	s := &Stats{}
	queries := []struct {
		query string
		dest  any
	}{
		{"SELECT COUNT(*) FROM documents", &s.TotalDocuments},
		{"SELECT COUNT(*) FROM documents WHERE content IS NOT NULL AND content != ''", &s.FetchedDocuments},
		{"SELECT COUNT(DISTINCT document_id) FROM analyses WHERE document_id IS NOT NULL", &s.AnalyzedDocuments},
		{"SELECT COUNT(*) FROM analyses", &s.Analyses},
		{"SELECT COUNT(*) FROM timeline_events", &s.TimelineEvents},
		{"SELECT MIN(normalized_year) FROM timeline_events", &s.EarliestYear},
		{"SELECT MAX(normalized_year) FROM timeline_events", &s.LatestYear},
		{"SELECT COUNT(*) FROM run_reports", &s.Runs},
	}
	for _, q := range queries {
		if err := db.conn.QueryRow(q.query).Scan(q.dest); err != nil {
			return nil, errors.Wrapf(err, "stats query %q", q.query)
		}
	}
	return s, nil
}
