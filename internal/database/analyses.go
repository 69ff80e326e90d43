package database

import (
	"database/sql"
	"encoding/json"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"

	"github.com/TobiSchelling/histline/internal/timeline"
)

// SaveAnalysis stores a result and its events in one transaction and returns
// the new analysis ID. documentID is nil for ad-hoc text.
func (db *DB) SaveAnalysis(documentID *int64, opts timeline.Options, result *timeline.Result) (string, error) {
	if result == nil {
		return "", errors.New("saving analysis: nil result")
	}
	optsJSON, err := json.Marshal(opts)
	if err != nil {
		return "", errors.Wrap(err, "encoding options")
	}
	resultJSON, err := json.Marshal(result)
	if err != nil {
		return "", errors.Wrap(err, "encoding result")
	}

	id := uuid.NewString()

	tx, err := db.conn.Begin()
	if err != nil {
		return "", err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(
		`INSERT INTO analyses (id, document_id, options, result, time_expression_count, event_count, period_count)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id, documentID, string(optsJSON), string(resultJSON),
		result.Summary.TimeExpressionsCount, result.Summary.EventsCount, result.Summary.TimelinePeriods,
	); err != nil {
		return "", errors.Wrap(err, "inserting analysis")
	}

	stmt, err := tx.Prepare(
		`INSERT INTO timeline_events
		(analysis_id, sentence, event_type, normalized_year, start_year, end_year, confidence, time_precision)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return "", err
	}
	defer stmt.Close()

	for _, e := range result.Events {
		start, end := e.NormalizedYear, e.NormalizedYear
		if e.YearRange != nil {
			start, end = &e.YearRange[0], &e.YearRange[1]
		}
		if _, err := stmt.Exec(id, e.Sentence, string(e.EventType), e.NormalizedYear, start, end,
			e.Confidence, string(e.TimePrecision)); err != nil {
			return "", errors.Wrap(err, "inserting timeline event")
		}
	}

	if err := tx.Commit(); err != nil {
		return "", errors.Wrap(err, "committing analysis")
	}
	db.logger.Debugw("Saved analysis", "analysis_id", id, "events", len(result.Events))
	return id, nil
}

// GetAnalysis returns a stored analysis with its decoded result.
func (db *DB) GetAnalysis(id string) (*Analysis, error) {
	row := db.conn.QueryRow(
		`SELECT id, document_id, options, result, time_expression_count, event_count, period_count, created_at
		FROM analyses WHERE id = ?`, id,
	)

	var a Analysis
	var optsJSON, resultJSON string
	if err := row.Scan(&a.ID, &a.DocumentID, &optsJSON, &resultJSON,
		&a.TimeExpressionCount, &a.EventCount, &a.PeriodCount, &a.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errors.Wrapf(ErrNotFound, "analysis %s", id)
		}
		return nil, err
	}

	if err := json.Unmarshal([]byte(optsJSON), &a.Options); err != nil {
		return nil, errors.Wrapf(err, "decoding options of analysis %s", id)
	}
	a.Result = &timeline.Result{}
	if err := json.Unmarshal([]byte(resultJSON), a.Result); err != nil {
		return nil, errors.Wrapf(err, "decoding result of analysis %s", id)
	}
	return &a, nil
}

// ListAnalyses returns the most recent analyses first. A limit of zero or
// less returns all of them.
func (db *DB) ListAnalyses(limit int) ([]AnalysisSummary, error) {
	query := `SELECT a.id, a.document_id, d.title, json_extract(a.options, '$.group_by'),
		a.time_expression_count, a.event_count, a.period_count, a.created_at
		FROM analyses a LEFT JOIN documents d ON a.document_id = d.id
		ORDER BY a.created_at DESC, a.rowid DESC`
	var args []any
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []AnalysisSummary
	for rows.Next() {
		var s AnalysisSummary
		var groupBy sql.NullString
		if err := rows.Scan(&s.ID, &s.DocumentID, &s.DocumentTitle, &groupBy,
			&s.TimeExpressionCount, &s.EventCount, &s.PeriodCount, &s.CreatedAt); err != nil {
			return nil, err
		}
		s.GroupBy = timeline.GroupBy(groupBy.String)
		out = append(out, s)
	}
	return out, rows.Err()
}

// GetEventsInRange returns stored events whose normalized year lies within
// [from, to], oldest first.
func (db *DB) GetEventsInRange(from, to int) ([]StoredEvent, error) {
	rows, err := db.conn.Query(
		`SELECT id, analysis_id, sentence, event_type, normalized_year, start_year, end_year, confidence, time_precision
		FROM timeline_events
		WHERE normalized_year BETWEEN ? AND ?
		ORDER BY normalized_year, id`, from, to,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []StoredEvent
	for rows.Next() {
		var e StoredEvent
		var eventType, precision string
		if err := rows.Scan(&e.ID, &e.AnalysisID, &e.Sentence, &eventType, &e.NormalizedYear,
			&e.StartYear, &e.EndYear, &e.Confidence, &precision); err != nil {
			return nil, err
		}
		e.EventType = timeline.EventType(eventType)
		e.TimePrecision = timeline.Precision(precision)
		out = append(out, e)
	}
	return out, rows.Err()
}
