package database

import (
	"database/sql"

	"github.com/cockroachdb/errors"
)

const documentColumns = `id, url, title, source, content, content_fetched, collected_at`

// InsertDocument inserts a document. Returns the ID on success, 0 if the URL
// is already stored.
func (db *DB) InsertDocument(url, title string, source, content *string) (int64, error) {
	result, err := db.conn.Exec(
		`INSERT OR IGNORE INTO documents (url, title, source, content) VALUES (?, ?, ?, ?)`,
		url, title, source, content,
	)
	if err != nil {
		return 0, errors.Wrapf(err, "inserting document %s", url)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, err
	}
	if n == 0 {
		return 0, nil
	}
	return result.LastInsertId()
}

// GetDocument returns a single document by ID.
func (db *DB) GetDocument(documentID int64) (*Document, error) {
	row := db.conn.QueryRow(`SELECT `+documentColumns+` FROM documents WHERE id = ?`, documentID)
	d, err := scanDocument(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errors.Wrapf(ErrNotFound, "document %d", documentID)
	}
	if err != nil {
		return nil, err
	}
	return d, nil
}

// GetDocumentsNeedingFetch returns documents with empty content that haven't
// been fetched, oldest first.
func (db *DB) GetDocumentsNeedingFetch() ([]Document, error) {
	return db.queryDocuments(`SELECT ` + documentColumns + ` FROM documents
		WHERE (content IS NULL OR content = '') AND content_fetched = 0
		ORDER BY collected_at, id`)
}

// UpdateDocumentContent stores fetched content.
func (db *DB) UpdateDocumentContent(documentID int64, content *string) error {
	_, err := db.conn.Exec(
		"UPDATE documents SET content = ?, content_fetched = 1 WHERE id = ?",
		content, documentID,
	)
	return err
}

// MarkDocumentFetchAttempted marks that we tried to fetch content.
func (db *DB) MarkDocumentFetchAttempted(documentID int64) error {
	_, err := db.conn.Exec("UPDATE documents SET content_fetched = 1 WHERE id = ?", documentID)
	return err
}

// GetUnanalyzedDocuments returns documents with content and no stored analysis.
func (db *DB) GetUnanalyzedDocuments() ([]Document, error) {
	return db.queryDocuments(`SELECT d.id, d.url, d.title, d.source, d.content, d.content_fetched, d.collected_at
		FROM documents d LEFT JOIN analyses a ON a.document_id = d.id
		WHERE a.id IS NULL AND d.content IS NOT NULL AND d.content != ''
		ORDER BY d.id`)
}

// CountUnanalyzedDocuments is GetUnanalyzedDocuments without loading content.
func (db *DB) CountUnanalyzedDocuments() (int, error) {
	var n int
	err := db.conn.QueryRow(`SELECT COUNT(*)
		FROM documents d LEFT JOIN analyses a ON a.document_id = d.id
		WHERE a.id IS NULL AND d.content IS NOT NULL AND d.content != ''`).Scan(&n)
	return n, err
}

func (db *DB) queryDocuments(query string, args ...any) ([]Document, error) {
	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		var d Document
		var fetched int
		if err := rows.Scan(&d.ID, &d.URL, &d.Title, &d.Source, &d.Content, &fetched, &d.CollectedAt); err != nil {
			return nil, err
		}
		d.ContentFetched = fetched != 0
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

func scanDocument(row *sql.Row) (*Document, error) {
	var d Document
	var fetched int
	if err := row.Scan(&d.ID, &d.URL, &d.Title, &d.Source, &d.Content, &fetched, &d.CollectedAt); err != nil {
		return nil, err
	}
	d.ContentFetched = fetched != 0
	return &d, nil
}
