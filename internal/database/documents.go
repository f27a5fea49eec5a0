package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"Daybook_V0.1/internal/schedule"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const documentsDDL = `
CREATE TABLE IF NOT EXISTS documents (
	path        TEXT PRIMARY KEY,
	collection  TEXT NOT NULL,
	data        JSONB NOT NULL DEFAULT '{}'::jsonb,
	updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS documents_collection_idx ON documents (collection);
`

const (
	getDocumentSQL = `SELECT data FROM documents WHERE path = $1`

	// The || operator keeps every stored key the patch does not mention.
	mergeDocumentSQL = `
INSERT INTO documents (path, collection, data)
VALUES ($1, $2, $3::jsonb)
ON CONFLICT (path) DO UPDATE
SET data = documents.data || EXCLUDED.data,
    updated_at = now()`

	queryRangeSQL = `
SELECT data FROM documents
WHERE collection = $1
  AND (data->>$2)::timestamptz BETWEEN $3 AND $4
ORDER BY (data->>$2)::timestamptz`
)

// PostgresDocuments is a schedule.DocumentStore on a JSONB table.
type PostgresDocuments struct {
	pool *pgxpool.Pool
}

// NewPostgresDocuments wraps pool.
func NewPostgresDocuments(pool *pgxpool.Pool) *PostgresDocuments {
	return &PostgresDocuments{pool: pool}
}

func (d *PostgresDocuments) Get(ctx context.Context, path string) (schedule.Document, error) {
	var raw []byte
	if err := d.pool.QueryRow(ctx, getDocumentSQL, path).Scan(&raw); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", path, schedule.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get document %s: %w", path, err)
	}
	return unmarshalDocument(raw)
}

func (d *PostgresDocuments) MergeSet(ctx context.Context, path string, fields schedule.Document) error {
	payload, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("failed to encode document %s: %w", path, err)
	}

	collection, _ := schedule.SplitPath(path)
	if _, err := d.pool.Exec(ctx, mergeDocumentSQL, path, collection, string(payload)); err != nil {
		return fmt.Errorf("failed to merge document %s: %w", path, err)
	}
	return nil
}

func (d *PostgresDocuments) QueryRange(ctx context.Context, collection, field string, from, to time.Time) ([]schedule.Document, error) {
	rows, err := d.pool.Query(ctx, queryRangeSQL, collection, field, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", collection, err)
	}
	defer rows.Close()

	var docs []schedule.Document
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		doc, err := unmarshalDocument(raw)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate %s: %w", collection, err)
	}
	return docs, nil
}

func unmarshalDocument(raw []byte) (schedule.Document, error) {
	var doc schedule.Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode document: %w", err)
	}
	return doc, nil
}
