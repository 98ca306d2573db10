// Package postgres provides a Postgres-backed DocumentStore. Documents are
// rows in a single JSONB table; ids and write timestamps are assigned by the
// server, which is what makes them authoritative during local-draft promotion.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as a database/sql driver

	"fieldreport/pkg/domain"
)

var _ domain.DocumentStore = (*Store)(nil)

const (
	defaultDriver = "pgx"
	defaultDSN    = "postgres://localhost/fieldreport?sslmode=disable"
)

var (
	sqlOpen = sql.Open
	openMu  sync.Mutex
)

// Store persists documents to Postgres.
type Store struct {
	db *sql.DB
}

// NewStore opens a Postgres-backed document store using the provided DSN
// (falls back to defaultDSN) and ensures the documents table exists.
func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		dsn = defaultDSN
	}
	openMu.Lock()
	db, err := sqlOpen(defaultDriver, dsn)
	openMu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if err := ensureDocumentsTable(ctx, db); err != nil {
		return nil, err
	}
	return &Store{db: db}, nil
}

// DB exposes the underlying sql.DB for integration testing hooks.
func (s *Store) DB() *sql.DB { return s.db }

func ensureDocumentsTable(ctx context.Context, db *sql.DB) error {
	ddl := `CREATE TABLE IF NOT EXISTS documents (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		collection TEXT NOT NULL,
		tech_id TEXT NOT NULL,
		payload JSONB NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`
	if _, err := db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("ensure documents table: %w", err)
	}
	idx := `CREATE INDEX IF NOT EXISTS documents_collection_tech_idx
		ON documents (collection, tech_id)`
	if _, err := db.ExecContext(ctx, idx); err != nil {
		return fmt.Errorf("ensure documents index: %w", err)
	}
	return nil
}

// Create inserts the document and returns the server-assigned id and write
// timestamp.
func (s *Store) Create(ctx context.Context, collection string, data domain.FormRecord) (domain.Document, error) {
	payload, err := json.Marshal(data)
	if err != nil {
		return domain.Document{}, fmt.Errorf("encode document: %w", err)
	}
	var id string
	var updatedAt time.Time
	row := s.db.QueryRowContext(ctx,
		`INSERT INTO documents(collection, tech_id, payload) VALUES($1, $2, $3)
		 RETURNING id, updated_at`,
		collection, data.TechID(), payload)
	if err := row.Scan(&id, &updatedAt); err != nil {
		return domain.Document{}, fmt.Errorf("insert document: %w", err)
	}
	return domain.Document{ID: id, Timestamp: updatedAt.UnixMilli(), Data: data.Clone()}, nil
}

// Update replaces the payload of an existing document, refreshing the server
// timestamp. Updating a missing id is an error.
func (s *Store) Update(ctx context.Context, collection, id string, data domain.FormRecord) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("encode document: %w", err)
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE documents SET payload = $1, tech_id = $2, updated_at = now()
		 WHERE collection = $3 AND id = $4`,
		payload, data.TechID(), collection, id)
	if err != nil {
		return fmt.Errorf("update document: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update document: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("document %s/%s not found", collection, id)
	}
	return nil
}

// Delete removes a document by id.
func (s *Store) Delete(ctx context.Context, collection, id string) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM documents WHERE collection = $1 AND id = $2`, collection, id)
	if err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("document %s/%s not found", collection, id)
	}
	return nil
}

// Query returns all documents in the collection whose payload field equals
// value. The query succeeds or fails as a unit.
func (s *Store) Query(ctx context.Context, collection, field, value string) ([]domain.Document, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, payload, updated_at FROM documents
		 WHERE collection = $1 AND payload->>$2 = $3
		 ORDER BY updated_at DESC`,
		collection, field, value)
	if err != nil {
		return nil, fmt.Errorf("query documents: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []domain.Document
	for rows.Next() {
		var (
			id        string
			payload   []byte
			updatedAt time.Time
		)
		if err := rows.Scan(&id, &payload, &updatedAt); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		var data domain.FormRecord
		if err := json.Unmarshal(payload, &data); err != nil {
			return nil, fmt.Errorf("decode document %s: %w", id, err)
		}
		out = append(out, domain.Document{ID: id, Timestamp: updatedAt.UnixMilli(), Data: data})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate documents: %w", err)
	}
	return out, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error { return s.db.Close() }

// OverrideSQLOpen swaps the sqlOpen function for tests and returns a restore
// function.
func OverrideSQLOpen(fn func(driverName, dataSourceName string) (*sql.DB, error)) func() {
	openMu.Lock()
	defer openMu.Unlock()
	prev := sqlOpen
	sqlOpen = fn
	return func() {
		openMu.Lock()
		defer openMu.Unlock()
		sqlOpen = prev
	}
}
