package quote

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// DocumentStore is the persistence boundary of the quote store: get/put
// semantics over a named document. A missing document reads as (nil, nil).
type DocumentStore interface {
	Get(ctx context.Context, location string) ([]byte, error)
	Put(ctx context.Context, location string, body []byte) error
}

// PostgresDocumentStore keeps each quote document as a row in the
// quote_documents table, one row per location.
type PostgresDocumentStore struct {
	DB *sql.DB
}

func (p *PostgresDocumentStore) Get(ctx context.Context, location string) ([]byte, error) {
	var body []byte
	err := p.DB.QueryRowContext(ctx, `SELECT body FROM quote_documents WHERE location=$1`, location).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read quote document %q: %w", location, err)
	}
	return body, nil
}

func (p *PostgresDocumentStore) Put(ctx context.Context, location string, body []byte) error {
	_, err := p.DB.ExecContext(ctx, `INSERT INTO quote_documents(location, body, updated_at) VALUES($1,$2,NOW())
		ON CONFLICT(location) DO UPDATE SET body=EXCLUDED.body, updated_at=NOW()`, location, body)
	if err != nil {
		return fmt.Errorf("write quote document %q: %w", location, err)
	}
	return nil
}

// FileDocumentStore keeps each quote document as a JSON file under Dir.
// Writes go through a temp file and rename so a concurrent reader never
// observes a partial document.
type FileDocumentStore struct {
	Dir string
}

func (f *FileDocumentStore) path(location string) string {
	return filepath.Join(f.Dir, filepath.Base(location))
}

func (f *FileDocumentStore) Get(_ context.Context, location string) ([]byte, error) {
	body, err := os.ReadFile(f.path(location))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read quote document %q: %w", location, err)
	}
	return body, nil
}

func (f *FileDocumentStore) Put(_ context.Context, location string, body []byte) error {
	if err := os.MkdirAll(f.Dir, 0o755); err != nil {
		return fmt.Errorf("create quote document dir: %w", err)
	}
	dst := f.path(location)
	tmp := dst + ".tmp"
	if err := os.WriteFile(tmp, body, 0o644); err != nil {
		return fmt.Errorf("write quote document %q: %w", location, err)
	}
	if err := os.Rename(tmp, dst); err != nil {
		return fmt.Errorf("write quote document %q: %w", location, err)
	}
	return nil
}
