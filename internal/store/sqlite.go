package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/livetemplate/blockdraft"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS templates (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL,
	doc        TEXT NOT NULL,
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL
)`

// SQLite stores templates in a single SQLite database file. The full
// document is kept as JSON in the doc column; name and timestamps are
// duplicated into their own columns for listing and ordering.
type SQLite struct {
	db   *sql.DB
	path string
}

// NewSQLite opens (and if needed creates) the database at path.
func NewSQLite(path string) (*SQLite, error) {
	if path == "" {
		path = "blockdraft.db"
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sqlite store: failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite store: failed to connect: %w", err)
	}

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite store: failed to create schema: %w", err)
	}

	return &SQLite{db: db, path: path}, nil
}

func (s *SQLite) List(ctx context.Context) ([]blockdraft.Template, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id, doc FROM templates ORDER BY updated_at DESC, id")
	if err != nil {
		return nil, fmt.Errorf("sqlite store: list failed: %w", err)
	}
	defer rows.Close()

	var out []blockdraft.Template
	for rows.Next() {
		var id, doc string
		if err := rows.Scan(&id, &doc); err != nil {
			return nil, err
		}
		tpl, err := blockdraft.DecodeTemplate([]byte(doc), id)
		if err != nil {
			return nil, fmt.Errorf("sqlite store: template %q is corrupt: %w", id, err)
		}
		out = append(out, tpl)
	}
	return out, rows.Err()
}

func (s *SQLite) Get(ctx context.Context, id string) (blockdraft.Template, error) {
	var doc string
	err := s.db.QueryRowContext(ctx, "SELECT doc FROM templates WHERE id = ?", id).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return blockdraft.Template{}, ErrNotFound
	}
	if err != nil {
		return blockdraft.Template{}, fmt.Errorf("sqlite store: get failed: %w", err)
	}

	tpl, err := blockdraft.DecodeTemplate([]byte(doc), id)
	if err != nil {
		return blockdraft.Template{}, fmt.Errorf("sqlite store: template %q is corrupt: %w", id, err)
	}
	return tpl, nil
}

func (s *SQLite) Put(ctx context.Context, tpl blockdraft.Template) error {
	doc, err := blockdraft.Encode(tpl)
	if err != nil {
		return fmt.Errorf("sqlite store: encode failed: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
INSERT INTO templates (id, name, doc, created_at, updated_at) VALUES (?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET name = excluded.name, doc = excluded.doc, updated_at = excluded.updated_at`,
		tpl.ID, tpl.Name, string(doc),
		tpl.CreatedAt.UTC().Format(time.RFC3339Nano),
		tpl.UpdatedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("sqlite store: put failed: %w", err)
	}
	return nil
}

func (s *SQLite) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM templates WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("sqlite store: delete failed: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLite) Close() error {
	return s.db.Close()
}
