package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver

	"github.com/livetemplate/blockdraft"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS templates (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL,
	doc        JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
)`

// Postgres stores templates in a PostgreSQL database, one JSONB row
// per document.
type Postgres struct {
	db *sql.DB
}

// NewPostgres connects to the database named by dsn. An empty dsn
// falls back to the DATABASE_URL environment variable.
func NewPostgres(dsn string) (*Postgres, error) {
	if dsn == "" {
		dsn = os.Getenv("DATABASE_URL")
	}
	if dsn == "" {
		return nil, fmt.Errorf("postgres store: connection required (set storage.dsn or DATABASE_URL env)")
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres store: failed to open database: %w", err)
	}

	// Configure connection pool
	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("postgres store: failed to connect: %w", err)
	}

	if _, err := db.ExecContext(ctx, postgresSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("postgres store: failed to create schema: %w", err)
	}

	return &Postgres{db: db}, nil
}

func (s *Postgres) List(ctx context.Context) ([]blockdraft.Template, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id, doc FROM templates ORDER BY updated_at DESC, id")
	if err != nil {
		return nil, fmt.Errorf("postgres store: list failed: %w", err)
	}
	defer rows.Close()

	var out []blockdraft.Template
	for rows.Next() {
		var id string
		var doc []byte
		if err := rows.Scan(&id, &doc); err != nil {
			return nil, err
		}
		tpl, err := blockdraft.DecodeTemplate(doc, id)
		if err != nil {
			return nil, fmt.Errorf("postgres store: template %q is corrupt: %w", id, err)
		}
		out = append(out, tpl)
	}
	return out, rows.Err()
}

func (s *Postgres) Get(ctx context.Context, id string) (blockdraft.Template, error) {
	var doc []byte
	err := s.db.QueryRowContext(ctx, "SELECT doc FROM templates WHERE id = $1", id).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return blockdraft.Template{}, ErrNotFound
	}
	if err != nil {
		return blockdraft.Template{}, fmt.Errorf("postgres store: get failed: %w", err)
	}

	tpl, err := blockdraft.DecodeTemplate(doc, id)
	if err != nil {
		return blockdraft.Template{}, fmt.Errorf("postgres store: template %q is corrupt: %w", id, err)
	}
	return tpl, nil
}

func (s *Postgres) Put(ctx context.Context, tpl blockdraft.Template) error {
	doc, err := blockdraft.Encode(tpl)
	if err != nil {
		return fmt.Errorf("postgres store: encode failed: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
INSERT INTO templates (id, name, doc, created_at, updated_at) VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, doc = EXCLUDED.doc, updated_at = EXCLUDED.updated_at`,
		tpl.ID, tpl.Name, doc, tpl.CreatedAt.UTC(), tpl.UpdatedAt.UTC())
	if err != nil {
		return fmt.Errorf("postgres store: put failed: %w", err)
	}
	return nil
}

func (s *Postgres) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM templates WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("postgres store: delete failed: %w", err)
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

func (s *Postgres) Close() error {
	return s.db.Close()
}
