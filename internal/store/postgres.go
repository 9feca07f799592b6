package store

import (
	"context"
	"fmt"

	"github.com/dgallion1/examkb/internal/export"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore writes records with a pgx connection pool.
type PostgresStore struct {
	Pool *pgxpool.Pool
}

func NewPostgres(ctx context.Context, dsn string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &PostgresStore{Pool: pool}, nil
}

const createTableSQL = `
CREATE TABLE IF NOT EXISTS knowledge_tree (
    id           TEXT PRIMARY KEY,
    code         TEXT NOT NULL,
    title        TEXT NOT NULL,
    content      TEXT,
    parent_id    TEXT,
    subject_code TEXT NOT NULL,
    level        INTEGER NOT NULL,
    importance   INTEGER NOT NULL DEFAULT 0,
    node_type    TEXT NOT NULL,
    point_type   TEXT,
    drug_name    TEXT
);
CREATE INDEX IF NOT EXISTS knowledge_tree_subject_idx ON knowledge_tree (subject_code);
CREATE INDEX IF NOT EXISTS knowledge_tree_parent_idx ON knowledge_tree (parent_id);`

func (s *PostgresStore) Init(ctx context.Context) error {
	if _, err := s.Pool.Exec(ctx, createTableSQL); err != nil {
		return fmt.Errorf("create knowledge_tree: %w", err)
	}
	return nil
}

const insertSQL = `INSERT INTO knowledge_tree
    (id, code, title, content, parent_id, subject_code, level, importance, node_type, point_type, drug_name)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

// Replace deletes the subject's rows and inserts records in one transaction.
func (s *PostgresStore) Replace(ctx context.Context, subjectCode string, records []export.Record) error {
	return pgx.BeginFunc(ctx, s.Pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM knowledge_tree WHERE subject_code = $1`, subjectCode); err != nil {
			return fmt.Errorf("delete subject: %w", err)
		}

		batch := &pgx.Batch{}
		for _, r := range records {
			batch.Queue(insertSQL, pgArgs(r)...)
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("insert records: %w", err)
		}
		return nil
	})
}

func (s *PostgresStore) Close() error {
	s.Pool.Close()
	return nil
}

// pgArgs maps a record onto insertSQL parameters; empty optional
// columns become NULL.
func pgArgs(r export.Record) []any {
	return []any{
		r.ID, r.Code, r.Title, nullString(r.Content), nullString(r.ParentID), r.SubjectCode,
		r.Level, r.Importance, r.Type, nullString(r.PointType), nullString(r.DrugName),
	}
}

func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
