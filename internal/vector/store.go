// Package vector adapts a Postgres + pgvector database to the index
// operations the pipelines need: ensure, upsert, query.
package vector

import (
	"context"
	"errors"
	"fmt"
	"log"
	"regexp"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	pgvector "github.com/pgvector/pgvector-go"

	"github.com/cloo-solutions/postcraft/internal/domain"
)

// dbtx abstracts pgxpool.Pool and pgx.Tx
type dbtx interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Postgres error codes for "already exists" class failures
const (
	pgCodeDuplicateTable  = "42P07"
	pgCodeDuplicateObject = "42710"
)

var indexNamePattern = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// Filter restricts a query to records whose metadata field equals a value.
type Filter struct {
	Field string
	Value string
}

// Record is one query hit, ordered by descending similarity.
type Record struct {
	ID       string
	Score    float32
	Metadata map[string]any
}

// Store performs index operations against pgvector. Queries never mutate
// index state; records are owned by the store once upserted.
type Store struct {
	db dbtx
}

// NewStore creates a Store backed by a connection pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{db: pool}
}

// NewStoreWithTx creates a Store bound to an open transaction.
func NewStoreWithTx(tx pgx.Tx) *Store {
	return &Store{db: tx}
}

func validateIndexName(name string) error {
	if !indexNamePattern.MatchString(name) {
		return domain.NewDomainError(domain.ErrCodeValidation, fmt.Sprintf("invalid index name: %q", name))
	}
	return nil
}

// EnsureIndex creates the index table if it does not exist. Calling it again
// with the same name succeeds; "already exists" class errors are swallowed
// and logged, any other error is returned.
func (s *Store) EnsureIndex(ctx context.Context, name string, dimension int) error {
	if err := validateIndexName(name); err != nil {
		return err
	}
	if dimension <= 0 {
		return domain.NewDomainError(domain.ErrCodeValidation, fmt.Sprintf("invalid dimension: %d", dimension))
	}

	// Index name is validated against an identifier pattern above, so
	// interpolation is safe; table and dimension cannot be bind parameters
	// in DDL.
	_, err := s.db.Exec(ctx, fmt.Sprintf(
		`CREATE TABLE IF NOT EXISTS %s (
			id UUID PRIMARY KEY,
			embedding vector(%d) NOT NULL,
			metadata JSONB NOT NULL DEFAULT '{}',
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`, name, dimension))
	if err != nil {
		if isAlreadyExists(err) {
			log.Printf("vector: index %s already exists", name)
			return nil
		}
		return fmt.Errorf("failed to create index %s: %w", name, err)
	}

	_, err = s.db.Exec(ctx, fmt.Sprintf(
		`CREATE INDEX IF NOT EXISTS %s_embedding_idx ON %s
		 USING ivfflat (embedding vector_cosine_ops) WITH (lists = 100)`, name, name))
	if err != nil {
		if isAlreadyExists(err) {
			return nil
		}
		return fmt.Errorf("failed to create similarity index for %s: %w", name, err)
	}

	return nil
}

func isAlreadyExists(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgCodeDuplicateTable || pgErr.Code == pgCodeDuplicateObject
	}
	return false
}

// Upsert writes one record per embedding/metadata pair and returns the
// assigned ids in input order. Lengths are validated before any statement
// is issued.
func (s *Store) Upsert(ctx context.Context, name string, embeddings [][]float32, metadata []map[string]any) ([]string, error) {
	if err := validateIndexName(name); err != nil {
		return nil, err
	}
	if len(embeddings) != len(metadata) {
		return nil, domain.NewDomainError(domain.ErrCodeValidation,
			fmt.Sprintf("embeddings/metadata length mismatch: %d != %d", len(embeddings), len(metadata)))
	}
	if len(embeddings) == 0 {
		return nil, domain.NewDomainError(domain.ErrCodeValidation, "nothing to upsert")
	}

	ids := make([]string, len(embeddings))
	for i := range embeddings {
		id := uuid.NewString()
		_, err := s.db.Exec(ctx, fmt.Sprintf(
			`INSERT INTO %s (id, embedding, metadata) VALUES ($1, $2, $3)`, name),
			id, pgvector.NewVector(embeddings[i]), metadata[i])
		if err != nil {
			return nil, fmt.Errorf("failed to upsert record %d into %s: %w", i, name, err)
		}
		ids[i] = id
	}
	return ids, nil
}

// Query returns up to k records nearest to the embedding by cosine
// similarity, most similar first, optionally restricted by an exact-match
// metadata filter.
func (s *Store) Query(ctx context.Context, name string, embedding []float32, k int, filter *Filter) ([]*Record, error) {
	if err := validateIndexName(name); err != nil {
		return nil, err
	}
	if k <= 0 {
		return nil, domain.NewDomainError(domain.ErrCodeValidation, fmt.Sprintf("invalid k: %d", k))
	}

	query := fmt.Sprintf(
		`SELECT id, metadata, 1 - (embedding <=> $1) AS score
		 FROM %s`, name)
	args := []any{pgvector.NewVector(embedding)}

	if filter != nil {
		query += fmt.Sprintf(" WHERE metadata->>$%d = $%d", len(args)+1, len(args)+2)
		args = append(args, filter.Field, filter.Value)
	}

	query += fmt.Sprintf(" ORDER BY embedding <=> $1 LIMIT $%d", len(args)+1)
	args = append(args, k)

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query index %s: %w", name, err)
	}
	defer rows.Close()

	var records []*Record
	for rows.Next() {
		var record Record
		if err := rows.Scan(&record.ID, &record.Metadata, &record.Score); err != nil {
			return nil, fmt.Errorf("failed to scan query result: %w", err)
		}
		records = append(records, &record)
	}
	return records, rows.Err()
}

// Count returns the number of records in the index. Used for advisory
// post-upsert verification only.
func (s *Store) Count(ctx context.Context, name string) (int64, error) {
	if err := validateIndexName(name); err != nil {
		return 0, err
	}
	var count int64
	err := s.db.QueryRow(ctx, fmt.Sprintf(`SELECT COUNT(*) FROM %s`, name)).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count records in %s: %w", name, err)
	}
	return count, nil
}
