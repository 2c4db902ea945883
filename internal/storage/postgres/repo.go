// Package postgres implements a Postgres repository using pgx v5. Rows are
// loaded with the COPY protocol through the pool.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Config holds Postgres repository configuration.
type Config struct {
	DSN     string   // connection string for pgxpool
	Table   string   // target table, optionally schema-qualified, e.g. "public.station_summary"
	Columns []string // ordered columns for COPY
}

// Repository is a Postgres-backed implementation of storage.Repository.
type Repository struct {
	pool *pgxpool.Pool
	cfg  Config
}

// NewRepository constructs a Repository and returns a close function.
func NewRepository(ctx context.Context, cfg Config) (*Repository, func(), error) {
	pool, err := pgxpool.New(ctx, cfg.DSN)
	if err != nil {
		return nil, nil, fmt.Errorf("postgres: pgxpool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("postgres: ping: %w", err)
	}
	return &Repository{pool: pool, cfg: cfg}, func() { pool.Close() }, nil
}

// CopyFrom streams rows into the configured table with COPY.
func (r *Repository) CopyFrom(ctx context.Context, columns []string, rows [][]any) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	n, err := r.pool.CopyFrom(ctx, splitFQN(r.cfg.Table), columns, pgx.CopyFromRows(rows))
	if err != nil {
		return n, copyErr(err)
	}
	return n, nil
}

// Replace truncates the table and copies rows in one transaction. TRUNCATE
// is transactional in Postgres, so a failed copy keeps the previous rows.
func (r *Repository) Replace(ctx context.Context, columns []string, rows [][]any) (int64, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("postgres: begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }() // no-op after Commit

	if _, err := tx.Exec(ctx, clearSQL(r.cfg.Table)); err != nil {
		return 0, fmt.Errorf("postgres: clear: %w", err)
	}
	var n int64
	if len(rows) > 0 {
		if n, err = tx.CopyFrom(ctx, splitFQN(r.cfg.Table), columns, pgx.CopyFromRows(rows)); err != nil {
			return 0, copyErr(err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("postgres: commit: %w", err)
	}
	return n, nil
}

func copyErr(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Detail != "" {
		return fmt.Errorf("postgres: copy: %s (%s)", pgErr.Detail, pgErr.SQLState())
	}
	return fmt.Errorf("postgres: copy: %w", err)
}

// Exec implements storage.Repository.Exec for Postgres.
func (r *Repository) Exec(ctx context.Context, sql string) error {
	if _, err := r.pool.Exec(ctx, sql); err != nil {
		return fmt.Errorf("postgres: exec: %w", err)
	}
	return nil
}

// summaryDDL returns the statements that create the summary table.
func summaryDDL(table string) []string {
	t := pgFQN(table)
	return []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
  "station" text PRIMARY KEY,
  "min_value" double precision NOT NULL,
  "mean_value" double precision NOT NULL,
  "max_value" double precision NOT NULL,
  "sample_count" bigint NOT NULL
)`, t),
	}
}

// clearSQL empties the summary table ahead of a reload.
func clearSQL(table string) string { return "TRUNCATE TABLE " + pgFQN(table) }

// splitFQN converts "schema.table" into a pgx.Identifier {"schema","table"}.
func splitFQN(fqn string) pgx.Identifier {
	parts := strings.Split(fqn, ".")
	id := make(pgx.Identifier, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			id = append(id, p)
		}
	}
	return id
}

// pgIdent safely quotes a single identifier segment for Postgres.
func pgIdent(id string) string { return `"` + strings.ReplaceAll(id, `"`, `""`) + `"` }

// pgFQN quotes a possibly schema-qualified name like "public.t" to
// "public"."t".
func pgFQN(name string) string {
	parts := strings.Split(name, ".")
	for i, p := range parts {
		parts[i] = pgIdent(p)
	}
	return strings.Join(parts, ".")
}
