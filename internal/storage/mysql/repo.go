// Package mysql provides a MySQL-backed storage.Repository implementation.
// Rows are written with batched multi-row INSERT statements in one
// transaction.
package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/go-sql-driver/mysql"
)

// insertBatch caps the rows per INSERT so statements stay well under
// max_allowed_packet and the 65535 placeholder limit.
const insertBatch = 500

// Config holds MySQL repository configuration.
type Config struct {
	DSN     string
	Table   string
	Columns []string
}

// Repository is a MySQL-backed implementation of storage.Repository.
type Repository struct {
	db  *sql.DB
	cfg Config
}

// NewRepository validates the DSN, opens a pool and pings it.
func NewRepository(ctx context.Context, cfg Config) (*Repository, func(), error) {
	if _, err := mysql.ParseDSN(cfg.DSN); err != nil {
		return nil, nil, fmt.Errorf("mysql dsn: %w", err)
	}
	db, err := sql.Open("mysql", cfg.DSN)
	if err != nil {
		return nil, nil, fmt.Errorf("sql.Open: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("ping: %w", err)
	}
	return &Repository{db: db, cfg: cfg}, func() { _ = db.Close() }, nil
}

// CopyFrom inserts rows in batches inside a single transaction.
func (r *Repository) CopyFrom(ctx context.Context, columns []string, rows [][]any) (int64, error) {
	if len(columns) == 0 {
		return 0, fmt.Errorf("mysql: CopyFrom: columns must not be empty")
	}
	if len(rows) == 0 {
		return 0, nil
	}
	return r.write(ctx, "", columns, rows)
}

// Replace deletes every row and inserts rows in the same transaction. DELETE
// is used rather than TRUNCATE because TRUNCATE commits implicitly.
func (r *Repository) Replace(ctx context.Context, columns []string, rows [][]any) (int64, error) {
	if len(columns) == 0 {
		return 0, fmt.Errorf("mysql: Replace: columns must not be empty")
	}
	return r.write(ctx, clearSQL(r.cfg.Table), columns, rows)
}

func (r *Repository) write(ctx context.Context, clear string, columns []string, rows [][]any) (int64, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	rollback := func() { _ = tx.Rollback() }

	if clear != "" {
		if _, err := tx.ExecContext(ctx, clear); err != nil {
			rollback()
			return 0, fmt.Errorf("clear: %w", err)
		}
	}
	var total int64
	for start := 0; start < len(rows); start += insertBatch {
		end := min(start+insertBatch, len(rows))
		stmt, args, err := buildInsert(r.cfg.Table, columns, rows[start:end])
		if err != nil {
			rollback()
			return 0, err
		}
		res, err := tx.ExecContext(ctx, stmt, args...)
		if err != nil {
			rollback()
			return 0, fmt.Errorf("insert rows %d..%d: %w", start, end-1, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			rollback()
			return 0, fmt.Errorf("rows affected: %w", err)
		}
		total += n
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return total, nil
}

func (r *Repository) Exec(ctx context.Context, sqlText string) error {
	_, err := r.db.ExecContext(ctx, sqlText)
	return err
}

// buildInsert renders one multi-row INSERT and its flattened arguments.
func buildInsert(table string, columns []string, rows [][]any) (string, []any, error) {
	tuple := "(" + strings.TrimSuffix(strings.Repeat("?, ", len(columns)), ", ") + ")"

	var b strings.Builder
	fmt.Fprintf(&b, "INSERT INTO %s (%s) VALUES ", myFQN(table), strings.Join(mapIdent(columns), ", "))
	args := make([]any, 0, len(rows)*len(columns))
	for i, row := range rows {
		if len(row) != len(columns) {
			return "", nil, fmt.Errorf("mysql: row %d length %d != columns %d", i, len(row), len(columns))
		}
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(tuple)
		args = append(args, row...)
	}
	return b.String(), args, nil
}

// summaryDDL creates the table when missing.
func summaryDDL(table string) []string {
	t := myFQN(table)
	return []string{
		fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n"+
			"  `station` VARCHAR(255) NOT NULL PRIMARY KEY,\n"+
			"  `min_value` DOUBLE NOT NULL,\n"+
			"  `mean_value` DOUBLE NOT NULL,\n"+
			"  `max_value` DOUBLE NOT NULL,\n"+
			"  `sample_count` BIGINT NOT NULL\n"+
			") CHARACTER SET utf8mb4 COLLATE utf8mb4_bin", t),
	}
}

// clearSQL empties the summary table ahead of a reload.
func clearSQL(table string) string { return "DELETE FROM " + myFQN(table) }

func myIdent(id string) string { return "`" + strings.ReplaceAll(id, "`", "``") + "`" }

func myFQN(name string) string {
	parts := strings.Split(name, ".")
	for i, p := range parts {
		parts[i] = myIdent(p)
	}
	return strings.Join(parts, ".")
}

func mapIdent(cols []string) []string {
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = myIdent(c)
	}
	return out
}
