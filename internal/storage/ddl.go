package storage

import (
	"context"
	"fmt"
	"sync"
)

// DDLBootstrapper makes sure the summary table exists, using
// backend-specific DDL applied through repo.Exec.
type DDLBootstrapper func(ctx context.Context, repo Repository, table string) error

var (
	ddlMu  sync.RWMutex
	ddlFns = map[string]DDLBootstrapper{}
)

// RegisterDDL registers (or replaces) the bootstrapper for kind.
func RegisterDDL(kind string, fn DDLBootstrapper) {
	ddlMu.Lock()
	defer ddlMu.Unlock()
	ddlFns[kind] = fn
}

// EnsureSummaryTable runs the bootstrapper registered for kind.
func EnsureSummaryTable(ctx context.Context, kind string, repo Repository, table string) error {
	ddlMu.RLock()
	fn, ok := ddlFns[kind]
	ddlMu.RUnlock()
	if !ok {
		return fmt.Errorf("no DDL bootstrapper registered for storage.kind=%q", kind)
	}
	return fn(ctx, repo, table)
}

// Execer runs a single statement.
type Execer interface {
	Exec(ctx context.Context, sql string) error
}

// ExecAll runs statements in order, stopping at the first error.
func ExecAll(ctx context.Context, ex Execer, stmts []string) error {
	for _, s := range stmts {
		if err := ex.Exec(ctx, s); err != nil {
			return fmt.Errorf("apply DDL: %w", err)
		}
	}
	return nil
}
