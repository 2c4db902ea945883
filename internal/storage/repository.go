// Package storage persists aggregated summaries to a relational database.
//
// Backends register a Factory under a kind ("sqlite", "postgres", "mssql",
// "mysql") from their init functions; callers import storage/all for side
// effects and open a Repository with New without naming the backend.
package storage

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Config selects and configures a backend.
type Config struct {
	Kind    string   // registered backend kind
	DSN     string   // driver-specific connection string
	Table   string   // destination table, optionally schema-qualified
	Columns []string // ordered destination columns
}

// Repository is the minimal write surface shared by all backends.
type Repository interface {
	// CopyFrom bulk-inserts rows into the configured table. Each row has
	// one value per column, in column order.
	CopyFrom(ctx context.Context, columns []string, rows [][]any) (int64, error)
	// Replace deletes every row of the configured table and inserts rows in
	// the same transaction. On error the previous rows are kept.
	Replace(ctx context.Context, columns []string, rows [][]any) (int64, error)
	// Exec runs a single statement, typically DDL.
	Exec(ctx context.Context, sql string) error
	// Close releases the underlying connection pool.
	Close()
}

// Factory opens a Repository for cfg.
type Factory func(ctx context.Context, cfg Config) (Repository, error)

var (
	mu        sync.RWMutex
	factories = map[string]Factory{}
)

// Register installs (or replaces) the factory for kind.
func Register(kind string, f Factory) {
	mu.Lock()
	defer mu.Unlock()
	factories[kind] = f
}

// New opens a Repository using the factory registered for cfg.Kind.
func New(ctx context.Context, cfg Config) (Repository, error) {
	mu.RLock()
	f, ok := factories[cfg.Kind]
	mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unsupported storage.kind=%s (registered: %s)", cfg.Kind, strings.Join(ListKinds(), ", "))
	}
	return f(ctx, cfg)
}

// ListKinds returns the registered kinds in sorted order. The slice is a
// copy.
func ListKinds() []string {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]string, 0, len(factories))
	for k := range factories {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
