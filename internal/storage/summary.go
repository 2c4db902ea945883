package storage

import (
	"context"
	"fmt"

	"rowstats/internal/format"
)

// SummaryColumns are the destination columns, in row order.
var SummaryColumns = []string{"station", "min_value", "mean_value", "max_value", "sample_count"}

// SummaryRows converts entries to rows matching SummaryColumns. Values are
// in units (tenths / 10); the mean is the rounded mean that is rendered.
func SummaryRows(entries []format.Entry) [][]any {
	rows := make([][]any, 0, len(entries))
	for _, e := range entries {
		s := e.Summary
		rows = append(rows, []any{
			e.Key,
			float64(s.Min) / 10,
			float64(s.Mean()) / 10,
			float64(s.Max) / 10,
			s.Count,
		})
	}
	return rows
}

// WriteSummaries opens the backend named by cfg.Kind, creates the summary
// table if needed and replaces its contents with one row per entry. The
// table name is sanitized.
func WriteSummaries(ctx context.Context, cfg Config, entries []format.Entry) (int64, error) {
	cfg.Table = SanitizeIdent(cfg.Table)
	cfg.Columns = SummaryColumns

	repo, err := New(ctx, cfg)
	if err != nil {
		return 0, fmt.Errorf("storage: open %s: %w", cfg.Kind, err)
	}
	defer repo.Close()

	if err := EnsureSummaryTable(ctx, cfg.Kind, repo, cfg.Table); err != nil {
		return 0, fmt.Errorf("storage: prepare %s: %w", cfg.Table, err)
	}
	n, err := repo.Replace(ctx, SummaryColumns, SummaryRows(entries))
	if err != nil {
		return n, fmt.Errorf("storage: load %s: %w", cfg.Table, err)
	}
	return n, nil
}
