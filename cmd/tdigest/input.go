package main

import (
	"context"

	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/xtxerr/quantile/internal/config"
	"github.com/xtxerr/quantile/internal/constants"
	"github.com/xtxerr/quantile/internal/errors"
	"github.com/xtxerr/quantile/internal/source"
	"github.com/xtxerr/quantile/internal/source/duckdb"
	"github.com/xtxerr/quantile/internal/source/parquet"
)

// loadColumn reads the configured input column.
func loadColumn(ctx context.Context, cfg *config.Config, mem memory.Allocator) (*source.Column, error) {
	src := cfg.Source

	switch src.Kind {
	case constants.SourceParquet:
		return parquet.ReadColumn(src.Path, src.Column, src.BatchSize, mem)

	case constants.SourceDuckDB:
		db, err := duckdb.Open(duckdb.Options{
			MemoryLimit: src.DuckDB.MemoryLimit,
			Threads:     src.DuckDB.Threads,
			BatchSize:   src.BatchSize,
		})
		if err != nil {
			return nil, err
		}
		defer db.Close()
		return db.Query(ctx, src.Query, src.Column, mem)

	default:
		return nil, errors.NewInvalidValue("source.kind", src.Kind, "unknown source")
	}
}

// withTimeout applies the job timeout to ctx.
func withTimeout(ctx context.Context, cfg *config.Config) (context.Context, context.CancelFunc) {
	if cfg.Execution.Timeout > 0 {
		return context.WithTimeout(ctx, cfg.Execution.Timeout)
	}
	return context.WithCancel(ctx)
}
