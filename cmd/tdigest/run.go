package main

import (
	"context"
	"flag"
	"io"
	"time"

	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/xtxerr/quantile/internal/compute"
	"github.com/xtxerr/quantile/internal/constants"
	"github.com/xtxerr/quantile/internal/logging"
	"github.com/xtxerr/quantile/internal/reference"
	"github.com/xtxerr/quantile/internal/source"
)

// runCommand reads the input, aggregates its partitions in parallel and
// prints the quantiles.
func runCommand(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	f := newJobFlags(constants.CommandRun, stderr)
	if err := f.parse(args); err != nil {
		if err == flag.ErrHelp {
			return nil
		}
		return err
	}

	cfg, err := f.load(true)
	if err != nil {
		return err
	}
	initLogging(cfg, stderr)
	log := logging.Component(logging.ComponentCLI)

	opts, err := cfg.ToOptions()
	if err != nil {
		return err
	}

	ctx, cancel := withTimeout(ctx, cfg)
	defer cancel()
	ctx = logging.ContextWithJob(ctx, cfg.Name)

	start := time.Now()
	mem := memory.NewGoAllocator()

	col, err := loadColumn(ctx, cfg, mem)
	if err != nil {
		return err
	}
	defer col.Release()

	log.Info("input loaded",
		"job", cfg.Name,
		"source", cfg.Source.Kind,
		"column", col.Name,
		"type", col.Type,
		"rows", col.Rows(),
		"nulls", col.NullN())

	fn, err := compute.DefaultRegistry().Lookup(constants.FunctionTDigest)
	if err != nil {
		return err
	}

	exec := &compute.Executor{MaxWorkers: cfg.Execution.MaxWorkers, Mem: mem}
	res, err := exec.Exec(ctx, fn, col.Type, opts, col.Partition(cfg.Execution.Partitions))
	if err != nil {
		return err
	}
	defer res.Release()

	var ref []float64
	if cfg.Reference.Enabled {
		if ref, err = referenceQuantiles(col, cfg.Reference.Accuracy, opts.Quantiles()); err != nil {
			return err
		}
	}

	if err := printResults(stdout, cfg.Output.Format, opts.Quantiles(), res.Values, ref); err != nil {
		return err
	}
	if err := writeOutputFile(cfg, opts.Quantiles(), res.Values); err != nil {
		return err
	}

	log.Info("job finished",
		"job", cfg.Name,
		"count", res.Count,
		"all_valid", res.AllValid,
		"partitions", res.Partitions,
		"duration", time.Since(start))
	return nil
}

// referenceQuantiles runs the DDSketch estimator over the whole column.
func referenceQuantiles(col *source.Column, accuracy float64, q []float64) ([]float64, error) {
	est, err := reference.New(accuracy)
	if err != nil {
		return nil, err
	}
	for _, b := range col.Batches() {
		if err := est.Consume(b); err != nil {
			return nil, err
		}
	}
	return est.Quantiles(q)
}
