package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/xtxerr/quantile/internal/aggregate"
	"github.com/xtxerr/quantile/internal/compute"
	"github.com/xtxerr/quantile/internal/constants"
	"github.com/xtxerr/quantile/internal/errors"
	"github.com/xtxerr/quantile/internal/logging"
)

// mergeCommand decodes state files written by partial, merges them and
// prints the quantiles. The quantiles, min_count and output come from the
// flags; the states carry their own digest parameters.
func mergeCommand(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	f := newJobFlags(constants.CommandMerge, stderr)
	if err := f.parse(args); err != nil {
		if err == flag.ErrHelp {
			return nil
		}
		return err
	}

	files := f.fs.Args()
	if len(files) == 0 {
		return errors.NewMissingField("state files")
	}

	cfg, err := f.load(false)
	if err != nil {
		return err
	}
	if err := cfg.Output.Validate(); err != nil {
		return err
	}
	initLogging(cfg, stderr)
	log := logging.Component(logging.ComponentCLI)

	opts, err := cfg.ToOptions()
	if err != nil {
		return err
	}

	states := make([]aggregate.Aggregator, 0, len(files))
	for _, path := range files {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read state: %w", err)
		}
		st, err := aggregate.DecodeState(data, opts)
		if err != nil {
			return errors.Wrapf(err, "state %s", path)
		}
		log.Debug("state decoded", "path", path, "type", st.Type(), "count", st.Count())
		states = append(states, st)
	}

	merged, err := compute.Reduce(ctx, states)
	if err != nil {
		return err
	}

	out, err := merged.Finalize(memory.NewGoAllocator())
	if err != nil {
		return err
	}
	defer out.Release()

	if err := printResults(stdout, cfg.Output.Format, opts.Quantiles(), out, nil); err != nil {
		return err
	}
	if err := writeOutputFile(cfg, opts.Quantiles(), out); err != nil {
		return err
	}

	log.Info("states merged",
		"files", len(files),
		"count", merged.Count(),
		"all_valid", merged.AllValid())
	return nil
}
