package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/xtxerr/quantile/internal/compute"
	"github.com/xtxerr/quantile/internal/constants"
	"github.com/xtxerr/quantile/internal/errors"
	"github.com/xtxerr/quantile/internal/logging"
)

// partialCommand consumes the whole input into one state and writes the
// encoded state to a file, to be combined later by merge.
func partialCommand(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	f := newJobFlags(constants.CommandPartial, stderr)
	var statePath string
	f.fs.StringVar(&statePath, "state", "", "file to write the encoded state to")

	if err := f.parse(args); err != nil {
		if err == flag.ErrHelp {
			return nil
		}
		return err
	}
	if statePath == "" {
		return errors.NewMissingField("-state")
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

	col, err := loadColumn(ctx, cfg, memory.NewGoAllocator())
	if err != nil {
		return err
	}
	defer col.Release()

	fn, err := compute.DefaultRegistry().Lookup(constants.FunctionTDigest)
	if err != nil {
		return err
	}
	st, err := compute.Consume(ctx, fn, col.Type, opts, col.Batches())
	if err != nil {
		return err
	}

	data, err := st.MarshalState()
	if err != nil {
		return err
	}
	if err := os.WriteFile(statePath, data, 0644); err != nil {
		return fmt.Errorf("write state: %w", err)
	}

	log.Info("state written",
		"path", statePath,
		"type", col.Type,
		"count", st.Count(),
		"all_valid", st.AllValid(),
		"bytes", len(data))
	fmt.Fprintf(stdout, "%s\t%s\t%d\n", statePath, col.Type, st.Count())
	return nil
}
