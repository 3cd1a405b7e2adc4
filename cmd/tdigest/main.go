// tdigest computes approximate quantiles of a numeric column.
//
// Usage:
//
//	tdigest run     [flags]              read, aggregate in parallel, print
//	tdigest partial [flags] -state FILE  write the encoded state of one partition
//	tdigest merge   [flags] FILE...      merge encoded states and print
//
// Input is a Parquet column (-path, -column) or a DuckDB query (-query,
// -column). A YAML job file (-config) supplies defaults; flags override it.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/xtxerr/quantile/internal/constants"
	"github.com/xtxerr/quantile/internal/errors"
	"github.com/xtxerr/quantile/internal/logging"
)

// Version is set at build time via ldflags
var Version = "dev"

const usage = `tdigest %s

Usage:
  tdigest run     [flags]              compute quantiles of a column
  tdigest partial [flags] -state FILE  write the encoded state of one partition
  tdigest merge   [flags] FILE...      merge encoded states and print quantiles
  tdigest version

Run "tdigest <command> -h" for the flags of a command.
`

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()

	if err != nil {
		logging.Component(logging.ComponentCLI).Error("command failed", "error", err)
		fmt.Fprintf(os.Stderr, "tdigest: %v\n", err)
	}
	os.Exit(errors.ErrorToExitCode(err))
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	if len(args) == 0 {
		fmt.Fprintf(stderr, usage, Version)
		return errors.NewMissingField("command")
	}

	switch cmd, rest := args[0], args[1:]; cmd {
	case constants.CommandRun:
		return runCommand(ctx, rest, stdout, stderr)
	case constants.CommandPartial:
		return partialCommand(ctx, rest, stdout, stderr)
	case constants.CommandMerge:
		return mergeCommand(ctx, rest, stdout, stderr)
	case "version":
		fmt.Fprintf(stdout, "tdigest %s\n", Version)
		return nil
	case "help", "-h", "-help", "--help":
		fmt.Fprintf(stdout, usage, Version)
		return nil
	default:
		fmt.Fprintf(stderr, usage, Version)
		return errors.NewValidation("command", fmt.Sprintf("unknown command %q", cmd))
	}
}
