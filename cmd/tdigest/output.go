package main

import (
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/olekukonko/tablewriter"
	"golang.org/x/term"

	"github.com/xtxerr/quantile/internal/config"
	"github.com/xtxerr/quantile/internal/constants"
	"github.com/xtxerr/quantile/internal/errors"
	"github.com/xtxerr/quantile/internal/source/parquet"
)

// resolveFormat turns auto into table on a terminal and tsv otherwise.
func resolveFormat(format string, w io.Writer) string {
	if format != constants.FormatAuto {
		return format
	}
	if f, ok := w.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		return constants.FormatTable
	}
	return constants.FormatTSV
}

// printResults writes one line per quantile. ref, when non-nil, adds a
// DDSketch column.
func printResults(w io.Writer, format string, q []float64, out *array.Float64, ref []float64) error {
	if out.Len() != len(q) {
		return errors.Wrapf(errors.ErrInternal, "%d quantiles but %d results", len(q), out.Len())
	}

	header := []string{"quantile", "tdigest"}
	if ref != nil {
		header = append(header, "ddsketch")
	}

	rows := make([][]string, len(q))
	for i := range q {
		row := []string{formatFloat(q[i]), "null"}
		if out.IsValid(i) {
			row[1] = formatFloat(out.Value(i))
		}
		if ref != nil {
			row = append(row, formatFloat(ref[i]))
		}
		rows[i] = row
	}

	switch resolveFormat(format, w) {
	case constants.FormatTable:
		table := tablewriter.NewWriter(w)
		table.SetHeader(header)
		table.SetAutoFormatHeaders(false)
		table.SetAlignment(tablewriter.ALIGN_RIGHT)
		table.AppendBulk(rows)
		table.Render()
		return nil
	default:
		if err := writeTSVLine(w, header); err != nil {
			return err
		}
		for _, row := range rows {
			if err := writeTSVLine(w, row); err != nil {
				return err
			}
		}
		return nil
	}
}

func writeTSVLine(w io.Writer, fields []string) error {
	for i, f := range fields {
		sep := "\t"
		if i == len(fields)-1 {
			sep = "\n"
		}
		if _, err := fmt.Fprint(w, f, sep); err != nil {
			return err
		}
	}
	return nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// writeOutputFile exports the results when an output path is configured.
func writeOutputFile(cfg *config.Config, q []float64, out *array.Float64) error {
	if cfg.Output.Path == "" {
		return nil
	}
	opts := parquet.DefaultOptions()
	opts.Compression = parquet.ParseCompressionType(cfg.Output.Compression)
	return parquet.WriteResults(cfg.Output.Path, q, out, opts)
}
