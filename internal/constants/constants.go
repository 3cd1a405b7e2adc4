// Package constants provides centralized domain-specific constants
// for the quantile engine.
//
// This file consolidates the names shared by the CLI, the job
// configuration and the function registry.
package constants

// =============================================================================
// Functions
// =============================================================================

const (
	// FunctionTDigest is the registry name of the approximate quantile
	// aggregate.
	FunctionTDigest = "tdigest"
)

// =============================================================================
// Source Kinds - where input batches come from
// =============================================================================

const (
	// SourceParquet reads one column of a Parquet file
	SourceParquet = "parquet"

	// SourceDuckDB runs a SQL query through DuckDB
	SourceDuckDB = "duckdb"
)

// ValidSources contains all valid source kinds
var ValidSources = []string{SourceParquet, SourceDuckDB}

// IsValidSource checks if a source kind is valid
func IsValidSource(kind string) bool {
	return contains(ValidSources, kind)
}

// =============================================================================
// Output Formats
// =============================================================================

const (
	// FormatAuto picks table output on a terminal and TSV otherwise
	FormatAuto = "auto"

	// FormatTable prints aligned columns
	FormatTable = "table"

	// FormatTSV prints tab-separated values
	FormatTSV = "tsv"
)

// ValidFormats contains all valid output formats
var ValidFormats = []string{FormatAuto, FormatTable, FormatTSV}

// IsValidFormat checks if an output format is valid
func IsValidFormat(format string) bool {
	return contains(ValidFormats, format)
}

// =============================================================================
// Commands
// =============================================================================

const (
	// CommandRun computes quantiles end to end
	CommandRun = "run"

	// CommandPartial writes the encoded state of one partition
	CommandPartial = "partial"

	// CommandMerge merges encoded partition states and finalizes them
	CommandMerge = "merge"
)

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
