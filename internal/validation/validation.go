// Package validation checks user-supplied identifiers: job names, column
// paths and output file names.
package validation

import (
	"fmt"
	"strings"
	"unicode"
)

// =============================================================================
// Name Validation
// =============================================================================

// NameRules defines the validation rules for names.
type NameRules struct {
	MinLength    int
	MaxLength    int
	AllowDots    bool
	AllowHyphens bool
	AllowUnders  bool
	AllowSpaces  bool
}

// JobNameRules returns the rules for job names. Job names end up in log
// lines and state file names, so they are kept path-safe.
func JobNameRules() NameRules {
	return NameRules{
		MinLength:    1,
		MaxLength:    128,
		AllowHyphens: true,
		AllowUnders:  true,
	}
}

// ColumnSegmentRules returns the rules for one segment of a column path.
func ColumnSegmentRules() NameRules {
	return NameRules{
		MinLength:    1,
		MaxLength:    255,
		AllowHyphens: true,
		AllowUnders:  true,
		AllowSpaces:  true,
	}
}

// ValidateName validates a name according to the given rules.
func ValidateName(name string, rules NameRules) error {
	if len(name) < rules.MinLength {
		return fmt.Errorf("name too short: minimum %d characters required", rules.MinLength)
	}
	if len(name) > rules.MaxLength {
		return fmt.Errorf("name too long: maximum %d characters allowed", rules.MaxLength)
	}

	if name == "." || name == ".." {
		return fmt.Errorf("name cannot be '.' or '..'")
	}

	for i, r := range name {
		if r < 32 || r == 127 {
			return fmt.Errorf("name cannot contain control characters at position %d", i)
		}
		if r == '/' || r == '\\' {
			return fmt.Errorf("name cannot contain path separators at position %d", i)
		}
		if !isAllowedNameChar(r, rules) {
			return fmt.Errorf("invalid character '%c' at position %d", r, i)
		}
	}

	return nil
}

func isAllowedNameChar(r rune, rules NameRules) bool {
	if unicode.IsLetter(r) || unicode.IsDigit(r) {
		return true
	}
	switch r {
	case '.':
		return rules.AllowDots
	case '-':
		return rules.AllowHyphens
	case '_':
		return rules.AllowUnders
	case ' ':
		return rules.AllowSpaces
	}
	return false
}

// ValidateJobName validates a job name. The empty name is allowed and
// means "unnamed".
func ValidateJobName(name string) error {
	if name == "" {
		return nil
	}
	return ValidateName(name, JobNameRules())
}

// =============================================================================
// Column Paths
// =============================================================================

// SplitColumnPath splits a dotted column path like "request.latency" into
// its segments.
func SplitColumnPath(path string) ([]string, error) {
	if path == "" {
		return nil, fmt.Errorf("column path cannot be empty")
	}
	if strings.HasPrefix(path, ".") || strings.HasSuffix(path, ".") {
		return nil, fmt.Errorf("column path cannot start or end with '.'")
	}

	segments := strings.Split(path, ".")
	rules := ColumnSegmentRules()
	for i, seg := range segments {
		if err := ValidateName(seg, rules); err != nil {
			return nil, fmt.Errorf("segment %d: %w", i, err)
		}
	}
	return segments, nil
}

// ValidateColumnPath validates a dotted column path.
func ValidateColumnPath(path string) error {
	_, err := SplitColumnPath(path)
	return err
}

// =============================================================================
// SQL Identifiers
// =============================================================================

// QuoteIdentifier quotes name as a SQL identifier, doubling embedded
// quotes.
func QuoteIdentifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// QuoteLiteral quotes s as a SQL string literal.
func QuoteLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
