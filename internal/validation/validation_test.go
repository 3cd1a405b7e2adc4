package validation

import (
	"strings"
	"testing"
)

func TestValidateJobName(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"empty", "", false},
		{"simple", "latency", false},
		{"with hyphen", "p99-latency", false},
		{"with underscore", "req_latency", false},
		{"numbers", "2024", false},
		{"dot", ".", true},
		{"dotdot", "..", true},
		{"with dot", "a.b", true},
		{"slash", "a/b", true},
		{"backslash", "a\\b", true},
		{"control char", "a\x00b", true},
		{"space", "a b", true},
		{"too long", strings.Repeat("x", 129), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateJobName(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateJobName(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}

func TestSplitColumnPath(t *testing.T) {
	tests := []struct {
		input   string
		want    []string
		wantErr bool
	}{
		{"latency", []string{"latency"}, false},
		{"request.latency", []string{"request", "latency"}, false},
		{"a.b.c", []string{"a", "b", "c"}, false},
		{"response time", []string{"response time"}, false},
		{"", nil, true},
		{".latency", nil, true},
		{"latency.", nil, true},
		{"a..b", nil, true},
		{"a/b", nil, true},
		{"a\tb", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := SplitColumnPath(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("SplitColumnPath(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if len(got) != len(tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, got)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("segment %d: expected %q, got %q", i, tt.want[i], got[i])
				}
			}
		})
	}
}

func TestQuote(t *testing.T) {
	if got := QuoteIdentifier(`lat"ency`); got != `"lat""ency"` {
		t.Errorf("expected %q, got %q", `"lat""ency"`, got)
	}
	if got := QuoteLiteral("it's.parquet"); got != "'it''s.parquet'" {
		t.Errorf("expected %q, got %q", "'it''s.parquet'", got)
	}
}
