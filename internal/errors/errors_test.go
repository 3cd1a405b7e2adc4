package errors

import (
	"fmt"
	"testing"
)

func TestCategories(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		notFound   bool
		validation bool
		typeErr    bool
		stateErr   bool
	}{
		{"function", NewNotFound("function", "median"), true, false, false, false},
		{"column", fmt.Errorf("latency: %w", ErrColumnNotFound), true, false, false, false},
		{"option", NewInvalidOption("delta", 0, "must be in (0, 1]"), false, true, false, false},
		{"config", NewValidation("source", "unknown"), false, true, false, false},
		{"missing", NewMissingField("column"), false, true, false, false},
		{"unsupported", NewUnsupportedType("halffloat"), false, false, true, false},
		{"mismatch", NewTypeMismatch("double", "int64"), false, false, true, false},
		{"corrupt", Wrap(ErrCorruptState, "decode"), false, false, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsNotFound(tt.err); got != tt.notFound {
				t.Errorf("IsNotFound: expected %t, got %t", tt.notFound, got)
			}
			if got := IsValidation(tt.err); got != tt.validation {
				t.Errorf("IsValidation: expected %t, got %t", tt.validation, got)
			}
			if got := IsTypeError(tt.err); got != tt.typeErr {
				t.Errorf("IsTypeError: expected %t, got %t", tt.typeErr, got)
			}
			if got := IsStateError(tt.err); got != tt.stateErr {
				t.Errorf("IsStateError: expected %t, got %t", tt.stateErr, got)
			}
		})
	}
}

func TestErrorToExitCode(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{nil, ExitOK},
		{NewInvalidOption("q", 2, "out of range"), ExitUsage},
		{NewUnsupportedType("string"), ExitUnsupportedType},
		{NewNotFound("column", "x"), ExitInvalidInput},
		{ErrCorruptState, ExitInvalidInput},
		{Wrap(ErrAllocationFailed, "finalize"), ExitResource},
		{New("boom"), ExitInternal},
	}

	for _, tt := range tests {
		if got := ErrorToExitCode(tt.err); got != tt.want {
			t.Errorf("ErrorToExitCode(%v): expected %d, got %d", tt.err, tt.want, got)
		}
	}
}

func TestWrap(t *testing.T) {
	if Wrap(nil, "ctx") != nil {
		t.Error("Wrap(nil) should be nil")
	}
	if Wrapf(nil, "ctx %d", 1) != nil {
		t.Error("Wrapf(nil) should be nil")
	}

	err := Wrapf(ErrTypeMismatch, "partition %d", 2)
	if !Is(err, ErrTypeMismatch) {
		t.Errorf("expected wrapped ErrTypeMismatch, got %v", err)
	}
	if err.Error() != "partition 2: type mismatch" {
		t.Errorf("expected %q, got %q", "partition 2: type mismatch", err.Error())
	}
}

func TestValidationErrors(t *testing.T) {
	v := NewValidationErrors()
	if v.HasErrors() || v.Err() != nil {
		t.Fatal("empty collector should report no error")
	}

	v.Add(nil)
	v.AddField("source", "unknown kind")
	v.AddMissing("column")
	v.Add(NewInvalidOption("delta", 2, "must be in (0, 1]"))

	if len(v.Errors) != 3 {
		t.Fatalf("expected 3 errors, got %d", len(v.Errors))
	}

	err := v.Err()
	if !Is(err, ErrMissingField) || !Is(err, ErrInvalidOptions) || !Is(err, ErrInvalidConfig) {
		t.Errorf("expected every sentinel reachable, got %v", err)
	}
	if !IsValidation(err) {
		t.Error("collected errors should be a validation error")
	}
}
