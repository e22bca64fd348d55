package util

import (
	"errors"
	"strings"
	"testing"
)

func TestValidationBuilder(t *testing.T) {
	v := &ValidationBuilder{}
	v.Add(true, "should not appear")
	if v.HasErrors() {
		t.Fatal("HasErrors = true with only passing conditions")
	}
	if err := v.Build(); err != nil {
		t.Fatalf("Build = %v, want nil", err)
	}

	v.Add(false, "name is required")
	v.AddErrorf("field %s: bad value %d", "count", -1)
	if !v.HasErrors() {
		t.Fatal("HasErrors = false after failures")
	}

	err := v.Build()
	if !errors.Is(err, ErrValidationFailed) {
		t.Fatalf("Build = %v, want ErrValidationFailed", err)
	}
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("Build error type = %T, want *ValidationError", err)
	}
	if len(ve.Errors) != 2 {
		t.Errorf("accumulated %d errors, want 2", len(ve.Errors))
	}
	if !strings.Contains(err.Error(), "name is required") {
		t.Errorf("message %q missing first failure", err.Error())
	}
}

func TestValidationErrorSingleMessage(t *testing.T) {
	err := NewValidationError("prompt is required")
	if got := err.Error(); got != "validation failed: prompt is required" {
		t.Errorf("Error() = %q", got)
	}
}
