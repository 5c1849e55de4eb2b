package domain

import (
	"errors"
	"fmt"
	"testing"
)

func TestPersistenceError_Wrapping(t *testing.T) {
	cause := errors.New("disk I/O error")
	err := fmt.Errorf("ingest: %w", NewPersistenceError("append sample", cause))

	if !IsPersistence(err) {
		t.Fatal("expected IsPersistence to see through fmt wrapping")
	}
	if !errors.Is(err, cause) {
		t.Error("expected the driver error to stay reachable")
	}
	if IsValidation(err) {
		t.Error("persistence error misclassified as validation")
	}
	if NewPersistenceError("noop", nil) != nil {
		t.Error("expected nil for a nil cause")
	}
}

func TestValidationError_Message(t *testing.T) {
	err := &ValidationError{Field: FieldThOuter, Err: ErrMissingField}
	if got := err.Error(); got != "validation failed for th_outer: field is missing" {
		t.Errorf("unexpected message %q", got)
	}
}
