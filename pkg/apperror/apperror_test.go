package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestConstructorsMapToStatus(t *testing.T) {
	tests := []struct {
		name       string
		err        *Error
		wantCode   string
		wantStatus int
	}{
		{"validation", Validation("bad input"), CodeValidation, http.StatusBadRequest},
		{"not found", NotFound("missing"), CodeNotFound, http.StatusNotFound},
		{"forbidden", Forbidden("denied"), CodeForbidden, http.StatusForbidden},
		{"conflict", Conflict("wrong state"), CodeConflict, http.StatusBadRequest},
		{"persistence", Persistence("db down", errors.New("dial tcp")), CodePersistence, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Code != tt.wantCode {
				t.Errorf("code = %q, want %q", tt.err.Code, tt.wantCode)
			}
			if tt.err.Status != tt.wantStatus {
				t.Errorf("status = %d, want %d", tt.err.Status, tt.wantStatus)
			}
		})
	}
}

func TestFrom(t *testing.T) {
	orig := NotFound("missing")
	wrapped := fmt.Errorf("loading requisition: %w", orig)

	if got := From(wrapped); got != orig {
		t.Errorf("From did not unwrap to the original error, got %v", got)
	}

	// Unclassified errors become persistence failures with the cause retained.
	plain := errors.New("connection reset")
	got := From(plain)
	if got.Code != CodePersistence || got.Status != http.StatusInternalServerError {
		t.Errorf("unclassified error mapped to %q/%d", got.Code, got.Status)
	}
	if !errors.Is(got, plain) {
		t.Error("cause must remain in the chain")
	}
}

func TestIsCode(t *testing.T) {
	err := fmt.Errorf("outer: %w", Forbidden("denied"))
	if !IsCode(err, CodeForbidden) {
		t.Error("IsCode must see through wrapping")
	}
	if IsCode(err, CodeNotFound) {
		t.Error("IsCode matched the wrong code")
	}
	if IsCode(errors.New("plain"), CodeForbidden) {
		t.Error("IsCode matched a plain error")
	}
}

func TestErrorString(t *testing.T) {
	e := Persistence("insert failed", errors.New("duplicate key"))
	want := "persistence_error: insert failed: duplicate key"
	if e.Error() != want {
		t.Errorf("Error() = %q, want %q", e.Error(), want)
	}

	bare := Validation("title required")
	if bare.Error() != "validation_error: title required" {
		t.Errorf("Error() = %q", bare.Error())
	}
}
