package errors

import (
	"fmt"
	"testing"
)

func TestLentoError_Error(t *testing.T) {
	err := &LentoError{
		Code:    ErrNotFound,
		Status:  404,
		Message: "task not found",
	}

	expected := "NOT_FOUND: task not found"
	if err.Error() != expected {
		t.Errorf("Error() = %q, want %q", err.Error(), expected)
	}
}

func TestConstructors(t *testing.T) {
	tests := []struct {
		name   string
		err    *LentoError
		code   ErrorCode
		status int
	}{
		{"invalid request", NewInvalidRequest("name is required"), ErrInvalidRequest, 400},
		{"invalid field", NewInvalidField("importance", "must be between 1 and 5"), ErrInvalidRequest, 400},
		{"unauthorized", NewUnauthorized("missing token"), ErrUnauthorized, 401},
		{"not found", NewNotFound("task", "01ABC"), ErrNotFound, 404},
		{"name exists", NewNameAlreadyExists("category", "Health"), ErrNameAlreadyExists, 409},
		{"conflict", NewConflict("already imported"), ErrConflict, 409},
		{"internal", NewInternal(fmt.Errorf("disk full")), ErrInternal, 500},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Code != tt.code {
				t.Errorf("Code = %q, want %q", tt.err.Code, tt.code)
			}
			if tt.err.Status != tt.status {
				t.Errorf("Status = %d, want %d", tt.err.Status, tt.status)
			}
			if tt.err.Message == "" {
				t.Error("Message should not be empty")
			}
		})
	}
}

func TestNewNotFound_Details(t *testing.T) {
	err := NewNotFound("task", "01ABC")
	if err.Message != "task not found: 01ABC" {
		t.Errorf("Message = %q", err.Message)
	}
	if err.Details["kind"] != "task" || err.Details["id"] != "01ABC" {
		t.Errorf("Details = %v", err.Details)
	}
}

func TestNewInternal_NilError(t *testing.T) {
	err := NewInternal(nil)
	if err.Message != "internal error" {
		t.Errorf("Message = %q, want %q", err.Message, "internal error")
	}
}

func TestIs(t *testing.T) {
	err := NewNotFound("task", "x")
	if !Is(err, ErrNotFound) {
		t.Error("Is(err, ErrNotFound) should be true")
	}
	if Is(err, ErrConflict) {
		t.Error("Is(err, ErrConflict) should be false")
	}

	wrapped := fmt.Errorf("loading today: %w", err)
	if !Is(wrapped, ErrNotFound) {
		t.Error("Is should see through wrapping")
	}

	if Is(fmt.Errorf("plain"), ErrNotFound) {
		t.Error("Is on a plain error should be false")
	}
	if Is(nil, ErrNotFound) {
		t.Error("Is(nil) should be false")
	}
}
