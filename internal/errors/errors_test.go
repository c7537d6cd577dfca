package errors

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestNew(t *testing.T) {
	err := New(InputTooLarge, "routes.go is 3 MiB")

	if err.Code != InputTooLarge {
		t.Errorf("Code = %v, want %v", err.Code, InputTooLarge)
	}
	if err.Message != "routes.go is 3 MiB" {
		t.Errorf("Message = %q", err.Message)
	}
	if len(err.SuggestedFixes) != 1 || err.SuggestedFixes[0].Setting != "analysis.maxFileBytes" {
		t.Errorf("SuggestedFixes = %+v", err.SuggestedFixes)
	}
}

func TestError_Error(t *testing.T) {
	tests := []struct {
		name      string
		code      ErrorCode
		message   string
		cause     error
		wantParts []string
	}{
		{
			name:      "with cause",
			code:      StorageUnavailable,
			message:   "open snapshot database",
			cause:     errors.New("permission denied"),
			wantParts: []string{"STORAGE_UNAVAILABLE", "open snapshot database", "permission denied"},
		},
		{
			name:      "without cause",
			code:      FileNotFound,
			message:   "api/routes.go not found",
			wantParts: []string{"FILE_NOT_FOUND", "api/routes.go not found"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Wrap(tt.code, tt.message, tt.cause).Error()
			for _, part := range tt.wantParts {
				if !strings.Contains(got, part) {
					t.Errorf("Error() = %q, want to contain %q", got, part)
				}
			}
		})
	}
}

func TestError_Unwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := Wrap(InternalError, "something went wrong", cause)

	if err.Unwrap() != cause {
		t.Errorf("Unwrap() = %v, want %v", err.Unwrap(), cause)
	}
	if !errors.Is(err, cause) {
		t.Error("errors.Is should see the cause")
	}

	if New(DiffUnparseable, "bad diff").Unwrap() != nil {
		t.Errorf("Unwrap() on error without cause should return nil")
	}
}

func TestError_WithDetails(t *testing.T) {
	err := New(InputTooLarge, "too large")
	details := map[string]int{"size": 10000, "limit": 4000}

	if result := err.WithDetails(details); result != err {
		t.Error("WithDetails should return the same error for chaining")
	}
	if err.Details == nil {
		t.Error("Details should be set")
	}
}

func TestIsCodeAndCodeOf(t *testing.T) {
	inner := Wrap(ConsumerScanFailed, "walk consumers", errors.New("no such directory"))
	wrapped := fmt.Errorf("analyze: %w", inner)

	if !IsCode(wrapped, ConsumerScanFailed) {
		t.Error("IsCode should look through fmt.Errorf wrapping")
	}
	if IsCode(wrapped, StorageUnavailable) {
		t.Error("IsCode matched the wrong code")
	}
	if CodeOf(wrapped) != ConsumerScanFailed {
		t.Errorf("CodeOf = %s", CodeOf(wrapped))
	}
	if CodeOf(errors.New("plain")) != InternalError {
		t.Error("plain errors should map to INTERNAL_ERROR")
	}
}

func TestGetSuggestedFixes(t *testing.T) {
	tests := []struct {
		code    ErrorCode
		wantNil bool
		wantLen int
	}{
		{ConfigInvalid, false, 1},
		{InputTooLarge, false, 1},
		{StorageUnavailable, false, 1},
		{ConsumerScanFailed, false, 1},
		{DiffUnparseable, false, 1},
		{FileNotFound, true, 0}, // No predefined fixes
		{InternalError, true, 0},
	}

	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			fixes := GetSuggestedFixes(tt.code)

			if tt.wantNil && fixes != nil {
				t.Errorf("GetSuggestedFixes(%v) = %v, want nil", tt.code, fixes)
			}
			if !tt.wantNil && len(fixes) != tt.wantLen {
				t.Errorf("GetSuggestedFixes(%v) len = %d, want %d", tt.code, len(fixes), tt.wantLen)
			}
		})
	}
}

func TestErrorCodes(t *testing.T) {
	codes := []ErrorCode{
		ConfigInvalid,
		InputTooLarge,
		FileNotFound,
		DiffUnparseable,
		StorageUnavailable,
		ConsumerScanFailed,
		InternalError,
	}

	seen := make(map[ErrorCode]bool)
	for _, code := range codes {
		if seen[code] {
			t.Errorf("Duplicate error code: %v", code)
		}
		seen[code] = true

		if string(code) == "" {
			t.Error("Error code should not be empty")
		}
	}
}

func TestErrorActionsMap(t *testing.T) {
	for code, fixes := range ErrorActions {
		if len(fixes) == 0 {
			t.Errorf("ErrorActions[%v] has no fix actions", code)
		}
		for i, fix := range fixes {
			if fix.Type == "" {
				t.Errorf("ErrorActions[%v][%d].Type is empty", code, i)
			}
			if fix.Type == EditConfig && fix.Setting == "" {
				t.Errorf("ErrorActions[%v][%d] edits config without naming a setting", code, i)
			}
		}
	}
}
