package core

import (
	"errors"
	"fmt"
	"testing"
)

func TestMapError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode string
	}{
		{"nil error returns empty", nil, ""},
		{"missing fields", &ValidationError{Reason: ReasonMissingFields}, "VAL001"},
		{"invalid email", &ValidationError{Reason: ReasonInvalidEmail}, "VAL002"},
		{"invalid mobile", &ValidationError{Reason: ReasonInvalidMobile}, "VAL003"},
		{"empty update", &ValidationError{Field: "patch", Reason: "nothing to update"}, "VAL005"},
		{"duplicate", &DuplicateError{Email: "a@b.com"}, "DUP001"},
		{"unknown group", &ValidationError{Reason: ReasonUnknownGroup}, "GRP001"},
		{"empty group name", errEmptyName(), "GRP002"},
		{"duplicate group name", ErrDuplicateName, "GRP003"},
		{"empty input", ErrEmptyInput, "FILE005"},
		{"file too large", fmt.Errorf("%w: limit is 10 bytes", ErrFileTooLarge), "FILE001"},
		{"too many imports", ErrTooManyImports, "IMP001"},
		{"not found", fmt.Errorf("delete contact: %w", ErrNotFound), "DB006"},
		{"unique violation from driver", errors.New("ERROR: duplicate key value violates unique constraint"), "DB001"},
		{"connection refused", errors.New("dial tcp: connection refused"), "DB003"},
		{"cancelled", fmt.Errorf("import: %w", errors.New("context canceled")), "IMP003"},
		{"case insensitive", errors.New("RATE LIMIT exceeded"), "RATE001"},
		{"unknown error returns default", errors.New("some random internal error"), "ERR000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := MapError(tt.err); got.Code != tt.wantCode {
				t.Errorf("MapError() code = %q, want %q", got.Code, tt.wantCode)
			}
		})
	}
}

func TestMapError_CollaboratorKeepsStoreMessage(t *testing.T) {
	err := &CollaboratorError{Op: "create contact", Message: "quota exceeded for account"}

	got := MapError(err)
	if got.Code != "DB000" {
		t.Errorf("code = %q, want DB000", got.Code)
	}
	if got.Message != "quota exceeded for account" {
		t.Errorf("message = %q, want store message", got.Message)
	}
}

func TestFormatUserError(t *testing.T) {
	got := FormatUserError(&DuplicateError{})
	want := "Duplicate entry (Code: DUP001). A contact with this email or mobile already exists"
	if got != want {
		t.Errorf("FormatUserError() = %q, want %q", got, want)
	}
}

func TestIsUserFacing(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil error is not user facing", nil, false},
		{"known error is user facing", ErrEmptyInput, true},
		{"unknown error is not user facing", errors.New("random internal error xyz"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsUserFacing(tt.err); got != tt.want {
				t.Errorf("IsUserFacing() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNewUserError(t *testing.T) {
	if got := NewUserError(nil); got != nil {
		t.Errorf("NewUserError(nil) = %v, want nil", got)
	}

	techErr := errors.New("pq: duplicate key value")
	userErr := NewUserError(techErr)
	if userErr.Error() != "This record already exists" {
		t.Errorf("Error() = %q, want user message", userErr.Error())
	}
	if !errors.Is(userErr, techErr) {
		t.Error("Unwrap() should return original error")
	}
}
