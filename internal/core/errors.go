package core

import (
	"errors"
	"fmt"
)

// Rejection reasons written to the skip report.
const (
	ReasonMissingFields = "Missing required fields"
	ReasonInvalidEmail  = "Invalid email format"
	ReasonInvalidMobile = "Invalid mobile number"
	ReasonDuplicate     = "Duplicate entry"
	ReasonUnknownGroup  = "Unknown group"
)

var (
	// ErrEmptyInput is returned when an import file has no parsable rows.
	ErrEmptyInput = errors.New("empty file: no valid contacts found")

	// ErrDuplicateName is returned when a group name is already registered.
	ErrDuplicateName = errors.New("group name already exists")

	// ErrNotFound is returned when the store has no record with the given id.
	ErrNotFound = errors.New("record not found")
)

// ValidationError is a rejected field on a candidate contact.
// Error returns the skip report reason.
type ValidationError struct {
	Field  string
	Value  string
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Reason
}

// DuplicateError reports an email or mobile collision with an existing contact.
type DuplicateError struct {
	Email  string
	Mobile string
}

func (e *DuplicateError) Error() string {
	return ReasonDuplicate
}

// CollaboratorError wraps a failure reported by the store, or a failure to
// reach it. Message is what the store said and is shown to the operator.
type CollaboratorError struct {
	Op      string
	Message string
	Err     error
}

func (e *CollaboratorError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return e.Op + " failed"
}

func (e *CollaboratorError) Unwrap() error {
	return e.Err
}

// ConfigurationError rejects an operation before any side effect, such as
// an empty group name.
type ConfigurationError struct {
	Message string
}

func (e *ConfigurationError) Error() string {
	return e.Message
}

// errEmptyName is the ConfigurationError for blank group names.
func errEmptyName() error {
	return &ConfigurationError{Message: "Empty name"}
}

// collaboratorErr wraps err unless it already is a CollaboratorError or a
// sentinel the caller branches on.
func collaboratorErr(op string, err error) error {
	if err == nil {
		return nil
	}
	var ce *CollaboratorError
	if errors.As(err, &ce) || errors.Is(err, ErrNotFound) || errors.Is(err, ErrDuplicateName) {
		return err
	}
	return &CollaboratorError{Op: op, Message: err.Error(), Err: err}
}

// Reason returns the skip report reason for an import row error.
func Reason(err error) string {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve.Reason
	}
	var de *DuplicateError
	if errors.As(err, &de) {
		return ReasonDuplicate
	}
	return err.Error()
}
