package core

// error_messages.go turns engine and store errors into operator-facing
// messages with a support code.
//
// # Codes
//
//	VAL001 Missing required fields     email or group is empty
//	VAL002 Invalid email format        email is not local@domain.tld
//	VAL003 Invalid mobile number       mobile is not exactly 10 digits
//	VAL004 Invalid request parameter   bad sort key, order or export column
//	VAL005 Invalid request             malformed body or empty update
//
//	DUP001 Duplicate entry             email or mobile already used by a contact
//
//	GRP001 Unknown group               group reference does not resolve
//	GRP002 Empty name                  group name is blank after trimming
//	GRP003 Group already exists        group name is taken
//
//	FILE001 File too large             over IMPORT_MAX_FILE_SIZE
//	FILE003 Encoding error             file is not decodable text
//	FILE004 No file                    multipart form had no file
//	FILE005 Empty file                 no data rows
//	FILE006 Read failure               the upload could not be read
//
//	IMP001 System busy                 no import slot within IMPORT_MAX_WAIT_TIME
//	IMP002 Report not found            import report expired or never existed
//	IMP003 Request cancelled
//	IMP004 Request timeout
//
//	DB001 Already exists               unique constraint in the store
//	DB002 Referenced record missing    foreign key constraint in the store
//	DB003 Store unreachable            connection refused
//	DB004 Store connection lost        connection reset
//	DB005 Store timeout
//	DB006 Record not found
//	DB000 Store rejected the request   any other CollaboratorError
//
//	RATE001 Too many requests
//
//	AUTH001 API key required           no X-API-Key or bearer token
//	AUTH002 API key not accepted       key matches no configured key
//
//	ERR000 Unexpected error            check the logs for the original error
//
// Patterns are matched case-insensitively with strings.Contains and the
// first match wins, so specific patterns come before general ones.

import (
	"errors"
	"fmt"
	"strings"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string // What happened (user-friendly)
	Action  string // What to do about it
	Code    string // Error code for support reference
}

type errorPattern struct {
	pattern string
	msg     UserMessage
}

var errorPatterns = []errorPattern{
	// Row validation
	{"missing required fields", UserMessage{"Missing required fields", "Every contact needs an email and a group", "VAL001"}},
	{"invalid email format", UserMessage{"Invalid email format", "Use an address like name@example.com", "VAL002"}},
	{"invalid mobile number", UserMessage{"Invalid mobile number", "Mobile numbers must be exactly 10 digits, or left empty", "VAL003"}},
	{"invalid sort", UserMessage{"Invalid request parameter", "Sort by name, group or date, in asc or desc order", "VAL004"}},
	{"unknown column", UserMessage{"Invalid request parameter", "Check the export column names", "VAL004"}},
	{"invalid request body", UserMessage{"Invalid request", "Send a JSON body with the documented fields", "VAL005"}},
	{"nothing to update", UserMessage{"Nothing to update", "Change at least one field before saving", "VAL005"}},
	{"duplicate entry", UserMessage{"Duplicate entry", "A contact with this email or mobile already exists", "DUP001"}},

	// Groups
	{"unknown group", UserMessage{"Unknown group", "Create the group first or pick an existing one", "GRP001"}},
	{"empty group name", UserMessage{"Group name is empty", "Pick a group to move the contacts to", "GRP002"}},
	{"empty name", UserMessage{"Group name is empty", "Enter a name for the group", "GRP002"}},
	{"group name already exists", UserMessage{"A group with this name already exists", "Use a different name", "GRP003"}},

	// Files
	{"file too large", UserMessage{"File exceeds the maximum size", "Split the file into smaller files", "FILE001"}},
	{"encoding error", UserMessage{"File contains invalid characters", "Save the file as UTF-8", "FILE003"}},
	{"no file provided", UserMessage{"No file was selected", "Choose a CSV file to import", "FILE004"}},
	{"empty file", UserMessage{"No valid contacts found in the file", "Download the sample file to check the layout", "FILE005"}},
	{"read import file", UserMessage{"The file could not be read", "Please try the upload again", "FILE006"}},

	// Imports
	{"too many imports", UserMessage{"System is busy processing other imports", "Please wait a moment and try again", "IMP001"}},
	{"report not found", UserMessage{"Import report not found", "Reports expire after a while. Run the import again", "IMP002"}},
	{"context canceled", UserMessage{"Request was cancelled", "Please try again", "IMP003"}},
	{"context deadline exceeded", UserMessage{"Request timed out", "Try a smaller file or try again later", "IMP004"}},

	// Store
	{"duplicate key", UserMessage{"This record already exists", "Refresh the list and check for duplicates", "DB001"}},
	{"unique constraint", UserMessage{"This record already exists", "Refresh the list and check for duplicates", "DB001"}},
	{"foreign key", UserMessage{"Referenced record does not exist", "Refresh the list and pick an existing group", "DB002"}},
	{"connection refused", UserMessage{"Unable to reach the contact store", "Please try again in a few moments", "DB003"}},
	{"connection reset", UserMessage{"Contact store connection was interrupted", "Please try again", "DB004"}},
	{"timeout", UserMessage{"Contact store timed out", "Please try again later", "DB005"}},
	{"record not found", UserMessage{"Contact not found", "It may have been deleted. Refresh the list", "DB006"}},

	{"rate limit", UserMessage{"Too many requests", "Please wait a moment before trying again", "RATE001"}},
	{"missing api key", UserMessage{"API key required", "Send your key in the X-API-Key header", "AUTH001"}},
	{"invalid api key", UserMessage{"API key not accepted", "Check the key or ask for a new one", "AUTH002"}},
}

var collaboratorMessage = UserMessage{
	Message: "The contact store rejected the request",
	Action:  "Please try again or contact support",
	Code:    "DB000",
}

var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts an error to a user-facing message. A CollaboratorError
// with no more specific match keeps the store's own wording.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	errStr := strings.ToLower(err.Error())
	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}

	var ce *CollaboratorError
	if errors.As(err, &ce) {
		msg := collaboratorMessage
		if ce.Message != "" {
			msg.Message = ce.Message
		}
		return msg
	}

	return defaultMessage
}

// FormatUserError renders err as "Message (Code: XXX). Action".
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing reports whether err maps to something more specific than ERR000.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}

// UserError pairs a technical error (for logs) with its user message.
type UserError struct {
	Technical error
	User      UserMessage
}

func (e *UserError) Error() string {
	return e.User.Message
}

func (e *UserError) Unwrap() error {
	return e.Technical
}

// NewUserError maps err, or returns nil for a nil err.
func NewUserError(err error) *UserError {
	if err == nil {
		return nil
	}
	return &UserError{Technical: err, User: MapError(err)}
}
