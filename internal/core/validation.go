package core

// validation.go classifies one candidate contact as accepted or rejected.
//
// Rules run in a fixed order and the first failure wins:
//  1. email empty          -> Missing required fields
//  2. group empty          -> Missing required fields
//  3. email malformed      -> Invalid email format
//  4. mobile not 10 digits -> Invalid mobile number
//
// All fields are trimmed before the rules run.

import (
	"regexp"
	"strings"
)

// emailPattern requires something before @, something after it, and
// something after a dot, none of it whitespace or @.
var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// mobileLength is the only accepted mobile number length.
const mobileLength = 10

// Validate returns the trimmed fields, or a *ValidationError naming the
// first rule the record breaks.
func Validate(f ContactFields) (ContactFields, error) {
	f = f.trimmed()

	if f.Email == "" {
		return ContactFields{}, &ValidationError{Field: "email", Reason: ReasonMissingFields}
	}
	if f.Group == "" {
		return ContactFields{}, &ValidationError{Field: "group", Reason: ReasonMissingFields}
	}
	if !IsValidEmail(f.Email) {
		return ContactFields{}, &ValidationError{Field: "email", Value: f.Email, Reason: ReasonInvalidEmail}
	}
	if f.Mobile != "" && !IsValidMobile(f.Mobile) {
		return ContactFields{}, &ValidationError{Field: "mobile", Value: f.Mobile, Reason: ReasonInvalidMobile}
	}
	return f, nil
}

// IsValidEmail reports whether s looks like local@domain.tld.
func IsValidEmail(s string) bool {
	return emailPattern.MatchString(s)
}

// IsValidMobile reports whether s is exactly ten ASCII digits.
func IsValidMobile(s string) bool {
	if len(s) != mobileLength {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

func (f ContactFields) trimmed() ContactFields {
	return ContactFields{
		FirstName: strings.TrimSpace(f.FirstName),
		LastName:  strings.TrimSpace(f.LastName),
		Email:     strings.TrimSpace(f.Email),
		Mobile:    strings.TrimSpace(f.Mobile),
		Group:     strings.TrimSpace(f.Group),
	}
}
