package api

import (
	"fmt"
	"regexp"
)

// API error codes (A100-A109)
const (
	ErrRequestFailed  = "A100" // transport-level failure
	ErrBadStatus      = "A101" // non-200 HTTP status
	ErrBadContentType = "A102" // response is not application/json
	ErrBadJSON        = "A103" // body failed to parse as JSON
	ErrSchema         = "A104" // JSON does not match the endpoint schema
	ErrEmptyField     = "A105" // a required field is empty
)

// Error condenses the many ways an upstream API call can fail into one
// type. If the calling code runs into any API failure there isn't much
// it can do, so callers handle one error instead of many.
type Error struct {
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = "an unknown API issue was encountered"
	}
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, msg, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, msg)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewError creates an Error with the given code and message.
func NewError(code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// WrapError wraps an underlying error with an API error code.
func WrapError(code, message string, err error) *Error {
	return &Error{Code: code, Message: message, Err: err}
}

// CheckNonEmpty returns an ErrEmptyField error when a critical field
// came back empty or absent.
func CheckNonEmpty(field, value string) error {
	if value == "" {
		return NewError(ErrEmptyField, fmt.Sprintf("%s field is empty", field))
	}
	return nil
}

var (
	md5Pattern    = regexp.MustCompile(`^[0-9a-fA-F]{32}$`)
	sha256Pattern = regexp.MustCompile(`^[0-9a-fA-F]{64}$`)
)

// ValidMD5 reports whether s has the shape of an MD5 hex digest.
func ValidMD5(s string) bool {
	return md5Pattern.MatchString(s)
}

// ValidSHA256 reports whether s has the shape of a SHA-256 hex digest.
func ValidSHA256(s string) bool {
	return sha256Pattern.MatchString(s)
}
