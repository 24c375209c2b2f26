package agentkb

import (
	"errors"
	"fmt"
)

// Application error codes.
const (
	ECONFIG       = "config"        // invalid configuration values
	ECRAWLABORTED = "crawl_aborted" // root URL unreachable, whole crawl fails
	EEXTRACTION   = "extraction"    // LLM response unparsable after retry
	EFETCH        = "fetch"         // network/timeout/unsupported content type
	EINTERNAL     = "internal"      // internal error
	EINVALID      = "invalid"       // validation failed
	ENOTFOUND     = "not_found"     // entity does not exist
	ESYNTHESIS    = "synthesis"     // no input records or persistent LLM failure
)

// Error represents an application error with a machine-readable code and a
// human-readable message.
type Error struct {
	Code    string
	Message string
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("agentkb error: code=%s message=%s", e.Code, e.Message)
}

// Errorf returns an Error with the given code and formatted message.
func Errorf(code string, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// ErrorCode unwraps an application error and returns its code.
// Non-application errors return EINTERNAL; nil returns the empty string.
func ErrorCode(err error) string {
	var e *Error
	if err == nil {
		return ""
	} else if errors.As(err, &e) {
		return e.Code
	}
	return EINTERNAL
}

// ErrorMessage unwraps an application error and returns its message.
// Non-application errors return a generic message; nil returns the empty string.
func ErrorMessage(err error) string {
	var e *Error
	if err == nil {
		return ""
	} else if errors.As(err, &e) {
		return e.Message
	}
	return "Internal error."
}
