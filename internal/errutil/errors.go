// Package errutil defines the error codes shared by the FarmFresh backend and
// maps them onto HTTP responses and log records.
package errutil

import (
	"fmt"
	"net/http"

	"github.com/samber/oops"
)

// Error codes carried by oops errors.
const (
	CodeValidation            = "VALIDATION"
	CodeUnauthorized          = "UNAUTHORIZED"
	CodeTokenExpired          = "TOKEN_EXPIRED"
	CodeTokenInvalid          = "TOKEN_INVALID"
	CodeForbidden             = "FORBIDDEN"
	CodeConflict              = "CONFLICT"
	CodeNotFound              = "NOT_FOUND"
	CodeInvalidOrExpiredToken = "INVALID_OR_EXPIRED_TOKEN"
	CodeInternal              = "INTERNAL"
)

// InternalMessage is the only message an unexpected failure exposes.
const InternalMessage = "Something went wrong!"

var statusByCode = map[string]int{
	CodeValidation:            http.StatusBadRequest,
	CodeUnauthorized:          http.StatusUnauthorized,
	CodeTokenExpired:          http.StatusUnauthorized,
	CodeTokenInvalid:          http.StatusUnauthorized,
	CodeForbidden:             http.StatusForbidden,
	CodeConflict:              http.StatusConflict,
	CodeNotFound:              http.StatusNotFound,
	CodeInvalidOrExpiredToken: http.StatusBadRequest,
	CodeInternal:              http.StatusInternalServerError,
}

// Validation returns a VALIDATION error with a client-facing message.
func Validation(format string, args ...any) error {
	return oops.Code(CodeValidation).Errorf(format, args...)
}

// Unauthorized returns an UNAUTHORIZED error with a client-facing message.
func Unauthorized(msg string) error {
	return oops.Code(CodeUnauthorized).Errorf("%s", msg)
}

// Forbidden returns a FORBIDDEN error with a client-facing message.
func Forbidden(msg string) error {
	return oops.Code(CodeForbidden).Errorf("%s", msg)
}

// Conflict returns a CONFLICT error with a client-facing message.
func Conflict(msg string) error {
	return oops.Code(CodeConflict).Errorf("%s", msg)
}

// NotFound returns a NOT_FOUND error with a client-facing message.
func NotFound(msg string) error {
	return oops.Code(CodeNotFound).Errorf("%s", msg)
}

// InvalidOrExpiredToken returns an INVALID_OR_EXPIRED_TOKEN error for a
// rejected password reset token.
func InvalidOrExpiredToken(msg string) error {
	return oops.Code(CodeInvalidOrExpiredToken).Errorf("%s", msg)
}

// Internal wraps an unexpected failure. The operation name ends up in the log
// context, never in the response.
func Internal(operation string, err error) error {
	return oops.Code(CodeInternal).With("operation", operation).Wrap(err)
}

// InternalWithMessage wraps an unexpected failure that still shows the client
// a specific message instead of InternalMessage.
func InternalWithMessage(operation, public string, err error) error {
	return oops.Code(CodeInternal).
		With("operation", operation).
		With(publicMessageKey, public).
		Wrap(err)
}

const publicMessageKey = "public_message"

// Code returns the oops code carried by err, or CodeInternal when err carries
// none.
func Code(err error) string {
	if err == nil {
		return ""
	}
	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return CodeInternal
	}
	code := fmt.Sprint(oopsErr.Code())
	if _, known := statusByCode[code]; !known {
		return CodeInternal
	}
	return code
}

// HasCode reports whether err carries the given code.
func HasCode(err error, code string) bool {
	return err != nil && Code(err) == code
}

// HTTPStatus maps err onto a response status.
func HTTPStatus(err error) int {
	return statusByCode[Code(err)]
}

// PublicMessage returns the text safe to show a client. Internal failures are
// collapsed into InternalMessage.
func PublicMessage(err error) string {
	oopsErr, ok := oops.AsOops(err)
	if Code(err) == CodeInternal {
		if ok {
			if msg, isString := oopsErr.Context()[publicMessageKey].(string); isString && msg != "" {
				return msg
			}
		}
		return InternalMessage
	}
	if ok {
		return oopsErr.Error()
	}
	return err.Error()
}
