package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a domain failure. The first four plus KindNotFound surface
// to callers with no partial effects.
type Kind int

const (
	KindValidation Kind = iota
	KindAuthorization
	KindStateConflict
	KindResourceLimit
	KindNotFound
)

// Error is a domain error with a stable machine-readable code.
type Error struct {
	Kind    Kind
	Code    string
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func New(kind Kind, code, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Code: code, Message: fmt.Sprintf(format, args...)}
}

// Stable error codes used across services and asserted by API clients.
const (
	CodeInvalidGarmentOwnership = "InvalidGarmentOwnership"
	CodeSelfTradeNotAllowed     = "SelfTradeNotAllowed"
	CodeProposalLimitExceeded   = "ProposalLimitExceeded"
	CodeNotAuthorized           = "NotAuthorized"
	CodeInvalidStateTransition  = "InvalidStateTransition"
	CodeAlreadyReserved         = "AlreadyReserved"
	CodeChatNotOpen             = "ChatNotOpen"
	CodeNotEligible             = "NotEligible"
	CodeDuplicateEvaluation     = "DuplicateEvaluation"
	CodeNotFound                = "NotFound"
	CodeValidation              = "ValidationError"
)

func Validation(format string, args ...interface{}) *Error {
	return New(KindValidation, CodeValidation, format, args...)
}

func NotAuthorized(format string, args ...interface{}) *Error {
	return New(KindAuthorization, CodeNotAuthorized, format, args...)
}

func InvalidStateTransition(format string, args ...interface{}) *Error {
	return New(KindStateConflict, CodeInvalidStateTransition, format, args...)
}

func NotFound(format string, args ...interface{}) *Error {
	return New(KindNotFound, CodeNotFound, format, args...)
}

// Code extracts the stable code from err, or "" if err is not a domain error.
func Code(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// Is reports whether err carries the given code.
func Is(err error, code string) bool {
	return Code(err) == code
}

// HTTPStatus maps a domain error to its response status. Unknown errors map
// to 500 so infra failures never leak as client faults.
func HTTPStatus(err error) int {
	var e *Error
	if !errors.As(err, &e) {
		return http.StatusInternalServerError
	}
	switch e.Kind {
	case KindValidation:
		return http.StatusBadRequest
	case KindAuthorization:
		return http.StatusForbidden
	case KindStateConflict:
		return http.StatusConflict
	case KindResourceLimit:
		return http.StatusTooManyRequests
	case KindNotFound:
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}
