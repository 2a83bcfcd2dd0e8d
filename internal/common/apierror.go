package common

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind discriminates lifecycle failures so the transport can branch on it
// instead of on message text.
type Kind int

const (
	KindValidation Kind = iota + 1
	KindBadRequest
	KindUnauthorized
	KindForbidden
	KindNotFound
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindBadRequest:
		return "bad_request"
	case KindUnauthorized:
		return "unauthorized"
	case KindForbidden:
		return "forbidden"
	case KindNotFound:
		return "not_found"
	default:
		return "unknown"
	}
}

// Status returns the HTTP status code the kind is rendered with.
func (k Kind) Status() int {
	switch k {
	case KindValidation, KindBadRequest:
		return http.StatusBadRequest
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// APIError is a business-rule failure raised by the lifecycle engine.
// Fields holds per-field messages (e.g. "email" -> "Invalid email").
type APIError struct {
	Kind    Kind
	Message string
	Fields  map[string]string
}

func (e *APIError) Error() string {
	if len(e.Fields) == 0 {
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	}
	return fmt.Sprintf("%s: %s %v", e.Kind, e.Message, e.Fields)
}

func newAPIError(kind Kind, message string, fields map[string]string) *APIError {
	if fields == nil {
		fields = map[string]string{}
	}
	return &APIError{Kind: kind, Message: message, Fields: fields}
}

func Validation(message string, fields map[string]string) *APIError {
	return newAPIError(KindValidation, message, fields)
}

func BadRequest(message string, fields map[string]string) *APIError {
	return newAPIError(KindBadRequest, message, fields)
}

func Unauthorized(fields map[string]string) *APIError {
	return newAPIError(KindUnauthorized, "Unauthorized user", fields)
}

func NotFound(fields map[string]string) *APIError {
	return newAPIError(KindNotFound, "Not Found", fields)
}

func Forbidden(message string, fields map[string]string) *APIError {
	return newAPIError(KindForbidden, message, fields)
}

// KindOf reports the kind of err, or 0 when err is not an *APIError.
func KindOf(err error) Kind {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Kind
	}
	return 0
}
