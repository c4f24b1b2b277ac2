// Package apperr classifies application errors so transports can map them
// to status codes without inspecting message text.
package apperr

import (
	"errors"
	"fmt"
	"net/http"

	"connectrpc.com/connect"
)

// Invalid reports a client input error.
func Invalid(msg string) error {
	return connect.NewError(connect.CodeInvalidArgument, errors.New(msg))
}

// FailedPrecondition reports an operation the current state does not allow.
func FailedPrecondition(msg string) error {
	return connect.NewError(connect.CodeFailedPrecondition, errors.New(msg))
}

// Internal wraps an unexpected fault. The message is never shown to clients.
func Internal(op string, err error) error {
	return connect.NewError(connect.CodeInternal, fmt.Errorf("%s: %w", op, err))
}

// Wrap classifies err with the given code, keeping it matchable via errors.Is.
func Wrap(code connect.Code, err error) error {
	return connect.NewError(code, err)
}

// Code returns the error's classification. Unclassified errors are internal.
func Code(err error) connect.Code {
	if err == nil {
		return 0
	}
	var ce *connect.Error
	if errors.As(err, &ce) {
		return ce.Code()
	}
	return connect.CodeInternal
}

// Message returns the client-facing message. Internal errors never leak detail.
func Message(err error) string {
	var ce *connect.Error
	if !errors.As(err, &ce) || ce.Code() == connect.CodeInternal || ce.Code() == connect.CodeUnknown {
		return "internal error"
	}
	return ce.Message()
}

// HTTPStatus maps an error's classification to an HTTP status code.
func HTTPStatus(err error) int {
	switch Code(err) {
	case 0:
		return http.StatusOK
	case connect.CodeInvalidArgument, connect.CodeFailedPrecondition, connect.CodeOutOfRange:
		return http.StatusBadRequest
	case connect.CodeUnauthenticated:
		return http.StatusUnauthorized
	case connect.CodePermissionDenied:
		return http.StatusForbidden
	case connect.CodeNotFound:
		return http.StatusNotFound
	case connect.CodeAlreadyExists, connect.CodeAborted:
		return http.StatusConflict
	case connect.CodeUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
