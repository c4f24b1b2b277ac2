package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"connectrpc.com/connect"
)

// TestHTTPStatus tests the error kind to status mapping.
func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"invalid", Invalid("memberId is required"), http.StatusBadRequest},
		{"precondition", FailedPrecondition("week already finalized"), http.StatusBadRequest},
		{"unauthenticated", Wrap(connect.CodeUnauthenticated, errors.New("unauthorized")), http.StatusUnauthorized},
		{"not found", Wrap(connect.CodeNotFound, errors.New("member not found or inactive")), http.StatusNotFound},
		{"conflict", Wrap(connect.CodeAlreadyExists, errors.New("already checked in today")), http.StatusConflict},
		{"internal", Internal("load ledger", errors.New("disk full")), http.StatusInternalServerError},
		{"plain error", errors.New("boom"), http.StatusInternalServerError},
		{"wrapped kind", fmt.Errorf("checkin: %w", Wrap(connect.CodeAlreadyExists, errors.New("dup"))), http.StatusConflict},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := HTTPStatus(tt.err); got != tt.want {
				t.Errorf("HTTPStatus() = %d, want %d", got, tt.want)
			}
		})
	}
}

// TestMessage tests that internal detail never reaches the client.
func TestMessage(t *testing.T) {
	if got := Message(Wrap(connect.CodeNotFound, errors.New("ledger entry not found (check weekId & memberId)"))); got != "ledger entry not found (check weekId & memberId)" {
		t.Errorf("Message() = %q", got)
	}
	if got := Message(Internal("save week", errors.New("/data/secret: permission denied"))); got != "internal error" {
		t.Errorf("Message(internal) = %q", got)
	}
	if got := Message(errors.New("raw")); got != "internal error" {
		t.Errorf("Message(raw) = %q", got)
	}
}

// TestWrap_KeepsSentinel tests that classified errors still match their cause.
func TestWrap_KeepsSentinel(t *testing.T) {
	sentinel := errors.New("sentinel")
	err := Wrap(connect.CodeAlreadyExists, sentinel)
	if !errors.Is(err, sentinel) {
		t.Error("expected errors.Is to find the sentinel")
	}
	if HTTPStatus(err) != http.StatusConflict {
		t.Errorf("status = %d", HTTPStatus(err))
	}
}
