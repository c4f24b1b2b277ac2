package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// AdminTokenHeader carries the shared admin secret.
const AdminTokenHeader = "x-admin-token"

// AdminSecret verifies presented admin tokens against a plain token, a
// bcrypt hash, or both. The zero value rejects everything.
type AdminSecret struct {
	token string
	hash  []byte
}

// NewAdminSecret builds a verifier. Empty arguments are ignored.
func NewAdminSecret(token, bcryptHash string) AdminSecret {
	s := AdminSecret{token: token}
	if h := strings.TrimSpace(bcryptHash); h != "" {
		s.hash = []byte(h)
	}
	return s
}

// Configured reports whether any secret is set.
func (s AdminSecret) Configured() bool {
	return s.token != "" || len(s.hash) > 0
}

// Verify checks a presented token.
// PRE: none
// POST: Returns false for an empty token or an unconfigured secret
func (s AdminSecret) Verify(presented string) bool {
	if presented == "" {
		return false
	}
	if len(s.hash) > 0 && bcrypt.CompareHashAndPassword(s.hash, []byte(presented)) == nil {
		return true
	}
	if s.token != "" && subtle.ConstantTimeCompare([]byte(s.token), []byte(presented)) == 1 {
		return true
	}
	return false
}

// RequireAdmin rejects requests without a valid admin token with 401.
func RequireAdmin(secret AdminSecret) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !secret.Verify(r.Header.Get(AdminTokenHeader)) {
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
