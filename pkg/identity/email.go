package identity

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// NormalizeEmail returns the canonical form of a local account email: NFKC
// normalized, trimmed and lower-cased. Signup and login both normalize, so
// lookups match regardless of how the address was typed.
func NormalizeEmail(email string) string {
	email = norm.NFKC.String(email)
	return strings.ToLower(strings.TrimSpace(email))
}
