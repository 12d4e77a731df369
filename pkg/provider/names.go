package provider

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// normalizeName NFC-normalizes a display name and collapses whitespace.
func normalizeName(s string) string {
	return strings.Join(strings.Fields(norm.NFC.String(s)), " ")
}
