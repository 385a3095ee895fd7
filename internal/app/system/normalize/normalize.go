// Package normalize canonicalizes user-entered values before they are
// validated or stored.
package normalize

import (
	"strings"

	"github.com/dalemusser/waffle/pantry/text"
)

// Email trims and lowercases an email address.
func Email(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Name trims a display name and collapses inner whitespace. Case is preserved.
func Name(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Status trims and lowercases a status value.
func Status(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Role trims and lowercases a role value.
func Role(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// EmployeeID trims and uppercases an employee identifier.
func EmployeeID(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// Skills trims each entry, drops blanks, and removes duplicates compared
// case/diacritic-insensitively. The first spelling wins and order is kept.
func Skills(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for _, s := range in {
		s = Name(s)
		if s == "" {
			continue
		}
		k := text.Fold(s)
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, s)
	}
	return out
}

// OneOf reports whether v (normalized with Status) is one of allowed.
func OneOf(v string, allowed []string) bool {
	v = Status(v)
	for _, a := range allowed {
		if v == a {
			return true
		}
	}
	return false
}
