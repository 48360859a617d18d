package userdomain

import "strings"

// NormalizeUsername derives the canonical index key for a username: surrounding
// whitespace is trimmed, internal whitespace runs become a single underscore,
// everything outside [A-Za-z0-9_] is dropped and the result is lowercased.
// An empty result means the user has no username.
func NormalizeUsername(s string) string {
	joined := strings.Join(strings.Fields(s), "_")

	var b strings.Builder
	b.Grow(len(joined))
	for i := 0; i < len(joined); i++ {
		c := joined[i]
		switch {
		case c >= 'a' && c <= 'z', c >= '0' && c <= '9', c == '_':
			b.WriteByte(c)
		case c >= 'A' && c <= 'Z':
			b.WriteByte(c + ('a' - 'A'))
		}
	}
	return b.String()
}
