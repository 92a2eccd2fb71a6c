package matcher

import "strings"

// MatchesText reports whether a place name and a rider's query refer to the
// same place: either contains the other after trimming and lowercasing.
// An empty query matches everything.
func MatchesText(candidate, query string) bool {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return true
	}
	c := strings.ToLower(strings.TrimSpace(candidate))
	if c == "" {
		return false
	}
	return strings.Contains(c, q) || strings.Contains(q, c)
}
