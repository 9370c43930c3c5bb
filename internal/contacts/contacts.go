// Package contacts turns free-form attendee strings into email addresses.
package contacts

import (
	"regexp"
	"strings"
)

var emailPattern = regexp.MustCompile(`[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}`)

// ExtractEmail returns the first email-like substring of s.
// "John <john@acme.io>" yields "john@acme.io"; a bare name yields false.
func ExtractEmail(s string) (string, bool) {
	m := emailPattern.FindString(s)
	if m == "" {
		return "", false
	}
	return m, true
}

// ResolveAll extracts one email per attendee string, dropping entries without
// one and duplicates (compared case-insensitively). Order is preserved.
func ResolveAll(attendees []string) []string {
	var out []string
	seen := make(map[string]bool, len(attendees))
	for _, a := range attendees {
		email, ok := ExtractEmail(a)
		if !ok {
			continue
		}
		key := strings.ToLower(email)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, email)
	}
	return out
}
