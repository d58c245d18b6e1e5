package ner

import (
	"regexp"
	"strings"
)

var (
	phonePattern = regexp.MustCompile(`\+?\d[\d -]{8,}\d`)
	emailPattern = regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`)
)

// MatchPhones returns every non-overlapping phone-like run in the
// lowercased text. Matches are substrings of that text, unnormalized.
func MatchPhones(text string) []string {
	return phonePattern.FindAllString(strings.ToLower(text), -1)
}

// MatchEmails returns every non-overlapping email address in the lowercased text.
func MatchEmails(text string) []string {
	return emailPattern.FindAllString(strings.ToLower(text), -1)
}
