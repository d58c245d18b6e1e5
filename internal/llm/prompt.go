package llm

import (
	"strings"
	"unicode/utf8"
)

const DefaultMaxPromptChars = 6000

// BuildSystemPrompt composes the system message for person and place tagging.
func BuildSystemPrompt() string {
	parts := []string{
		"You tag named entities in text read from a scanned form. Return ONLY JSON that matches the provided JSON Schema.",
		"Put people's names under 'names' exactly as they appear in the text.",
		"Put geo-political places (cities, states, countries) under 'addresses' exactly as they appear in the text.",
		"Do not invent entities, translate, or correct spelling.",
		"Ignore organizations, dates, amounts, phone numbers and email addresses.",
		"Never output null. Use an empty array when a category has no entities.",
	}
	return strings.Join(parts, " ")
}

// BuildUserPrompt wraps the form text, truncated to maxChars runes.
func BuildUserPrompt(text string, maxChars int) string {
	if maxChars <= 0 {
		maxChars = DefaultMaxPromptChars
	}
	var b strings.Builder
	b.WriteString("Form text:\n")
	b.WriteString(TruncateRunes(text, maxChars))
	return b.String()
}

// TruncateRunes cuts s to at most n runes.
func TruncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n])
}
