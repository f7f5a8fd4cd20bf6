package textutil

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

// Ellipsis marks truncated text.
const Ellipsis = "..."

// Normalize returns s in Unicode NFC form.
func Normalize(s string) string {
	return norm.NFC.String(s)
}

// Length returns the number of runes in s.
func Length(s string) int {
	return utf8.RuneCountInString(s)
}

// Truncate returns at most limit runes of s.
func Truncate(s string, limit int) string {
	if limit <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	return string(runes[:limit])
}

// Fit keeps s within budget runes. Longer text is cut to budget-3 runes and
// the ellipsis appended so the result is exactly budget runes long.
func Fit(s string, budget int) string {
	if budget <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= budget {
		return s
	}
	if budget <= len(Ellipsis) {
		return Truncate(s, budget)
	}
	return Truncate(s, budget-len(Ellipsis)) + Ellipsis
}

// StripWrappingQuotes removes one matching pair of surrounding double or
// single quotes.
func StripWrappingQuotes(s string) string {
	if len(s) < 2 {
		return s
	}
	first, last := s[0], s[len(s)-1]
	if first == last && (first == '"' || first == '\'') {
		return s[1 : len(s)-1]
	}
	return s
}

// CleanGenerated trims, unquotes, and normalizes model output, then fits it
// within budget runes.
func CleanGenerated(s string, budget int) string {
	s = strings.TrimSpace(s)
	s = strings.TrimSpace(StripWrappingQuotes(s))
	s = Normalize(s)
	return Fit(s, budget)
}

// Hashtag derives a hashtag body from topic by removing all whitespace.
func Hashtag(topic string) string {
	return strings.Join(strings.Fields(topic), "")
}

// Preview returns the first limit runes of s followed by the ellipsis.
func Preview(s string, limit int) string {
	return Truncate(s, limit) + Ellipsis
}

// Label turns an identifier such as IN_PROGRESS or human_review into a
// display label like "In Progress".
func Label(value string) string {
	value = strings.TrimSpace(strings.ReplaceAll(value, "_", " "))
	if value == "" {
		return ""
	}
	return cases.Title(language.English).String(strings.ToLower(value))
}
