package reddit

import "strings"

// DefaultRecency is used when a strategy supplies no usable time window.
const DefaultRecency = "day"

var recencies = map[string]struct{}{
	"hour":  {},
	"day":   {},
	"week":  {},
	"month": {},
	"year":  {},
	"all":   {},
}

// ValidRecency reports whether value is a time window Reddit accepts.
func ValidRecency(value string) bool {
	_, ok := recencies[strings.ToLower(strings.TrimSpace(value))]
	return ok
}

// NormalizeRecency lowercases value and falls back to DefaultRecency when it
// is not a valid window.
func NormalizeRecency(value string) string {
	value = strings.ToLower(strings.TrimSpace(value))
	if _, ok := recencies[value]; ok {
		return value
	}
	return DefaultRecency
}
