package textutil

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"
)

var innerWhitespace = regexp.MustCompile(`\s\s+`)

// CleanText trims a scraped text fragment down to something comparable:
// non-printable runes removed, edges trimmed, inner runs of whitespace
// collapsed to a single space.
func CleanText(s string) string {
	var b strings.Builder
	for _, c := range s {
		if unicode.IsPrint(c) {
			b.WriteRune(c)
		}
	}
	out := strings.Trim(b.String(), " \t\n")
	return innerWhitespace.ReplaceAllString(out, " ")
}

// FirstLine cuts s at the first line break. Anchor text on list pages
// often concatenates the title with badge/author lines.
func FirstLine(s string) string {
	line, _, _ := strings.Cut(s, "\n")
	return strings.TrimSpace(line)
}

var groupedNumber = regexp.MustCompile(`^\d{1,3}(?:,\d{3})*$`)

// ParseGroupedInt parses a thousands-separated number like "1,234,567".
// The second return is false when s is not a well-formed grouped number.
func ParseGroupedInt(s string) (int64, bool) {
	s = strings.TrimSpace(s)
	if !groupedNumber.MatchString(s) {
		return 0, false
	}
	n, err := strconv.ParseInt(strings.ReplaceAll(s, ",", ""), 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

// CoerceInt converts the loosely-typed values a decoded JSON payload can
// hold (float64, string, json number text) to an int. Values that cannot
// be coerced yield ok=false, never an error: upstream payloads are
// untrusted and a bad field must not take down a batch.
func CoerceInt(v any) (int64, bool) {
	switch n := v.(type) {
	case nil:
		return 0, false
	case int:
		return int64(n), true
	case int64:
		return n, true
	case float64:
		return int64(n), true
	case string:
		s := strings.TrimSpace(n)
		if s == "" {
			return 0, false
		}
		if i, err := strconv.ParseInt(s, 10, 64); err == nil {
			return i, true
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return int64(f), true
		}
		return ParseGroupedInt(s)
	default:
		return 0, false
	}
}

// CoerceString stringifies scalar JSON values, returning "" for anything
// that has no sensible text form.
func CoerceString(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case float64:
		// title ids come back as JSON numbers, they are integral in practice
		return strconv.FormatInt(int64(s), 10)
	case int:
		return strconv.Itoa(s)
	case int64:
		return strconv.FormatInt(s, 10)
	default:
		return ""
	}
}

// CoerceBool reads optional boolean flags out of a decoded payload.
func CoerceBool(v any) (bool, bool) {
	b, ok := v.(bool)
	return b, ok
}
