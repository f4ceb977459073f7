// Package strings holds text helpers for terminal output.
package strings

import (
	"strings"
)

// DefaultCellMaxLen bounds free-form values (URLs, connection names, error
// messages from the platform) in table cells.
const DefaultCellMaxLen = 48

// minCellLen leaves room for one character plus the ellipsis.
const minCellLen = 4

// TruncateCell collapses all whitespace in s to single spaces and cuts the
// result to maxLen runes, ending it with "..." when cut. maxLen below 4 is
// treated as 4.
func TruncateCell(s string, maxLen int) string {
	if maxLen < minCellLen {
		maxLen = minCellLen
	}
	s = strings.Join(strings.Fields(s), " ")

	runes := []rune(s)
	if len(runes) > maxLen {
		return string(runes[:maxLen-3]) + "..."
	}
	return s
}

// TruncateURL shortens a URL for display by dropping its query string first
// and then cutting it like TruncateCell.
func TruncateURL(raw string, maxLen int) string {
	if len([]rune(raw)) > maxLen {
		if i := strings.IndexByte(raw, '?'); i >= 0 {
			raw = raw[:i] + "?..."
		}
	}
	return TruncateCell(raw, maxLen)
}
