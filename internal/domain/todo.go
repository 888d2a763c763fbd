package domain

import (
	"regexp"
	"strings"
)

const (
	TodoChecked   = "[x] "
	TodoUnchecked = "[ ] "
)

var todoMarker = regexp.MustCompile(`^\[[ x]\]\s*`)

// ParseTodo splits to_do content into its checkbox state and display text.
func ParseTodo(content string) (checked bool, text string) {
	return strings.HasPrefix(content, "[x]"), todoMarker.ReplaceAllString(content, "")
}

// FormatTodo is the inverse of ParseTodo; persisted to_do content always
// carries the marker.
func FormatTodo(checked bool, text string) string {
	if checked {
		return TodoChecked + text
	}
	return TodoUnchecked + text
}

// AsTodo returns content as to_do content: unchanged when it already
// carries a marker, otherwise prefixed with an unchecked one.
func AsTodo(content string) string {
	if todoMarker.MatchString(content) {
		return content
	}
	return FormatTodo(false, content)
}
