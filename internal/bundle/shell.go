package bundle

import "strings"

// Quote wraps s in single quotes for use as one shell word.
func Quote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

// escapeANSIC escapes s for use inside a $'...' string.
func escapeANSIC(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, "'", `\'`)
}
