package bundle

import (
	"bytes"
	"regexp"
	"strings"
)

var (
	// wholeLinePlaceholder matches a line made only of indentation and one placeholder.
	wholeLinePlaceholder = regexp.MustCompile(`^([ \t]*)\{\{([^{}]+)\}\}[ \t\r]*$`)
	// inlinePlaceholder matches any placeholder within a line.
	inlinePlaceholder = regexp.MustCompile(`\{\{([^{}]+)\}\}`)
)

// ExpandLine applies vars to a single line (without its terminator) and
// returns the resulting lines.
//
// A line holding only indentation and one placeholder is replaced by the
// value's lines, each prefixed with that indentation; spaces, tabs and a
// carriage return after the placeholder are dropped. Any other line has
// each placeholder replaced in place. Unknown names expand to "".
// A nil or empty vars leaves the line untouched.
func ExpandLine(line string, vars map[string]string) []string {
	if len(vars) == 0 {
		return []string{line}
	}

	if m := wholeLinePlaceholder.FindStringSubmatch(line); m != nil {
		indent, value := m[1], vars[m[2]]
		sublines := strings.Split(value, "\n")
		for i, sub := range sublines {
			sublines[i] = indent + sub
		}
		return sublines
	}

	return []string{inlinePlaceholder.ReplaceAllStringFunc(line, func(token string) string {
		return vars[token[2:len(token)-2]]
	})}
}

// Render expands content line by line. The returned flag reports whether
// the last line was terminated by a newline in the source.
func Render(content []byte, vars map[string]string) ([]string, bool) {
	if len(content) == 0 {
		return nil, true
	}

	terminated := bytes.HasSuffix(content, []byte("\n"))
	text := string(content)
	if terminated {
		text = text[:len(text)-1]
	}

	var out []string
	for _, line := range strings.Split(text, "\n") {
		out = append(out, ExpandLine(line, vars)...)
	}
	return out, terminated
}

// RenderString returns the expanded file content exactly as it will exist on the remote host.
func RenderString(content []byte, vars map[string]string) string {
	lines, terminated := Render(content, vars)
	if len(lines) == 0 {
		return ""
	}
	s := strings.Join(lines, "\n")
	if terminated {
		s += "\n"
	}
	return s
}
