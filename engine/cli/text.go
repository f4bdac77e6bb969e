package cli

import (
	"strings"
)

// indentation is the indentation of example lines in the help text.
const indentation = `  `

// longDesc trims a command's long description.
func longDesc(s string) string {
	return strings.TrimSpace(s)
}

// examples trims a command's examples and indents every line.
func examples(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return s
	}

	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = indentation + strings.TrimSpace(line)
	}

	return strings.Join(lines, "\n")
}
