package cliui

import (
	"fmt"
	"io"
	"strings"
)

// Field is one row of an aligned key/value block. Value is written as given,
// so callers style it (see Display).
type Field struct {
	Key   string
	Value string
}

// WriteFields writes fields as an aligned block indented by indent spaces.
// Keys are padded to the longest key before styling so ANSI codes do not
// disturb the alignment.
func WriteFields(w io.Writer, indent int, fields []Field) {
	width := 0
	for _, f := range fields {
		width = max(width, len(f.Key))
	}

	pad := strings.Repeat(" ", indent)
	for _, f := range fields {
		fmt.Fprintf(w, "%s%s  %s\n", pad, KeyStyle.Render(fmt.Sprintf("%-*s", width, f.Key)), f.Value)
	}
}
