package inspect

import (
	"strings"

	"github.com/leapstack-labs/liveinspect/pkg/docstrings"
	"github.com/leapstack-labs/liveinspect/pkg/host"
	"github.com/leapstack-labs/liveinspect/pkg/model"
)

// extractDocstring returns the cleaned documentation of the value itself.
// Wrappers are stripped to the wrapped callable; nothing falls back to a
// type or base class.
func extractDocstring(v any, parser docstrings.Parser, options map[string]any) *model.Docstring {
	d, ok := host.Unwrap(v).(host.Documented)
	if !ok {
		return nil
	}
	doc, ok := d.Doc()
	if !ok {
		return nil
	}
	cleaned := CleanDoc(doc)
	if cleaned == "" {
		return nil
	}
	return model.NewDocstring(cleaned, parser, options)
}

// CleanDoc normalises documentation text: tabs become spaces, leading
// whitespace of the first line is dropped, the common indentation of the
// remaining lines is removed, and blank lines at either end are trimmed.
func CleanDoc(doc string) string {
	lines := strings.Split(expandTabs(doc, 8), "\n")

	margin := -1
	for _, l := range lines[1:] {
		content := strings.TrimLeft(l, " ")
		if content == "" {
			continue
		}
		indent := len(l) - len(content)
		if margin < 0 || indent < margin {
			margin = indent
		}
	}

	lines[0] = strings.TrimLeft(lines[0], " ")
	if margin > 0 {
		for i := 1; i < len(lines); i++ {
			if len(lines[i]) >= margin {
				lines[i] = lines[i][margin:]
			} else {
				lines[i] = strings.TrimLeft(lines[i], " ")
			}
		}
	}
	for i := range lines {
		lines[i] = strings.TrimRight(lines[i], " ")
	}

	for len(lines) > 0 && lines[0] == "" {
		lines = lines[1:]
	}
	for len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return strings.Join(lines, "\n")
}

func expandTabs(s string, size int) string {
	if !strings.Contains(s, "\t") {
		return s
	}
	var b strings.Builder
	col := 0
	for _, r := range s {
		switch r {
		case '\t':
			n := size - col%size
			b.WriteString(strings.Repeat(" ", n))
			col += n
		case '\n':
			b.WriteRune(r)
			col = 0
		default:
			b.WriteRune(r)
			col++
		}
	}
	return b.String()
}
