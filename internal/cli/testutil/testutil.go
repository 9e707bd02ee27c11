// Package testutil provides test utilities for CLI testing.
package testutil

import (
	"bytes"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/leapstack-labs/liveinspect/internal/cli/output"
)

// WriteFiles creates files under dir from a map of relative path to content.
func WriteFiles(t *testing.T, dir string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		path := filepath.Join(dir, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatalf("failed to create directory for %s: %v", rel, err)
		}
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatalf("failed to write %s: %v", rel, err)
		}
	}
}

// SetupStarlarkProject creates a temporary project with a config file and a
// small Starlark package. pkg re-exports greet from its own pkg._impl
// submodule and helper from the top-level tools module, so pkg.helper is
// an alias while pkg.greet is not.
func SetupStarlarkProject(t *testing.T) string {
	t.Helper()

	tmpDir := t.TempDir()
	WriteFiles(t, tmpDir, map[string]string{
		"liveinspect.yaml": `host: starlark
search_paths:
  - lib
state_path: .liveinspect/state.db
`,
		"lib/pkg/__init__.star": `load("pkg._impl", "greet")
load("tools", "helper")

VERSION = "1.0"

def shout(text, *, times = 1):
    """Shout text.

    Repeats it when asked.
    """
    return text.upper() * times

__all__ = ["greet", "shout", "helper", "VERSION"]
`,
		"lib/pkg/_impl.star": `def greet(name, greeting = "hello"):
    """Greet someone."""
    return greeting + " " + name
`,
		"lib/tools.star": `def helper(*args, **kwargs):
    return len(args)
`,
	})
	return tmpDir
}

// TestRenderer wraps a Renderer for testing with captured output buffers.
type TestRenderer struct {
	*output.Renderer
	Out    *bytes.Buffer
	ErrOut *bytes.Buffer
}

// NewTestRenderer creates a test renderer in the given mode. Output is
// captured in buffers; auto mode resolves to markdown since buffers are not
// terminals.
func NewTestRenderer(mode output.Mode) *TestRenderer {
	out := &bytes.Buffer{}
	errOut := &bytes.Buffer{}
	return &TestRenderer{
		Renderer: output.NewRenderer(out, errOut, mode),
		Out:      out,
		ErrOut:   errOut,
	}
}

// Output returns the captured stdout.
func (tr *TestRenderer) Output() string {
	return tr.Out.String()
}

// ErrorOutput returns the captured stderr.
func (tr *TestRenderer) ErrorOutput() string {
	return tr.ErrOut.String()
}

// ansiPattern matches ANSI escape codes.
var ansiPattern = regexp.MustCompile(`\x1b\[[0-9;]*[a-zA-Z]`)

// AssertNoANSI checks that a string contains no ANSI escape codes.
func AssertNoANSI(t *testing.T, s string) {
	t.Helper()
	if ansiPattern.MatchString(s) {
		t.Errorf("string contains ANSI escape codes: %q", s)
	}
}

// AssertValidMarkdown performs basic markdown validation.
// It checks for unclosed code spans and empty headers.
func AssertValidMarkdown(t *testing.T, md string) {
	t.Helper()

	fenceCount := strings.Count(md, "```")
	if fenceCount%2 != 0 {
		t.Errorf("unbalanced code fences in markdown: found %d occurrences", fenceCount)
	}

	for i, line := range strings.Split(md, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "#") && strings.TrimLeft(trimmed, "# ") == "" {
			t.Errorf("empty header at line %d: %q", i+1, line)
		}
		if strings.Count(line, "`")%2 != 0 {
			t.Errorf("unbalanced code span at line %d: %q", i+1, line)
		}
	}
}
