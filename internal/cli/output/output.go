// Package output renders command results as styled text, markdown, JSON
// or YAML.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/jedib0t/go-pretty/v6/table"
	"golang.org/x/term"
	"gopkg.in/yaml.v3"
)

// Mode selects the output format.
type Mode string

// Output modes.
const (
	ModeAuto     Mode = "auto"
	ModeText     Mode = "text"
	ModeMarkdown Mode = "markdown"
	ModeJSON     Mode = "json"
	ModeYAML     Mode = "yaml"
)

// Modes lists the accepted output modes.
var Modes = []string{string(ModeAuto), string(ModeText), string(ModeMarkdown), string(ModeJSON), string(ModeYAML)}

// Renderer writes results to an output and messages to an error stream.
type Renderer struct {
	w     io.Writer
	errW  io.Writer
	mode  Mode
	style *Styles
}

// NewRenderer creates a renderer. ModeAuto resolves to text on a terminal
// and to markdown otherwise.
func NewRenderer(w, errW io.Writer, mode Mode) *Renderer {
	if mode == "" || mode == ModeAuto {
		mode = ModeMarkdown
		if isTerminal(w) {
			mode = ModeText
		}
	}
	return &Renderer{w: w, errW: errW, mode: mode, style: NewStyles(lipgloss.NewRenderer(w))}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd())) //nolint:gosec // G115: file descriptors fit in int
}

// Mode returns the resolved mode.
func (r *Renderer) Mode() Mode { return r.mode }

// Writer returns the result stream.
func (r *Renderer) Writer() io.Writer { return r.w }

// Styles returns the text styles.
func (r *Renderer) Styles() *Styles { return r.style }

// IsStructured reports whether the mode is JSON or YAML.
func (r *Renderer) IsStructured() bool { return r.mode == ModeJSON || r.mode == ModeYAML }

// Data writes v as JSON or YAML depending on the mode. YAML goes through
// JSON first so that custom JSON encoders apply.
func (r *Renderer) Data(v any) error {
	if r.mode != ModeYAML {
		enc := json.NewEncoder(r.w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	var generic any
	if err := yaml.Unmarshal(raw, &generic); err != nil {
		return err
	}
	enc := yaml.NewEncoder(r.w)
	enc.SetIndent(2)
	if err := enc.Encode(generic); err != nil {
		return err
	}
	return enc.Close()
}

// Table writes rows under header, as a box table or a markdown table.
func (r *Renderer) Table(header []string, rows [][]string) error {
	if len(rows) == 0 {
		_, _ = fmt.Fprintln(r.w, "(0 rows)")
		return nil
	}

	t := table.NewWriter()
	t.SetOutputMirror(r.w)
	t.SetStyle(table.StyleLight)

	headerRow := make(table.Row, len(header))
	for i, col := range header {
		headerRow[i] = col
	}
	t.AppendHeader(headerRow)
	for _, row := range rows {
		tr := make(table.Row, len(row))
		for i, v := range row {
			tr[i] = v
		}
		t.AppendRow(tr)
	}

	if r.mode == ModeMarkdown {
		t.RenderMarkdown()
		return nil
	}
	t.Render()
	return nil
}

// Println writes a plain line to the result stream.
func (r *Renderer) Println(a ...any) {
	_, _ = fmt.Fprintln(r.w, a...)
}

// Success writes a success message to the error stream.
func (r *Renderer) Success(msg string) {
	_, _ = fmt.Fprintln(r.errW, r.style.Success.Render("✓ "+msg))
}

// Warning writes a warning to the error stream.
func (r *Renderer) Warning(msg string) {
	_, _ = fmt.Fprintln(r.errW, r.style.Warning.Render("! "+msg))
}

// Error writes an error message to the error stream.
func (r *Renderer) Error(msg string) {
	_, _ = fmt.Fprintln(r.errW, r.style.Error.Render("✗ "+msg))
}
