package output

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/leapstack-labs/liveinspect/pkg/model"
)

// Styles holds the lipgloss styles used for text output.
type Styles struct {
	Success lipgloss.Style
	Warning lipgloss.Style
	Error   lipgloss.Style
	Muted   lipgloss.Style
	Label   lipgloss.Style
	Kinds   map[model.Kind]lipgloss.Style
}

// NewStyles creates styles bound to a lipgloss renderer, which decides the
// color profile of the destination.
func NewStyles(r *lipgloss.Renderer) *Styles {
	return &Styles{
		Success: r.NewStyle().Foreground(lipgloss.Color("10")),
		Warning: r.NewStyle().Foreground(lipgloss.Color("11")),
		Error:   r.NewStyle().Foreground(lipgloss.Color("9")).Bold(true),
		Muted:   r.NewStyle().Foreground(lipgloss.Color("8")),
		Label:   r.NewStyle().Foreground(lipgloss.Color("13")).Italic(true),
		Kinds: map[model.Kind]lipgloss.Style{
			model.KindModule:    r.NewStyle().Foreground(lipgloss.Color("12")).Bold(true),
			model.KindClass:     r.NewStyle().Foreground(lipgloss.Color("14")).Bold(true),
			model.KindFunction:  r.NewStyle().Foreground(lipgloss.Color("10")),
			model.KindAttribute: r.NewStyle().Foreground(lipgloss.Color("11")),
			model.KindAlias:     r.NewStyle().Foreground(lipgloss.Color("8")).Italic(true),
		},
	}
}

// Kind renders s in the style of kind.
func (s *Styles) Kind(kind model.Kind, text string) string {
	if st, ok := s.Kinds[kind]; ok {
		return st.Render(text)
	}
	return text
}
