package output

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss/tree"

	"github.com/leapstack-labs/liveinspect/pkg/model"
)

// Signature renders the parameter list and return reference of f.
func Signature(f *model.Function) string {
	var b strings.Builder
	b.WriteByte('(')
	star := false
	for i, p := range f.Parameters {
		if i > 0 {
			b.WriteString(", ")
		}
		switch p.Kind {
		case model.VarPositional:
			b.WriteByte('*')
			star = true
		case model.VarKeyword:
			b.WriteString("**")
		case model.KeywordOnly:
			if !star {
				b.WriteString("*, ")
				star = true
			}
		}
		b.WriteString(p.Name)
		if p.Annotation != nil {
			b.WriteString(": " + p.Annotation.String())
		}
		if p.Default != nil {
			if p.Annotation != nil {
				b.WriteString(" = ")
			} else {
				b.WriteByte('=')
			}
			b.WriteString(*p.Default)
		}
		if p.Kind == model.PositionalOnly && (i+1 == len(f.Parameters) || f.Parameters[i+1].Kind != model.PositionalOnly) {
			b.WriteString(", /")
		}
	}
	b.WriteByte(')')
	if f.Returns != nil {
		b.WriteString(" -> " + f.Returns.String())
	}
	return b.String()
}

// Summary renders one line describing n, without styling.
func Summary(n model.Node) string {
	switch v := n.(type) {
	case *model.Module:
		return v.Name()
	case *model.Class:
		if len(v.Bases) > 0 {
			return v.Name() + "(" + strings.Join(v.Bases, ", ") + ")"
		}
		return v.Name()
	case *model.Function:
		return v.Name() + Signature(v)
	case *model.Attribute:
		s := v.Name()
		if v.Annotation != nil {
			s += ": " + v.Annotation.String()
		}
		if v.Value != nil {
			s += " = " + *v.Value
		}
		return s
	case *model.Alias:
		return v.Name() + " -> " + v.Target
	default:
		return n.Name()
	}
}

// Tree writes the member trees of modules.
func (r *Renderer) Tree(modules ...*model.Module) error {
	if r.IsStructured() {
		if len(modules) == 1 {
			return r.Data(modules[0])
		}
		return r.Data(modules)
	}
	for _, m := range modules {
		if r.mode == ModeMarkdown {
			r.markdownNode(m, 0)
			continue
		}
		_, _ = fmt.Fprintln(r.w, r.textTree(m).String())
	}
	return nil
}

func (r *Renderer) textLine(n model.Node) string {
	line := r.style.Kind(n.Kind(), Summary(n))
	meta := []string{string(n.Kind())}
	meta = append(meta, model.BaseOf(n).Labels.Sorted()...)
	line += " " + r.style.Label.Render("["+strings.Join(meta, " ")+"]")
	if m, ok := n.(*model.Module); ok && m.Filepath != "" {
		line += " " + r.style.Muted.Render(m.Filepath)
	}
	return line
}

func (r *Renderer) textTree(c model.Container) *tree.Tree {
	t := tree.Root(r.textLine(c)).Enumerator(tree.RoundedEnumerator)
	for _, child := range c.Members().Nodes() {
		if sub, ok := child.(model.Container); ok {
			t.Child(r.textTree(sub))
			continue
		}
		t.Child(r.textLine(child))
	}
	return t
}

func (r *Renderer) markdownNode(n model.Node, depth int) {
	indent := strings.Repeat("  ", depth)
	line := fmt.Sprintf("%s- `%s` *%s*", indent, Summary(n), n.Kind())
	if labels := model.BaseOf(n).Labels.Sorted(); len(labels) > 0 {
		line += " (" + strings.Join(labels, ", ") + ")"
	}
	_, _ = fmt.Fprintln(r.w, line)
	if c, ok := n.(model.Container); ok {
		for _, child := range c.Members().Nodes() {
			r.markdownNode(child, depth+1)
		}
	}
}
