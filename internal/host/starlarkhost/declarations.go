package starlarkhost

import (
	"sort"
	"strings"

	"go.starlark.net/starlark"
	"go.starlark.net/syntax"
)

// declarations is what the file's syntax tells us beyond its executed
// globals: the order names were bound in and the module docstring. It is
// never used to describe values.
type declarations struct {
	names []string
	doc   string
	lines int
	// defEnd maps the line of a def to its last line.
	defEnd map[int]int
}

func parseDeclarations(filename string, src []byte) (*declarations, error) {
	f, err := fileOptions.Parse(filename, src, 0)
	if err != nil {
		return nil, &LoadError{File: filename, Message: err.Error()}
	}

	d := &declarations{defEnd: make(map[int]int)}
	seen := map[string]bool{}
	add := func(name string) {
		if !seen[name] {
			seen[name] = true
			d.names = append(d.names, name)
		}
	}

	d.doc = extractDocstring(f.Stmts)
	for _, stmt := range f.Stmts {
		switch s := stmt.(type) {
		case *syntax.DefStmt:
			add(s.Name.Name)
			_, end := s.Span()
			d.defEnd[int(s.Name.NamePos.Line)] = int(end.Line)
			d.defEnd[int(s.Def.Line)] = int(end.Line)
		case *syntax.AssignStmt:
			for _, id := range assignedNames(s.LHS) {
				add(id)
			}
		case *syntax.LoadStmt:
			for _, id := range s.To {
				add(id.Name)
			}
		}
	}
	_, end := f.Span()
	d.lines = int(end.Line)
	return d, nil
}

// order returns the names of globals, declared ones first in declaration
// order, the rest sorted.
func (d *declarations) order(globals starlark.StringDict) []string {
	var out []string
	seen := map[string]bool{}
	if d != nil {
		for _, n := range d.names {
			if _, ok := globals[n]; ok && !seen[n] {
				seen[n] = true
				out = append(out, n)
			}
		}
	}
	var rest []string
	for n := range globals {
		if !seen[n] {
			rest = append(rest, n)
		}
	}
	sort.Strings(rest)
	return append(out, rest...)
}

func assignedNames(lhs syntax.Expr) []string {
	switch e := lhs.(type) {
	case *syntax.Ident:
		return []string{e.Name}
	case *syntax.TupleExpr:
		var out []string
		for _, x := range e.List {
			out = append(out, assignedNames(x)...)
		}
		return out
	case *syntax.ListExpr:
		var out []string
		for _, x := range e.List {
			out = append(out, assignedNames(x)...)
		}
		return out
	case *syntax.ParenExpr:
		return assignedNames(e.X)
	}
	return nil
}

// extractDocstring returns the leading string literal of a statement list.
func extractDocstring(body []syntax.Stmt) string {
	if len(body) == 0 {
		return ""
	}
	exprStmt, ok := body[0].(*syntax.ExprStmt)
	if !ok {
		return ""
	}
	lit, ok := exprStmt.X.(*syntax.Literal)
	if !ok || lit.Token != syntax.STRING {
		return ""
	}
	s, ok := lit.Value.(string)
	if !ok {
		return ""
	}
	return strings.TrimSpace(s)
}
