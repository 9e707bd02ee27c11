package model

import (
	"github.com/leapstack-labs/liveinspect/pkg/annotation"
	"github.com/leapstack-labs/liveinspect/pkg/docstrings"
)

// Module is a container for a loaded module.
type Module struct {
	container

	// Filepath is the file the module was loaded from, if any.
	Filepath string
	// Exports is the module's declared export list, nil when undeclared.
	Exports []string
}

// NewModule creates a module. Pass a nil parent for a root module.
func NewModule(name string, parent Container) (*Module, error) {
	m := &Module{}
	m.name = name
	if parent != nil {
		if err := parent.Set(m); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (*Module) Kind() Kind { return KindModule }

// Set inserts node into the module.
func (m *Module) Set(node Node) error { return attach(m, node) }

// ResolveName resolves name from the module scope.
func (m *Module) ResolveName(name string) (string, bool) { return resolveFrom(m, name) }

// Class is a container for a type.
type Class struct {
	container

	// Bases are the names of base classes as reported by the host.
	Bases []string
}

// NewClass creates a class owned by parent.
func NewClass(name string, parent Container) (*Class, error) {
	c := &Class{}
	c.name = name
	if err := parent.Set(c); err != nil {
		return nil, err
	}
	return c, nil
}

func (*Class) Kind() Kind { return KindClass }

// Set inserts node into the class.
func (c *Class) Set(node Node) error { return attach(c, node) }

// ResolveName resolves name from the class scope outward.
func (c *Class) ResolveName(name string) (string, bool) { return resolveFrom(c, name) }

// Function is a callable member.
type Function struct {
	Base

	Parameters []*Parameter
	Returns    annotation.Expr
}

// NewFunction creates a detached function; insert it with Container.Set.
func NewFunction(name string) *Function {
	f := &Function{}
	f.name = name
	return f
}

func (*Function) Kind() Kind { return KindFunction }

// Parameter returns the parameter named name.
func (f *Function) Parameter(name string) (*Parameter, bool) {
	for _, p := range f.Parameters {
		if p.Name == name {
			return p, true
		}
	}
	return nil, false
}

// Attribute is a data member.
type Attribute struct {
	Base

	// Value is a textual snapshot of the live value, nil when unavailable.
	Value      *string
	Annotation annotation.Expr
}

// NewAttribute creates a detached attribute.
func NewAttribute(name string) *Attribute {
	a := &Attribute{}
	a.name = name
	return a
}

func (*Attribute) Kind() Kind { return KindAttribute }

// Alias stands for a symbol defined elsewhere. It only records the target
// path and is never a container.
type Alias struct {
	Base

	Target string
}

// NewAlias creates a detached alias.
func NewAlias(name, target string) *Alias {
	a := &Alias{Target: target}
	a.name = name
	return a
}

func (*Alias) Kind() Kind { return KindAlias }

// ParameterKind describes how arguments bind to a parameter.
type ParameterKind string

const (
	PositionalOnly      ParameterKind = "positional-only"
	PositionalOrKeyword ParameterKind = "positional-or-keyword"
	VarPositional       ParameterKind = "variadic-positional"
	KeywordOnly         ParameterKind = "keyword-only"
	VarKeyword          ParameterKind = "variadic-keyword"
)

// Parameter is one parameter of a Function.
type Parameter struct {
	Name       string
	Kind       ParameterKind
	Annotation annotation.Expr
	// Default is a textual snapshot of the default value, nil when the
	// parameter has none.
	Default *string
}

// Docstring is the immutable documentation text of a node.
type Docstring struct {
	value   string
	parser  docstrings.Parser
	options map[string]any
}

// NewDocstring creates a docstring. options is copied.
func NewDocstring(value string, parser docstrings.Parser, options map[string]any) *Docstring {
	var opts map[string]any
	if len(options) > 0 {
		opts = make(map[string]any, len(options))
		for k, v := range options {
			opts[k] = v
		}
	}
	return &Docstring{value: value, parser: parser, options: opts}
}

// Value returns the cleaned text.
func (d *Docstring) Value() string { return d.value }

// Parser returns the parser identifier attached at extraction.
func (d *Docstring) Parser() docstrings.Parser { return d.parser }

// Options returns a copy of the parser options.
func (d *Docstring) Options() map[string]any {
	out := make(map[string]any, len(d.options))
	for k, v := range d.options {
		out[k] = v
	}
	return out
}

// Parse runs the attached parser over the text.
func (d *Docstring) Parse() ([]docstrings.Section, error) {
	return docstrings.Parse(d.value, d.parser, d.options)
}
