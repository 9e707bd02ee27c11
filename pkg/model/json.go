package model

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/leapstack-labs/liveinspect/pkg/annotation"
	"github.com/leapstack-labs/liveinspect/pkg/docstrings"
)

// DecodeError reports JSON that does not describe a valid tree.
type DecodeError struct {
	Path    string
	Message string
	Err     error
}

func (e *DecodeError) Error() string {
	msg := e.Message
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	if e.Path == "" {
		return "decode: " + msg
	}
	return fmt.Sprintf("decode %s: %s", e.Path, msg)
}

func (e *DecodeError) Unwrap() error { return e.Err }

type jsonDocstring struct {
	Value   string            `json:"value"`
	Parser  docstrings.Parser `json:"parser,omitempty"`
	Options map[string]any    `json:"options,omitempty"`
}

type jsonParameter struct {
	Name       string          `json:"name"`
	Kind       ParameterKind   `json:"kind"`
	Annotation json.RawMessage `json:"annotation,omitempty"`
	Default    *string         `json:"default,omitempty"`
}

type jsonNode struct {
	Kind       Kind             `json:"kind"`
	Name       string           `json:"name"`
	Path       string           `json:"path"`
	Labels     []string         `json:"labels"`
	Lineno     int              `json:"lineno,omitempty"`
	EndLineno  int              `json:"endlineno,omitempty"`
	Docstring  *jsonDocstring   `json:"docstring,omitempty"`
	Filepath   string           `json:"filepath,omitempty"`
	Exports    []string         `json:"exports,omitempty"`
	Bases      []string         `json:"bases,omitempty"`
	Members    []*jsonNode      `json:"members,omitempty"`
	Parameters []*jsonParameter `json:"parameters,omitempty"`
	Returns    json.RawMessage  `json:"returns,omitempty"`
	Value      *string          `json:"value,omitempty"`
	Annotation json.RawMessage  `json:"annotation,omitempty"`
	Target     string           `json:"target,omitempty"`
}

func (m *Module) MarshalJSON() ([]byte, error)    { return marshal(m) }
func (c *Class) MarshalJSON() ([]byte, error)     { return marshal(c) }
func (f *Function) MarshalJSON() ([]byte, error)  { return marshal(f) }
func (a *Attribute) MarshalJSON() ([]byte, error) { return marshal(a) }
func (a *Alias) MarshalJSON() ([]byte, error)     { return marshal(a) }

func marshal(n Node) ([]byte, error) {
	jn, err := toJSON(n)
	if err != nil {
		return nil, err
	}
	return json.Marshal(jn)
}

func toJSON(n Node) (*jsonNode, error) {
	b := n.base()
	jn := &jsonNode{
		Kind:      n.Kind(),
		Name:      n.Name(),
		Path:      n.Path(),
		Labels:    b.Labels.Sorted(),
		Lineno:    b.Lineno,
		EndLineno: b.EndLineno,
	}
	if d := b.Docstring; d != nil {
		jn.Docstring = &jsonDocstring{Value: d.value, Parser: d.parser, Options: d.options}
	}

	var err error
	switch v := n.(type) {
	case *Module:
		jn.Filepath = v.Filepath
		jn.Exports = v.Exports
	case *Class:
		jn.Bases = v.Bases
	case *Function:
		for _, p := range v.Parameters {
			jp := &jsonParameter{Name: p.Name, Kind: p.Kind, Default: p.Default}
			if jp.Annotation, err = encodeExpr(p.Annotation); err != nil {
				return nil, err
			}
			jn.Parameters = append(jn.Parameters, jp)
		}
		if jn.Returns, err = encodeExpr(v.Returns); err != nil {
			return nil, err
		}
	case *Attribute:
		jn.Value = v.Value
		if jn.Annotation, err = encodeExpr(v.Annotation); err != nil {
			return nil, err
		}
	case *Alias:
		jn.Target = v.Target
	}

	if c, ok := n.(Container); ok {
		for _, m := range c.Members().Nodes() {
			child, err := toJSON(m)
			if err != nil {
				return nil, err
			}
			jn.Members = append(jn.Members, child)
		}
	}
	return jn, nil
}

func encodeExpr(e annotation.Expr) (json.RawMessage, error) {
	if e == nil {
		return nil, nil
	}
	return json.Marshal(e)
}

// Decode rebuilds a root module tree from its JSON encoding.
func Decode(data []byte) (*Module, error) {
	var jn jsonNode
	if err := json.Unmarshal(data, &jn); err != nil {
		return nil, &DecodeError{Message: "invalid JSON", Err: err}
	}
	if jn.Kind != KindModule {
		return nil, &DecodeError{Path: jn.Path, Message: fmt.Sprintf("root must be a module, got %q", jn.Kind)}
	}
	n, err := fromJSON(&jn, nil)
	if err != nil {
		return nil, err
	}
	return n.(*Module), nil
}

func fromJSON(jn *jsonNode, parent Container) (Node, error) {
	if jn.Name == "" {
		return nil, &DecodeError{Path: jn.Path, Message: "missing name"}
	}

	var (
		node Node
		err  error
	)
	switch jn.Kind {
	case KindModule:
		m := &Module{Filepath: jn.Filepath, Exports: jn.Exports}
		m.name = jn.Name
		node = m
	case KindClass:
		c := &Class{Bases: jn.Bases}
		c.name = jn.Name
		node = c
	case KindFunction:
		f := NewFunction(jn.Name)
		for _, jp := range jn.Parameters {
			p := &Parameter{Name: jp.Name, Kind: jp.Kind, Default: jp.Default}
			if p.Annotation, err = annotation.Decode(jp.Annotation); err != nil {
				return nil, &DecodeError{Path: jn.Path, Message: "parameter " + jp.Name, Err: err}
			}
			f.Parameters = append(f.Parameters, p)
		}
		if f.Returns, err = annotation.Decode(jn.Returns); err != nil {
			return nil, &DecodeError{Path: jn.Path, Message: "returns", Err: err}
		}
		node = f
	case KindAttribute:
		a := NewAttribute(jn.Name)
		a.Value = jn.Value
		if a.Annotation, err = annotation.Decode(jn.Annotation); err != nil {
			return nil, &DecodeError{Path: jn.Path, Message: "annotation", Err: err}
		}
		node = a
	case KindAlias:
		if len(jn.Members) > 0 {
			return nil, &DecodeError{Path: jn.Path, Message: "alias cannot have members"}
		}
		node = NewAlias(jn.Name, jn.Target)
	default:
		return nil, &DecodeError{Path: jn.Path, Message: fmt.Sprintf("unknown kind %q", jn.Kind)}
	}

	b := node.base()
	b.Lineno, b.EndLineno = jn.Lineno, jn.EndLineno
	b.Labels.Add(jn.Labels...)
	if jn.Docstring != nil {
		b.Docstring = NewDocstring(jn.Docstring.Value, jn.Docstring.Parser, jn.Docstring.Options)
	}

	if parent != nil {
		if err := parent.Set(node); err != nil {
			return nil, &DecodeError{Path: jn.Path, Message: "insert", Err: err}
		}
	}

	c, isContainer := node.(Container)
	if !isContainer && len(jn.Members) > 0 {
		return nil, &DecodeError{Path: jn.Path, Message: fmt.Sprintf("%s cannot have members", jn.Kind)}
	}
	for _, child := range jn.Members {
		if _, err := fromJSON(child, c); err != nil {
			var de *DecodeError
			if errors.As(err, &de) {
				return nil, err
			}
			return nil, &DecodeError{Path: child.Path, Err: err}
		}
	}
	return node, nil
}
