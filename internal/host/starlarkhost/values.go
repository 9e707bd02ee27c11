package starlarkhost

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"go.starlark.net/starlark"
	"go.starlark.net/starlarkstruct"

	"github.com/leapstack-labs/liveinspect/pkg/host"
)

// ErrNoSignature is returned for builtins, which do not describe their
// parameters.
var ErrNoSignature = errors.New("builtin has no introspectable signature")

// Module is a loaded Starlark file or package.
type Module struct {
	host       *Host
	name       string
	file       string
	globals    starlark.StringDict
	decl       *declarations
	submodules []*Module
}

var (
	_ host.Module     = (*Module)(nil)
	_ host.Documented = (*Module)(nil)
	_ host.Located    = (*Module)(nil)
)

func (m *Module) ModuleName() string { return m.name }

// Globals returns the module's global bindings.
func (m *Module) Globals() starlark.StringDict { return m.globals }

// Members lists globals in declaration order, then submodules.
func (m *Module) Members() []host.Member {
	names := m.decl.order(m.globals)
	members := make([]host.Member, 0, len(names)+len(m.submodules))
	seen := make(map[string]bool, len(names))
	for _, n := range names {
		seen[n] = true
		members = append(members, host.Member{Name: n, Value: m.host.wrap(m.globals[n], n)})
	}
	for _, sm := range m.submodules {
		short := sm.name[strings.LastIndexByte(sm.name, '.')+1:]
		if seen[short] {
			continue
		}
		members = append(members, host.Member{Name: short, Value: sm})
	}
	return members
}

func (m *Module) Doc() (string, bool) {
	if m.decl == nil || m.decl.doc == "" {
		return "", false
	}
	return m.decl.doc, true
}

func (m *Module) Location() (string, int, int, bool) {
	if m.decl == nil {
		return m.file, 0, 0, m.file != ""
	}
	return m.file, 1, m.decl.lines, true
}

// wrap adapts a Starlark value to the host capabilities it supports.
func (h *Host) wrap(v starlark.Value, name string) any {
	switch x := v.(type) {
	case *starlark.Function:
		return &Function{host: h, fn: x}
	case *starlark.Builtin:
		return &Builtin{b: x}
	case *descriptor:
		inner := h.wrap(x.fn, name)
		switch x.kind {
		case descStatic:
			return host.StaticMethod{Func: inner}
		case descClass:
			return host.ClassMethod{Func: inner}
		case descCachedProperty:
			return host.CachedProperty{Func: inner}
		default:
			return host.Property{Getter: inner}
		}
	case *starlarkstruct.Struct:
		return &Class{host: h, name: name, s: x}
	case *starlarkstruct.Module:
		return &Namespace{host: h, m: x}
	default:
		return &Value{v: v}
	}
}

// Function is a Starlark function defined with def or lambda.
type Function struct {
	host *Host
	fn   *starlark.Function
	// module overrides the file's module, for functions stored in a
	// namespace built by that file.
	module string
}

var (
	_ host.Callable   = (*Function)(nil)
	_ host.Defined    = (*Function)(nil)
	_ host.Documented = (*Function)(nil)
	_ host.Located    = (*Function)(nil)
	_ host.Named      = (*Function)(nil)
	_ host.Identified = (*Function)(nil)
)

// Identity is the function value, shared by every binding of it.
func (f *Function) Identity() any { return f.fn }

// Signature reports parameters in declaration order: positional, *args,
// keyword-only, **kwargs.
func (f *Function) Signature() (*host.Signature, error) {
	fn := f.fn
	n := fn.NumParams()
	kwonly := fn.NumKwonlyParams()
	positional := n - kwonly
	if fn.HasVarargs() {
		positional--
	}
	if fn.HasKwargs() {
		positional--
	}

	param := func(i int, kind host.ParamKind) host.Param {
		name, _ := fn.Param(i)
		p := host.Param{Name: name, Kind: kind}
		if kind == host.PositionalOrKeyword || kind == host.KeywordOnly {
			if d := fn.ParamDefault(i); d != nil {
				p.Default, p.HasDefault = d, true
			}
		}
		return p
	}

	sig := &host.Signature{}
	for i := 0; i < positional; i++ {
		sig.Params = append(sig.Params, param(i, host.PositionalOrKeyword))
	}
	next := positional + kwonly
	if fn.HasVarargs() {
		sig.Params = append(sig.Params, param(next, host.VarPositional))
		next++
	}
	for i := positional; i < positional+kwonly; i++ {
		sig.Params = append(sig.Params, param(i, host.KeywordOnly))
	}
	if fn.HasKwargs() {
		sig.Params = append(sig.Params, param(next, host.VarKeyword))
	}
	return sig, nil
}

func (f *Function) DefiningModule() (string, bool) {
	if f.module != "" {
		return f.module, true
	}
	return f.host.fileModule(f.fn.Position().Filename())
}

func (f *Function) Doc() (string, bool) {
	d := f.fn.Doc()
	return d, d != ""
}

func (f *Function) Location() (string, int, int, bool) {
	pos := f.fn.Position()
	if !pos.IsValid() {
		return "", 0, 0, false
	}
	end := 0
	if e, ok := f.host.fileEntryFor(pos.Filename()); ok && e.decl != nil {
		end = e.decl.defEnd[int(pos.Line)]
	}
	return pos.Filename(), int(pos.Line), end, true
}

func (f *Function) QualifiedName() string {
	if f.fn.Name() == "lambda" {
		return ""
	}
	return f.fn.Name()
}

// Builtin is a function implemented in Go, possibly bound to a receiver.
type Builtin struct {
	b *starlark.Builtin
}

var (
	_ host.Callable   = (*Builtin)(nil)
	_ host.Flagged    = (*Builtin)(nil)
	_ host.Named      = (*Builtin)(nil)
	_ host.Identified = (*Builtin)(nil)
)

// Identity is the builtin value. Bound builtins are created per lookup, so
// only unbound ones are ever shared.
func (b *Builtin) Identity() any { return b.b }

func (b *Builtin) Signature() (*host.Signature, error) {
	return nil, fmt.Errorf("%s: %w", b.b.Name(), ErrNoSignature)
}

func (b *Builtin) Flags() host.Flag {
	if b.b.Receiver() != nil {
		return host.FlagBuiltin | host.FlagBound
	}
	return host.FlagBuiltin
}

func (b *Builtin) QualifiedName() string { return b.b.Name() }

// Class is a struct value, whose fields are its members.
type Class struct {
	host *Host
	name string
	s    *starlarkstruct.Struct
}

var (
	_ host.Class      = (*Class)(nil)
	_ host.Defined    = (*Class)(nil)
	_ host.Based      = (*Class)(nil)
	_ host.Identified = (*Class)(nil)
)

func (c *Class) ClassName() string { return c.name }

// Members lists struct fields in name order. Plain functions become static
// methods, since a struct never binds a receiver.
func (c *Class) Members() []host.Member {
	names := c.s.AttrNames()
	members := make([]host.Member, 0, len(names))
	for _, n := range names {
		v, err := c.s.Attr(n)
		if err != nil || v == nil {
			continue
		}
		w := c.host.wrap(v, n)
		if fn, ok := w.(*Function); ok {
			w = host.StaticMethod{Func: fn}
		}
		members = append(members, host.Member{Name: n, Value: w})
	}
	return members
}

func (c *Class) DefiningModule() (string, bool) { return c.host.owner(c.s) }

// Identity is the struct value, shared by every binding of it.
func (c *Class) Identity() any { return c.s }

// Bases reports the struct constructor when it is not the plain struct.
func (c *Class) Bases() []string {
	ctor := c.s.Constructor()
	if ctor == nil || ctor == starlarkstruct.Default {
		return nil
	}
	if name, ok := starlark.AsString(ctor); ok {
		return []string{name}
	}
	switch v := ctor.(type) {
	case *starlark.Builtin:
		if v.Name() == "struct" {
			return nil
		}
		return []string{v.Name()}
	case *starlark.Function:
		return []string{v.Name()}
	}
	return []string{ctor.String()}
}

// Namespace is a module value built with module().
type Namespace struct {
	host *Host
	m    *starlarkstruct.Module
}

var (
	_ host.Module     = (*Namespace)(nil)
	_ host.Defined    = (*Namespace)(nil)
	_ host.Identified = (*Namespace)(nil)
)

// ModuleName is qualified by the module that created the namespace.
func (n *Namespace) ModuleName() string {
	if owner, ok := n.host.owner(n.m); ok {
		return owner + "." + n.m.Name
	}
	return n.m.Name
}

// Members lists namespace members by name. Functions written in the file
// that built the namespace report the namespace as their module.
func (n *Namespace) Members() []host.Member {
	owner, _ := n.host.owner(n.m)
	names := n.m.Members.Keys()
	sort.Strings(names)
	members := make([]host.Member, 0, len(names))
	for _, name := range names {
		w := n.host.wrap(n.m.Members[name], name)
		if fn, ok := w.(*Function); ok && owner != "" {
			if mod, _ := fn.DefiningModule(); mod == owner {
				fn.module = n.ModuleName()
			}
		}
		members = append(members, host.Member{Name: name, Value: w})
	}
	return members
}

func (n *Namespace) DefiningModule() (string, bool) { return n.host.owner(n.m) }

func (n *Namespace) Identity() any { return n.m }

// Value is any other Starlark value.
type Value struct {
	v starlark.Value
}

var (
	_ host.Repr    = (*Value)(nil)
	_ host.Strings = (*Value)(nil)
)

// Starlark returns the wrapped value.
func (v *Value) Starlark() starlark.Value { return v.v }

func (v *Value) Repr() (string, error) { return v.v.String(), nil }

// Strings reads a list or tuple of strings.
func (v *Value) Strings() ([]string, bool) {
	g, err := ToGo(v.v)
	if err != nil {
		return nil, false
	}
	items, ok := g.([]any)
	if !ok {
		return nil, false
	}
	out := make([]string, 0, len(items))
	for _, it := range items {
		s, ok := it.(string)
		if !ok {
			return nil, false
		}
		out = append(out, s)
	}
	return out, true
}
