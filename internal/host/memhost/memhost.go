// Package memhost builds live values by hand, with exactly the metadata a
// scenario needs. Every capability is opt-in through the fields set.
package memhost

import (
	"context"
	"fmt"
	"sync"

	"github.com/leapstack-labs/liveinspect/pkg/host"
)

// Module is an in-memory module.
type Module struct {
	Name    string
	DocText string
	File    string
	Items   []host.Member
}

var (
	_ host.Module     = (*Module)(nil)
	_ host.Documented = (*Module)(nil)
	_ host.Located    = (*Module)(nil)
)

// NewModule creates an empty module.
func NewModule(name string) *Module { return &Module{Name: name} }

// Add appends a member and returns the module.
func (m *Module) Add(name string, v any) *Module {
	m.Items = append(m.Items, host.Member{Name: name, Value: v})
	return m
}

func (m *Module) ModuleName() string     { return m.Name }
func (m *Module) Members() []host.Member { return m.Items }
func (m *Module) Doc() (string, bool)    { return m.DocText, m.DocText != "" }

func (m *Module) Location() (string, int, int, bool) {
	return m.File, 0, 0, m.File != ""
}

// Class is an in-memory class.
type Class struct {
	Name      string
	Module    string
	DocText   string
	BaseNames []string
	Items     []host.Member
}

var (
	_ host.Class      = (*Class)(nil)
	_ host.Defined    = (*Class)(nil)
	_ host.Documented = (*Class)(nil)
	_ host.Based      = (*Class)(nil)
)

// NewClass creates a class defined in module (empty for unknown).
func NewClass(name, module string) *Class { return &Class{Name: name, Module: module} }

// Add appends a member and returns the class.
func (c *Class) Add(name string, v any) *Class {
	c.Items = append(c.Items, host.Member{Name: name, Value: v})
	return c
}

func (c *Class) ClassName() string      { return c.Name }
func (c *Class) Members() []host.Member { return c.Items }
func (c *Class) Doc() (string, bool)    { return c.DocText, c.DocText != "" }
func (c *Class) Bases() []string        { return c.BaseNames }

func (c *Class) DefiningModule() (string, bool) { return c.Module, c.Module != "" }

// Func is an in-memory callable.
type Func struct {
	Name    string
	Module  string
	DocText string
	Params  []host.Param
	Returns any
	// Err makes Signature fail.
	Err   error
	Flag  host.Flag
	File  string
	Line  int
	End   int
	Panic bool
	// Instance lists attributes assigned by this function when it is a
	// constructor.
	Instance []host.Member
}

var (
	_ host.Callable      = (*Func)(nil)
	_ host.Defined       = (*Func)(nil)
	_ host.Named         = (*Func)(nil)
	_ host.Documented    = (*Func)(nil)
	_ host.Flagged       = (*Func)(nil)
	_ host.Located       = (*Func)(nil)
	_ host.InstanceScope = (*Func)(nil)
)

// NewFunc creates a function defined in module with the given parameters.
func NewFunc(name, module string, params ...host.Param) *Func {
	return &Func{Name: name, Module: module, Params: params}
}

func (f *Func) Signature() (*host.Signature, error) {
	if f.Panic {
		panic(fmt.Sprintf("signature of %s", f.Name))
	}
	if f.Err != nil {
		return nil, f.Err
	}
	return &host.Signature{Params: f.Params, Returns: f.Returns}, nil
}

func (f *Func) DefiningModule() (string, bool) { return f.Module, f.Module != "" }
func (f *Func) QualifiedName() string          { return f.Name }
func (f *Func) Doc() (string, bool)            { return f.DocText, f.DocText != "" }
func (f *Func) Flags() host.Flag               { return f.Flag }
func (f *Func) InstanceMembers() []host.Member { return f.Instance }

func (f *Func) Location() (string, int, int, bool) {
	return f.File, f.Line, f.End, f.Line > 0
}

// Value is an in-memory attribute value.
type Value struct {
	V      any
	Module string
	// Text overrides the snapshot; Fail makes it fail.
	Text string
	Fail bool
}

var (
	_ host.Repr    = (*Value)(nil)
	_ host.Defined = (*Value)(nil)
)

func (v *Value) Repr() (string, error) {
	if v.Fail {
		return "", fmt.Errorf("repr refused")
	}
	if v.Text != "" {
		return v.Text, nil
	}
	return fmt.Sprintf("%#v", v.V), nil
}

func (v *Value) DefiningModule() (string, bool) { return v.Module, v.Module != "" }

// List is a sequence of strings, such as an export list.
type List []string

func (l List) Strings() ([]string, bool) { return []string(l), true }

// Registry is an Importer over in-memory modules.
type Registry struct {
	mu      sync.Mutex
	modules map[string]*Module
	// Imports counts Import calls per name.
	Imports map[string]int
}

// NewRegistry creates a registry holding modules.
func NewRegistry(modules ...*Module) *Registry {
	r := &Registry{modules: make(map[string]*Module), Imports: make(map[string]int)}
	for _, m := range modules {
		r.modules[m.Name] = m
	}
	return r
}

// Import returns the module named name.
func (r *Registry) Import(ctx context.Context, name string) (any, string, error) {
	if err := ctx.Err(); err != nil {
		return nil, "", err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Imports[name]++
	m, ok := r.modules[name]
	if !ok {
		return nil, "", fmt.Errorf("no module named %q", name)
	}
	return m, m.File, nil
}
