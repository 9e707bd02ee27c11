// Package gohost exposes Go packages linked into the binary as live modules.
//
// Go has no runtime package registry, so packages are registered explicitly
// with their functions, types, variables and constants. Everything else is
// read through reflection: parameter types, methods, struct fields, and the
// defining package of functions (runtime.FuncForPC) and types
// (reflect.Type.PkgPath). A member registered in one package but defined in
// another therefore reports the foreign owner, like a re-export.
package gohost

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sort"
	"sync"
)

// ErrNotRegistered is returned for modules absent from the registry.
var ErrNotRegistered = errors.New("package not registered")

// Registry maps module names to packages. It is safe for concurrent use.
type Registry struct {
	mu       sync.RWMutex
	packages map[string]*Package
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{packages: make(map[string]*Package)}
}

// Register adds packages, keyed by their dotted module name.
func (r *Registry) Register(pkgs ...*Package) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range pkgs {
		r.packages[p.ModuleName()] = p
	}
}

// Import returns the package registered as name. Import paths with slashes
// are accepted too.
func (r *Registry) Import(ctx context.Context, name string) (any, string, error) {
	if err := ctx.Err(); err != nil {
		return nil, "", err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.packages[ModuleName(name)]
	if !ok {
		return nil, "", fmt.Errorf("%w: %s", ErrNotRegistered, name)
	}
	return p, "", nil
}

// Modules lists registered module names.
func (r *Registry) Modules() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.packages))
	for n := range r.packages {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Package is a registered Go package.
type Package struct {
	path    string
	doc     string
	members []memberEntry
}

type memberEntry struct {
	name  string
	value any
}

// NewPackage creates a package for an import path.
func NewPackage(importPath, doc string) *Package {
	return &Package{path: importPath, doc: doc}
}

// ImportPath returns the package import path.
func (p *Package) ImportPath() string { return p.path }

// Func registers a function value.
func (p *Package) Func(name string, fn any, doc string) *Package {
	v := reflect.ValueOf(fn)
	if v.Kind() != reflect.Func {
		panic(fmt.Sprintf("gohost: %s.%s is %T, not a function", p.path, name, fn))
	}
	return p.add(name, &Func{name: name, v: v, doc: doc})
}

// Type registers the type of sample. Pass a nil pointer, such as
// (*fs.PathError)(nil), to register the pointed-to type; interfaces are
// registered as (*io.Reader)(nil).
func (p *Package) Type(name string, sample any, doc string) *Package {
	t := reflect.TypeOf(sample)
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return p.add(name, &Type{name: name, t: t, doc: doc})
}

// Var registers a package variable through a pointer to it.
func (p *Package) Var(name string, ptr any) *Package {
	v := reflect.ValueOf(ptr)
	if v.Kind() != reflect.Pointer {
		panic(fmt.Sprintf("gohost: %s.%s must be registered by pointer", p.path, name))
	}
	return p.add(name, &Var{ptr: v})
}

// Const registers a constant value.
func (p *Package) Const(name string, value any) *Package {
	return p.add(name, &Var{ptr: reflect.ValueOf(&value)})
}

// Sub registers another package as a member, like a subpackage or an
// imported package.
func (p *Package) Sub(name string, other *Package) *Package {
	return p.add(name, other)
}

// Exports registers the export list.
func (p *Package) Exports(names ...string) *Package {
	return p.add("__all__", exportList(names))
}

func (p *Package) add(name string, v any) *Package {
	for i, m := range p.members {
		if m.name == name {
			p.members[i].value = v
			return p
		}
	}
	p.members = append(p.members, memberEntry{name: name, value: v})
	return p
}
