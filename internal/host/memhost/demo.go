package memhost

import (
	"sort"

	"github.com/leapstack-labs/liveinspect/pkg/host"
)

// Demo returns a registry with these modules:
//
//	pkg           f(x, greeting="hi"), class C{s, p}, g re-exported from other_module
//	other_module  g(), and a handle back to pkg
//	os, posix     a shim pair re-exporting each other's members
func Demo() *Registry {
	g := NewFunc("g", "other_module")
	g.DocText = "Say goodbye."
	other := NewModule("other_module").Add("g", g)
	other.DocText = "Helpers that pkg re-exports."

	f := NewFunc("f", "pkg",
		host.Param{Name: "x", Kind: host.PositionalOrKeyword},
		host.Param{Name: "greeting", Kind: host.PositionalOrKeyword, Annotation: "str", Default: &Value{V: "hi"}, HasDefault: true},
	)
	f.DocText = "Greet x."
	f.Returns = "str"

	p := NewFunc("p", "pkg")
	p.Returns = "int"
	c := NewClass("C", "pkg").
		Add("s", host.StaticMethod{Func: NewFunc("s", "pkg")}).
		Add("p", host.Property{Getter: p})
	c.DocText = "A class with a static method and a computed property."

	pkg := NewModule("pkg").
		Add("f", f).
		Add("C", c).
		Add("g", g).
		Add("__all__", List{"f", "C", "g"})
	pkg.DocText = "Demo package."
	other.Add("pkg", pkg)

	getcwd := NewFunc("getcwd", "posix")
	posix := NewModule("posix").Add("getcwd", getcwd)
	sep := &Value{V: "/", Module: "os"}
	osMod := NewModule("os").Add("getcwd", getcwd).Add("sep", sep).Add("posix", posix)
	posix.Add("os", osMod)

	return NewRegistry(pkg, other, osMod, posix)
}

// Modules lists the names of registered modules.
func (r *Registry) Modules() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, 0, len(r.modules))
	for n := range r.modules {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
