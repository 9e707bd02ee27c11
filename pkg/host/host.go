// Package host defines the capabilities a runtime exposes to the inspector.
//
// A live value is any Go value. The inspector never asks what a value "is";
// it asks which of the interfaces below the value implements. Host adapters
// (Starlark, Go reflection, in-memory fixtures) wrap their native values so
// that they implement the subset of capabilities the runtime can actually
// provide. Everything is optional: a value that implements nothing is an
// attribute with no metadata.
package host

// Member is a named child value, as reported by its container.
type Member struct {
	Name  string
	Value any
}

// Module is implemented by values that represent a loaded module.
type Module interface {
	// ModuleName is the host's own name for the module, which may differ
	// from the name it was reached through.
	ModuleName() string
	Members() []Member
}

// Class is implemented by values that represent a type with members.
type Class interface {
	ClassName() string
	Members() []Member
}

// Based is implemented by classes that can report their base class names.
type Based interface {
	Bases() []string
}

// Defined is implemented by values whose defining module is known.
// ok is false when the host has no such information.
type Defined interface {
	DefiningModule() (module string, ok bool)
}

// Named is implemented by values that know their own name, independent of
// the name they were bound to.
type Named interface {
	QualifiedName() string
}

// Documented is implemented by values carrying their own documentation.
// Implementations must not fall back to documentation of a type or parent.
type Documented interface {
	Doc() (doc string, ok bool)
}

// Located is implemented by values with a known definition site.
type Located interface {
	Location() (file string, line, endLine int, ok bool)
}

// Repr is implemented by values that provide their own textual snapshot.
type Repr interface {
	Repr() (string, error)
}

// Strings is implemented by sequence values that can be read as strings,
// such as an export list.
type Strings interface {
	Strings() ([]string, bool)
}

// Flag marks host-level traits of a callable.
type Flag uint8

const (
	// FlagBuiltin marks callables implemented by the host itself.
	FlagBuiltin Flag = 1 << iota
	// FlagBound marks callables bound to a receiver.
	FlagBound
	// FlagAsync marks coroutine functions.
	FlagAsync
	// FlagMethodDescriptor marks host-provided methods with no introspectable body.
	FlagMethodDescriptor
)

// Has reports whether all bits of o are set in f.
func (f Flag) Has(o Flag) bool { return f&o == o }

// Callable is implemented by function-like values.
type Callable interface {
	// Signature returns the parameter and return metadata. Hosts return an
	// error when the callable refuses to describe itself.
	Signature() (*Signature, error)
}

// Flagged is implemented by callables that carry host traits.
type Flagged interface {
	Flags() Flag
}

// InstanceScope is implemented by constructors that can report the instance
// attributes they assign.
type InstanceScope interface {
	InstanceMembers() []Member
}

// Identified is implemented by values whose identity is that of an
// underlying host object rather than their own, such as wrappers created
// afresh on every lookup.
type Identified interface {
	Identity() any
}

// Wrapper is implemented by descriptor-like values wrapping another value.
type Wrapper interface {
	Unwrap() any
}

// Unwrap strips all Wrapper layers from v.
func Unwrap(v any) any {
	for {
		w, ok := v.(Wrapper)
		if !ok {
			return v
		}
		v = w.Unwrap()
	}
}

// StaticMethod wraps a callable stored on a class without a receiver.
type StaticMethod struct{ Func any }

// Unwrap returns the wrapped callable.
func (s StaticMethod) Unwrap() any { return s.Func }

// ClassMethod wraps a callable bound to the class rather than an instance.
type ClassMethod struct{ Func any }

// Unwrap returns the wrapped callable.
func (c ClassMethod) Unwrap() any { return c.Func }

// Property wraps the getter of a computed attribute.
type Property struct{ Getter any }

// Unwrap returns the getter.
func (p Property) Unwrap() any { return p.Getter }

// CachedProperty wraps the function of a computed attribute evaluated once.
type CachedProperty struct{ Func any }

// Unwrap returns the wrapped function.
func (c CachedProperty) Unwrap() any { return c.Func }

// InstanceAttribute wraps a value that belongs to instances of a class
// rather than to the class itself, such as a struct field. Annotation is
// textual or a live type value, like Param.Annotation.
type InstanceAttribute struct {
	Value      any
	Annotation any
}
