package gohost

import (
	"fmt"
	"reflect"
	"runtime"
	"strings"

	"github.com/leapstack-labs/liveinspect/pkg/host"
)

var (
	_ host.Module     = (*Package)(nil)
	_ host.Documented = (*Package)(nil)
)

// ModuleName is the dotted import path.
func (p *Package) ModuleName() string { return ModuleName(p.path) }

func (p *Package) Members() []host.Member {
	out := make([]host.Member, len(p.members))
	for i, m := range p.members {
		out[i] = host.Member{Name: m.name, Value: m.value}
	}
	return out
}

func (p *Package) Doc() (string, bool) { return p.doc, p.doc != "" }

// Func is a package-level function.
type Func struct {
	name string
	v    reflect.Value
	doc  string
}

var (
	_ host.Callable   = (*Func)(nil)
	_ host.Defined    = (*Func)(nil)
	_ host.Named      = (*Func)(nil)
	_ host.Documented = (*Func)(nil)
	_ host.Located    = (*Func)(nil)
	_ host.Flagged    = (*Func)(nil)
)

func (f *Func) Signature() (*host.Signature, error) {
	return signature(f.v.Type(), 0, "")
}

func (f *Func) DefiningModule() (string, bool) {
	fn, ok := funcName(f.v)
	if !ok || fn.PkgPath == "" {
		return "", false
	}
	return fn.Module(), true
}

// QualifiedName is the name the function was declared with.
func (f *Func) QualifiedName() string {
	if fn, ok := funcName(f.v); ok && fn.Func != "" {
		return fn.Qualified()
	}
	return f.name
}

func (f *Func) Doc() (string, bool) { return f.doc, f.doc != "" }

func (f *Func) Location() (string, int, int, bool) {
	return location(f.v)
}

// Flags marks functions implemented in assembly as builtin and method
// values as bound.
func (f *Func) Flags() host.Flag {
	var fl host.Flag
	if file, _, _, ok := location(f.v); ok && strings.HasSuffix(file, ".s") {
		fl |= host.FlagBuiltin
	}
	if fn, ok := funcName(f.v); ok && fn.Bound {
		fl |= host.FlagBound
	}
	return fl
}

// Type is a named type. Struct fields become instance attributes and
// methods become method descriptors.
type Type struct {
	name string
	t    reflect.Type
	doc  string
}

var (
	_ host.Class      = (*Type)(nil)
	_ host.Defined    = (*Type)(nil)
	_ host.Named      = (*Type)(nil)
	_ host.Based      = (*Type)(nil)
	_ host.Documented = (*Type)(nil)
	_ host.Identified = (*Type)(nil)
)

// Reflect returns the underlying type.
func (t *Type) Reflect() reflect.Type { return t.t }

func (t *Type) ClassName() string { return t.t.Name() }

// Identity is the reflected type, so a type registered twice is one class.
func (t *Type) Identity() any { return t.t }

func (t *Type) Members() []host.Member {
	var out []host.Member
	if t.t.Kind() == reflect.Struct {
		for i := 0; i < t.t.NumField(); i++ {
			f := t.t.Field(i)
			if !f.IsExported() || f.Anonymous {
				continue
			}
			out = append(out, host.Member{
				Name:  f.Name,
				Value: host.InstanceAttribute{Annotation: f.Type},
			})
		}
	}

	mt := t.t
	if mt.Kind() != reflect.Interface {
		mt = reflect.PointerTo(mt)
	}
	for i := 0; i < mt.NumMethod(); i++ {
		m := mt.Method(i)
		if !m.IsExported() {
			continue
		}
		out = append(out, host.Member{Name: m.Name, Value: &Method{owner: t.t, m: m}})
	}
	return out
}

func (t *Type) DefiningModule() (string, bool) {
	if t.t.PkgPath() == "" {
		return "", false
	}
	return ModuleName(t.t.PkgPath()), true
}

func (t *Type) QualifiedName() string {
	if n := t.t.Name(); n != "" {
		return n
	}
	return t.name
}

// Bases lists embedded fields.
func (t *Type) Bases() []string {
	if t.t.Kind() != reflect.Struct {
		return nil
	}
	var bases []string
	for i := 0; i < t.t.NumField(); i++ {
		if f := t.t.Field(i); f.Anonymous {
			bases = append(bases, typeName(f.Type))
		}
	}
	return bases
}

func (t *Type) Doc() (string, bool) { return t.doc, t.doc != "" }

// Method is a method of a registered type, with the receiver as its first
// parameter.
type Method struct {
	owner reflect.Type
	m     reflect.Method
}

var (
	_ host.Callable = (*Method)(nil)
	_ host.Flagged  = (*Method)(nil)
	_ host.Defined  = (*Method)(nil)
	_ host.Located  = (*Method)(nil)
)

func (m *Method) Signature() (*host.Signature, error) {
	if m.owner.Kind() == reflect.Interface {
		return signature(m.m.Type, 0, "")
	}
	return signature(m.m.Type, 1, "recv")
}

func (m *Method) Flags() host.Flag { return host.FlagMethodDescriptor }

func (m *Method) DefiningModule() (string, bool) {
	if m.owner.PkgPath() == "" {
		return "", false
	}
	return ModuleName(m.owner.PkgPath()), true
}

func (m *Method) Location() (string, int, int, bool) {
	if !m.m.Func.IsValid() {
		return "", 0, 0, false
	}
	return location(m.m.Func)
}

// Var is a variable or constant.
type Var struct {
	ptr reflect.Value
}

var _ host.Repr = (*Var)(nil)

// Repr snapshots the current value.
func (v *Var) Repr() (string, error) {
	if v.ptr.IsNil() {
		return "", fmt.Errorf("nil variable pointer")
	}
	e := v.ptr.Elem()
	if !e.CanInterface() {
		return "", fmt.Errorf("unexported value of type %s", e.Type())
	}
	if e.Kind() == reflect.Interface && e.IsNil() {
		return "nil", nil
	}
	val := e.Interface()
	if err, ok := val.(error); ok {
		return fmt.Sprintf("errors.New(%q)", err.Error()), nil
	}
	return fmt.Sprintf("%#v", val), nil
}

type exportList []string

func (e exportList) Strings() ([]string, bool) { return []string(e), true }

// signature converts a function type. The first skip inputs are the
// receiver, named recvName.
func signature(t reflect.Type, skip int, recvName string) (*host.Signature, error) {
	if t.Kind() != reflect.Func {
		return nil, fmt.Errorf("%s is not a function type", t)
	}
	sig := &host.Signature{}
	for i := 0; i < t.NumIn(); i++ {
		p := host.Param{Name: fmt.Sprintf("arg%d", i-skip), Kind: host.PositionalOnly, Annotation: t.In(i)}
		if i < skip {
			p.Name = recvName
		}
		if t.IsVariadic() && i == t.NumIn()-1 {
			p.Kind = host.VarPositional
			p.Annotation = t.In(i).Elem()
		}
		sig.Params = append(sig.Params, p)
	}
	switch t.NumOut() {
	case 0:
	case 1:
		sig.Returns = t.Out(0)
	default:
		parts := make([]string, t.NumOut())
		for i := range parts {
			parts[i] = t.Out(i).String()
		}
		sig.Returns = "(" + strings.Join(parts, ", ") + ")"
	}
	return sig, nil
}

func funcName(v reflect.Value) (FuncName, bool) {
	rf := runtime.FuncForPC(v.Pointer())
	if rf == nil {
		return FuncName{}, false
	}
	return ParseFuncName(rf.Name()), true
}

func location(v reflect.Value) (string, int, int, bool) {
	rf := runtime.FuncForPC(v.Pointer())
	if rf == nil {
		return "", 0, 0, false
	}
	file, line := rf.FileLine(rf.Entry())
	if file == "" {
		return "", 0, 0, false
	}
	return file, line, 0, true
}

func typeName(t reflect.Type) string {
	if t.Kind() == reflect.Pointer {
		return "*" + typeName(t.Elem())
	}
	if t.PkgPath() == "" || t.Name() == "" {
		return t.String()
	}
	return ModuleName(t.PkgPath()) + "." + t.Name()
}
