package gohost

import (
	"strings"
)

// FuncName is a runtime function name split into its parts, for example
// "io/fs.(*PathError).Error" or "strings.Cut".
type FuncName struct {
	PkgPath string
	Recv    string
	RecvPtr bool
	Func    string
	// Bound is set for method values ("-fm" suffix).
	Bound bool
}

// ParseFuncName splits a name reported by runtime.FuncForPC. Generic
// instantiation brackets are dropped.
func ParseFuncName(full string) FuncName {
	var fn FuncName
	name, bound := strings.CutSuffix(full, "-fm")
	fn.Bound = bound
	name = stripGeneric(name)

	sep := strings.LastIndexByte(name, '/')
	dot := strings.IndexByte(name[sep+1:], '.')
	if dot < 0 {
		fn.Func = name
		return fn
	}
	dot += sep + 1
	fn.PkgPath = name[:dot]
	rest := name[dot+1:]

	if strings.HasPrefix(rest, "(") {
		closing := strings.IndexByte(rest, ')')
		if closing < 0 || closing+2 > len(rest) {
			fn.Func = rest
			return fn
		}
		fn.Recv = rest[1:closing]
		rest = rest[closing+2:]
	} else if i := strings.IndexByte(rest, '.'); i >= 0 && !isClosureSuffix(rest[i+1:]) {
		fn.Recv = rest[:i]
		rest = rest[i+1:]
	}
	if r, ok := strings.CutPrefix(fn.Recv, "*"); ok {
		fn.Recv, fn.RecvPtr = r, true
	}
	if i := strings.IndexByte(rest, '.'); i >= 0 {
		rest = rest[:i]
	}
	fn.Func = rest
	return fn
}

// Module returns the dotted module name of the package.
func (f FuncName) Module() string {
	return ModuleName(f.PkgPath)
}

// Qualified returns "Recv.Func" for methods and "Func" otherwise.
func (f FuncName) Qualified() string {
	if f.Recv == "" {
		return f.Func
	}
	return f.Recv + "." + f.Func
}

// ModuleName turns an import path into a dotted module name.
func ModuleName(pkgPath string) string {
	return strings.ReplaceAll(pkgPath, "/", ".")
}

func stripGeneric(name string) string {
	var b strings.Builder
	depth := 0
	for _, r := range name {
		switch {
		case r == '[':
			depth++
		case r == ']' && depth > 0:
			depth--
		case depth == 0:
			b.WriteRune(r)
		}
	}
	return b.String()
}

func isClosureSuffix(s string) bool {
	return strings.HasPrefix(s, "func") || strings.HasPrefix(s, "gowrap") || strings.HasPrefix(s, "deferwrap")
}
