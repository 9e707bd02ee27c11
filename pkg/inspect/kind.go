package inspect

import (
	"github.com/leapstack-labs/liveinspect/pkg/host"
)

// Kind classifies a live value.
type Kind string

const (
	KindModule           Kind = "module"
	KindClass            Kind = "class"
	KindStaticMethod     Kind = "staticmethod"
	KindClassMethod      Kind = "classmethod"
	KindMethodDescriptor Kind = "method_descriptor"
	KindBuiltinMethod    Kind = "builtin_method"
	KindMethod           Kind = "method"
	KindCoroutine        Kind = "coroutine"
	KindBuiltinFunction  Kind = "builtin_function"
	KindFunction         Kind = "function"
	KindCachedProperty   Kind = "cached_property"
	KindProperty         Kind = "property"
	KindAttribute        Kind = "attribute"
)

// IsFunctionLike reports whether values of kind k become model functions.
func (k Kind) IsFunctionLike() bool {
	switch k {
	case KindStaticMethod, KindClassMethod, KindMethodDescriptor, KindBuiltinMethod,
		KindMethod, KindCoroutine, KindBuiltinFunction, KindFunction:
		return true
	}
	return false
}

// IsPropertyLike reports whether values of kind k are computed attributes.
func (k Kind) IsPropertyLike() bool {
	return k == KindProperty || k == KindCachedProperty
}

// IsContainer reports whether values of kind k have members.
func (k Kind) IsContainer() bool {
	return k == KindModule || k == KindClass
}

type kindRule struct {
	kind Kind
	test func(v any) bool
}

// kindRules is evaluated in order; the first match wins.
var kindRules = []kindRule{
	{KindModule, func(v any) bool { _, ok := v.(host.Module); return ok }},
	{KindClass, func(v any) bool { _, ok := v.(host.Class); return ok }},
	{KindStaticMethod, isStaticMethod},
	{KindClassMethod, isClassMethod},
	{KindMethodDescriptor, hasFlags(host.FlagMethodDescriptor)},
	{KindBuiltinMethod, hasFlags(host.FlagBuiltin | host.FlagBound)},
	{KindMethod, hasFlags(host.FlagBound)},
	{KindCoroutine, hasFlags(host.FlagAsync)},
	{KindBuiltinFunction, hasFlags(host.FlagBuiltin)},
	{KindFunction, func(v any) bool { _, ok := v.(host.Callable); return ok }},
	{KindCachedProperty, isCachedProperty},
	{KindProperty, isProperty},
}

// Classify returns the kind of v.
func Classify(v any) Kind {
	for _, r := range kindRules {
		if r.test(v) {
			return r.kind
		}
	}
	return KindAttribute
}

func hasFlags(f host.Flag) func(any) bool {
	return func(v any) bool {
		if _, ok := v.(host.Callable); !ok {
			return false
		}
		fl, ok := v.(host.Flagged)
		return ok && fl.Flags().Has(f)
	}
}

func isStaticMethod(v any) bool {
	switch v.(type) {
	case host.StaticMethod, *host.StaticMethod:
		return true
	}
	return false
}

func isClassMethod(v any) bool {
	switch v.(type) {
	case host.ClassMethod, *host.ClassMethod:
		return true
	}
	return false
}

func isCachedProperty(v any) bool {
	switch v.(type) {
	case host.CachedProperty, *host.CachedProperty:
		return true
	}
	return false
}

func isProperty(v any) bool {
	switch v.(type) {
	case host.Property, *host.Property:
		return true
	}
	return false
}
