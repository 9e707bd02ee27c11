package starlarkhost

import (
	"fmt"

	"go.starlark.net/starlark"
)

type descriptorKind string

const (
	descStatic         descriptorKind = "staticmethod"
	descClass          descriptorKind = "classmethod"
	descProperty       descriptorKind = "property"
	descCachedProperty descriptorKind = "cached_property"
)

// descriptor marks a function stored in a struct with how it is accessed.
// Starlark has no decorators, so files write p = property(_get_p).
type descriptor struct {
	kind descriptorKind
	fn   starlark.Value
}

var _ starlark.Value = (*descriptor)(nil)

func (d *descriptor) String() string        { return fmt.Sprintf("<%s %s>", d.kind, d.fn) }
func (d *descriptor) Type() string          { return string(d.kind) }
func (d *descriptor) Freeze()               { d.fn.Freeze() }
func (d *descriptor) Truth() starlark.Bool  { return starlark.True }
func (d *descriptor) Hash() (uint32, error) { return 0, fmt.Errorf("unhashable: %s", d.Type()) }

func makeDescriptor(kind descriptorKind) func(*starlark.Thread, *starlark.Builtin, starlark.Tuple, []starlark.Tuple) (starlark.Value, error) {
	return func(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
		var fn starlark.Callable
		if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 1, &fn); err != nil {
			return nil, err
		}
		return &descriptor{kind: kind, fn: fn}, nil
	}
}
