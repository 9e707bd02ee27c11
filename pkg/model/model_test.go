package model

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/liveinspect/pkg/annotation"
	"github.com/leapstack-labs/liveinspect/pkg/docstrings"
)

// buildTree returns:
//
//	pkg
//	  f(x: C, *, n=1) -> int
//	  C
//	    size
//	  sub
//	    g -> other.g
//	  alias_c -> pkg.C
func buildTree(t *testing.T) *Module {
	t.Helper()
	pkg, err := NewModule("pkg", nil)
	require.NoError(t, err)
	pkg.Exports = []string{"f", "C"}

	f := NewFunction("f")
	f.Lineno, f.EndLineno = 3, 5
	f.Docstring = NewDocstring("Do f.", docstrings.Google, map[string]any{"strict": true})
	f.Labels.Add("exported")
	one := "1"
	require.NoError(t, pkg.Set(f))

	c, err := NewClass("C", pkg)
	require.NoError(t, err)
	c.Bases = []string{"object"}
	size := NewAttribute("size")
	size.Labels.Add("instance")
	require.NoError(t, c.Set(size))

	f.Parameters = []*Parameter{
		{Name: "x", Kind: PositionalOrKeyword, Annotation: annotation.ParseOrRaw("C", pkg)},
		{Name: "n", Kind: KeywordOnly, Default: &one},
	}
	f.Returns = annotation.ParseOrRaw("int", pkg)

	sub, err := NewModule("sub", pkg)
	require.NoError(t, err)
	require.NoError(t, sub.Set(NewAlias("g", "other.g")))
	require.NoError(t, pkg.Set(NewAlias("alias_c", "pkg.C")))
	return pkg
}

func TestPaths(t *testing.T) {
	pkg := buildTree(t)
	idx := BuildIndex(pkg)

	assert.Equal(t, []string{
		"pkg", "pkg.f", "pkg.C", "pkg.C.size", "pkg.sub", "pkg.sub.g", "pkg.alias_c",
	}, idx.Paths())

	n, ok := idx.Get("pkg.C.size")
	require.True(t, ok)
	assert.Equal(t, KindAttribute, n.Kind())
	assert.Equal(t, "C", n.Parent().Name())
	assert.Nil(t, pkg.Parent())
}

func TestSet_KeepsSlot(t *testing.T) {
	m, err := NewModule("m", nil)
	require.NoError(t, err)
	require.NoError(t, m.Set(NewAttribute("a")))
	require.NoError(t, m.Set(NewAttribute("b")))

	replacement := NewFunction("a")
	require.NoError(t, m.Set(replacement))

	assert.Equal(t, []string{"a", "b"}, m.Members().Names())
	got, _ := m.Members().Get("a")
	assert.Same(t, replacement, got)
	assert.Equal(t, 2, m.Members().Len())
}

func TestSet_Reparent(t *testing.T) {
	a, _ := NewModule("a", nil)
	b, _ := NewModule("b", nil)
	f := NewFunction("f")
	require.NoError(t, a.Set(f))
	require.NoError(t, a.Set(f), "inserting into the same owner is allowed")

	err := b.Set(f)
	assert.ErrorIs(t, err, ErrReparent)
	assert.Equal(t, "a.f", f.Path())

	inner, err := NewClass("Inner", a)
	require.NoError(t, err)
	err = inner.Set(a)
	assert.ErrorIs(t, err, ErrReparent, "a container cannot contain its ancestor")
}

func TestResolveName(t *testing.T) {
	pkg := buildTree(t)
	c, _ := pkg.Members().Get("C")
	sub, _ := pkg.Members().Get("sub")

	tests := []struct {
		name  string
		scope Container
		in    string
		want  string
		found bool
	}{
		{"member", pkg, "f", "pkg.f", true},
		{"outer scope", c.(Container), "f", "pkg.f", true},
		{"own member", c.(Container), "size", "pkg.C.size", true},
		{"alias target", sub.(Container), "g", "other.g", true},
		{"root name", sub.(Container), "pkg", "pkg", true},
		{"unknown", pkg, "int", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := tt.scope.ResolveName(tt.in)
			assert.Equal(t, tt.found, ok)
			assert.Equal(t, tt.want, got)
		})
	}

	f, _ := pkg.Members().Get("f")
	x, ok := f.(*Function).Parameter("x")
	require.True(t, ok)
	assert.Equal(t, annotation.Name{Source: "C", Full: "pkg.C"}, x.Annotation)
}

func TestLabels(t *testing.T) {
	var l Labels
	assert.False(t, l.Has("x"))
	assert.Empty(t, l.Sorted())

	l.Add("b", "a", "b")
	assert.True(t, l.Has("a"))
	assert.Equal(t, []string{"a", "b"}, l.Sorted())
}

func TestDocstring_Immutable(t *testing.T) {
	opts := map[string]any{"k": 1}
	d := NewDocstring("text", docstrings.Numpy, opts)
	opts["k"] = 2
	d.Options()["k"] = 3

	assert.Equal(t, map[string]any{"k": 1}, d.Options())
	assert.Equal(t, docstrings.Numpy, d.Parser())
	assert.Equal(t, "text", d.Value())
}

func TestJSONRoundTrip(t *testing.T) {
	pkg := buildTree(t)

	data, err := json.Marshal(pkg)
	require.NoError(t, err)

	decoded, err := Decode(data)
	require.NoError(t, err)

	again, err := json.Marshal(decoded)
	require.NoError(t, err)
	assert.JSONEq(t, string(data), string(again))

	f, ok := BuildIndex(decoded).Get("pkg.f")
	require.True(t, ok)
	fn := f.(*Function)
	assert.Equal(t, 3, fn.Lineno)
	assert.True(t, fn.Labels.Has("exported"))
	require.NotNil(t, fn.Docstring)
	assert.Equal(t, docstrings.Google, fn.Docstring.Parser())
	require.Len(t, fn.Parameters, 2)
	assert.Equal(t, "1", *fn.Parameters[1].Default)
	assert.Equal(t, "int", fn.Returns.String())
	assert.Equal(t, []string{"f", "C"}, decoded.Exports)
}

func TestDecode_Errors(t *testing.T) {
	tests := []struct {
		name string
		data string
		msg  string
	}{
		{"invalid json", `{`, "invalid JSON"},
		{"root not module", `{"kind":"class","name":"C","path":"C"}`, "root must be a module"},
		{"missing name", `{"kind":"module","name":"","path":""}`, "missing name"},
		{"unknown kind", `{"kind":"module","name":"m","path":"m","members":[{"kind":"thing","name":"x","path":"m.x"}]}`, "unknown kind"},
		{"alias with members", `{"kind":"module","name":"m","path":"m","members":[{"kind":"alias","name":"a","path":"m.a","target":"x","members":[{"kind":"attribute","name":"b","path":"m.a.b"}]}]}`, "alias cannot have members"},
		{"function with members", `{"kind":"module","name":"m","path":"m","members":[{"kind":"function","name":"f","path":"m.f","members":[{"kind":"attribute","name":"b","path":"m.f.b"}]}]}`, "cannot have members"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode([]byte(tt.data))
			require.Error(t, err)
			var de *DecodeError
			assert.True(t, errors.As(err, &de))
			assert.Contains(t, err.Error(), tt.msg)
		})
	}
}

func TestWalk_SkipsMembers(t *testing.T) {
	pkg := buildTree(t)
	var seen []string
	Walk(pkg, func(n Node) bool {
		seen = append(seen, n.Path())
		return n.Kind() != KindClass
	})
	assert.NotContains(t, seen, "pkg.C.size")
	assert.Contains(t, seen, "pkg.C")
}

type fixedLines int

func (f fixedLines) Count() int { return int(f) }

func TestComputeStats(t *testing.T) {
	pkg := buildTree(t)

	s := ComputeStats(fixedLines(12), pkg)
	assert.Equal(t, Stats{
		Modules:    2,
		Classes:    1,
		Functions:  1,
		Attributes: 1,
		Aliases:    2,
		Lines:      12,
		Exported:   2,
	}, s)
	assert.Equal(t, 5, s.Total())

	assert.Equal(t, 0, ComputeStats(nil, pkg).Lines)
}
