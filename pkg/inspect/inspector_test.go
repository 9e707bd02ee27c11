package inspect_test

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/liveinspect/internal/host/memhost"
	"github.com/leapstack-labs/liveinspect/internal/testutil"
	"github.com/leapstack-labs/liveinspect/pkg/docstrings"
	"github.com/leapstack-labs/liveinspect/pkg/host"
	"github.com/leapstack-labs/liveinspect/pkg/inspect"
	"github.com/leapstack-labs/liveinspect/pkg/lines"
	"github.com/leapstack-labs/liveinspect/pkg/model"
)

func demoModule(t *testing.T, name string) *memhost.Module {
	t.Helper()
	v, _, err := memhost.Demo().Import(t.Context(), name)
	require.NoError(t, err)
	return v.(*memhost.Module)
}

func get(t *testing.T, res *inspect.Result, path string) model.Node {
	t.Helper()
	n, ok := res.Index.Get(path)
	require.True(t, ok, "missing %s in %v", path, res.Index.Paths())
	return n
}

func TestInspect_DemoPackage(t *testing.T) {
	res, err := inspect.New(inspect.Options{DocstringParser: docstrings.Google}).Inspect(demoModule(t, "pkg"), "pkg")
	require.NoError(t, err)

	pkg := res.Module
	assert.Equal(t, "pkg", pkg.Path())
	assert.Equal(t, []string{"f", "C", "g"}, pkg.Members().Names())
	assert.Equal(t, []string{"f", "C", "g"}, pkg.Exports)
	require.NotNil(t, pkg.Docstring)
	assert.Equal(t, "Demo package.", pkg.Docstring.Value())

	f, ok := get(t, res, "pkg.f").(*model.Function)
	require.True(t, ok)
	require.Len(t, f.Parameters, 2)
	assert.Equal(t, "x", f.Parameters[0].Name)
	assert.Equal(t, model.PositionalOrKeyword, f.Parameters[0].Kind)
	assert.Nil(t, f.Parameters[0].Default)
	greeting := f.Parameters[1]
	assert.Equal(t, "greeting", greeting.Name)
	require.NotNil(t, greeting.Default)
	assert.Equal(t, `"hi"`, *greeting.Default)
	require.NotNil(t, greeting.Annotation)
	assert.Equal(t, "str", greeting.Annotation.String())
	require.NotNil(t, f.Returns)
	assert.Equal(t, "str", f.Returns.String())
	assert.Equal(t, docstrings.Google, f.Docstring.Parser())

	c, ok := get(t, res, "pkg.C").(*model.Class)
	require.True(t, ok)
	assert.Equal(t, []string{"s", "p"}, c.Members().Names())

	s := get(t, res, "pkg.C.s")
	assert.Equal(t, model.KindFunction, s.Kind())
	assert.True(t, model.BaseOf(s).Labels.Has("static"))

	p, ok := get(t, res, "pkg.C.p").(*model.Attribute)
	require.True(t, ok)
	assert.True(t, p.Labels.Has("property"))
	assert.False(t, p.Labels.Has("cached"))
	require.NotNil(t, p.Annotation)
	assert.Equal(t, "int", p.Annotation.String())

	g, ok := get(t, res, "pkg.g").(*model.Alias)
	require.True(t, ok)
	assert.Equal(t, "other_module.g", g.Target)
}

func TestInspect_ModuleHandleBecomesAlias(t *testing.T) {
	res, err := inspect.New(inspect.Options{}).Inspect(demoModule(t, "other_module"), "other_module")
	require.NoError(t, err)

	assert.Equal(t, model.KindFunction, get(t, res, "other_module.g").Kind())
	a, ok := get(t, res, "other_module.pkg").(*model.Alias)
	require.True(t, ok)
	assert.Equal(t, "pkg", a.Target)
}

func TestInspect_ShimPair(t *testing.T) {
	res, err := inspect.New(inspect.Options{}).Inspect(demoModule(t, "os"), "os")
	require.NoError(t, err)

	assert.Equal(t, model.KindFunction, get(t, res, "os.getcwd").Kind())
	assert.Equal(t, model.KindModule, get(t, res, "os.posix").Kind())
	again, ok := get(t, res, "os.posix.getcwd").(*model.Alias)
	require.True(t, ok, "getcwd is expanded once")
	assert.Equal(t, "os.getcwd", again.Target)

	sep, ok := get(t, res, "os.sep").(*model.Attribute)
	require.True(t, ok)
	assert.True(t, sep.Labels.Has("module"))
	require.NotNil(t, sep.Value)
	assert.Equal(t, `"/"`, *sep.Value)

	// The pair is directional: posix re-exporting os is still foreign.
	back, ok := get(t, res, "os.posix.os").(*model.Alias)
	require.True(t, ok)
	assert.Equal(t, "os", back.Target)
}

func TestInspect_ShimPairRemoved(t *testing.T) {
	shims := inspect.DefaultShimTable()
	shims.Remove("os", "posix")

	res, err := inspect.New(inspect.Options{Shims: shims}).Inspect(demoModule(t, "os"), "os")
	require.NoError(t, err)

	a, ok := get(t, res, "os.getcwd").(*model.Alias)
	require.True(t, ok)
	assert.Equal(t, "posix.getcwd", a.Target)
	assert.Equal(t, model.KindAlias, get(t, res, "os.posix").Kind())
}

func TestInspect_Ownership(t *testing.T) {
	tests := []struct {
		name    string
		module  string
		defined string
		rule    bool
		want    model.Kind
		target  string
	}{
		{name: "same module", module: "pkg", defined: "pkg", rule: true, want: model.KindFunction},
		{name: "submodule", module: "pkg", defined: "pkg._impl", rule: true, want: model.KindFunction},
		{name: "sibling prefix", module: "pkg", defined: "pkg_impl", rule: true, want: model.KindAlias, target: "pkg_impl.fn"},
		{name: "foreign", module: "pkg", defined: "tools", rule: true, want: model.KindAlias, target: "tools.fn"},
		{name: "naming rule", module: "speedups", defined: "_speedups", rule: true, want: model.KindFunction},
		{name: "naming rule reversed", module: "_speedups", defined: "speedups", rule: true, want: model.KindFunction},
		{name: "naming rule disabled", module: "speedups", defined: "_speedups", rule: false, want: model.KindAlias, target: "_speedups.fn"},
		{name: "unknown owner", module: "pkg", defined: "", rule: true, want: model.KindFunction},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mod := memhost.NewModule(tt.module).Add("fn", memhost.NewFunc("fn", tt.defined))
			shims := inspect.NewShimTable(nil, tt.rule)

			res, err := inspect.New(inspect.Options{Shims: shims}).Inspect(mod, tt.module)
			require.NoError(t, err)

			n := get(t, res, tt.module+".fn")
			assert.Equal(t, tt.want, n.Kind())
			if a, ok := n.(*model.Alias); ok {
				assert.Equal(t, tt.target, a.Target)
			}
		})
	}
}

func TestInspect_AliasUsesQualifiedName(t *testing.T) {
	fn := memhost.NewFunc("real_name", "tools")
	mod := memhost.NewModule("pkg").Add("nickname", fn)

	res, err := inspect.New(inspect.Options{}).Inspect(mod, "pkg")
	require.NoError(t, err)

	a, ok := get(t, res, "pkg.nickname").(*model.Alias)
	require.True(t, ok)
	assert.Equal(t, "tools.real_name", a.Target)
}

func TestInspect_ContainerExpandedOnce(t *testing.T) {
	c := memhost.NewClass("C", "m").Add("x", &memhost.Value{V: 1})
	mod := memhost.NewModule("m").Add("C", c).Add("D", c)
	mod.Add("self", mod)

	res, err := inspect.New(inspect.Options{}).Inspect(mod, "m")
	require.NoError(t, err)

	assert.Equal(t, model.KindClass, get(t, res, "m.C").Kind())
	d, ok := get(t, res, "m.D").(*model.Alias)
	require.True(t, ok)
	assert.Equal(t, "m.C", d.Target)

	self, ok := get(t, res, "m.self").(*model.Alias)
	require.True(t, ok)
	assert.Equal(t, "m", self.Target)
}

func TestInspect_ValuesExpandedOnce(t *testing.T) {
	f := memhost.NewFunc("f", "m")
	getter := memhost.NewFunc("size", "m")
	c := memhost.NewClass("C", "m").
		Add("make", host.StaticMethod{Func: f}).
		Add("size", host.Property{Getter: getter}).
		Add("area", host.Property{Getter: getter})
	shared := &memhost.Value{V: 1}
	mod := memhost.NewModule("m").
		Add("f", f).
		Add("h", f).
		Add("C", c).
		Add("size_fn", getter).
		Add("one", shared).
		Add("uno", shared)

	res, err := inspect.New(inspect.Options{}).Inspect(mod, "m")
	require.NoError(t, err)

	tests := []struct {
		path   string
		kind   model.Kind
		target string
	}{
		{"m.f", model.KindFunction, ""},
		{"m.h", model.KindAlias, "m.f"},
		{"m.C.make", model.KindAlias, "m.f"},
		{"m.C.size", model.KindAttribute, ""},
		{"m.C.area", model.KindAlias, "m.C.size"},
		{"m.size_fn", model.KindFunction, ""},
		{"m.one", model.KindAttribute, ""},
		{"m.uno", model.KindAttribute, ""},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			n := get(t, res, tt.path)
			assert.Equal(t, tt.kind, n.Kind())
			if a, ok := n.(*model.Alias); ok {
				assert.Equal(t, tt.target, a.Target)
			}
		})
	}
}

func TestInspect_SignatureFailures(t *testing.T) {
	failing := memhost.NewFunc("failing", "m", host.Param{Name: "a"})
	failing.Err = errors.New("no signature")
	panicking := memhost.NewFunc("panicking", "m", host.Param{Name: "a"})
	panicking.Panic = true
	mod := memhost.NewModule("m").Add("failing", failing).Add("panicking", panicking)

	logger, rec := testutil.NewRecordingLogger(t)
	res, err := inspect.New(inspect.Options{Logger: logger}).Inspect(mod, "m")
	require.NoError(t, err)

	for _, path := range []string{"m.failing", "m.panicking"} {
		f, ok := get(t, res, path).(*model.Function)
		require.True(t, ok, path)
		assert.Empty(t, f.Parameters, path)
		assert.Nil(t, f.Returns, path)

		r, logged := rec.Find("signature unavailable", "path", path)
		require.True(t, logged, path)
		assert.Equal(t, slog.LevelDebug, r.Level)
	}
	r, _ := rec.Find("signature unavailable", "path", "m.panicking")
	assert.Contains(t, r.Attrs["error"], "signature panicked")
}

func TestInspect_ParameterKinds(t *testing.T) {
	fn := memhost.NewFunc("fn", "m",
		host.Param{Name: "a", Kind: host.PositionalOnly},
		host.Param{Name: "b", Kind: host.PositionalOrKeyword, Default: &memhost.Value{V: 2}, HasDefault: true},
		host.Param{Name: "args", Kind: host.VarPositional},
		host.Param{Name: "c", Kind: host.KeywordOnly, Annotation: "list[int]"},
		host.Param{Name: "kwargs", Kind: host.VarKeyword},
		host.Param{Name: "broken", Kind: host.KeywordOnly, Default: &memhost.Value{Fail: true}, HasDefault: true},
	)
	mod := memhost.NewModule("m").Add("fn", fn)

	res, err := inspect.New(inspect.Options{}).Inspect(mod, "m")
	require.NoError(t, err)
	f := get(t, res, "m.fn").(*model.Function)

	want := []struct {
		name string
		kind model.ParameterKind
	}{
		{"a", model.PositionalOnly},
		{"b", model.PositionalOrKeyword},
		{"args", model.VarPositional},
		{"c", model.KeywordOnly},
		{"kwargs", model.VarKeyword},
		{"broken", model.KeywordOnly},
	}
	require.Len(t, f.Parameters, len(want))
	for i, w := range want {
		assert.Equal(t, w.name, f.Parameters[i].Name)
		assert.Equal(t, w.kind, f.Parameters[i].Kind, w.name)
	}

	require.NotNil(t, f.Parameters[1].Default)
	assert.Equal(t, "2", *f.Parameters[1].Default)
	assert.Equal(t, "list[int]", f.Parameters[3].Annotation.String())
	assert.Nil(t, f.Parameters[5].Default, "a failing snapshot leaves the default out")
}

func TestInspect_FunctionLabels(t *testing.T) {
	tests := []struct {
		name  string
		value any
		label string
	}{
		{"static", host.StaticMethod{Func: memhost.NewFunc("x", "m")}, "static"},
		{"classmethod", host.ClassMethod{Func: memhost.NewFunc("x", "m")}, "class-scoped"},
		{"builtin", &memhost.Func{Name: "x", Flag: host.FlagBuiltin}, "builtin"},
		{"builtin method", &memhost.Func{Name: "x", Flag: host.FlagBuiltin | host.FlagBound}, "builtin"},
		{"method descriptor", &memhost.Func{Name: "x", Flag: host.FlagMethodDescriptor}, "method-descriptor"},
		{"async", &memhost.Func{Name: "x", Module: "m", Flag: host.FlagAsync}, "async"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cls := memhost.NewClass("C", "m").Add("x", tt.value)
			mod := memhost.NewModule("m").Add("C", cls)

			res, err := inspect.New(inspect.Options{}).Inspect(mod, "m")
			require.NoError(t, err)

			n := get(t, res, "m.C.x")
			assert.Equal(t, model.KindFunction, n.Kind())
			assert.True(t, model.BaseOf(n).Labels.Has(tt.label), "labels: %v", model.BaseOf(n).Labels.Sorted())
		})
	}
}

func TestInspect_Attributes(t *testing.T) {
	ctor := memhost.NewFunc("__init__", "m", host.Param{Name: "self"})
	ctor.Instance = []host.Member{
		{Name: "size", Value: &memhost.Value{V: 3}},
		{Name: "label", Value: host.InstanceAttribute{Value: &memhost.Value{V: "a"}, Annotation: "str"}},
		{Name: "limit", Value: &memhost.Value{V: 99}},
	}
	helper := memhost.NewFunc("reset", "m", host.Param{Name: "self"})
	helper.Instance = []host.Member{{Name: "scratch", Value: &memhost.Value{V: 0}}}
	cls := memhost.NewClass("C", "m").
		Add("__init__", ctor).
		Add("limit", &memhost.Value{V: 10}).
		Add("area", host.CachedProperty{Func: memhost.NewFunc("area", "m")}).
		Add("reset", helper)
	mod := memhost.NewModule("m").
		Add("C", cls).
		Add("opaque", &memhost.Value{Fail: true})

	res, err := inspect.New(inspect.Options{}).Inspect(mod, "m")
	require.NoError(t, err)

	assert.Equal(t, []string{"__init__", "limit", "area", "reset", "size", "label"},
		get(t, res, "m.C").(model.Container).Members().Names(),
		"only the constructor contributes instance attributes")

	limit := get(t, res, "m.C.limit").(*model.Attribute)
	assert.True(t, limit.Labels.Has("class"))
	assert.Equal(t, "10", *limit.Value)

	size := get(t, res, "m.C.size").(*model.Attribute)
	assert.True(t, size.Labels.Has("instance"))
	assert.Equal(t, "3", *size.Value)

	label := get(t, res, "m.C.label").(*model.Attribute)
	require.NotNil(t, label.Annotation)
	assert.Equal(t, "str", label.Annotation.String())

	area := get(t, res, "m.C.area").(*model.Attribute)
	assert.True(t, area.Labels.Has("property"))
	assert.True(t, area.Labels.Has("cached"))

	opaque := get(t, res, "m.opaque").(*model.Attribute)
	assert.Nil(t, opaque.Value)
}

func TestInspect_ExcludeMembers(t *testing.T) {
	mod := memhost.NewModule("m").
		Add("__builtins__", &memhost.Value{V: 1}).
		Add("__spec__", &memhost.Value{V: 2}).
		Add("kept", &memhost.Value{V: 3})

	res, err := inspect.New(inspect.Options{}).Inspect(mod, "m")
	require.NoError(t, err)
	assert.Equal(t, []string{"kept"}, res.Module.Members().Names())

	res, err = inspect.New(inspect.Options{ExcludeMembers: []string{"kept"}}).Inspect(mod, "m")
	require.NoError(t, err)
	assert.Equal(t, []string{"__builtins__", "__spec__"}, res.Module.Members().Names())
}

func TestInspect_ExportSymbol(t *testing.T) {
	mod := memhost.NewModule("m").
		Add("a", &memhost.Value{V: 1}).
		Add("__exports__", memhost.List{"a"}).
		Add("__all__", &memhost.Value{V: "not a list"})

	res, err := inspect.New(inspect.Options{ExportSymbol: "__exports__"}).Inspect(mod, "m")
	require.NoError(t, err)

	assert.Equal(t, []string{"a"}, res.Module.Exports)
	assert.Equal(t, []string{"a", "__all__"}, res.Module.Members().Names())
}

func TestInspect_ExportSymbolInClass(t *testing.T) {
	cls := memhost.NewClass("C", "m").
		Add("x", &memhost.Value{V: 1}).
		Add("__all__", memhost.List{"x"})
	mod := memhost.NewModule("m").Add("C", cls)

	res, err := inspect.New(inspect.Options{}).Inspect(mod, "m")
	require.NoError(t, err)

	all, ok := get(t, res, "m.C.__all__").(*model.Attribute)
	require.True(t, ok, "a class keeps the symbol as an attribute")
	assert.True(t, all.Labels.Has("class"))
	require.NotNil(t, all.Value)
	assert.Empty(t, res.Module.Exports)
}

func TestInspect_NotModule(t *testing.T) {
	for _, v := range []any{42, memhost.NewClass("C", "m"), nil} {
		_, err := inspect.New(inspect.Options{}).Inspect(v, "x")
		assert.ErrorIs(t, err, inspect.ErrNotModule, "%T", v)
	}
}

func TestInspect_Parent(t *testing.T) {
	parent, err := model.NewModule("root", nil)
	require.NoError(t, err)

	res, err := inspect.New(inspect.Options{Parent: parent}).Inspect(memhost.NewModule("child"), "child")
	require.NoError(t, err)

	assert.Equal(t, "root.child", res.Module.Path())
	got, ok := parent.Members().Get("child")
	require.True(t, ok)
	assert.Same(t, res.Module, got)
}

func TestInspect_Locations(t *testing.T) {
	file := filepath.Join(t.TempDir(), "m.star")
	src := lines.NewCollection()
	src.Set(file, []byte("def fn():\n    pass\n"))

	fn := memhost.NewFunc("fn", "m")
	fn.File, fn.Line, fn.End = file, 1, 2
	mod := memhost.NewModule("m").Add("fn", fn)
	mod.File = file

	res, err := inspect.New(inspect.Options{Lines: src}).Inspect(mod, "m")
	require.NoError(t, err)

	assert.Equal(t, file, res.Module.Filepath)
	f := get(t, res, "m.fn")
	assert.Equal(t, 1, model.BaseOf(f).Lineno)
	assert.Equal(t, 2, model.BaseOf(f).EndLineno)

	text, err := src.Range(file, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, "def fn():\n    pass", text)
}

func TestInspect_Idempotent(t *testing.T) {
	encode := func() string {
		res, err := inspect.New(inspect.Options{}).Inspect(demoModule(t, "pkg"), "pkg")
		require.NoError(t, err)
		data, err := json.Marshal(res.Module)
		require.NoError(t, err)
		return string(data)
	}
	assert.JSONEq(t, encode(), encode())
}

func TestInspect_HookOrder(t *testing.T) {
	cls := memhost.NewClass("C", "m").Add("x", &memhost.Value{V: 1})
	mod := memhost.NewModule("m").Add("C", cls).Add("g", memhost.NewFunc("g", "other"))

	var events []string
	rec := inspect.ExtensionFunc(func(when inspect.When, ev inspect.Event) {
		events = append(events, fmt.Sprintf("%s %s", when, ev.Node.Path()))
		if when == inspect.BeforeNode {
			assert.Nil(t, ev.Object)
		} else {
			require.NotNil(t, ev.Object)
		}
	})

	_, err := inspect.New(inspect.Options{Extensions: inspect.Extensions{rec}}).Inspect(mod, "m")
	require.NoError(t, err)

	assert.Equal(t, []string{
		"before_node m",
		"before_children m",
		"before_node m.C",
		"before_children m.C",
		"before_node m.C.x",
		"after_node m.C.x",
		"after_children m.C",
		"after_node m.C",
		"before_node m.g",
		"after_node m.g",
		"after_children m",
		"after_node m",
	}, events)
}

func TestInspect_ExtensionsRunInOrder(t *testing.T) {
	var order []string
	first := inspect.ExtensionFunc(func(when inspect.When, _ inspect.Event) {
		if when == inspect.AfterNode {
			order = append(order, "first")
		}
	})
	second := inspect.ExtensionFunc(func(when inspect.When, _ inspect.Event) {
		if when == inspect.AfterNode {
			order = append(order, "second")
		}
	})

	_, err := inspect.New(inspect.Options{Extensions: inspect.Extensions{first, second}}).Inspect(memhost.NewModule("m"), "m")
	require.NoError(t, err)
	assert.Equal(t, []string{"first", "second"}, order)
}

func TestPrivateLabeler(t *testing.T) {
	ext, err := inspect.BuiltinExtension("private")
	require.NoError(t, err)

	mod := memhost.NewModule("m").
		Add("public", &memhost.Value{V: 1}).
		Add("_hidden", &memhost.Value{V: 2}).
		Add("__dunder__", &memhost.Value{V: 3}).
		Add("__", &memhost.Value{V: 4})

	res, err := inspect.New(inspect.Options{Extensions: inspect.Extensions{ext}}).Inspect(mod, "m")
	require.NoError(t, err)

	tests := []struct {
		path string
		want []string
	}{
		{"m.public", []string{"module"}},
		{"m._hidden", []string{"module", "private"}},
		{"m.__dunder__", []string{"module", "special"}},
		{"m.__", []string{"module", "private"}},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, model.BaseOf(get(t, res, tt.path)).Labels.Sorted(), tt.path)
	}
	assert.Empty(t, res.Module.Labels.Sorted(), "the root module has no container")

	_, err = inspect.BuiltinExtension("nope")
	assert.Error(t, err)
}
