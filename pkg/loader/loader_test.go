package loader_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/liveinspect/internal/host/memhost"
	"github.com/leapstack-labs/liveinspect/internal/testutil"
	"github.com/leapstack-labs/liveinspect/pkg/loader"
	"github.com/leapstack-labs/liveinspect/pkg/model"
)

func TestLoad(t *testing.T) {
	reg := memhost.Demo()
	ld := loader.New(reg, loader.Options{Logger: testutil.NewTestLogger(t)})

	m, err := ld.Load(t.Context(), "pkg")
	require.NoError(t, err)
	assert.Equal(t, "pkg", m.Path())

	got, ok := ld.Collection().Module("pkg")
	require.True(t, ok)
	assert.Same(t, m, got)

	_, err = ld.Load(t.Context(), "nope")
	var ie *loader.ImportError
	require.True(t, errors.As(err, &ie))
	assert.Equal(t, "nope", ie.Module)
	assert.Contains(t, err.Error(), "nope")
}

func TestLoad_ReplacesTree(t *testing.T) {
	ld := loader.New(memhost.Demo(), loader.Options{})
	first, err := ld.Load(t.Context(), "pkg")
	require.NoError(t, err)
	second, err := ld.Load(t.Context(), "pkg")
	require.NoError(t, err)

	assert.NotSame(t, first, second)
	assert.Equal(t, 1, ld.Collection().Len())
}

func TestLoad_CancelledContext(t *testing.T) {
	reg := memhost.Demo()
	ld := loader.New(reg, loader.Options{})

	ctx, cancel := context.WithCancel(t.Context())
	cancel()
	_, err := ld.Load(ctx, "pkg")
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, reg.Imports["pkg"])
}

func TestLoadAll(t *testing.T) {
	tests := []struct {
		name    string
		workers int
		modules []string
		wantErr bool
	}{
		{"unbounded", 0, []string{"pkg", "other_module", "os", "posix"}, false},
		{"one worker", 1, []string{"pkg", "other_module", "os", "posix"}, false},
		{"missing module", 2, []string{"pkg", "missing"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ld := loader.New(memhost.Demo(), loader.Options{Workers: tt.workers})
			err := ld.LoadAll(t.Context(), tt.modules)
			if tt.wantErr {
				var ie *loader.ImportError
				assert.True(t, errors.As(err, &ie))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, len(tt.modules), ld.Collection().Len())
		})
	}
}

func TestResolveAliases(t *testing.T) {
	t.Run("local only", func(t *testing.T) {
		ld := loader.New(memhost.Demo(), loader.Options{})
		_, err := ld.Load(t.Context(), "pkg")
		require.NoError(t, err)

		unresolved, iterations := ld.ResolveAliases(t.Context(), false, 5)
		assert.Equal(t, []string{"pkg.g"}, unresolved)
		assert.Equal(t, 1, iterations)
	})

	t.Run("external", func(t *testing.T) {
		reg := memhost.Demo()
		ld := loader.New(reg, loader.Options{})
		_, err := ld.Load(t.Context(), "pkg")
		require.NoError(t, err)

		unresolved, iterations := ld.ResolveAliases(t.Context(), true, 5)
		assert.Empty(t, unresolved)
		assert.Equal(t, 2, iterations)
		assert.Equal(t, 1, reg.Imports["other_module"])
		assert.Equal(t, 1, reg.Imports["other_module.g"], "the longest prefix is tried first")

		n, err := ld.Collection().Resolve("pkg.g")
		require.NoError(t, err)
		assert.Equal(t, "other_module.g", n.Path())
	})

	t.Run("iteration limit", func(t *testing.T) {
		ld := loader.New(memhost.Demo(), loader.Options{})
		_, err := ld.Load(t.Context(), "pkg")
		require.NoError(t, err)

		unresolved, iterations := ld.ResolveAliases(t.Context(), true, 1)
		assert.Equal(t, []string{"pkg.g"}, unresolved)
		assert.Equal(t, 1, iterations)
	})

	t.Run("target never importable", func(t *testing.T) {
		reg := memhost.NewRegistry(memhost.NewModule("m").Add("x", memhost.NewFunc("x", "gone")))
		logger, rec := testutil.NewRecordingLogger(t)
		ld := loader.New(reg, loader.Options{Logger: logger})
		_, err := ld.Load(t.Context(), "m")
		require.NoError(t, err)

		unresolved, iterations := ld.ResolveAliases(t.Context(), true, 10)
		assert.Equal(t, []string{"m.x"}, unresolved)
		assert.Equal(t, 1, iterations)
		assert.Equal(t, 1, reg.Imports["gone"])
		_, logged := rec.Find("external module not loaded", "module", "gone")
		assert.True(t, logged)
	})
}

func TestExpandExports(t *testing.T) {
	sub := memhost.NewModule("m.sub").
		Add("y", &memhost.Value{V: 2}).
		Add("__all__", memhost.List{"y", "ghost"})
	mod := memhost.NewModule("m").
		Add("x", &memhost.Value{V: 1}).
		Add("hidden", &memhost.Value{V: 0}).
		Add("sub", sub).
		Add("__all__", memhost.List{"x", "sub"})

	ld := loader.New(memhost.NewRegistry(mod), loader.Options{})
	_, err := ld.Load(t.Context(), "m")
	require.NoError(t, err)

	missing := ld.ExpandExports()
	assert.Equal(t, []string{"m.sub.ghost"}, missing)

	tests := []struct {
		path     string
		exported bool
	}{
		{"m.x", true},
		{"m.sub", true},
		{"m.sub.y", true},
		{"m.hidden", false},
	}
	for _, tt := range tests {
		n, err := ld.Collection().Get(tt.path)
		require.NoError(t, err)
		assert.Equal(t, tt.exported, model.BaseOf(n).Labels.Has("exported"), tt.path)
	}
}

func TestImporterFunc(t *testing.T) {
	called := ""
	imp := loader.ImporterFunc(func(_ context.Context, name string) (any, string, error) {
		called = name
		return memhost.NewModule(name), "/src/" + name, nil
	})

	ld := loader.New(imp, loader.Options{})
	m, err := ld.Load(t.Context(), "lib")
	require.NoError(t, err)
	assert.Equal(t, "lib", called)
	assert.Equal(t, "/src/lib", m.Filepath)
}
