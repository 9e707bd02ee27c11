package starlarkhost

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.starlark.net/starlark"
)

func TestGoToStarlarkRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want any
	}{
		{"nil", nil, nil},
		{"string", "s", "s"},
		{"int", 3, int64(3)},
		{"int64", int64(-4), int64(-4)},
		{"float", 1.5, 1.5},
		{"bool", true, true},
		{"string slice", []string{"a", "b"}, []any{"a", "b"}},
		{"nested", []any{"a", map[string]any{"k": int64(1)}}, []any{"a", map[string]any{"k": int64(1)}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sv, err := GoToStarlark(tt.in)
			require.NoError(t, err)
			got, err := ToGo(sv)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestGoToStarlark_Unsupported(t *testing.T) {
	_, err := GoToStarlark([]any{struct{}{}})
	assert.ErrorContains(t, err, "list index 0")
}

func TestToGo_NonStringKey(t *testing.T) {
	d := starlark.NewDict(1)
	require.NoError(t, d.SetKey(starlark.MakeInt(1), starlark.None))
	_, err := ToGo(d)
	assert.ErrorContains(t, err, "dict key must be string")
}

func TestThreadPool(t *testing.T) {
	pool := NewThreadPool(1)
	a := pool.Get("a")
	b := pool.Get("b")
	assert.Equal(t, "a", a.Name)

	pool.Put(a)
	pool.Put(b)
	assert.Equal(t, 1, pool.Size(), "idle threads beyond the limit are dropped")

	reused := pool.Get("c")
	assert.Same(t, a, reused)
	assert.Equal(t, "c", reused.Name)
	assert.Nil(t, reused.Load)
}
