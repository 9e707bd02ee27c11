package inspect_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/leapstack-labs/liveinspect/pkg/inspect"
)

func TestShimTable_Identical(t *testing.T) {
	tests := []struct {
		name   string
		parent string
		owning string
		rule   bool
		want   bool
	}{
		{"registered pair", "os", "posix", false, true},
		{"pair is directional", "posix", "os", false, false},
		{"nested pair", "numpy.core._multiarray_umath", "numpy.core.multiarray", false, true},
		{"underscore child", "pkg.speedups", "pkg._speedups", true, true},
		{"underscore parent", "pkg._speedups", "pkg.speedups", true, true},
		{"rule compares last segment only", "a.speedups", "b._speedups", true, true},
		{"rule disabled", "pkg.speedups", "pkg._speedups", false, false},
		{"two underscores", "pkg.speedups", "pkg.__speedups", true, false},
		{"unrelated", "pkg", "tools", true, false},
		{"empty parent", "", "os", true, false},
		{"empty owner", "os", "", true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			shims := inspect.NewShimTable(inspect.DefaultShimPairs, tt.rule)
			assert.Equal(t, tt.want, shims.Identical(tt.parent, tt.owning))
		})
	}
}

func TestShimTable_AddRemove(t *testing.T) {
	shims := inspect.NewShimTable(nil, false)
	assert.Empty(t, shims.Pairs())
	assert.False(t, shims.Identical("io", "_io"))

	shims.Add("io", "_io")
	shims.Add("abc", "_abc")
	assert.True(t, shims.Identical("io", "_io"))
	assert.Equal(t, []inspect.ShimPair{
		{Parent: "abc", Child: "_abc"},
		{Parent: "io", Child: "_io"},
	}, shims.Pairs())

	shims.Remove("io", "_io")
	assert.False(t, shims.Identical("io", "_io"))
	assert.Len(t, shims.Pairs(), 1)

	shims.SetNamingRule(true)
	assert.True(t, shims.Identical("io", "_io"))
}

func TestDefaultShimTable(t *testing.T) {
	shims := inspect.DefaultShimTable()
	assert.Len(t, shims.Pairs(), len(inspect.DefaultShimPairs))
	assert.True(t, shims.Identical("os", "nt"))
	assert.True(t, shims.Identical("pymmcore._pymmcore_swig", "pymmcore.pymmcore_swig"))
	assert.True(t, shims.Identical("collections", "_collections"))
}
