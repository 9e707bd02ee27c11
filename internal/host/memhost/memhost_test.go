package memhost

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry(t *testing.T) {
	r := Demo()
	assert.Equal(t, []string{"os", "other_module", "pkg", "posix"}, r.Modules())

	v, _, err := r.Import(t.Context(), "pkg")
	require.NoError(t, err)
	assert.Equal(t, "pkg", v.(*Module).ModuleName())

	_, _, err = r.Import(t.Context(), "missing")
	assert.ErrorContains(t, err, `no module named "missing"`)
	assert.Equal(t, map[string]int{"pkg": 1, "missing": 1}, r.Imports)

	ctx, cancel := context.WithCancel(t.Context())
	cancel()
	_, _, err = r.Import(ctx, "pkg")
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, r.Imports["pkg"], "cancelled imports are not counted")
}

func TestValue_Repr(t *testing.T) {
	tests := []struct {
		name    string
		v       *Value
		want    string
		wantErr bool
	}{
		{"go syntax", &Value{V: "hi"}, `"hi"`, false},
		{"int", &Value{V: 3}, "3", false},
		{"override", &Value{V: 3, Text: "THREE"}, "THREE", false},
		{"failing", &Value{Fail: true}, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.v.Repr()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFunc_Signature(t *testing.T) {
	f := NewFunc("f", "m")
	f.Returns = "int"
	sig, err := f.Signature()
	require.NoError(t, err)
	assert.Equal(t, "int", sig.Returns)

	f.Err = errors.New("no signature")
	_, err = f.Signature()
	assert.EqualError(t, err, "no signature")

	f.Panic = true
	assert.Panics(t, func() { _, _ = f.Signature() })

	_, _, _, ok := f.Location()
	assert.False(t, ok)
	f.File, f.Line = "m.py", 4
	file, line, _, ok := f.Location()
	assert.True(t, ok)
	assert.Equal(t, "m.py", file)
	assert.Equal(t, 4, line)
}
