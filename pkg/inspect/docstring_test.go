package inspect_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/liveinspect/internal/host/memhost"
	"github.com/leapstack-labs/liveinspect/pkg/host"
	"github.com/leapstack-labs/liveinspect/pkg/inspect"
	"github.com/leapstack-labs/liveinspect/pkg/model"
)

func TestCleanDoc(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"single line", "Summary.", "Summary."},
		{"leading space on first line", "   Summary.  ", "Summary."},
		{"common indent removed", "Summary.\n\n    Body line.\n      Nested.", "Summary.\n\nBody line.\n  Nested."},
		{"blank lines trimmed", "\n\n  Summary.\n\n", "Summary."},
		{"tabs expanded", "Summary.\n\tBody.", "Summary.\nBody."},
		{"first line ignored for margin", "Summary.\n  a\n    b", "Summary.\na\n  b"},
		{"only whitespace", "  \n \t \n", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, inspect.CleanDoc(tt.in))
		})
	}
}

func TestDocstringsAreOwnOnly(t *testing.T) {
	getter := memhost.NewFunc("p", "m")
	getter.DocText = "\n    Computed value.\n    "
	undocumented := memhost.NewFunc("u", "m")
	blank := memhost.NewFunc("b", "m")
	blank.DocText = "   "

	cls := memhost.NewClass("C", "m").
		Add("p", host.Property{Getter: getter}).
		Add("u", undocumented).
		Add("b", blank)
	cls.DocText = "Class docs."
	mod := memhost.NewModule("m").Add("C", cls)

	res, err := inspect.New(inspect.Options{DocstringOptions: map[string]any{"trim": true}}).Inspect(mod, "m")
	require.NoError(t, err)

	p := get(t, res, "m.C.p")
	require.NotNil(t, model.BaseOf(p).Docstring)
	assert.Equal(t, "Computed value.", model.BaseOf(p).Docstring.Value())
	assert.Equal(t, map[string]any{"trim": true}, model.BaseOf(p).Docstring.Options())

	assert.Nil(t, model.BaseOf(get(t, res, "m.C.u")).Docstring, "no fallback to the class")
	assert.Nil(t, model.BaseOf(get(t, res, "m.C.b")).Docstring)
}
