package commands

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/liveinspect/internal/cli/output"
	"github.com/leapstack-labs/liveinspect/internal/cli/testutil"
	"github.com/leapstack-labs/liveinspect/internal/store"
)

func openMemoryStore(t *testing.T) *store.SQLiteStore {
	t.Helper()
	st := store.NewSQLiteStore()
	require.NoError(t, st.Open(":memory:"))
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func TestRenderRows(t *testing.T) {
	tests := []struct {
		name  string
		mode  output.Mode
		query string
		check func(t *testing.T, out string)
	}{
		{
			name:  "markdown table with NULL",
			mode:  output.ModeMarkdown,
			query: "SELECT 1 AS n, NULL AS missing, 'x' AS s",
			check: func(t *testing.T, out string) {
				assert.Contains(t, out, "NULL")
				assert.Contains(t, out, "(1 rows)")
				testutil.AssertNoANSI(t, out)
			},
		},
		{
			name:  "json rows",
			mode:  output.ModeJSON,
			query: "SELECT 1 AS n, 'x' AS s",
			check: func(t *testing.T, out string) {
				assert.JSONEq(t, `[{"n": 1, "s": "x"}]`, out)
			},
		},
		{
			name:  "json empty result is an empty array",
			mode:  output.ModeJSON,
			query: "SELECT id FROM inspections",
			check: func(t *testing.T, out string) {
				assert.JSONEq(t, `[]`, out)
			},
		},
		{
			name:  "empty table",
			mode:  output.ModeMarkdown,
			query: "SELECT id FROM inspections",
			check: func(t *testing.T, out string) {
				assert.Contains(t, out, "(0 rows)")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := openMemoryStore(t)
			tr := testutil.NewTestRenderer(tt.mode)
			cc := &CommandContext{Renderer: tr.Renderer}

			rows, err := st.Query(context.Background(), tt.query)
			require.NoError(t, err)
			defer func() { _ = rows.Close() }()

			require.NoError(t, renderRows(cc, rows))
			tt.check(t, tr.Output())
		})
	}
}

func TestFormatValue(t *testing.T) {
	tests := []struct {
		in   any
		want string
	}{
		{nil, "NULL"},
		{int64(3), "3"},
		{"text", "text"},
		{1.5, "1.5"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, formatValue(tt.in))
	}
}

func TestQueryCommand_Structure(t *testing.T) {
	cmd := NewQueryCommand()

	assert.Equal(t, "query [SQL]", cmd.Use)
	assert.NotNil(t, cmd.Flags().Lookup("input"))

	subcommands := map[string]bool{}
	for _, sub := range cmd.Commands() {
		subcommands[strings.Fields(sub.Use)[0]] = true
	}
	for _, name := range []string{"inspections", "objects", "params", "tables"} {
		assert.True(t, subcommands[name], "missing subcommand %s", name)
	}
}

func TestInspectionID(t *testing.T) {
	st := openMemoryStore(t)
	ctx := context.Background()

	_, err := inspectionID(ctx, st, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no saved inspections")

	id, err := inspectionID(ctx, st, "explicit")
	require.NoError(t, err)
	assert.Equal(t, "explicit", id)
}

func TestRenderResolutions(t *testing.T) {
	tr := testutil.NewTestRenderer(output.ModeJSON)
	cc := &CommandContext{Renderer: tr.Renderer}

	require.NoError(t, renderResolutions(cc, []Resolution{
		{Path: "pkg.g", Target: "other_module.g", Kind: "function"},
		{Path: "pkg.x", Error: "cyclic alias: pkg.x -> pkg.y -> pkg.x"},
	}))

	var got []Resolution
	require.NoError(t, json.Unmarshal(tr.Out.Bytes(), &got))
	require.Len(t, got, 2)
	assert.Equal(t, "other_module.g", got[0].Target)
	assert.Contains(t, got[1].Error, "cyclic")
}
