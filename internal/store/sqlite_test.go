package store

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/liveinspect/pkg/annotation"
	"github.com/leapstack-labs/liveinspect/pkg/docstrings"
	"github.com/leapstack-labs/liveinspect/pkg/model"
)

func setupTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store := NewSQLiteStore()
	require.NoError(t, store.Open(":memory:"))
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func strPtr(s string) *string { return &s }

// sampleTree builds pkg{f(a, b=1) -> int, C{g}, x = 3, path -> os.path}.
func sampleTree(t *testing.T) *model.Module {
	t.Helper()
	root, err := model.NewModule("pkg", nil)
	require.NoError(t, err)
	root.Filepath = "/src/pkg.star"
	root.Docstring = model.NewDocstring("Package docs.", docstrings.None, nil)

	f := model.NewFunction("f")
	f.Lineno, f.EndLineno = 3, 5
	f.Returns = annotation.Name{Source: "int", Full: "int"}
	f.Parameters = []*model.Parameter{
		{Name: "a", Kind: model.PositionalOrKeyword},
		{Name: "b", Kind: model.PositionalOrKeyword, Default: strPtr("1")},
	}
	require.NoError(t, root.Set(f))

	c, err := model.NewClass("C", root)
	require.NoError(t, err)
	g := model.NewFunction("g")
	g.Labels.Add("staticmethod")
	require.NoError(t, c.Set(g))

	x := model.NewAttribute("x")
	x.Value = strPtr("3")
	x.Labels.Add("module")
	require.NoError(t, root.Set(x))

	require.NoError(t, root.Set(model.NewAlias("path", "os.path")))
	return root
}

func TestSQLiteStore_OpenClose(t *testing.T) {
	store := NewSQLiteStore()
	require.NoError(t, store.Open(":memory:"))

	version, err := store.SchemaVersion(t.Context())
	require.NoError(t, err)
	assert.Equal(t, int64(1), version)

	assert.NoError(t, store.Close())
}

func TestSQLiteStore_NotOpened(t *testing.T) {
	store := NewSQLiteStore()
	ctx := context.Background()

	_, err := store.SaveInspection(ctx, "mem")
	assert.EqualError(t, err, "database not opened")
	_, err = store.ListInspections(ctx)
	assert.EqualError(t, err, "database not opened")
	_, err = store.Query(ctx, "SELECT 1")
	assert.EqualError(t, err, "database not opened")
	assert.EqualError(t, store.Migrate(ctx), "database not opened")
	_, err = store.SchemaVersion(ctx)
	assert.EqualError(t, err, "database not opened")
	assert.NoError(t, store.Close())
}

func TestSQLiteStore_SaveInspection(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	insp, err := store.SaveInspection(ctx, "starlark", sampleTree(t))
	require.NoError(t, err)
	assert.NotEmpty(t, insp.ID)
	assert.Equal(t, []string{"pkg"}, insp.Roots)
	assert.Equal(t, 6, insp.Objects)

	got, err := store.GetInspection(ctx, insp.ID)
	require.NoError(t, err)
	assert.Equal(t, insp.ID, got.ID)
	assert.Equal(t, "starlark", got.Host)
	assert.Equal(t, insp.Roots, got.Roots)
	assert.Equal(t, 6, got.Objects)

	latest, err := store.LatestInspection(ctx)
	require.NoError(t, err)
	assert.Equal(t, insp.ID, latest.ID)

	objects, err := store.ListObjects(ctx, insp.ID, ObjectFilter{})
	require.NoError(t, err)
	paths := make([]string, len(objects))
	for i, o := range objects {
		paths[i] = o.Path
	}
	assert.Equal(t, []string{"pkg", "pkg.C", "pkg.C.g", "pkg.f", "pkg.path", "pkg.x"}, paths)

	byPath := make(map[string]Object)
	for _, o := range objects {
		byPath[o.Path] = o
	}
	assert.Equal(t, "/src/pkg.star", byPath["pkg"].Filepath)
	assert.Equal(t, "Package docs.", byPath["pkg"].Docstring)
	assert.Equal(t, "", byPath["pkg"].ParentPath)
	assert.Equal(t, "pkg.C", byPath["pkg.C.g"].ParentPath)
	assert.Equal(t, []string{"staticmethod"}, byPath["pkg.C.g"].Labels)
	assert.Equal(t, 3, byPath["pkg.f"].Lineno)
	assert.Equal(t, 5, byPath["pkg.f"].EndLineno)
	assert.Equal(t, "int", byPath["pkg.f"].Annotation)
	assert.Equal(t, "3", byPath["pkg.x"].Value)
	assert.Equal(t, "os.path", byPath["pkg.path"].Target)
	assert.Equal(t, "alias", byPath["pkg.path"].Kind)

	params, err := store.ListParameters(ctx, insp.ID, "pkg.f")
	require.NoError(t, err)
	require.Len(t, params, 2)
	assert.Equal(t, "a", params[0].Name)
	assert.Equal(t, "", params[0].Default)
	assert.Equal(t, "b", params[1].Name)
	assert.Equal(t, "1", params[1].Default)
	assert.Equal(t, string(model.PositionalOrKeyword), params[1].Kind)
}

func TestSQLiteStore_ListObjectsFilter(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	insp, err := store.SaveInspection(ctx, "mem", sampleTree(t))
	require.NoError(t, err)

	tests := []struct {
		name   string
		filter ObjectFilter
		want   []string
	}{
		{name: "kind", filter: ObjectFilter{Kind: "function"}, want: []string{"pkg.C.g", "pkg.f"}},
		{name: "prefix", filter: ObjectFilter{Prefix: "pkg.C"}, want: []string{"pkg.C", "pkg.C.g"}},
		{name: "label", filter: ObjectFilter{Label: "module"}, want: []string{"pkg.x"}},
		{name: "combined", filter: ObjectFilter{Kind: "class", Prefix: "pkg"}, want: []string{"pkg.C"}},
		{name: "no match", filter: ObjectFilter{Label: "mod"}, want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			objects, err := store.ListObjects(ctx, insp.ID, tt.filter)
			require.NoError(t, err)
			var paths []string
			for _, o := range objects {
				paths = append(paths, o.Path)
			}
			assert.Equal(t, tt.want, paths)
		})
	}
}

func TestSQLiteStore_DeleteInspection(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	insp, err := store.SaveInspection(ctx, "mem", sampleTree(t))
	require.NoError(t, err)

	require.NoError(t, store.DeleteInspection(ctx, insp.ID))

	_, err = store.GetInspection(ctx, insp.ID)
	assert.ErrorIs(t, err, ErrInspectionNotFound)
	objects, err := store.ListObjects(ctx, insp.ID, ObjectFilter{})
	require.NoError(t, err)
	assert.Empty(t, objects)

	assert.ErrorIs(t, store.DeleteInspection(ctx, insp.ID), ErrInspectionNotFound)
	_, err = store.LatestInspection(ctx)
	assert.ErrorIs(t, err, ErrInspectionNotFound)
}

func TestSQLiteStore_Query(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	_, err := store.SaveInspection(ctx, "mem", sampleTree(t))
	require.NoError(t, err)

	rows, err := store.Query(ctx, "SELECT kind, COUNT(*) FROM objects GROUP BY kind ORDER BY kind")
	require.NoError(t, err)
	defer func() { _ = rows.Close() }()

	counts := make(map[string]int)
	for rows.Next() {
		var kind string
		var n int
		require.NoError(t, rows.Scan(&kind, &n))
		counts[kind] = n
	}
	require.NoError(t, rows.Err())
	assert.Equal(t, map[string]int{"alias": 1, "attribute": 1, "class": 1, "function": 2, "module": 1}, counts)
}

func TestSQLiteStore_SaveInspectionErrors(t *testing.T) {
	tests := []struct {
		name      string
		setupMock func(mock sqlmock.Sqlmock)
		errMsg    string
	}{
		{
			name: "begin fails",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin().WillReturnError(errors.New("locked"))
			},
			errMsg: "failed to begin transaction",
		},
		{
			name: "inspection insert fails",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectExec("INSERT INTO inspections").WillReturnError(assert.AnError)
				mock.ExpectRollback()
			},
			errMsg: "failed to create inspection",
		},
		{
			name: "object insert fails",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectExec("INSERT INTO inspections").WillReturnResult(sqlmock.NewResult(1, 1))
				mock.ExpectExec("INSERT INTO objects").WillReturnError(assert.AnError)
				mock.ExpectRollback()
			},
			errMsg: "failed to save object pkg",
		},
		{
			name: "commit fails",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectExec("INSERT INTO inspections").WillReturnResult(sqlmock.NewResult(1, 1))
				mock.ExpectExec("INSERT INTO objects").WillReturnResult(sqlmock.NewResult(1, 1))
				mock.ExpectCommit().WillReturnError(assert.AnError)
			},
			errMsg: "failed to commit inspection",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, err := sqlmock.New()
			require.NoError(t, err)
			defer func() { _ = db.Close() }()
			tt.setupMock(mock)

			store := NewSQLiteStore()
			store.OpenDB(db)

			root, err := model.NewModule("pkg", nil)
			require.NoError(t, err)
			_, err = store.SaveInspection(context.Background(), "mem", root)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}
