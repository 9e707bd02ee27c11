package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // SQLite driver (pure Go)

	"github.com/leapstack-labs/liveinspect/pkg/model"
)

// ErrInspectionNotFound is returned for unknown inspection ids.
var ErrInspectionNotFound = errors.New("inspection not found")

var errNotOpened = errors.New("database not opened")

// SQLiteStore persists inspections in a SQLite database.
type SQLiteStore struct {
	db   *sql.DB
	path string
}

// NewSQLiteStore creates a new SQLite store instance.
func NewSQLiteStore() *SQLiteStore {
	return &SQLiteStore{}
}

// Open opens a connection to the SQLite database and migrates it.
// Use ":memory:" for an in-memory database.
func (s *SQLiteStore) Open(path string) error {
	dsn := fmt.Sprintf("file:%s?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)", path)
	if path == ":memory:" {
		dsn = "file::memory:?_pragma=foreign_keys(1)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return fmt.Errorf("failed to open sqlite database: %w", err)
	}
	if path == ":memory:" {
		// every connection would otherwise get its own empty database
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping sqlite database: %w", err)
	}
	if err := migrate(context.Background(), db); err != nil {
		_ = db.Close()
		return err
	}

	s.db = db
	s.path = path
	return nil
}

// OpenDB uses an already opened, already migrated database.
func (s *SQLiteStore) OpenDB(db *sql.DB) {
	s.db = db
}

// Close closes the SQLite database connection.
func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Path returns the path the store was opened with.
func (s *SQLiteStore) Path() string { return s.path }

// generateID creates a new UUID.
func generateID() string {
	return uuid.New().String()
}

// SaveInspection records every node reachable from roots as one inspection.
func (s *SQLiteStore) SaveInspection(ctx context.Context, host string, roots ...*model.Module) (*Inspection, error) {
	if s.db == nil {
		return nil, errNotOpened
	}

	insp := &Inspection{
		ID:        generateID(),
		Host:      host,
		CreatedAt: time.Now().UTC(),
	}
	var objects []Object
	var params []Parameter
	for _, root := range roots {
		insp.Roots = append(insp.Roots, root.Path())
		model.Walk(root, func(n model.Node) bool {
			objects = append(objects, objectOf(n))
			if f, ok := n.(*model.Function); ok {
				params = append(params, parametersOf(f)...)
			}
			return true
		})
	}
	insp.Objects = len(objects)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO inspections (id, host, roots, created_at, objects) VALUES (?, ?, ?, ?, ?)`,
		insp.ID, insp.Host, strings.Join(insp.Roots, ","), insp.CreatedAt, insp.Objects,
	); err != nil {
		return nil, fmt.Errorf("failed to create inspection: %w", err)
	}

	for _, o := range objects {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO objects (inspection_id, path, kind, name, parent_path, lineno, end_lineno,
				docstring, labels, target, value, annotation, filepath)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			insp.ID, o.Path, o.Kind, o.Name, nullString(o.ParentPath), nullInt(o.Lineno), nullInt(o.EndLineno),
			nullString(o.Docstring), strings.Join(o.Labels, ","), nullString(o.Target),
			nullString(o.Value), nullString(o.Annotation), nullString(o.Filepath),
		); err != nil {
			return nil, fmt.Errorf("failed to save object %s: %w", o.Path, err)
		}
	}

	for _, p := range params {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO parameters (inspection_id, function_path, position, name, kind, annotation, default_value)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			insp.ID, p.FunctionPath, p.Position, p.Name, p.Kind, nullString(p.Annotation), nullString(p.Default),
		); err != nil {
			return nil, fmt.Errorf("failed to save parameter %s of %s: %w", p.Name, p.FunctionPath, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit inspection: %w", err)
	}
	return insp, nil
}

// GetInspection retrieves an inspection by id.
func (s *SQLiteStore) GetInspection(ctx context.Context, id string) (*Inspection, error) {
	if s.db == nil {
		return nil, errNotOpened
	}
	row := s.db.QueryRowContext(ctx,
		`SELECT id, host, roots, created_at, objects FROM inspections WHERE id = ?`, id)
	insp, err := scanInspection(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrInspectionNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get inspection: %w", err)
	}
	return insp, nil
}

// LatestInspection returns the most recent inspection.
func (s *SQLiteStore) LatestInspection(ctx context.Context) (*Inspection, error) {
	if s.db == nil {
		return nil, errNotOpened
	}
	row := s.db.QueryRowContext(ctx,
		`SELECT id, host, roots, created_at, objects FROM inspections ORDER BY created_at DESC, rowid DESC LIMIT 1`)
	insp, err := scanInspection(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrInspectionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest inspection: %w", err)
	}
	return insp, nil
}

// ListInspections returns all inspections, newest first.
func (s *SQLiteStore) ListInspections(ctx context.Context) ([]*Inspection, error) {
	if s.db == nil {
		return nil, errNotOpened
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, host, roots, created_at, objects FROM inspections ORDER BY created_at DESC, rowid DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list inspections: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []*Inspection
	for rows.Next() {
		insp, err := scanInspection(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan inspection: %w", err)
		}
		out = append(out, insp)
	}
	return out, rows.Err()
}

// DeleteInspection removes an inspection and its rows.
func (s *SQLiteStore) DeleteInspection(ctx context.Context, id string) error {
	if s.db == nil {
		return errNotOpened
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM inspections WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete inspection: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %s", ErrInspectionNotFound, id)
	}
	return nil
}

// ListObjects returns the objects of an inspection in path order.
func (s *SQLiteStore) ListObjects(ctx context.Context, inspectionID string, filter ObjectFilter) ([]Object, error) {
	if s.db == nil {
		return nil, errNotOpened
	}

	query := `SELECT path, kind, name, parent_path, lineno, end_lineno, docstring, labels, target, value, annotation, filepath
		FROM objects WHERE inspection_id = ?`
	args := []any{inspectionID}
	if filter.Kind != "" {
		query += ` AND kind = ?`
		args = append(args, filter.Kind)
	}
	if filter.Prefix != "" {
		query += ` AND (path = ? OR path LIKE ? ESCAPE '\')`
		args = append(args, filter.Prefix, escapeLike(filter.Prefix)+".%")
	}
	if filter.Label != "" {
		query += ` AND (',' || labels || ',') LIKE ?`
		args = append(args, "%,"+filter.Label+",%")
	}
	query += ` ORDER BY path`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list objects: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []Object
	for rows.Next() {
		var o Object
		var parent, doc, target, value, ann, file sql.NullString
		var lineno, end sql.NullInt64
		var labels string
		if err := rows.Scan(&o.Path, &o.Kind, &o.Name, &parent, &lineno, &end, &doc, &labels,
			&target, &value, &ann, &file); err != nil {
			return nil, fmt.Errorf("failed to scan object: %w", err)
		}
		o.ParentPath = parent.String
		o.Lineno = int(lineno.Int64)
		o.EndLineno = int(end.Int64)
		o.Docstring = doc.String
		if labels != "" {
			o.Labels = strings.Split(labels, ",")
		}
		o.Target = target.String
		o.Value = value.String
		o.Annotation = ann.String
		o.Filepath = file.String
		out = append(out, o)
	}
	return out, rows.Err()
}

// ListParameters returns the parameters of a function in declaration order.
func (s *SQLiteStore) ListParameters(ctx context.Context, inspectionID, functionPath string) ([]Parameter, error) {
	if s.db == nil {
		return nil, errNotOpened
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT function_path, position, name, kind, annotation, default_value
		FROM parameters WHERE inspection_id = ? AND function_path = ? ORDER BY position`,
		inspectionID, functionPath)
	if err != nil {
		return nil, fmt.Errorf("failed to list parameters: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []Parameter
	for rows.Next() {
		var p Parameter
		var ann, def sql.NullString
		if err := rows.Scan(&p.FunctionPath, &p.Position, &p.Name, &p.Kind, &ann, &def); err != nil {
			return nil, fmt.Errorf("failed to scan parameter: %w", err)
		}
		p.Annotation = ann.String
		p.Default = def.String
		out = append(out, p)
	}
	return out, rows.Err()
}

// Query runs a read-only SQL statement against the store.
func (s *SQLiteStore) Query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	if s.db == nil {
		return nil, errNotOpened
	}
	return s.db.QueryContext(ctx, query, args...)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanInspection(row rowScanner) (*Inspection, error) {
	var insp Inspection
	var roots string
	if err := row.Scan(&insp.ID, &insp.Host, &roots, &insp.CreatedAt, &insp.Objects); err != nil {
		return nil, err
	}
	if roots != "" {
		insp.Roots = strings.Split(roots, ",")
	}
	return &insp, nil
}

func objectOf(n model.Node) Object {
	b := model.BaseOf(n)
	o := Object{
		Path:      n.Path(),
		Kind:      string(n.Kind()),
		Name:      n.Name(),
		Lineno:    b.Lineno,
		EndLineno: b.EndLineno,
		Labels:    b.Labels.Sorted(),
	}
	if p := n.Parent(); p != nil {
		o.ParentPath = p.Path()
	}
	if b.Docstring != nil {
		o.Docstring = b.Docstring.Value()
	}
	switch v := n.(type) {
	case *model.Module:
		o.Filepath = v.Filepath
	case *model.Function:
		if v.Returns != nil {
			o.Annotation = v.Returns.String()
		}
	case *model.Attribute:
		if v.Value != nil {
			o.Value = *v.Value
		}
		if v.Annotation != nil {
			o.Annotation = v.Annotation.String()
		}
	case *model.Alias:
		o.Target = v.Target
	}
	return o
}

func parametersOf(f *model.Function) []Parameter {
	out := make([]Parameter, len(f.Parameters))
	for i, p := range f.Parameters {
		out[i] = Parameter{
			FunctionPath: f.Path(),
			Position:     i,
			Name:         p.Name,
			Kind:         string(p.Kind),
		}
		if p.Annotation != nil {
			out[i].Annotation = p.Annotation.String()
		}
		if p.Default != nil {
			out[i].Default = *p.Default
		}
	}
	return out
}

// nullString returns a sql.NullString for optional string fields.
func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func nullInt(n int) sql.NullInt64 {
	if n == 0 {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(n), Valid: true}
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
