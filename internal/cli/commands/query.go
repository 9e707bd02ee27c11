package commands

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/leapstack-labs/liveinspect/internal/store"
)

// QueryOptions holds options for the query command.
type QueryOptions struct {
	Input string
}

// NewQueryCommand creates the query command.
func NewQueryCommand() *cobra.Command {
	opts := &QueryOptions{}

	cmd := &cobra.Command{
		Use:   "query [SQL]",
		Short: "Query saved inspections",
		Long: `Query the liveinspect state database.

Execute SQL directly against the inspections, objects and parameters
tables, or use the subcommands for common lookups. SQL is read from the
arguments, from --input, or from standard input when it is piped. With
none of those on a terminal, an interactive REPL starts; its history is
kept next to the state database.`,
		Example: `  # Start the interactive REPL
  liveinspect query

  # Execute SQL directly
  liveinspect query "SELECT kind, COUNT(*) FROM objects GROUP BY kind"

  # List saved inspections
  liveinspect query inspections

  # Functions of the latest inspection under pkg
  liveinspect query objects --kind function --prefix pkg

  # Parameters of one function
  liveinspect query params pkg.f -o json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(cmd, args, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Input, "input", "i", "", "Read SQL from file")

	cmd.AddCommand(newQueryInspectionsCommand())
	cmd.AddCommand(newQueryObjectsCommand())
	cmd.AddCommand(newQueryParamsCommand())
	cmd.AddCommand(newQueryTablesCommand())

	return cmd
}

func runQuery(cmd *cobra.Command, args []string, opts *QueryOptions) error {
	var sqlQuery string
	switch {
	case len(args) > 0:
		sqlQuery = strings.Join(args, " ")
	case opts.Input != "":
		content, err := os.ReadFile(opts.Input)
		if err != nil {
			return fmt.Errorf("failed to read file: %w", err)
		}
		sqlQuery = string(content)
	case !isTerminal(cmd.InOrStdin()):
		content, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return fmt.Errorf("failed to read stdin: %w", err)
		}
		sqlQuery = string(content)
	default:
		return runQueryREPL(cmd)
	}

	return withStore(cmd, func(cc *CommandContext, st *store.SQLiteStore) error {
		rows, err := st.Query(cmd.Context(), sqlQuery)
		if err != nil {
			return fmt.Errorf("query failed: %w", err)
		}
		defer func() { _ = rows.Close() }()
		return renderRows(cc, rows)
	})
}

func isTerminal(r io.Reader) bool {
	f, ok := r.(*os.File)
	return ok && term.IsTerminal(int(f.Fd())) //nolint:gosec // G115: file descriptors fit in int
}

func withStore(cmd *cobra.Command, fn func(cc *CommandContext, st *store.SQLiteStore) error) error {
	cc := NewCommandContextWithoutHost(cmd)
	if cc.Cfg.StatePath != ":memory:" {
		if _, err := os.Stat(cc.Cfg.StatePath); os.IsNotExist(err) {
			return fmt.Errorf("state database not found at %s (run 'liveinspect save' first)", cc.Cfg.StatePath)
		}
	}
	st, err := cc.OpenStore()
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()
	return fn(cc, st)
}

// inspectionID returns id, or the latest inspection when id is empty.
func inspectionID(ctx context.Context, st *store.SQLiteStore, id string) (string, error) {
	if id != "" {
		return id, nil
	}
	latest, err := st.LatestInspection(ctx)
	if errors.Is(err, store.ErrInspectionNotFound) {
		return "", fmt.Errorf("no saved inspections (run 'liveinspect save' first)")
	}
	if err != nil {
		return "", err
	}
	return latest.ID, nil
}

func newQueryInspectionsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "inspections",
		Short: "List saved inspections, newest first",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withStore(cmd, func(cc *CommandContext, st *store.SQLiteStore) error {
				list, err := st.ListInspections(cmd.Context())
				if err != nil {
					return err
				}
				if cc.Renderer.IsStructured() {
					return cc.Renderer.Data(list)
				}
				rows := make([][]string, len(list))
				for i, insp := range list {
					rows[i] = []string{
						insp.ID,
						insp.Host,
						strings.Join(insp.Roots, ", "),
						strconv.Itoa(insp.Objects),
						insp.CreatedAt.Format("2006-01-02 15:04:05"),
					}
				}
				return cc.Renderer.Table([]string{"id", "host", "roots", "objects", "created"}, rows)
			})
		},
	}
}

func newQueryObjectsCommand() *cobra.Command {
	var id string
	var filter store.ObjectFilter

	cmd := &cobra.Command{
		Use:   "objects",
		Short: "List the objects of an inspection",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withStore(cmd, func(cc *CommandContext, st *store.SQLiteStore) error {
				inspID, err := inspectionID(cmd.Context(), st, id)
				if err != nil {
					return err
				}
				objects, err := st.ListObjects(cmd.Context(), inspID, filter)
				if err != nil {
					return err
				}
				if cc.Renderer.IsStructured() {
					return cc.Renderer.Data(objects)
				}
				rows := make([][]string, len(objects))
				for i, o := range objects {
					detail := o.Target
					if detail == "" {
						detail = o.Value
					}
					rows[i] = []string{o.Path, o.Kind, strings.Join(o.Labels, ","), detail}
				}
				return cc.Renderer.Table([]string{"path", "kind", "labels", "target / value"}, rows)
			})
		},
	}

	cmd.Flags().StringVar(&id, "id", "", "Inspection id (default: latest)")
	cmd.Flags().StringVar(&filter.Kind, "kind", "", "Only objects of this kind")
	cmd.Flags().StringVar(&filter.Prefix, "prefix", "", "Only objects at or under this path")
	cmd.Flags().StringVar(&filter.Label, "label", "", "Only objects carrying this label")
	return cmd
}

func newQueryParamsCommand() *cobra.Command {
	var id string

	cmd := &cobra.Command{
		Use:   "params <function>",
		Short: "List the parameters of a saved function",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, func(cc *CommandContext, st *store.SQLiteStore) error {
				inspID, err := inspectionID(cmd.Context(), st, id)
				if err != nil {
					return err
				}
				params, err := st.ListParameters(cmd.Context(), inspID, args[0])
				if err != nil {
					return err
				}
				if cc.Renderer.IsStructured() {
					return cc.Renderer.Data(params)
				}
				rows := make([][]string, len(params))
				for i, p := range params {
					rows[i] = []string{strconv.Itoa(p.Position), p.Name, p.Kind, p.Annotation, p.Default}
				}
				return cc.Renderer.Table([]string{"#", "name", "kind", "annotation", "default"}, rows)
			})
		},
	}

	cmd.Flags().StringVar(&id, "id", "", "Inspection id (default: latest)")
	return cmd
}

func newQueryTablesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "tables",
		Short: "List the tables of the state database",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withStore(cmd, func(cc *CommandContext, st *store.SQLiteStore) error {
				rows, err := st.Query(cmd.Context(), tablesQuery)
				if err != nil {
					return err
				}
				defer func() { _ = rows.Close() }()
				return renderRows(cc, rows)
			})
		},
	}
}

// renderRows renders arbitrary query results.
func renderRows(cc *CommandContext, rows *sql.Rows) error {
	cols, err := rows.Columns()
	if err != nil {
		return err
	}

	var results []map[string]any
	var table [][]string
	for rows.Next() {
		values := make([]any, len(cols))
		valuePtrs := make([]any, len(cols))
		for i := range values {
			valuePtrs[i] = &values[i]
		}
		if err := rows.Scan(valuePtrs...); err != nil {
			return err
		}

		row := make(map[string]any, len(cols))
		line := make([]string, len(cols))
		for i, col := range cols {
			val := values[i]
			if b, ok := val.([]byte); ok {
				val = string(b)
			}
			row[col] = val
			line[i] = formatValue(val)
		}
		results = append(results, row)
		table = append(table, line)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	if cc.Renderer.IsStructured() {
		if results == nil {
			results = []map[string]any{}
		}
		return cc.Renderer.Data(results)
	}
	if err := cc.Renderer.Table(cols, table); err != nil {
		return err
	}
	if len(table) > 0 {
		cc.Renderer.Println(fmt.Sprintf("(%d rows)", len(table)))
	}
	return nil
}

func formatValue(v any) string {
	if v == nil {
		return "NULL"
	}
	return fmt.Sprintf("%v", v)
}
