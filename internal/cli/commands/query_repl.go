package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strings"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"

	"github.com/leapstack-labs/liveinspect/internal/store"
)

const (
	replPrompt       = "liveinspect> "
	replContinuation = "        ...> "
)

// tablesQuery lists the user-visible tables and views of the state database.
const tablesQuery = `
	SELECT name, type
	FROM sqlite_master
	WHERE type IN ('table', 'view')
	AND name NOT LIKE 'sqlite_%'
	AND name NOT LIKE 'goose_%'
	ORDER BY type DESC, name`

var dotCommands = []string{".help", ".tables", ".schema", ".inspections", ".clear", ".quit", ".exit"}

var sqlKeywords = []string{
	"SELECT", "FROM", "WHERE", "GROUP", "BY", "ORDER", "HAVING", "LIMIT",
	"JOIN", "LEFT", "ON", "AS", "AND", "OR", "NOT", "NULL", "IS", "IN",
	"LIKE", "COUNT", "DISTINCT", "DESC", "ASC",
}

func runQueryREPL(cmd *cobra.Command) error {
	return withStore(cmd, func(cc *CommandContext, st *store.SQLiteStore) error {
		ctx := cmd.Context()
		history := historyPath(cc.Cfg.StatePath)

		rl, err := readline.NewEx(&readline.Config{
			Prompt:          replPrompt,
			HistoryFile:     history,
			AutoComplete:    newWordCompleter(completionWords(ctx, st)),
			InterruptPrompt: "^C",
			EOFPrompt:       ".quit",
		})
		if err != nil {
			return fmt.Errorf("failed to initialize REPL: %w", err)
		}
		defer func() { _ = rl.Close() }()

		cc.Logger.Debug("query repl started", "state", cc.Cfg.StatePath, "history", history)
		cc.Renderer.Println(fmt.Sprintf("liveinspect query REPL (state: %s)", cc.Cfg.StatePath))
		cc.Renderer.Println("Type .help for commands, .quit to exit")
		cc.Renderer.Println()

		s := &replSession{cc: cc, st: st}
		for {
			line, err := rl.Readline()
			if errors.Is(err, readline.ErrInterrupt) {
				s.reset()
				rl.SetPrompt(s.prompt())
				continue
			}
			if errors.Is(err, io.EOF) {
				return nil
			}
			if err != nil {
				return err
			}
			if s.handle(ctx, line) {
				return nil
			}
			rl.SetPrompt(s.prompt())
		}
	})
}

// historyPath keeps the REPL history beside the state database. In-memory
// state has no directory, so it gets no history.
func historyPath(statePath string) string {
	if statePath == "" || statePath == ":memory:" {
		return ""
	}
	return filepath.Join(filepath.Dir(statePath), "query_history")
}

// replSession accumulates SQL across lines until a terminating semicolon.
type replSession struct {
	cc  *CommandContext
	st  *store.SQLiteStore
	buf strings.Builder
}

func (s *replSession) prompt() string {
	if s.buf.Len() > 0 {
		return replContinuation
	}
	return replPrompt
}

func (s *replSession) reset() { s.buf.Reset() }

// handle processes one input line and reports whether the session ends.
func (s *replSession) handle(ctx context.Context, line string) bool {
	line = strings.TrimSpace(line)
	if line == "" {
		return false
	}
	if s.buf.Len() == 0 && strings.HasPrefix(line, ".") {
		return s.dotCommand(ctx, line)
	}

	s.buf.WriteString(line)
	if !strings.HasSuffix(line, ";") {
		s.buf.WriteString(" ")
		return false
	}
	query := strings.TrimSuffix(s.buf.String(), ";")
	s.buf.Reset()

	if err := s.exec(ctx, query); err != nil {
		s.cc.Renderer.Error(err.Error())
	}
	return false
}

func (s *replSession) exec(ctx context.Context, query string, args ...any) error {
	rows, err := s.st.Query(ctx, query, args...)
	if err != nil {
		return err
	}
	defer func() { _ = rows.Close() }()
	return renderRows(s.cc, rows)
}

func (s *replSession) dotCommand(ctx context.Context, line string) bool {
	parts := strings.Fields(line)
	r := s.cc.Renderer

	var err error
	switch strings.ToLower(parts[0]) {
	case ".quit", ".exit":
		return true
	case ".help":
		printREPLHelp(r.Writer())
	case ".tables":
		err = s.exec(ctx, tablesQuery)
	case ".inspections":
		err = s.exec(ctx, `SELECT id, host, roots, objects, created_at FROM inspections ORDER BY created_at DESC`)
	case ".schema":
		if len(parts) < 2 {
			r.Error("usage: .schema <table>")
			return false
		}
		err = s.schema(ctx, parts[1])
	case ".clear":
		_, _ = fmt.Fprint(r.Writer(), "\033[H\033[2J")
	default:
		r.Error(fmt.Sprintf("unknown command: %s (type .help for commands)", parts[0]))
	}
	if err != nil {
		r.Error(err.Error())
	}
	return false
}

func (s *replSession) schema(ctx context.Context, table string) error {
	rows, err := s.st.Query(ctx, `SELECT sql FROM sqlite_master WHERE name = ? AND sql IS NOT NULL`, table)
	if err != nil {
		return err
	}
	defer func() { _ = rows.Close() }()

	found := false
	for rows.Next() {
		var ddl string
		if err := rows.Scan(&ddl); err != nil {
			return err
		}
		found = true
		s.cc.Renderer.Println(ddl + ";")
	}
	if err := rows.Err(); err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("no such table: %s", table)
	}
	return nil
}

func printREPLHelp(w io.Writer) {
	help := `
Commands:
  .help           Show this help message
  .tables         List tables and views
  .schema <name>  Show the schema of a table or view
  .inspections    List saved inspections, newest first
  .clear          Clear the screen
  .quit / .exit   Exit the REPL

Tips:
  - SQL statements must end with a semicolon (;)
  - Use arrow keys to navigate history
  - Tab completes table names, column names and keywords
`
	_, _ = fmt.Fprintln(w, help)
}

// completionWords returns the dot commands, the state tables with their
// columns, and SQL keywords. Lookup failures only shrink the list.
func completionWords(ctx context.Context, st *store.SQLiteStore) []string {
	words := append([]string(nil), dotCommands...)
	words = append(words, sqlKeywords...)

	tables, err := queryStrings(ctx, st, `SELECT name FROM (`+tablesQuery+`)`)
	if err != nil {
		return words
	}
	seen := make(map[string]bool)
	for _, table := range tables {
		words = append(words, table)
		cols, err := queryStrings(ctx, st, `SELECT name FROM pragma_table_info(?)`, table)
		if err != nil {
			continue
		}
		for _, c := range cols {
			if !seen[c] {
				seen[c] = true
				words = append(words, c)
			}
		}
	}
	return words
}

func queryStrings(ctx context.Context, st *store.SQLiteStore, query string, args ...any) ([]string, error) {
	rows, err := st.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// wordCompleter completes the word under the cursor, wherever it is on
// the line.
type wordCompleter struct {
	words []string
}

var _ readline.AutoCompleter = (*wordCompleter)(nil)

func newWordCompleter(words []string) *wordCompleter {
	sorted := append([]string(nil), words...)
	sort.Strings(sorted)
	return &wordCompleter{words: sorted}
}

// Do returns the suffixes that complete the current word, and the length
// of that word.
func (c *wordCompleter) Do(line []rune, pos int) ([][]rune, int) {
	start := pos
	for start > 0 && !isWordBreak(line[start-1]) {
		start--
	}
	word := string(line[start:pos])
	if word == "" {
		return nil, 0
	}

	var out [][]rune
	for _, w := range c.words {
		if len(w) > len(word) && strings.HasPrefix(w, word) {
			out = append(out, []rune(w[len(word):]))
		}
	}
	return out, len([]rune(word))
}

func isWordBreak(r rune) bool {
	switch r {
	case ' ', '\t', ',', '(', ')', '=', '<', '>', ';', '\'', '"':
		return true
	}
	return false
}
