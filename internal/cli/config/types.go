// Package config provides configuration management for the liveinspect CLI.
package config

import (
	"github.com/leapstack-labs/liveinspect/pkg/inspect"
)

// Config holds all CLI configuration options.
type Config struct {
	// Host selects the live runtime: starlark, go or mem.
	Host        string   `koanf:"host"`
	SearchPaths []string `koanf:"search_paths"`
	// Predeclared values are made visible to every Starlark module.
	Predeclared map[string]any `koanf:"predeclared"`

	DocstringParser  string         `koanf:"docstring_parser"`
	DocstringOptions map[string]any `koanf:"docstring_options"`
	ExportSymbol     string         `koanf:"export_symbol"`
	ExcludeMembers   []string       `koanf:"exclude_members"`
	// Shims is a list of [parent, child] module pairs.
	Shims      [][]string `koanf:"shims"`
	NamingRule bool       `koanf:"naming_rule"`
	Extensions []string   `koanf:"extensions"`
	Workers    int        `koanf:"workers"`

	StatePath    string `koanf:"state_path"`
	OutputFormat string `koanf:"output"`
	Verbose      bool   `koanf:"verbose"`

	// ProjectRoot is the directory relative paths are resolved against.
	ProjectRoot string `koanf:"-"`
}

// Default configuration values.
const (
	DefaultHost      = "starlark"
	DefaultStateFile = ".liveinspect/state.db"
	DefaultOutput    = "auto" // Auto-detect: TTY=text, non-TTY=markdown
	DefaultWorkers   = 4
)

// Hosts lists the accepted values of the host key.
var Hosts = []string{"starlark", "go", "mem"}

// defaultShims renders inspect.DefaultShimPairs in config form.
func defaultShims() []any {
	out := make([]any, len(inspect.DefaultShimPairs))
	for i, p := range inspect.DefaultShimPairs {
		out[i] = []any{p.Parent, p.Child}
	}
	return out
}

// defaultMap returns the defaults loaded before any other source.
func defaultMap() map[string]any {
	exclude := make([]any, len(inspect.DefaultExcludeMembers))
	for i, name := range inspect.DefaultExcludeMembers {
		exclude[i] = name
	}
	return map[string]any{
		"host":             DefaultHost,
		"search_paths":     []any{"."},
		"docstring_parser": "",
		"export_symbol":    inspect.DefaultExportSymbol,
		"exclude_members":  exclude,
		"shims":            defaultShims(),
		"naming_rule":      true,
		"extensions":       []any{},
		"workers":          DefaultWorkers,
		"state_path":       DefaultStateFile,
		"output":           DefaultOutput,
		"verbose":          false,
	}
}
