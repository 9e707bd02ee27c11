// Package commands implements the liveinspect subcommands.
package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/liveinspect/internal/cli/config"
	"github.com/leapstack-labs/liveinspect/internal/cli/output"
	"github.com/leapstack-labs/liveinspect/internal/store"
	"github.com/leapstack-labs/liveinspect/pkg/lines"
	"github.com/leapstack-labs/liveinspect/pkg/loader"
	"github.com/leapstack-labs/liveinspect/pkg/model"
)

// defaultResolveIterations bounds external alias resolution passes.
const defaultResolveIterations = 5

// CommandContext holds common dependencies for CLI commands.
type CommandContext struct {
	Cfg      *config.Config
	Logger   *slog.Logger
	Renderer *output.Renderer
	Runtime  *Runtime
	Lines    *lines.Collection
}

// NewCommandContext creates a CommandContext with the configured host.
func NewCommandContext(cmd *cobra.Command) (*CommandContext, error) {
	cc := NewCommandContextWithoutHost(cmd)
	rt, err := NewRuntime(cc.Cfg, cc.Logger)
	if err != nil {
		return nil, err
	}
	cc.Runtime = rt
	return cc, nil
}

// NewCommandContextWithoutHost creates a CommandContext for commands that
// only read the store.
func NewCommandContextWithoutHost(cmd *cobra.Command) *CommandContext {
	cfg := getConfig()
	return &CommandContext{
		Cfg:      cfg,
		Logger:   config.GetLogger(cmd.Context()),
		Renderer: output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), output.Mode(cfg.OutputFormat)),
		Lines:    lines.NewCollection(),
	}
}

// getConfig returns the loaded configuration, or the defaults when the
// command runs without the root command (tests).
func getConfig() *config.Config {
	if cfg := config.GetCurrentConfig(); cfg != nil {
		return cfg
	}
	cfg, err := config.LoadConfig("", nil)
	if err != nil {
		return &config.Config{
			Host:         config.DefaultHost,
			StatePath:    config.DefaultStateFile,
			OutputFormat: config.DefaultOutput,
			NamingRule:   true,
		}
	}
	return cfg
}

// LoadOptions controls how modules are loaded for a command.
type LoadOptions struct {
	// ExpandExports labels exported members and reports missing ones.
	ExpandExports bool
	// Resolve resolves aliases; External also imports their target modules.
	Resolve  bool
	External bool
}

// Loaded is the outcome of loading modules.
type Loaded struct {
	Loader     *loader.Loader
	Modules    []*model.Module
	Unresolved []string
	Missing    []string
}

// Load inspects the named modules, or every module of the host when names
// is empty.
func (cc *CommandContext) Load(ctx context.Context, names []string, opts LoadOptions) (*Loaded, error) {
	if len(names) == 0 {
		all, err := cc.Runtime.Modules()
		if err != nil {
			return nil, err
		}
		if len(all) == 0 {
			return nil, fmt.Errorf("no modules found for host %s", cc.Runtime.Name)
		}
		names = all
	}

	inspectOpts, err := cc.Cfg.InspectOptions(cc.Logger)
	if err != nil {
		return nil, err
	}
	inspectOpts.Lines = cc.Lines

	ld := loader.New(cc.Runtime.Importer, loader.Options{
		Inspect: inspectOpts,
		Workers: cc.Cfg.Workers,
		Logger:  cc.Logger,
	})
	if err := ld.LoadAll(ctx, names); err != nil {
		return nil, err
	}

	res := &Loaded{Loader: ld}
	for _, name := range names {
		if m, ok := ld.Collection().Module(name); ok {
			res.Modules = append(res.Modules, m)
		}
	}
	if opts.ExpandExports {
		res.Missing = ld.ExpandExports()
		for _, path := range res.Missing {
			cc.Logger.Warn("exported name not found", "path", path)
		}
	}
	if opts.Resolve {
		var iterations int
		res.Unresolved, iterations = ld.ResolveAliases(ctx, opts.External, defaultResolveIterations)
		cc.Logger.Debug("aliases resolved", "iterations", iterations, "unresolved", len(res.Unresolved))
	}
	return res, nil
}

// OpenStore opens the state database, creating its directory when needed.
func (cc *CommandContext) OpenStore() (*store.SQLiteStore, error) {
	path := cc.Cfg.StatePath
	if path == "" {
		path = config.DefaultStateFile
	}
	if dir := filepath.Dir(path); path != ":memory:" && dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create state directory: %w", err)
		}
	}
	st := store.NewSQLiteStore()
	if err := st.Open(path); err != nil {
		return nil, err
	}
	return st, nil
}
