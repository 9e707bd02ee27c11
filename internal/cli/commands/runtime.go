package commands

import (
	"fmt"
	"log/slog"

	"github.com/leapstack-labs/liveinspect/internal/cli/config"
	"github.com/leapstack-labs/liveinspect/internal/host/gohost"
	"github.com/leapstack-labs/liveinspect/internal/host/memhost"
	"github.com/leapstack-labs/liveinspect/internal/host/starlarkhost"
	"github.com/leapstack-labs/liveinspect/pkg/loader"
)

// Runtime is the live host selected by the host config key.
type Runtime struct {
	Name     string
	Importer loader.Importer
	// WatchDirs are the directories whose changes invalidate loaded modules.
	WatchDirs []string

	modules func() ([]string, error)
	reset   func()
}

// NewRuntime creates the host named by cfg.Host.
func NewRuntime(cfg *config.Config, logger *slog.Logger) (*Runtime, error) {
	switch cfg.Host {
	case "starlark":
		h, err := starlarkhost.New(starlarkhost.Options{
			SearchPaths: cfg.SearchPaths,
			Predeclared: cfg.Predeclared,
			Threads:     cfg.Workers,
			Logger:      logger,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create starlark host: %w", err)
		}
		return &Runtime{
			Name:      cfg.Host,
			Importer:  h,
			WatchDirs: cfg.SearchPaths,
			modules:   h.Modules,
			reset:     h.Reset,
		}, nil
	case "go":
		r := gohost.Stdlib()
		return &Runtime{
			Name:     cfg.Host,
			Importer: r,
			modules:  func() ([]string, error) { return r.Modules(), nil },
		}, nil
	case "mem":
		r := memhost.Demo()
		return &Runtime{
			Name:     cfg.Host,
			Importer: r,
			modules:  func() ([]string, error) { return r.Modules(), nil },
		}, nil
	default:
		return nil, fmt.Errorf("unknown host %q", cfg.Host)
	}
}

// Modules lists every module the host can import.
func (r *Runtime) Modules() ([]string, error) {
	if r.modules == nil {
		return nil, nil
	}
	return r.modules()
}

// Reset drops cached modules so the next import sees fresh values.
func (r *Runtime) Reset() {
	if r.reset != nil {
		r.reset()
	}
}
