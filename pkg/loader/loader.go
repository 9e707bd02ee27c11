// Package loader imports modules through a host and inspects them into a
// shared model.Collection.
package loader

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/leapstack-labs/liveinspect/pkg/inspect"
	"github.com/leapstack-labs/liveinspect/pkg/model"
)

// Importer is the host's import mechanism.
type Importer interface {
	// Import loads the module called name and returns its live value and
	// the file it came from (empty when unknown).
	Import(ctx context.Context, name string) (value any, filepath string, err error)
}

// ImporterFunc adapts a function to Importer.
type ImporterFunc func(ctx context.Context, name string) (any, string, error)

// Import calls f.
func (f ImporterFunc) Import(ctx context.Context, name string) (any, string, error) {
	return f(ctx, name)
}

// ImportError reports a module the host could not import.
type ImportError struct {
	Module string
	Err    error
}

func (e *ImportError) Error() string {
	return fmt.Sprintf("failed to import %s: %v", e.Module, e.Err)
}

func (e *ImportError) Unwrap() error { return e.Err }

// Options configures a Loader.
type Options struct {
	// Inspect is used for every traversal. Its Parent field is ignored.
	Inspect inspect.Options
	// Workers bounds concurrent traversals in LoadAll; 0 means unbounded.
	Workers int
	Logger  *slog.Logger
}

// Loader loads modules into a Collection.
type Loader struct {
	importer   Importer
	opts       Options
	collection *model.Collection
	logger     *slog.Logger

	mu     sync.Mutex
	failed map[string]error
}

// New creates a loader with an empty collection.
func New(importer Importer, opts Options) *Loader {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if opts.Inspect.Logger == nil {
		opts.Inspect.Logger = logger
	}
	opts.Inspect.Parent = nil
	return &Loader{
		importer:   importer,
		opts:       opts,
		collection: model.NewCollection(),
		logger:     logger,
		failed:     make(map[string]error),
	}
}

// Collection returns the loaded trees.
func (l *Loader) Collection() *model.Collection { return l.collection }

// Load imports and inspects one module, replacing any earlier tree with
// the same name.
func (l *Loader) Load(ctx context.Context, name string) (*model.Module, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	value, file, err := l.importer.Import(ctx, name)
	if err != nil {
		l.mu.Lock()
		l.failed[name] = err
		l.mu.Unlock()
		return nil, &ImportError{Module: name, Err: err}
	}

	opts := l.opts.Inspect
	opts.Filepath = file
	res, err := inspect.New(opts).Inspect(value, name)
	if err != nil {
		return nil, fmt.Errorf("failed to inspect %s: %w", name, err)
	}
	l.collection.Add(res.Module)
	l.logger.Debug("loaded module", "module", name, "objects", res.Index.Len())
	return res.Module, nil
}

// LoadAll loads independent modules concurrently. Each traversal uses its
// own Inspector; the first error cancels the remaining loads.
func (l *Loader) LoadAll(ctx context.Context, names []string) error {
	g, ctx := errgroup.WithContext(ctx)
	if l.opts.Workers > 0 {
		g.SetLimit(l.opts.Workers)
	}
	for _, name := range names {
		g.Go(func() error {
			_, err := l.Load(ctx, name)
			return err
		})
	}
	return g.Wait()
}

// ResolveAliases tries to resolve every alias in the collection. With
// external set, modules named by unresolved targets are imported and the
// pass is repeated, at most maxIterations times. It returns the paths of
// aliases that remain unresolved.
func (l *Loader) ResolveAliases(ctx context.Context, external bool, maxIterations int) ([]string, int) {
	if maxIterations <= 0 {
		maxIterations = 1
	}
	var (
		unresolved []string
		iteration  int
	)
	for iteration = 1; ; iteration++ {
		unresolved = unresolved[:0]
		var targets []string
		for _, a := range l.collection.Aliases() {
			if _, err := l.collection.Resolve(a.Path()); err != nil {
				unresolved = append(unresolved, a.Path())
				var are *model.AliasResolutionError
				if errors.As(err, &are) {
					targets = append(targets, are.Target)
				}
			}
		}
		if !external || len(unresolved) == 0 || iteration >= maxIterations {
			break
		}
		if !l.loadTargets(ctx, targets) {
			break
		}
	}
	return unresolved, iteration
}

// loadTargets imports the longest importable prefix of each target that is
// not loaded yet. It reports whether anything new was loaded.
func (l *Loader) loadTargets(ctx context.Context, targets []string) bool {
	loaded := false
	tried := map[string]bool{}
	for _, target := range targets {
		segs := strings.Split(target, ".")
		for n := len(segs); n > 0; n-- {
			name := strings.Join(segs[:n], ".")
			if tried[name] || l.known(name) {
				break
			}
			tried[name] = true
			if _, err := l.Load(ctx, name); err != nil {
				l.logger.Debug("external module not loaded", "module", name, "error", err)
				continue
			}
			loaded = true
			break
		}
	}
	return loaded
}

func (l *Loader) known(name string) bool {
	if _, ok := l.collection.Module(name); ok {
		return true
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	_, failed := l.failed[name]
	return failed
}

// ExpandExports labels the members of every loaded module named in its
// export list "exported", descending into submodules. It returns the
// exported names that match no member, as "module.name" paths.
func (l *Loader) ExpandExports() []string {
	var missing []string
	for _, root := range l.collection.Modules() {
		model.Walk(root, func(n model.Node) bool {
			m, ok := n.(*model.Module)
			if !ok {
				return n.Kind() != model.KindClass
			}
			for _, name := range m.Exports {
				member, found := m.Members().Get(name)
				if !found {
					missing = append(missing, m.Path()+"."+name)
					continue
				}
				model.LabelsOf(member).Add("exported")
			}
			return true
		})
	}
	return missing
}
