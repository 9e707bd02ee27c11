package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
)

const watchDebounce = 100 * time.Millisecond

// NewWatchCommand creates the watch command.
func NewWatchCommand() *cobra.Command {
	opts := &InspectOptions{}

	cmd := &cobra.Command{
		Use:   "watch [module...]",
		Short: "Re-inspect Starlark modules whenever their files change",
		Long: `Inspect modules once, then watch the search paths and inspect again
after every change to a .star file. Cached modules are dropped before each
run so edited definitions are picked up. Press Ctrl+C to stop.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cc, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			if len(cc.Runtime.WatchDirs) == 0 {
				return fmt.Errorf("host %s has no files to watch", cc.Runtime.Name)
			}

			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			var mu sync.Mutex
			run := func() {
				mu.Lock()
				defer mu.Unlock()
				cc.Runtime.Reset()
				if err := runInspect(cmd, args, opts); err != nil {
					cc.Renderer.Error(err.Error())
				}
			}
			run()

			w, err := newSourceWatcher(cc.Runtime.WatchDirs, cc.Logger)
			if err != nil {
				return err
			}
			defer func() { _ = w.Close() }()

			cc.Logger.Info("watching for changes", "dirs", cc.Runtime.WatchDirs)
			w.Run(ctx, func(name string) {
				cc.Logger.Info("change detected", "file", filepath.Base(name))
				run()
			})
			return nil
		},
	}

	cmd.Flags().BoolVar(&opts.Resolve, "resolve", false, "Report aliases whose targets cannot be found")
	cmd.Flags().BoolVar(&opts.External, "external", false, "Import modules named by unresolved alias targets (implies --resolve)")
	cmd.Flags().BoolVar(&opts.Exports, "exports", true, "Label members named in export lists")
	return cmd
}

// sourceWatcher reports debounced writes to Starlark files.
type sourceWatcher struct {
	watcher  *fsnotify.Watcher
	logger   *slog.Logger
	ext      string
	debounce time.Duration
}

func newSourceWatcher(dirs []string, logger *slog.Logger) (*sourceWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	w := &sourceWatcher{watcher: watcher, logger: logger, ext: ".star", debounce: watchDebounce}
	for _, dir := range dirs {
		if err := w.watchDir(dir); err != nil {
			_ = watcher.Close()
			return nil, fmt.Errorf("failed to watch %s: %w", dir, err)
		}
	}
	return w, nil
}

// watchDir recursively adds a directory to the watcher.
func (w *sourceWatcher) watchDir(dir string) error {
	return filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			if path != dir && len(info.Name()) > 0 && info.Name()[0] == '.' {
				return filepath.SkipDir
			}
			return w.watcher.Add(path)
		}
		return nil
	})
}

// Run calls onChange after each burst of changes until ctx is done.
func (w *sourceWatcher) Run(ctx context.Context, onChange func(name string)) {
	var debounceTimer *time.Timer
	defer func() {
		if debounceTimer != nil {
			debounceTimer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if filepath.Ext(event.Name) != w.ext {
				continue
			}

			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			name := event.Name
			debounceTimer = time.AfterFunc(w.debounce, func() { onChange(name) })

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("watcher error", "error", err)
		}
	}
}

// Close stops watching.
func (w *sourceWatcher) Close() error {
	return w.watcher.Close()
}
