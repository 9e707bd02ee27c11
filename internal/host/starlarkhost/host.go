// Package starlarkhost exposes executed Starlark files as live modules.
//
// A module name maps to a file under one of the search paths: "a.b" is
// either a/b.star or the directory a/b, whose members are the globals of
// a/b/__init__.star plus every submodule in the directory. Files loaded with
// load() keep their own identity, so the functions they define report the
// loaded file's module as their owner.
package starlarkhost

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"go.starlark.net/starlark"
	"go.starlark.net/starlarkstruct"
	"go.starlark.net/syntax"
)

// Extension is the file extension of Starlark sources.
const Extension = ".star"

// InitFile holds the members of a package directory.
const InitFile = "__init__" + Extension

// ErrNotFound is returned when no search path contains the module.
var ErrNotFound = errors.New("module not found")

// LoadError reports a Starlark file that failed to load.
type LoadError struct {
	File    string
	Message string
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("%s: %s", e.File, e.Message)
}

// Options configures a Host.
type Options struct {
	// SearchPaths are the directories module names are looked up in.
	SearchPaths []string
	// Predeclared are extra globals available to every file.
	Predeclared map[string]any
	// Threads bounds the pool of reusable threads.
	Threads int
	Logger  *slog.Logger
}

// Host imports Starlark modules. It is safe for concurrent use; imports are
// serialised.
type Host struct {
	paths       []string
	predeclared starlark.StringDict
	pool        *ThreadPool
	logger      *slog.Logger

	mu      sync.Mutex
	files   map[string]*fileEntry // by absolute path
	modules map[string]*Module    // by module name
	// owners maps struct and namespace values to the module whose file
	// created them.
	owners map[starlark.Value]string
}

type fileEntry struct {
	module  string
	globals starlark.StringDict
	decl    *declarations
	err     error
	loading bool
}

// New creates a Host.
func New(opts Options) (*Host, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	predeclared := starlark.StringDict{
		"struct":          starlark.NewBuiltin("struct", starlarkstruct.Make),
		"module":          starlark.NewBuiltin("module", starlarkstruct.MakeModule),
		"staticmethod":    starlark.NewBuiltin("staticmethod", makeDescriptor(descStatic)),
		"classmethod":     starlark.NewBuiltin("classmethod", makeDescriptor(descClass)),
		"property":        starlark.NewBuiltin("property", makeDescriptor(descProperty)),
		"cached_property": starlark.NewBuiltin("cached_property", makeDescriptor(descCachedProperty)),
	}
	for name, v := range opts.Predeclared {
		sv, err := GoToStarlark(v)
		if err != nil {
			return nil, fmt.Errorf("predeclared %q: %w", name, err)
		}
		predeclared[name] = sv
	}

	paths := make([]string, 0, len(opts.SearchPaths))
	for _, p := range opts.SearchPaths {
		abs, err := filepath.Abs(p)
		if err != nil {
			return nil, fmt.Errorf("search path %s: %w", p, err)
		}
		paths = append(paths, abs)
	}

	return &Host{
		paths:       paths,
		predeclared: predeclared,
		pool:        NewThreadPool(opts.Threads),
		logger:      logger,
		files:       make(map[string]*fileEntry),
		modules:     make(map[string]*Module),
		owners:      make(map[starlark.Value]string),
	}, nil
}

// Import loads the module called name and returns it with its file path.
// For packages that is the __init__ file, or the directory without one.
func (h *Host) Import(ctx context.Context, name string) (any, string, error) {
	if err := ctx.Err(); err != nil {
		return nil, "", err
	}
	h.mu.Lock()
	defer h.mu.Unlock()

	m, err := h.importLocked(name)
	if err != nil {
		return nil, "", err
	}
	return m, m.file, nil
}

// Reset forgets every loaded file, so the next import re-executes sources.
func (h *Host) Reset() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.files = make(map[string]*fileEntry)
	h.modules = make(map[string]*Module)
	h.owners = make(map[starlark.Value]string)
}

// Modules lists the names of every importable top-level module in the
// search paths.
func (h *Host) Modules() ([]string, error) {
	seen := map[string]bool{}
	var names []string
	for _, dir := range h.paths {
		entries, err := os.ReadDir(dir)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, fmt.Errorf("failed to scan %s: %w", dir, err)
		}
		for _, e := range entries {
			name, ok := moduleEntryName(e)
			if !ok || seen[name] {
				continue
			}
			seen[name] = true
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names, nil
}

func moduleEntryName(e os.DirEntry) (string, bool) {
	name := e.Name()
	if e.IsDir() {
		return name, validIdentifier(name)
	}
	if !strings.HasSuffix(name, Extension) || name == InitFile {
		return "", false
	}
	name = strings.TrimSuffix(name, Extension)
	return name, validIdentifier(name)
}

func (h *Host) importLocked(name string) (*Module, error) {
	if m, ok := h.modules[name]; ok {
		return m, nil
	}
	for _, seg := range strings.Split(name, ".") {
		if !validIdentifier(seg) {
			return nil, fmt.Errorf("invalid module name %q", name)
		}
	}

	rel := filepath.FromSlash(strings.ReplaceAll(name, ".", "/"))
	for _, root := range h.paths {
		base := filepath.Join(root, rel)
		if info, err := os.Stat(base); err == nil && info.IsDir() {
			return h.loadPackage(name, base)
		}
		if _, err := os.Stat(base + Extension); err == nil {
			return h.loadModuleFile(name, base+Extension)
		}
	}
	return nil, fmt.Errorf("%w: %s (searched %s)", ErrNotFound, name, strings.Join(h.paths, ", "))
}

func (h *Host) loadModuleFile(name, path string) (*Module, error) {
	entry, err := h.execFile(name, path)
	if err != nil {
		return nil, err
	}
	m := &Module{host: h, name: name, file: path, globals: entry.globals, decl: entry.decl}
	h.modules[name] = m
	return m, nil
}

func (h *Host) loadPackage(name, dir string) (*Module, error) {
	m := &Module{host: h, name: name, file: dir}
	// Registered before submodules load, so a submodule importing its
	// package sees it.
	h.modules[name] = m

	init := filepath.Join(dir, InitFile)
	if _, err := os.Stat(init); err == nil {
		entry, err := h.execFile(name, init)
		if err != nil {
			delete(h.modules, name)
			return nil, err
		}
		m.globals, m.decl = entry.globals, entry.decl
		m.file = init
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		delete(h.modules, name)
		return nil, fmt.Errorf("failed to scan package %s: %w", name, err)
	}
	for _, e := range entries {
		sub, ok := moduleEntryName(e)
		if !ok {
			continue
		}
		sm, err := h.importLocked(name + "." + sub)
		if err != nil {
			delete(h.modules, name)
			return nil, err
		}
		m.submodules = append(m.submodules, sm)
	}
	return m, nil
}

// execFile runs path once and caches its globals.
func (h *Host) execFile(module, path string) (*fileEntry, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	if e, ok := h.files[abs]; ok {
		if e.loading {
			return nil, &LoadError{File: abs, Message: "cycle in load graph"}
		}
		return e, e.err
	}

	entry := &fileEntry{module: module, loading: true}
	h.files[abs] = entry
	defer func() { entry.loading = false }()

	src, err := os.ReadFile(abs) //nolint:gosec // G304: path resolved from configured search paths
	if err != nil {
		entry.err = &LoadError{File: abs, Message: fmt.Sprintf("failed to read file: %v", err)}
		return nil, entry.err
	}

	decl, err := parseDeclarations(abs, src)
	if err != nil {
		entry.err = err
		return nil, err
	}
	entry.decl = decl

	thread := h.pool.Get("load:" + module)
	defer h.pool.Put(thread)
	thread.Load = func(_ *starlark.Thread, target string) (starlark.StringDict, error) {
		return h.load(abs, target)
	}
	thread.Print = func(_ *starlark.Thread, msg string) {
		h.logger.Debug("starlark print", "module", module, "msg", msg)
	}

	globals, err := starlark.ExecFileOptions(fileOptions, thread, abs, src, h.predeclared)
	if err != nil {
		entry.err = &LoadError{File: abs, Message: fmt.Sprintf("Starlark execution error: %v", err)}
		return nil, entry.err
	}
	entry.globals = globals
	h.claim(module, globals)
	h.logger.Debug("executed starlark file", "module", module, "file", abs, "globals", len(globals))
	return entry, nil
}

var fileOptions = &syntax.FileOptions{
	Set:               true,
	While:             true,
	TopLevelControl:   true,
	GlobalReassign:    true,
	LoadBindsGlobally: true,
}

// load resolves a load() target. Targets ending in .star are file paths
// relative to the loading file ("//" anchors them at a search path); other
// targets are module names.
func (h *Host) load(from, target string) (starlark.StringDict, error) {
	if !strings.HasSuffix(target, Extension) {
		m, err := h.importLocked(target)
		if err != nil {
			return nil, err
		}
		return m.globals, nil
	}

	var candidates []string
	if rest, anchored := strings.CutPrefix(target, "//"); anchored {
		for _, root := range h.paths {
			candidates = append(candidates, filepath.Join(root, filepath.FromSlash(rest)))
		}
	} else {
		candidates = append(candidates, filepath.Join(filepath.Dir(from), filepath.FromSlash(target)))
	}
	for _, c := range candidates {
		if _, err := os.Stat(c); err != nil {
			continue
		}
		name, ok := h.moduleName(c)
		if !ok {
			name = strings.TrimSuffix(filepath.Base(c), Extension)
		}
		if _, loaded := h.modules[name]; !loaded {
			if _, err := h.loadModuleFile(name, c); err != nil {
				return nil, err
			}
		}
		return h.modules[name].globals, nil
	}
	return nil, &LoadError{File: from, Message: fmt.Sprintf("cannot load %s", target)}
}

// moduleName derives the dotted module name of a file under a search path.
func (h *Host) moduleName(path string) (string, bool) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", false
	}
	for _, root := range h.paths {
		rel, err := filepath.Rel(root, abs)
		if err != nil || strings.HasPrefix(rel, "..") {
			continue
		}
		rel = strings.TrimSuffix(filepath.ToSlash(rel), Extension)
		rel = strings.TrimSuffix(rel, "/__init__")
		return strings.ReplaceAll(rel, "/", "."), true
	}
	return "", false
}

// claim records module as the owner of container values first seen in its
// globals.
func (h *Host) claim(module string, globals starlark.StringDict) {
	for _, v := range globals {
		switch v.(type) {
		case *starlarkstruct.Struct, *starlarkstruct.Module:
			if _, ok := h.owners[v]; !ok {
				h.owners[v] = module
			}
		}
	}
}

// owner returns the module that created a struct or namespace value.
func (h *Host) owner(v starlark.Value) (string, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	m, ok := h.owners[v]
	return m, ok
}

// fileModule maps a file to the module that executed it.
func (h *Host) fileModule(file string) (string, bool) {
	e, ok := h.fileEntryFor(file)
	if !ok {
		return "", false
	}
	return e.module, true
}

func (h *Host) fileEntryFor(file string) (*fileEntry, bool) {
	abs, err := filepath.Abs(file)
	if err != nil {
		return nil, false
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	e, ok := h.files[abs]
	return e, ok
}

func validIdentifier(name string) bool {
	if name == "" {
		return false
	}
	for i, r := range name {
		letter := (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || r == '_'
		if !letter && (i == 0 || r < '0' || r > '9') {
			return false
		}
	}
	return true
}
