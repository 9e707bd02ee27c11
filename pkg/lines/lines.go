// Package lines provides source lines for files referenced by model nodes.
// The inspector never computes line numbers; it only attaches them when a
// host reports a location, and consumers use a Collection to fetch text.
package lines

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"strings"
	"sync"
)

// Collection caches file contents split into lines, keyed by path.
type Collection struct {
	mu    sync.RWMutex
	files map[string][]string
}

// NewCollection creates an empty collection.
func NewCollection() *Collection {
	return &Collection{files: make(map[string][]string)}
}

// Set stores the content of path.
func (c *Collection) Set(path string, content []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.files[path] = split(content)
}

// Has reports whether path is known.
func (c *Collection) Has(path string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.files[path]
	return ok
}

// Lines returns all lines of path, loading the file on first access.
func (c *Collection) Lines(path string) ([]string, error) {
	c.mu.RLock()
	l, ok := c.files[path]
	c.mu.RUnlock()
	if ok {
		return l, nil
	}

	content, err := os.ReadFile(path) //nolint:gosec // G304: paths come from host locations
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	c.Set(path, content)

	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.files[path], nil
}

// Range returns lines start..end (1-based, inclusive) of path joined by
// newlines. end < start means a single line.
func (c *Collection) Range(path string, start, end int) (string, error) {
	all, err := c.Lines(path)
	if err != nil {
		return "", err
	}
	if end < start {
		end = start
	}
	if start < 1 || start > len(all) {
		return "", fmt.Errorf("line %d out of range for %s (%d lines)", start, path, len(all))
	}
	if end > len(all) {
		end = len(all)
	}
	return strings.Join(all[start-1:end], "\n"), nil
}

// Count returns the total number of cached lines.
func (c *Collection) Count() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	n := 0
	for _, l := range c.files {
		n += len(l)
	}
	return n
}

func split(content []byte) []string {
	var out []string
	sc := bufio.NewScanner(bytes.NewReader(content))
	sc.Buffer(make([]byte, 0, 64*1024), 10*1024*1024)
	for sc.Scan() {
		out = append(out, sc.Text())
	}
	return out
}
