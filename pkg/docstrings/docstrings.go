// Package docstrings names the documentation parsers a consumer may apply
// to raw docstring text. Parsing itself happens downstream: this package
// only carries the parser choice and provides the plain-text fallback.
package docstrings

import (
	"fmt"
	"sync"
)

// Parser identifies a docstring style.
type Parser string

// Known parser identifiers. The zero value means "do not parse".
const (
	None   Parser = ""
	Google Parser = "google"
	Sphinx Parser = "sphinx"
	Numpy  Parser = "numpy"
)

// ParseParser validates a parser name coming from configuration.
func ParseParser(name string) (Parser, error) {
	switch p := Parser(name); p {
	case None, Google, Sphinx, Numpy:
		return p, nil
	default:
		return None, fmt.Errorf("unknown docstring parser %q (want google, sphinx or numpy)", name)
	}
}

// SectionKind is the kind of a parsed docstring section.
type SectionKind string

// SectionText is the only kind produced without a registered parser.
const SectionText SectionKind = "text"

// Section is one part of a parsed docstring.
type Section struct {
	Kind  SectionKind `json:"kind"`
	Value any         `json:"value"`
}

// ParseFunc parses raw text into sections.
type ParseFunc func(text string, options map[string]any) ([]Section, error)

var (
	mu      sync.RWMutex
	parsers = map[Parser]ParseFunc{}
)

// Register installs the implementation for a parser identifier.
func Register(p Parser, fn ParseFunc) {
	mu.Lock()
	defer mu.Unlock()
	parsers[p] = fn
}

// Parse parses text with the registered implementation of p. Without a
// parser, or when none is registered, the text is returned as one section.
func Parse(text string, p Parser, options map[string]any) ([]Section, error) {
	mu.RLock()
	fn, ok := parsers[p]
	mu.RUnlock()
	if p == None || !ok {
		return []Section{{Kind: SectionText, Value: text}}, nil
	}
	return fn(text, options)
}
