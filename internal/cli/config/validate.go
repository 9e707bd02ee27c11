package config

import (
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/leapstack-labs/liveinspect/pkg/docstrings"
	"github.com/leapstack-labs/liveinspect/pkg/inspect"
)

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if !slices.Contains(Hosts, c.Host) {
		return fmt.Errorf("unknown host %q (want %s)", c.Host, strings.Join(Hosts, ", "))
	}
	if _, err := docstrings.ParseParser(c.DocstringParser); err != nil {
		return err
	}
	if _, err := c.ShimPairs(); err != nil {
		return err
	}
	for _, name := range c.Extensions {
		if _, err := inspect.BuiltinExtension(name); err != nil {
			return err
		}
	}
	if c.Workers < 0 {
		return fmt.Errorf("workers must not be negative, got %d", c.Workers)
	}
	return nil
}

// ShimPairs converts the shims key.
func (c *Config) ShimPairs() ([]inspect.ShimPair, error) {
	pairs := make([]inspect.ShimPair, 0, len(c.Shims))
	for i, s := range c.Shims {
		if len(s) != 2 || s[0] == "" || s[1] == "" {
			return nil, fmt.Errorf("shims[%d]: want [parent, child], got %v", i, s)
		}
		pairs = append(pairs, inspect.ShimPair{Parent: s[0], Child: s[1]})
	}
	return pairs, nil
}

// InspectOptions builds traversal options from the configuration. The
// configuration must have passed Validate.
func (c *Config) InspectOptions(logger *slog.Logger) (inspect.Options, error) {
	parser, err := docstrings.ParseParser(c.DocstringParser)
	if err != nil {
		return inspect.Options{}, err
	}
	pairs, err := c.ShimPairs()
	if err != nil {
		return inspect.Options{}, err
	}
	var exts inspect.Extensions
	for _, name := range c.Extensions {
		ext, err := inspect.BuiltinExtension(name)
		if err != nil {
			return inspect.Options{}, err
		}
		exts = append(exts, ext)
	}
	return inspect.Options{
		Extensions:       exts,
		DocstringParser:  parser,
		DocstringOptions: c.DocstringOptions,
		Shims:            inspect.NewShimTable(pairs, c.NamingRule),
		ExcludeMembers:   c.ExcludeMembers,
		ExportSymbol:     c.ExportSymbol,
		Logger:           logger,
	}, nil
}
