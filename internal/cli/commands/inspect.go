package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

// InspectOptions holds options for the inspect command.
type InspectOptions struct {
	Resolve  bool
	External bool
	Exports  bool
}

// NewInspectCommand creates the inspect command.
func NewInspectCommand() *cobra.Command {
	opts := &InspectOptions{}

	cmd := &cobra.Command{
		Use:   "inspect [module...]",
		Short: "Build and print the model of live modules",
		Long: `Import modules through the configured host and print the model built
from their live values: modules, classes, functions, attributes and the
aliases standing for re-exported members.

Without arguments every module the host can find is inspected.`,
		Example: `  # Inspect one Starlark module from the search paths
  liveinspect inspect helpers

  # Inspect Go packages linked into the binary
  liveinspect inspect os io.fs --host go

  # Resolve aliases, importing the modules they point to
  liveinspect inspect pkg --resolve --external -o json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInspect(cmd, args, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.Resolve, "resolve", false, "Report aliases whose targets cannot be found")
	cmd.Flags().BoolVar(&opts.External, "external", false, "Import modules named by unresolved alias targets (implies --resolve)")
	cmd.Flags().BoolVar(&opts.Exports, "exports", true, "Label members named in export lists")

	return cmd
}

func runInspect(cmd *cobra.Command, args []string, opts *InspectOptions) error {
	cc, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}

	loaded, err := cc.Load(cmd.Context(), args, LoadOptions{
		ExpandExports: opts.Exports,
		Resolve:       opts.Resolve || opts.External,
		External:      opts.External,
	})
	if err != nil {
		return err
	}

	if err := cc.Renderer.Tree(loaded.Modules...); err != nil {
		return err
	}
	for _, path := range loaded.Missing {
		cc.Renderer.Warning(fmt.Sprintf("exported name not found: %s", path))
	}
	for _, path := range loaded.Unresolved {
		cc.Renderer.Warning(fmt.Sprintf("unresolved alias: %s", path))
	}
	return nil
}
