package commands

import (
	"fmt"
	"path/filepath"
	"slices"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/liveinspect/internal/cli/output"
)

const configFileName = "liveinspect.yaml"

// NewInitCommand creates the init command.
func NewInitCommand() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init [directory]",
		Short: "Initialize a new liveinspect project",
		Long: `Initialize a liveinspect project with a configuration file and an
example Starlark package.

This creates:
  - liveinspect.yaml configuration file
  - lib/example/ package with a private submodule it re-exports from
  - .gitignore excluding the state database`,
		Example: `  # Initialize in current directory
  liveinspect init

  # Initialize in a new directory
  liveinspect init my-project

  # Force overwrite existing files
  liveinspect init --force`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) > 0 {
				dir = args[0]
			}
			cfg := getConfig()
			r := output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), output.Mode(cfg.OutputFormat))
			return runInit(r, dir, force)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite existing files")
	return cmd
}

func runInit(r *output.Renderer, dir string, force bool) error {
	plan, err := planScaffold(starterTemplate, dir)
	if err != nil {
		return err
	}
	for _, f := range plan {
		if filepath.Base(f.target) == configFileName && f.exists && !force {
			return fmt.Errorf("%s already exists, use --force to overwrite", f.rel(dir))
		}
	}

	kept, err := writeScaffold(plan, force)
	if err != nil {
		return fmt.Errorf("failed to initialize project: %w", err)
	}

	type fileStatus struct {
		File   string `json:"file" yaml:"file"`
		Status string `json:"status" yaml:"status"`
	}
	statuses := make([]fileStatus, 0, len(plan))
	rows := make([][]string, 0, len(plan))
	for _, f := range plan {
		status := "created"
		switch {
		case slices.Contains(kept, f):
			status = "kept"
		case f.exists:
			status = "overwritten"
		}
		statuses = append(statuses, fileStatus{File: f.rel(dir), Status: status})
		rows = append(rows, []string{f.rel(dir), status})
	}
	if r.IsStructured() {
		return r.Data(statuses)
	}
	if err := r.Table([]string{"File", "Status"}, rows); err != nil {
		return err
	}

	r.Println("")
	r.Success("liveinspect project initialized")
	r.Println("")
	r.Println("Next steps:")
	r.Println("  liveinspect inspect example   Print the model of the example package")
	r.Println("  liveinspect save example      Store it in the state database")
	r.Println("  liveinspect watch example     Re-inspect on every edit")
	return nil
}
