package commands

import (
	"errors"
	"strings"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/liveinspect/pkg/model"
)

// Resolution is the outcome of resolving one path.
type Resolution struct {
	Path   string `json:"path" yaml:"path"`
	Target string `json:"target,omitempty" yaml:"target,omitempty"`
	Kind   string `json:"kind,omitempty" yaml:"kind,omitempty"`
	Error  string `json:"error,omitempty" yaml:"error,omitempty"`
}

// NewResolveCommand creates the resolve command.
func NewResolveCommand() *cobra.Command {
	var external bool

	cmd := &cobra.Command{
		Use:   "resolve <path>...",
		Short: "Follow aliases to the object a path finally names",
		Long: `Load the module each dotted path starts with, then follow aliases
until a concrete object is reached. Alias chains that loop back on
themselves are reported as cyclic.`,
		Example: `  liveinspect resolve pkg.g --host mem
  liveinspect resolve os.PathError --host go --external`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cc, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			roots, err := rootModules(cc, args)
			if err != nil {
				return err
			}
			loaded, err := cc.Load(cmd.Context(), roots, LoadOptions{Resolve: true, External: external})
			if err != nil {
				return err
			}

			results := make([]Resolution, 0, len(args))
			for _, path := range args {
				results = append(results, resolvePath(loaded.Loader.Collection(), path))
			}
			return renderResolutions(cc, results)
		},
	}

	cmd.Flags().BoolVar(&external, "external", true, "Import modules named by alias targets")
	return cmd
}

// rootModules returns, for every path, the longest prefix the host knows
// as a module, falling back to the first segment.
func rootModules(cc *CommandContext, paths []string) ([]string, error) {
	known, err := cc.Runtime.Modules()
	if err != nil {
		return nil, err
	}
	isKnown := make(map[string]bool, len(known))
	for _, k := range known {
		isKnown[k] = true
	}

	seen := map[string]bool{}
	var roots []string
	for _, path := range paths {
		segs := strings.Split(path, ".")
		root := segs[0]
		for n := len(segs); n > 1; n-- {
			if candidate := strings.Join(segs[:n], "."); isKnown[candidate] {
				root = candidate
				break
			}
		}
		if !seen[root] {
			seen[root] = true
			roots = append(roots, root)
		}
	}
	return roots, nil
}

func resolvePath(c *model.Collection, path string) Resolution {
	r := Resolution{Path: path}
	node, err := c.Resolve(path)
	if err != nil {
		var cyc *model.CyclicAliasError
		var unres *model.AliasResolutionError
		switch {
		case errors.As(err, &cyc):
			r.Error = "cyclic alias: " + strings.Join(cyc.Chain, " -> ")
		case errors.As(err, &unres):
			r.Error = "unresolved alias " + unres.Alias + " -> " + unres.Target
		default:
			r.Error = err.Error()
		}
		return r
	}
	r.Target = node.Path()
	r.Kind = string(node.Kind())
	return r
}

func renderResolutions(cc *CommandContext, results []Resolution) error {
	if cc.Renderer.IsStructured() {
		return cc.Renderer.Data(results)
	}
	rows := make([][]string, len(results))
	for i, r := range results {
		result := r.Target
		if r.Error != "" {
			result = r.Error
		}
		rows[i] = []string{r.Path, r.Kind, result}
	}
	return cc.Renderer.Table([]string{"path", "kind", "resolves to"}, rows)
}
