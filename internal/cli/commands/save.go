package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewSaveCommand creates the save command.
func NewSaveCommand() *cobra.Command {
	var external bool

	cmd := &cobra.Command{
		Use:   "save [module...]",
		Short: "Inspect modules and store the result in the state database",
		Long: `Inspect modules and save every object and parameter to the SQLite state
database as one inspection, identified by a UUID. Use 'liveinspect query'
to read saved inspections back.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cc, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			loaded, err := cc.Load(cmd.Context(), args, LoadOptions{ExpandExports: true, Resolve: external, External: external})
			if err != nil {
				return err
			}

			st, err := cc.OpenStore()
			if err != nil {
				return err
			}
			defer func() { _ = st.Close() }()

			modules := loaded.Modules
			if external {
				// external targets were loaded as extra roots
				modules = loaded.Loader.Collection().Modules()
			}
			insp, err := st.SaveInspection(cmd.Context(), cc.Runtime.Name, modules...)
			if err != nil {
				return err
			}
			cc.Logger.Info("inspection saved", "id", insp.ID, "objects", insp.Objects, "state", st.Path())

			if cc.Renderer.IsStructured() {
				return cc.Renderer.Data(insp)
			}
			cc.Renderer.Success(fmt.Sprintf("saved inspection %s (%d objects) to %s", insp.ID, insp.Objects, st.Path()))
			return nil
		},
	}

	cmd.Flags().BoolVar(&external, "external", false, "Also import and save modules named by alias targets")
	return cmd
}
