package commands

import (
	"strconv"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/liveinspect/pkg/model"
)

// NewStatsCommand creates the stats command.
func NewStatsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "stats [module...]",
		Short: "Count the objects of inspected modules",
		Long: `Inspect modules and count modules, classes, functions, attributes,
aliases, exported names and the source lines read along the way.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cc, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			loaded, err := cc.Load(cmd.Context(), args, LoadOptions{})
			if err != nil {
				return err
			}
			stats := model.ComputeStats(cc.Lines, loaded.Modules...)
			return renderStats(cc, stats)
		},
	}
}

func renderStats(cc *CommandContext, s model.Stats) error {
	if cc.Renderer.IsStructured() {
		return cc.Renderer.Data(s)
	}
	rows := [][]string{
		{"modules", strconv.Itoa(s.Modules)},
		{"classes", strconv.Itoa(s.Classes)},
		{"functions", strconv.Itoa(s.Functions)},
		{"attributes", strconv.Itoa(s.Attributes)},
		{"aliases", strconv.Itoa(s.Aliases)},
		{"exported", strconv.Itoa(s.Exported)},
		{"lines", strconv.Itoa(s.Lines)},
		{"total", strconv.Itoa(s.Total())},
	}
	return cc.Renderer.Table([]string{"object", "count"}, rows)
}
