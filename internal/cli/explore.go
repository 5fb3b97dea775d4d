package cli

import (
	"github.com/spf13/cobra"

	"github.com/mickamy/planview/internal/explore"
)

func newExploreCmd() *cobra.Command {
	var input string
	cmd := &cobra.Command{
		Use:   "explore",
		Short: "Browse a plan interactively in the terminal",
		RunE: func(cmd *cobra.Command, _ []string) error {
			data, err := readPlan(cmd, input)
			if err != nil {
				return err
			}
			root, stats, err := loadPlan(data)
			if err != nil {
				return err
			}
			v, err := mountView(cmd, stateFrom(cmd).cfg, "explore", root, stats)
			if err != nil {
				return err
			}
			return explore.Run(v)
		},
	}
	cmd.Flags().StringVarP(&input, "input", "i", "", `Path to EXPLAIN output ("-" for stdin)`)
	addViewFlags(cmd)
	addCollapseFlag(cmd)
	return cmd
}
