package commands

import (
	"github.com/spf13/cobra"

	"github.com/imamik/remotexec/cmd/remotexec/handlers"
)

// Plan returns the plan command.
func Plan() *cobra.Command {
	var configPath string
	var units []string

	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Show what apply would do without running anything",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.Plan(cmd.Context(), configPath, units)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to configuration file (required)")
	cmd.Flags().StringSliceVar(&units, "unit", nil, "Only plan these units (repeatable)")
	_ = cmd.MarkFlagRequired("config")

	return cmd
}
