package commands

import (
	"github.com/spf13/cobra"

	"github.com/imamik/remotexec/cmd/remotexec/handlers"
)

// Destroy returns the destroy command.
func Destroy() *cobra.Command {
	var configPath string
	var units []string

	cmd := &cobra.Command{
		Use:   "destroy",
		Short: "Run teardown scripts and discard records",
		Long: `Destroy discards the stored record of each unit.

When the unit's bundle contains delete.sh it is staged and run on the
recorded host first. Bundles without delete.sh are discarded without
connecting to the host.

Example:
  remotexec destroy -c remotexec.yaml --unit web`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.Destroy(cmd.Context(), configPath, units)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to configuration file (required)")
	cmd.Flags().StringSliceVar(&units, "unit", nil, "Only destroy these units (repeatable)")
	_ = cmd.MarkFlagRequired("config")

	return cmd
}
