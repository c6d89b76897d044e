package commands

import (
	"github.com/spf13/cobra"

	"github.com/imamik/remotexec/cmd/remotexec/handlers"
)

// Apply returns the apply command.
func Apply() *cobra.Command {
	var opts handlers.ApplyOptions

	cmd := &cobra.Command{
		Use:   "apply",
		Short: "Run every unit whose scripts, substitutions or target changed",
		Long: `Apply reconciles each configured unit against its stored record.

A unit without a record is created: its bundle is staged on the host and
main.sh is run. A unit whose fingerprint, script directory, substitutions,
host or jump host changed is replaced. A host change runs delete.sh on the
old host first, when the bundle has one.

Example:
  remotexec apply -c remotexec.yaml
  remotexec apply -c remotexec.yaml --unit etcd-0 --unit etcd-1 --parallel`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.Apply(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVarP(&opts.ConfigPath, "config", "c", "", "Path to configuration file (required)")
	cmd.Flags().StringSliceVar(&opts.Units, "unit", nil, "Only apply these units (repeatable)")
	cmd.Flags().BoolVar(&opts.Parallel, "parallel", false, "Apply independent units concurrently")
	cmd.Flags().IntVar(&opts.Concurrency, "concurrency", 0, "Maximum concurrent units with --parallel (0 = unlimited)")
	cmd.Flags().BoolVar(&opts.Prune, "prune", false, "Destroy stored records whose unit is no longer configured")
	cmd.Flags().StringVar(&opts.MetricsFile, "metrics-file", "", "Write Prometheus metrics to this file after the run")
	_ = cmd.MarkFlagRequired("config")

	return cmd
}
