package commands

import (
	"github.com/spf13/cobra"

	"github.com/imamik/remotexec/cmd/remotexec/handlers"
)

// Fingerprint returns the fingerprint command.
func Fingerprint() *cobra.Command {
	var shared string

	cmd := &cobra.Command{
		Use:   "fingerprint <script-dir>",
		Short: "Print the content fingerprint of a bundle",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return handlers.Fingerprint(args[0], shared)
		},
	}

	cmd.Flags().StringVar(&shared, "shared", "", "Shared script directory")

	return cmd
}
