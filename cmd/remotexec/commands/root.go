// Package commands defines the CLI command structure and flag bindings.
//
// This package contains cobra command definitions that handle argument parsing,
// flag binding, and validation. Command execution is delegated to handler
// functions in the handlers package.
package commands

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/imamik/remotexec/cmd/remotexec/handlers"
	"github.com/imamik/remotexec/internal/logging"
)

// Root returns the root command for the remotexec CLI.
func Root() *cobra.Command {
	var logLevel, logFormat string

	cmd := &cobra.Command{
		Use:           "remotexec",
		Short:         "Install and run script bundles on remote hosts",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			handlers.SetLogOptions(logging.Options{Level: logLevel, Format: logFormat})
		},
	}

	defaultLevel := os.Getenv("REMOTEXEC_LOG_LEVEL")
	if defaultLevel == "" {
		defaultLevel = "info"
	}
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", defaultLevel, "Log level: trace, debug, info, warn, error")
	cmd.PersistentFlags().StringVar(&logFormat, "log-format", logging.FormatAuto, "Log format: auto, console, json")

	// Lifecycle commands
	cmd.AddCommand(Apply())
	cmd.AddCommand(Plan())
	cmd.AddCommand(Destroy())

	// Utility commands
	cmd.AddCommand(Render())
	cmd.AddCommand(Fingerprint())
	cmd.AddCommand(Keygen())
	cmd.AddCommand(Version())

	return cmd
}
