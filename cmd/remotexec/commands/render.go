package commands

import (
	"github.com/spf13/cobra"

	"github.com/imamik/remotexec/cmd/remotexec/handlers"
)

// Render returns the render command.
func Render() *cobra.Command {
	var opts handlers.RenderOptions

	cmd := &cobra.Command{
		Use:   "render <script-dir>",
		Short: "Print the command script that stages and runs a bundle",
		Long: `Render prints the shell script apply would upload for a bundle.

Substitutions are given as <path>:<NAME>=<value>, where path is relative to
the bundle root (shared bundle files are under shared/).

Example:
  remotexec render ./scripts/etcd --shared ./scripts/shared \
    --sub main.sh:PEERS=10.0.0.5,10.0.0.6`,
		Args: cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			opts.ScriptDir = args[0]
			return handlers.Render(opts)
		},
	}

	cmd.Flags().StringVar(&opts.SharedScriptDir, "shared", "", "Shared script directory mounted under shared/")
	cmd.Flags().StringArrayVar(&opts.Substitutions, "sub", nil, "Substitution <path>:<NAME>=<value> (repeatable)")
	cmd.Flags().BoolVar(&opts.Teardown, "teardown", false, "Run delete.sh instead of main.sh")
	cmd.Flags().StringVar(&opts.WorkDir, "work-dir", "", "Remote staging parent directory")

	return cmd
}
