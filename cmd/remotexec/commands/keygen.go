package commands

import (
	"github.com/spf13/cobra"

	"github.com/imamik/remotexec/cmd/remotexec/handlers"
	"github.com/imamik/remotexec/internal/util/keygen"
)

// Keygen returns the keygen command.
func Keygen() *cobra.Command {
	var path, keyType string
	var bits int

	cmd := &cobra.Command{
		Use:   "keygen",
		Short: "Write an SSH keypair for provisioning hosts",
		RunE: func(_ *cobra.Command, _ []string) error {
			return handlers.Keygen(path, keyType, bits)
		},
	}

	cmd.Flags().StringVarP(&path, "out", "o", "", "Private key path; the public key is written to <path>.pub (required)")
	cmd.Flags().StringVar(&keyType, "type", keygen.TypeEd25519, "Key type: ed25519 or rsa")
	cmd.Flags().IntVar(&bits, "bits", 4096, "RSA key size")
	_ = cmd.MarkFlagRequired("out")

	return cmd
}
