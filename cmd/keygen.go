package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"fitgate/internal/oauth"
)

// newKeygenCmd creates the command that prints a fresh credential encryption key.
func newKeygenCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "keygen",
		Short: "Generate a credential encryption key",
		Long: `Prints a random 256-bit key as 64 hex characters, suitable for
FITGATE_ENCRYPTION_KEY or storage.encryptionKey.

Changing the key makes an existing token file unreadable; run
'fitgate auth logout' and authorize again afterwards.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := oauth.GenerateKey()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), key)
			return nil
		},
	}
}
