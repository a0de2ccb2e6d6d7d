package main

import (
	"fmt"

	"github.com/aussiebroadwan/labres/pkg/cryptox"
	"github.com/spf13/cobra"
)

func keyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:         "key",
		Short:       "Manage the master key that seals stored tokens",
		Annotations: map[string]string{skipApp: "true"},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "generate",
		Short: "Print a new random master key",
		Long: `Print a new random master key. Save it to a file referenced by
LABRES_MASTER_KEY_PATH, or export it as LABRES_MASTER_KEY.

Values written before the key was configured stay readable; values written
with a key cannot be read without it.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := cryptox.GenerateToken(cryptox.KeySize)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), key)
			return nil
		},
	})
	return cmd
}
