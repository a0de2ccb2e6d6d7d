package main

import (
	"fmt"

	"github.com/aussiebroadwan/labres/internal/prefs"
	"github.com/spf13/cobra"
)

func prefsCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "prefs",
		Short: "Show or change display preferences",
	}

	cmd.AddCommand(&cobra.Command{
		Use:       "theme [light|dark|toggle]",
		Short:     "Show or set the theme",
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: []string{"light", "dark", "toggle"},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			var (
				theme prefs.Theme
				err   error
			)
			switch {
			case len(args) == 0:
				theme, err = c.app.Prefs.Theme(ctx)
			case args[0] == "toggle":
				theme, err = c.app.Prefs.ToggleTheme(ctx)
			default:
				theme = prefs.Theme(args[0])
				err = c.app.Prefs.SetTheme(ctx, theme)
			}
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), theme)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "lang [code]",
		Short: "Show or set the language",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if len(args) == 0 {
				lang, err := c.app.Prefs.Language(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s (%s)\n", lang.Code, lang.Name)
				return nil
			}

			lang, changed, err := c.app.Prefs.SetLanguage(ctx, args[0])
			if err != nil {
				return err
			}
			if !changed {
				fmt.Fprintf(cmd.ErrOrStderr(), "unknown language %q, keeping %s\n", args[0], lang.Code)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s (%s)\n", lang.Code, lang.Name)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "reset",
		Short: "Forget all preferences",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.app.Prefs.Reset(cmd.Context())
		},
	})

	return cmd
}
