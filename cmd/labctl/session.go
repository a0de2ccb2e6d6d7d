package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/aussiebroadwan/labres/pkg/authsdk"
	"github.com/spf13/cobra"
)

// PasswordEnv supplies the password non-interactively.
const PasswordEnv = "LABRES_PASSWORD"

// readPassword takes the password from LABRES_PASSWORD, or the first line of
// stdin.
func readPassword(cmd *cobra.Command) (string, error) {
	if pw := os.Getenv(PasswordEnv); pw != "" {
		return pw, nil
	}

	fmt.Fprint(cmd.ErrOrStderr(), "Password: ")
	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read password: %w", err)
	}
	fmt.Fprintln(cmd.ErrOrStderr())
	return strings.TrimRight(line, "\r\n"), nil
}

func loginCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "login <username>",
		Short: "Log in and keep the session for later runs",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pw, err := readPassword(cmd)
			if err != nil {
				return err
			}
			u, err := c.app.Session.Login(cmd.Context(), authsdk.LoginRequest{Username: args[0], Password: pw})
			if err != nil {
				return describe(err)
			}
			return c.printUser(cmd, u)
		},
	}
}

func registerCmd(c *cli) *cobra.Command {
	var name string

	cmd := &cobra.Command{
		Use:   "register <username>",
		Short: "Create an account and log in",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pw, err := readPassword(cmd)
			if err != nil {
				return err
			}
			u, err := c.app.Session.Register(cmd.Context(), authsdk.RegisterRequest{
				Name:     name,
				Username: args[0],
				Password: pw,
			})
			if err != nil {
				return describe(err)
			}
			return c.printUser(cmd, u)
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "Display name")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func logoutCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "End the session and forget the stored token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.app.Session.Logout(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "logged out")
			return nil
		},
	}
}

func whoamiCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the logged in user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !c.app.Session.IsAuthenticated() {
				return authsdk.ErrNotAuthenticated
			}
			return c.printUser(cmd, c.app.Session.User())
		},
	}
}

func (c *cli) printUser(cmd *cobra.Command, u *authsdk.User) error {
	if u == nil {
		fmt.Fprintln(cmd.OutOrStdout(), "logged in")
		return nil
	}
	if c.jsonOut {
		return writeJSON(cmd.OutOrStdout(), u)
	}
	role := "user"
	if u.Admin {
		role = "admin"
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s (%s), %s\n", u.Username, u.Name, role)
	return nil
}
