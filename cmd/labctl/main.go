// Package main provides the labctl binary: a command line client for the lab
// device reservation service.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/aussiebroadwan/labres/internal/app"
	"github.com/spf13/cobra"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// skipApp marks commands that run without configuration or a session.
const skipApp = "labctl/skip-app"

// cli carries the per-run Application between cobra hooks and commands.
type cli struct {
	configPath string
	logLevel   string
	ephemeral  bool
	jsonOut    bool

	app *app.Application
}

func rootCmd() *cobra.Command {
	c := &cli{}

	cmd := &cobra.Command{
		Use:   "labctl",
		Short: "Reserve lab devices from the command line",
		Long: `labctl talks to the lab reservation API and its auth service.

The session survives between runs: the refresh token is kept in a local
SQLite file and exchanged on start. Reservations are checked against the
device's maintenance window before anything is sent.`,
		SilenceUsage:      true,
		PersistentPreRunE: c.setup,
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if c.app == nil {
				return nil
			}
			return c.app.Close()
		},
	}

	cmd.PersistentFlags().StringVarP(&c.configPath, "config", "c", "", "Config file path (YAML)")
	cmd.PersistentFlags().StringVar(&c.logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	cmd.PersistentFlags().BoolVar(&c.ephemeral, "ephemeral", false, "Keep nothing on disk for this run")
	cmd.PersistentFlags().BoolVar(&c.jsonOut, "json", false, "Print JSON instead of tables")

	cmd.AddCommand(
		versionCmd(),
		keyCmd(),
		loginCmd(c),
		registerCmd(c),
		logoutCmd(c),
		whoamiCmd(c),
		devicesCmd(c),
		reservationsCmd(c),
		prefsCmd(c),
	)
	return cmd
}

func (c *cli) setup(cmd *cobra.Command, args []string) error {
	for p := cmd; p != nil; p = p.Parent() {
		if p.Annotations[skipApp] == "true" {
			return nil
		}
	}

	cfg, err := app.LoadConfig(c.configPath)
	if err != nil {
		return err
	}
	if c.logLevel != "" {
		cfg.LogLevel = c.logLevel
	}
	if c.ephemeral {
		cfg.StoreDriver = "memory"
	}

	a, err := app.New(cfg, app.WithLogOutput(cmd.ErrOrStderr()))
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}
	c.app = a
	a.Start(cmd.Context())
	return nil
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:         "version",
		Short:       "Print version information",
		Annotations: map[string]string{skipApp: "true"},
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "labctl version %s\n", app.BuildVersion)
		},
	}
}
