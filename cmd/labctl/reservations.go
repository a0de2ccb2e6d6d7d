package main

import (
	"fmt"
	"io"
	"strconv"

	"github.com/aussiebroadwan/labres/pkg/labapi"
	"github.com/aussiebroadwan/labres/pkg/reservation"
	"github.com/spf13/cobra"
)

func devicesCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "devices",
		Short: "List devices and their maintenance windows",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			devices, err := c.app.Lab.ListDevices(cmd.Context())
			if err != nil {
				return describe(err)
			}
			if c.jsonOut {
				return writeJSON(cmd.OutOrStdout(), devices)
			}

			tw := newTable(cmd.OutOrStdout())
			fmt.Fprintln(tw, "ID\tNAME\tMAINTENANCE")
			for _, d := range devices {
				window := "-"
				if w, err := d.MaintenanceWindow(); err == nil && w != nil {
					window = w.String()
				}
				fmt.Fprintf(tw, "%d\t%s\t%s\n", d.ID, d.Name, window)
			}
			return tw.Flush()
		},
	}
}

// intervalFlags are the --start/--end pair shared by the write commands.
type intervalFlags struct {
	start, end string
}

func (f *intervalFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.start, "start", "", "Start time (2006-01-02T15:04, local time, or RFC 3339)")
	cmd.Flags().StringVar(&f.end, "end", "", "End time")
	_ = cmd.MarkFlagRequired("start")
	_ = cmd.MarkFlagRequired("end")
}

func (f *intervalFlags) interval() (reservation.Interval, error) {
	start, err := labapi.ParseTimestamp(f.start)
	if err != nil {
		return reservation.Interval{}, fmt.Errorf("--start: %w", err)
	}
	end, err := labapi.ParseTimestamp(f.end)
	if err != nil {
		return reservation.Interval{}, fmt.Errorf("--end: %w", err)
	}
	return reservation.Interval{Start: start, End: end}, nil
}

func reservationsCmd(c *cli) *cobra.Command {
	var deviceID int

	cmd := &cobra.Command{
		Use:     "reservations",
		Aliases: []string{"res"},
		Short:   "Manage reservations on one device",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := c.setup(cmd, args); err != nil {
				return err
			}
			if err := c.app.Calendar.SelectDevice(cmd.Context(), deviceID); err != nil {
				_ = c.app.Close()
				c.app = nil
				return describe(err)
			}
			return nil
		},
	}
	cmd.PersistentFlags().IntVarP(&deviceID, "device", "d", 0, "Device ID")
	_ = cmd.MarkPersistentFlagRequired("device")

	cmd.AddCommand(
		listReservationsCmd(c),
		checkReservationCmd(c),
		createReservationCmd(c),
		updateReservationCmd(c),
		deleteReservationCmd(c),
	)
	return cmd
}

func listReservationsCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List reservations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			list := c.app.Calendar.Reservations()
			if c.jsonOut {
				return writeJSON(cmd.OutOrStdout(), list)
			}

			tw := newTable(cmd.OutOrStdout())
			fmt.Fprintln(tw, "ID\tSTART\tEND\tOWNER\tQUEUED")
			for _, r := range list {
				fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%t\n",
					r.ID,
					r.Start.Local().Format("2006-01-02 15:04"),
					r.End.Local().Format("2006-01-02 15:04"),
					r.Username,
					r.Queued,
				)
			}
			return tw.Flush()
		},
	}
}

func checkReservationCmd(c *cli) *cobra.Command {
	var f intervalFlags

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Check whether a range could be booked, without booking it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			iv, err := f.interval()
			if err != nil {
				return err
			}
			v := c.app.Calendar.CheckSelection(iv)
			if !v.Allowed && v.Reason == reservation.ReasonMaintenance {
				printConflicts(cmd.ErrOrStderr(), c.app.Calendar.MaintenanceConflicts(iv))
			}
			if err := v.Err(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "available")
			return nil
		},
	}
	f.register(cmd)
	return cmd
}

func createReservationCmd(c *cli) *cobra.Command {
	var f intervalFlags

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Book a range",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			iv, err := f.interval()
			if err != nil {
				return err
			}
			r, err := c.app.Calendar.Create(cmd.Context(), iv)
			if err != nil {
				return describe(err)
			}
			return c.printWritten(cmd, "created", r)
		},
	}
	f.register(cmd)
	return cmd
}

func updateReservationCmd(c *cli) *cobra.Command {
	var f intervalFlags

	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Move a reservation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid reservation id %q", args[0])
			}
			iv, err := f.interval()
			if err != nil {
				return err
			}
			r, err := c.app.Calendar.Update(cmd.Context(), id, iv)
			if err != nil {
				return describe(err)
			}
			return c.printWritten(cmd, "updated", r)
		},
	}
	f.register(cmd)
	return cmd
}

func deleteReservationCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Cancel a reservation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid reservation id %q", args[0])
			}
			if err := c.app.Calendar.Delete(cmd.Context(), id); err != nil {
				return describe(err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %d\n", id)
			return nil
		},
	}
}

func (c *cli) printWritten(cmd *cobra.Command, verb string, r *labapi.Reservation) error {
	if c.jsonOut && r != nil {
		return writeJSON(cmd.OutOrStdout(), r)
	}
	if r == nil {
		fmt.Fprintln(cmd.OutOrStdout(), verb)
		return nil
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s %d\n", verb, r.ID)
	return nil
}

// printConflicts lists each day a range runs into maintenance.
func printConflicts(w io.Writer, conflicts []reservation.Window) {
	for _, m := range conflicts {
		fmt.Fprintf(w, "maintenance %s %s-%s\n",
			m.Start.Format("2006-01-02"),
			m.Start.Format("15:04"),
			m.End.Format("15:04"),
		)
	}
}
