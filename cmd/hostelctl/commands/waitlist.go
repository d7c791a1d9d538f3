package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"hostel-allocation-backend/internal/model"
)

// WaitlistCmd groups the waitlist subcommands.
func WaitlistCmd(app *AppContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "waitlist",
		Short: "Inspect and edit the waitlist",
	}
	cmd.AddCommand(waitlistListCmd(app), waitlistAddCmd(app), waitlistRemoveCmd(app))
	return cmd
}

func waitlistListCmd(app *AppContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "Show the queue in allocation order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, _ := cmd.Flags().GetString("type")
			var rt model.RoomType
			if raw != "" {
				parsed, err := model.ParseRoomType(raw)
				if err != nil {
					return err
				}
				rt = parsed
			}
			entries, err := app.Svc.ListWaitlist(app.Ctx, rt)
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "waitlist is empty")
				return nil
			}

			tw := table(cmd.OutOrStdout())
			fmt.Fprintln(tw, "OCCUPANT\tTYPE\tSCORE\tWAITING SINCE")
			for _, e := range entries {
				fmt.Fprintf(tw, "%d\t%s\t%d\t%s\n", e.OccupantID, e.PreferredType, e.PriorityScore, e.WaitingSince.Format("2006-01-02"))
			}
			return tw.Flush()
		},
	}
	cmd.Flags().StringP("type", "t", "", "Room type; all types when omitted")
	return cmd
}

func waitlistAddCmd(app *AppContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add <occupant_id> <room_type>",
		Short: "Put an occupant on the waitlist",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("occupant_id", args[0])
			if err != nil {
				return err
			}
			rt, err := model.ParseRoomType(args[1])
			if err != nil {
				return err
			}
			base, _ := cmd.Flags().GetInt("base")
			entry, err := app.Svc.Enqueue(app.Ctx, id, rt, base)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "occupant %d queued for %s with score %d\n", entry.OccupantID, entry.PreferredType, entry.PriorityScore)
			return nil
		},
	}
	cmd.Flags().Int("base", 0, "Base score; the configured default when 0")
	return cmd
}

func waitlistRemoveCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <occupant_id>",
		Short: "Take an occupant off the waitlist",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("occupant_id", args[0])
			if err != nil {
				return err
			}
			if err := app.Svc.Dequeue(app.Ctx, id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "occupant %d removed from the waitlist\n", id)
			return nil
		},
	}
}

// RecomputeCmd refreshes every waitlist priority score now.
func RecomputeCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "recompute",
		Short: "Recompute waitlist priority scores",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := app.Svc.RecomputePriorities(app.Ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d scores raised\n", n)
			return nil
		},
	}
}
