package commands

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"hostel-allocation-backend/internal/allocation"
	"hostel-allocation-backend/internal/model"
)

// AllocateCmd runs the allocation engine for one room type or all of them.
func AllocateCmd(app *AppContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "allocate",
		Short: "Fill open rooms from the waitlist",
		Long:  "Run the greedy allocation for --type, or for every room type when --type is omitted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, _ := cmd.Flags().GetString("type")
			app.Logger.Debug("allocate command", zap.String("type", raw), zap.String("actor", app.Actor))

			out := cmd.OutOrStdout()
			if raw == "" {
				reports, err := app.Svc.AllocateAll(app.Ctx, app.Actor)
				for _, r := range reports {
					printReport(out, r)
				}
				return err
			}

			rt, err := model.ParseRoomType(raw)
			if err != nil {
				return err
			}
			report, err := app.Svc.Allocate(app.Ctx, rt, app.Actor)
			printReport(out, report)
			return err
		},
	}
	cmd.Flags().StringP("type", "t", "", "Room type (Single, Double, Triple, Quad)")
	return cmd
}

func printReport(w io.Writer, r allocation.Report) {
	fmt.Fprintf(w, "%s: %d assigned, %d unassigned", r.RoomType, r.Assigned, r.Unassigned)
	if r.Notice != allocation.NoticeNone {
		fmt.Fprintf(w, " (%s)", r.Notice)
	}
	fmt.Fprintln(w)
	for _, a := range r.Assignments {
		fmt.Fprintf(w, "  occupant %d -> room %s\n", a.OccupantID, a.RoomNumber)
	}
	for _, s := range r.Skipped {
		fmt.Fprintf(w, "  skipped occupant %d: %s\n", s.OccupantID, s.Reason)
	}
}

// AssignCmd places one waiting occupant into a specific room.
func AssignCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "assign <occupant_id> <room_id>",
		Short: "Allocate a waiting occupant to a specific room",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			occupantID, err := parseID("occupant_id", args[0])
			if err != nil {
				return err
			}
			roomID, err := parseID("room_id", args[1])
			if err != nil {
				return err
			}
			a, err := app.Svc.AssignRoom(app.Ctx, occupantID, roomID, app.Actor)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "occupant %d -> room %s\n", a.OccupantID, a.RoomNumber)
			return nil
		},
	}
}

// DeallocateCmd removes an occupant from their room.
func DeallocateCmd(app *AppContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "deallocate <occupant_id>",
		Short: "Remove an occupant from their room",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("occupant_id", args[0])
			if err != nil {
				return err
			}
			reason, _ := cmd.Flags().GetString("reason")
			requeue, _ := cmd.Flags().GetBool("requeue")

			if err := app.Svc.Deallocate(app.Ctx, id, reason, app.Actor, requeue); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "occupant %d deallocated\n", id)
			if requeue {
				fmt.Fprintf(cmd.OutOrStdout(), "occupant %d is back on the waitlist\n", id)
			}
			return nil
		},
	}
	cmd.Flags().StringP("reason", "r", "", "Reason recorded on the tenancy and ledger")
	cmd.Flags().Bool("requeue", false, "Put the occupant back on the waitlist")
	return cmd
}
