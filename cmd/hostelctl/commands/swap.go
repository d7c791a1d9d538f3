package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"hostel-allocation-backend/internal/model"
	"hostel-allocation-backend/internal/swap"
)

// SwapCmd groups the swap request subcommands.
func SwapCmd(app *AppContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "swap",
		Short: "Manage room swap requests",
	}
	cmd.AddCommand(
		swapSubmitCmd(app),
		swapListCmd(app),
		swapReviewCmd(app),
		swapDecisionCmd(app, "approve", "Approve a swap request", app.approve),
		swapDecisionCmd(app, "reject", "Reject a swap request", app.reject),
		swapDecisionCmd(app, "complete", "Carry out an approved swap", app.complete),
		swapDecisionCmd(app, "cancel", "Withdraw a swap request", app.cancel),
	)
	return cmd
}

func (a *AppContext) approve(ctx context.Context, id int64, actor, notes string) (*model.SwapRequest, error) {
	return a.Svc.ApproveSwap(ctx, id, actor, notes)
}

func (a *AppContext) reject(ctx context.Context, id int64, actor, notes string) (*model.SwapRequest, error) {
	return a.Svc.RejectSwap(ctx, id, actor, notes)
}

func (a *AppContext) complete(ctx context.Context, id int64, actor, notes string) (*model.SwapRequest, error) {
	return a.Svc.CompleteSwap(ctx, id, actor, notes)
}

func (a *AppContext) cancel(ctx context.Context, id int64, actor, notes string) (*model.SwapRequest, error) {
	return a.Svc.CancelSwap(ctx, id, actor, notes)
}

func swapSubmitCmd(app *AppContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "submit <occupant_id>",
		Short: "Open a swap request for an allocated occupant",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("occupant_id", args[0])
			if err != nil {
				return err
			}
			req := swap.Request{OccupantID: id}
			req.Priority, _ = cmd.Flags().GetInt("priority")
			req.Reason, _ = cmd.Flags().GetString("reason")
			if roomID, _ := cmd.Flags().GetInt64("room"); roomID != 0 {
				req.TargetRoomID = &roomID
			}
			if raw, _ := cmd.Flags().GetString("type"); raw != "" {
				rt, err := model.ParseRoomType(raw)
				if err != nil {
					return err
				}
				req.TargetType = &rt
			}

			created, err := app.Svc.SubmitSwap(app.Ctx, req)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "swap request %d submitted (priority %d)\n", created.ID, created.Priority)
			return nil
		},
	}
	cmd.Flags().Int64("room", 0, "Target room id")
	cmd.Flags().StringP("type", "t", "", "Target room type")
	cmd.Flags().IntP("priority", "p", 0, "Priority 1-5 (default 3)")
	cmd.Flags().StringP("reason", "r", "", "Why the occupant wants to move")
	return cmd
}

func swapListCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List open swap requests by priority",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			pending, err := app.Svc.ListPendingSwaps(app.Ctx)
			if err != nil {
				return err
			}
			if len(pending) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no open swap requests")
				return nil
			}
			tw := table(cmd.OutOrStdout())
			fmt.Fprintln(tw, "ID\tOCCUPANT\tFROM\tTARGET\tPRIORITY\tSTATUS\tREQUESTED")
			for _, r := range pending {
				fmt.Fprintf(tw, "%d\t%d\t%d\t%s\t%d\t%s\t%s\n",
					r.ID, r.OccupantID, r.CurrentRoomID, target(r), r.Priority, r.Status, r.RequestedAt.Format("2006-01-02 15:04"))
			}
			return tw.Flush()
		},
	}
}

func target(r model.SwapRequest) string {
	if r.TargetRoomID != nil {
		return fmt.Sprintf("room %d", *r.TargetRoomID)
	}
	if r.TargetType != nil {
		return string(*r.TargetType)
	}
	return "-"
}

func swapReviewCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "review <swap_id>",
		Short: "Move a pending swap request under review",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("swap_id", args[0])
			if err != nil {
				return err
			}
			req, err := app.Svc.ReviewSwap(app.Ctx, id, app.Actor)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "swap request %d is %s\n", req.ID, req.Status)
			return nil
		},
	}
}

type swapAction func(ctx context.Context, id int64, actor, notes string) (*model.SwapRequest, error)

func swapDecisionCmd(app *AppContext, use, short string, action swapAction) *cobra.Command {
	cmd := &cobra.Command{
		Use:   use + " <swap_id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("swap_id", args[0])
			if err != nil {
				return err
			}
			notes, _ := cmd.Flags().GetString("notes")
			req, err := action(app.Ctx, id, app.Actor, notes)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "swap request %d is %s\n", req.ID, req.Status)
			return nil
		},
	}
	cmd.Flags().StringP("notes", "n", "", "Notes recorded on the request")
	return cmd
}
