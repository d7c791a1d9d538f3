package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"hostel-allocation-backend/internal/model"
	"hostel-allocation-backend/internal/roomstock"
)

// HistoryCmd prints the ledger for an occupant or a room.
func HistoryCmd(app *AppContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show allocation history",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			occupantID, _ := cmd.Flags().GetInt64("occupant")
			roomID, _ := cmd.Flags().GetInt64("room")
			if (occupantID == 0) == (roomID == 0) {
				return fmt.Errorf("exactly one of --occupant and --room is required")
			}

			var events []model.AllocationEvent
			var err error
			if occupantID != 0 {
				events, err = app.Svc.OccupantHistory(app.Ctx, occupantID)
			} else {
				events, err = app.Svc.RoomHistory(app.Ctx, roomID)
			}
			if err != nil {
				return err
			}
			if len(events) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no events")
				return nil
			}

			tw := table(cmd.OutOrStdout())
			fmt.Fprintln(tw, "WHEN\tTYPE\tOCCUPANT\tROOM\tACTOR\tREASON")
			for _, e := range events {
				fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%s\t%s\n",
					e.OccurredAt.Format(time.DateTime), e.Type, e.OccupantID, e.RoomID, e.Actor, e.Reason)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().Int64("occupant", 0, "Occupant id")
	cmd.Flags().Int64("room", 0, "Room id")
	return cmd
}

// VerifyCmd checks every room's occupancy against its open tenancies.
func VerifyCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "verify",
		Short: "Check room occupancy against open tenancies",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			drift, err := app.Svc.VerifyRooms(app.Ctx)
			if err != nil {
				return err
			}
			if len(drift) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "all rooms consistent")
				return nil
			}
			for _, d := range drift {
				fmt.Fprintln(cmd.OutOrStdout(), d)
			}
			return fmt.Errorf("%d rooms out of sync", len(drift))
		},
	}
}

// ImportCmd pulls the room-stock feed once.
func ImportCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "import-rooms",
		Short: "Import room stock from the configured feed once",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if app.Cfg.RoomStock.Request.URL == "" {
				return fmt.Errorf("room_stock.request.url is not configured")
			}
			importer := roomstock.NewService(app.Cfg.RoomStock, app.Svc, app.Logger.Named("roomstock"))
			res, err := importer.ImportOnce(app.Ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d fetched, %d skipped, %d created, %d updated\n", res.Fetched, res.Skipped, res.Created, res.Updated)
			return nil
		},
	}
}
