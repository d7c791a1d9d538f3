// Package commands holds the hostelctl subcommands.
package commands

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"hostel-allocation-backend/config"
	"hostel-allocation-backend/internal/hostel"
)

// AppContext carries the dependencies every command needs. It is filled in by the
// root command's PersistentPreRunE.
type AppContext struct {
	Ctx    context.Context
	Cfg    *config.Config
	Svc    *hostel.Service
	Logger *zap.Logger
	Actor  string
}

// Register adds every subcommand to root.
func Register(root *cobra.Command, app *AppContext) {
	root.AddCommand(AllocateCmd(app))
	root.AddCommand(AssignCmd(app))
	root.AddCommand(DeallocateCmd(app))
	root.AddCommand(WaitlistCmd(app))
	root.AddCommand(SwapCmd(app))
	root.AddCommand(HistoryCmd(app))
	root.AddCommand(RecomputeCmd(app))
	root.AddCommand(VerifyCmd(app))
	root.AddCommand(ImportCmd(app))
}

func parseID(name, raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%s must be a positive number, got %q", name, raw)
	}
	return id, nil
}

func table(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
}
