package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"hostel-allocation-backend/cmd/hostelctl/commands"
	"hostel-allocation-backend/config"
	"hostel-allocation-backend/internal/db"
	"hostel-allocation-backend/internal/hostel"
	"hostel-allocation-backend/internal/logging"
	"hostel-allocation-backend/internal/waitlist"
)

var (
	configPath string
	app        = &commands.AppContext{}
)

func main() {
	rootCmd := &cobra.Command{
		Use:          "hostelctl",
		Short:        "Hostel allocation admin CLI",
		Long:         `Batch triggers and admin actions for the hostel room allocation engine.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initApp(cmd.Context())
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if app.Logger != nil {
				app.Logger.Sync()
			}
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", os.Getenv("CONFIG_PATH"), "Path to config.yaml (defaults to $CONFIG_PATH)")
	rootCmd.PersistentFlags().StringVar(&app.Actor, "actor", "", "Actor recorded in the history ledger (defaults to server.default_actor)")

	commands.Register(rootCmd, app)

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

// initApp sets up config, logger, database and the allocation service.
func initApp(ctx context.Context) error {
	if configPath == "" {
		configPath = "./config/config.yaml"
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger, err := logging.New(cfg.Log)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	logger.Debug("configuration loaded", zap.String("path", configPath))

	gormDB, err := db.Init(&cfg.Database, logger.Named("db"))
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}

	if app.Actor == "" {
		app.Actor = cfg.Server.DefaultActor
	}
	app.Ctx = ctx
	app.Cfg = cfg
	app.Logger = logger
	app.Svc = hostel.New(gormDB, waitlist.PolicyFrom(cfg.Waitlist), logger.Named("hostel"))
	return nil
}
