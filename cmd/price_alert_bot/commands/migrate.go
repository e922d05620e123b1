package commands

import (
	"log/slog"

	"github.com/KotFed0t/price_alert_bot/data"
	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply database migrations, or roll back with --down",
	Args:  cobra.NoArgs,
	RunE:  runMigrate,
}

var migrateDown int

func init() {
	rootCmd.AddCommand(migrateCmd)

	migrateCmd.Flags().IntVar(&migrateDown, "down", 0, "number of migrations to roll back")
}

func runMigrate(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()

	db := data.ConnectPostgres(cfg)
	defer db.Close()

	if err := data.MigratePostgres(db, cfg.Postgres.MigrationDir, migrateDown); err != nil {
		slog.Error("migration failed", slog.String("err", err.Error()))
		return err
	}

	slog.Info("migrations applied", slog.Int("down", migrateDown))
	return nil
}
