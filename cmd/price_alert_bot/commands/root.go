package commands

import (
	"log/slog"
	"os"

	"github.com/KotFed0t/price_alert_bot/config"
	"github.com/spf13/cobra"
)

var (
	envFile  string
	logLevel string
)

var rootCmd = &cobra.Command{
	Use:   "price_alert_bot",
	Short: "Price alerts for A-share positions",
	Long: `Tracks equity purchases, watches live quotes and alerts when a
position reaches its sell or buy target.

Examples:
  price_alert_bot serve
  price_alert_bot scan --buy-step 0.05 --annual-rate 0.2
  price_alert_bot quote 600519
  price_alert_bot migrate`,
	SilenceUsage: true,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file with configuration")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "overrides LOG_LEVEL (debug|info|warning|error)")
}

func loadConfig() *config.Config {
	cfg := config.MustLoadFile(envFile)
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}

	setupLogger(cfg)
	return cfg
}

func setupLogger(cfg *config.Config) {
	var level slog.Level

	switch cfg.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	log := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(log)
}
