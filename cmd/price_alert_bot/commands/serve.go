package commands

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/KotFed0t/price_alert_bot/data"
	"github.com/KotFed0t/price_alert_bot/data/cache"
	"github.com/KotFed0t/price_alert_bot/data/repository/postgres"
	"github.com/KotFed0t/price_alert_bot/data/subscribers"
	"github.com/KotFed0t/price_alert_bot/internal/externalApi/eastmoneyApi"
	"github.com/KotFed0t/price_alert_bot/internal/externalApi/sinaApi"
	"github.com/KotFed0t/price_alert_bot/internal/notifier"
	"github.com/KotFed0t/price_alert_bot/internal/portfolioScanner"
	"github.com/KotFed0t/price_alert_bot/internal/reportGenerator/xslsxGenerator"
	"github.com/KotFed0t/price_alert_bot/internal/scheduler"
	"github.com/KotFed0t/price_alert_bot/internal/service/priceAlertService"
	"github.com/KotFed0t/price_alert_bot/internal/tgbot"
	"github.com/KotFed0t/price_alert_bot/internal/transport/httpApi"
	"github.com/KotFed0t/price_alert_bot/internal/transport/telegram"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the telegram bot, HTTP API and scheduled scans",
	Long: `Runs until SIGINT or SIGTERM:
- telegram bot with the portfolio commands
- HTTP API under /api/v1 with /health, /metrics and the /api/v1/alerts/ws stream
- portfolio scan every SCAN_JOB_INTERVAL, alerts go to telegram subscribers,
  websocket clients and kafka when KAFKA_BROKERS is set
- report backup on BACKUP_JOB_CRONTAB when a backup target is configured`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	pgClient := data.NewPostgresClient(cfg)
	defer pgClient.Close()

	pgRepo := postgres.NewPostgres(pgClient)

	redisClient := data.NewRedisClient(cfg)
	defer redisClient.Close()

	quoteCache := cache.NewRedisCache(redisClient, cfg.Cache.QuoteExpiration)
	alertSubscribers := subscribers.NewRedisSubscribers(redisClient)

	sinaApiClient := sinaApi.New(cfg, sinaApi.NewSyntheticQuoteGenerator(), quoteCache)
	eastmoneyApiClient := eastmoneyApi.New(cfg)

	scanner := portfolioScanner.New(sinaApiClient, cfg.Scan.Concurrency)

	tgBot := tgbot.New(cfg)

	alertHub := notifier.NewHub()
	defer alertHub.Close()

	sinks := []notifier.Sink{notifier.NewTelegram(tgBot, alertSubscribers), alertHub}
	if brokers := cfg.Kafka.BrokerList(); len(brokers) > 0 {
		kafkaSink := notifier.NewKafka(brokers, cfg.Kafka.AlertsTopic)
		defer func() {
			if err := kafkaSink.Close(); err != nil {
				slog.Error("kafka writer close failed", slog.String("err", err.Error()))
			}
		}()
		sinks = append(sinks, kafkaSink)
	}

	backupStorage := newBackupStorage(ctx, cfg)

	priceAlertSrv := priceAlertService.New(
		pgRepo,
		sinaApiClient,
		eastmoneyApiClient,
		scanner,
		notifier.NewMulti(sinks...),
		xslsxGenerator.New(),
		backupStorage,
	)

	sched := scheduler.New(ctx)
	sched.NewIntervalJob("portfolio scan", priceAlertSrv.CheckAndNotify, cfg.Jobs.ScanInterval, true)
	if backupStorage != nil {
		sched.NewCrontabJob("report backup", func(ctx context.Context) error {
			link, err := priceAlertSrv.BackupReport(ctx)
			if err != nil {
				return err
			}
			slog.Info("report backed up", slog.String("link", link))
			return nil
		}, cfg.Jobs.BackupCrontab, false)
	}
	sched.Start()
	defer sched.Stop()

	tgBot.Start(telegram.NewController(priceAlertSrv, alertSubscribers))
	defer tgBot.Stop()

	checks := map[string]httpApi.HealthCheck{
		"postgres": pgClient.PingContext,
		"redis":    func(ctx context.Context) error { return redisClient.Ping(ctx).Err() },
	}
	router := httpApi.SetupRoutes(httpApi.NewHandler(priceAlertSrv, checks), alertHub)
	server := httpApi.NewServer(cfg.HTTP, router)

	serverErr := make(chan error, 1)
	go func() {
		slog.Info("http server started", slog.String("addr", cfg.HTTP.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case <-ctx.Done():
		slog.Info("shutdown signal received")
	case err := <-serverErr:
		slog.Error("http server failed", slog.String("err", err.Error()))
		return err
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("http server shutdown failed", slog.String("err", err.Error()))
	}

	return nil
}
