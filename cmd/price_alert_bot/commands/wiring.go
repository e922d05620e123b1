package commands

import (
	"context"
	"log/slog"

	"github.com/KotFed0t/price_alert_bot/config"
	"github.com/KotFed0t/price_alert_bot/internal/externalApi/cloudStorageApi/googleDriveApi"
	"github.com/KotFed0t/price_alert_bot/internal/externalApi/cloudStorageApi/s3Api"
	"github.com/KotFed0t/price_alert_bot/internal/service/priceAlertService"
)

// newBackupStorage returns nil when the selected target is not configured.
func newBackupStorage(ctx context.Context, cfg *config.Config) priceAlertService.BackupStorage {
	switch cfg.Backup.Target {
	case "s3":
		if cfg.S3.Bucket == "" {
			slog.Warn("s3 backup selected but S3_BUCKET is empty, backups disabled")
			return nil
		}
		return s3Api.New(ctx, cfg.S3)
	case "drive":
		if !cfg.GoogleDrive.Enabled {
			slog.Info("google drive backup disabled")
			return nil
		}
		return googleDriveApi.New(ctx, cfg.GoogleDrive)
	default:
		slog.Warn("unknown backup target, backups disabled", slog.String("target", cfg.Backup.Target))
		return nil
	}
}
