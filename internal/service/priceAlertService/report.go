package priceAlertService

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/KotFed0t/price_alert_bot/utils"
)

const reportFilePrefix = "positions_"

var ErrBackupDisabled = errors.New("report backup is not configured")

// GenerateReport renders the current analysis of all positions with the stored settings.
func (s *PriceAlertService) GenerateReport(ctx context.Context) (fileBytes []byte, filename string, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "PriceAlertService.GenerateReport"

	slog.Debug("GenerateReport start", slog.String("rqID", rqID), slog.String("op", op))
	defer func() {
		slog.Debug("GenerateReport finished", slog.String("rqID", rqID), slog.String("op", op))
	}()

	settings, err := s.GetScanSettings(ctx)
	if err != nil {
		return nil, "", err
	}

	analysis, err := s.AnalyzePortfolio(ctx, settings)
	if err != nil {
		return nil, "", err
	}

	fileBytes, ext, err := s.reports.Generate(ctx, analysis)
	if err != nil {
		slog.Error("can't generate report", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return nil, "", err
	}

	return fileBytes, fmt.Sprintf("%s%s%s", reportFilePrefix, s.now().Format("2006-01-02_15-04-05"), ext), nil
}

// BackupReport uploads a fresh report and prunes expired backups. Prune
// failures are only logged.
func (s *PriceAlertService) BackupReport(ctx context.Context) (downloadLink string, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "PriceAlertService.BackupReport"

	if s.backup == nil {
		return "", ErrBackupDisabled
	}

	fileBytes, filename, err := s.GenerateReport(ctx)
	if err != nil {
		return "", err
	}

	downloadLink, err = s.backup.UploadFile(ctx, bytes.NewReader(fileBytes), filename)
	if err != nil {
		slog.Error("can't upload report", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return "", err
	}

	if err = s.backup.DeleteOldFiles(ctx); err != nil {
		slog.Error("can't delete old backups", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
	}

	slog.Info("report backed up", slog.String("rqID", rqID), slog.String("op", op), slog.String("file", filename))

	return downloadLink, nil
}
