package priceAlertService

import (
	"context"
	"log/slog"

	"github.com/KotFed0t/price_alert_bot/internal/model"
	"github.com/KotFed0t/price_alert_bot/internal/priceCalculator"
	"github.com/KotFed0t/price_alert_bot/utils"
)

// EvaluateTargets computes the targets of p and, when a price is available,
// the signal. Without a price the signal is none and CurrentPrice is nil.
func (s *PriceAlertService) EvaluateTargets(ctx context.Context, p model.Position, settings model.ScanSettings) (model.Evaluation, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "PriceAlertService.EvaluateTargets"

	slog.Debug("EvaluateTargets start", slog.String("rqID", rqID), slog.String("op", op), slog.Int64("positionID", p.ID))
	defer func() {
		slog.Debug("EvaluateTargets finished", slog.String("rqID", rqID), slog.String("op", op), slog.Int64("positionID", p.ID))
	}()

	daysHeld := priceCalculator.DaysHeld(p.BuyTime, s.now())

	thresholds, err := priceCalculator.Thresholds(p.BuyPrice.InexactFloat64(), daysHeld, settings)
	if err != nil {
		return model.Evaluation{}, err
	}

	evaluation := model.Evaluation{TargetThresholds: thresholds, DaysHeld: daysHeld, Signal: model.SignalNone}

	price := s.quotes.FetchPrice(ctx, p.Code)
	if !(price > 0) {
		return evaluation, nil
	}

	signal, err := priceCalculator.Classify(price, thresholds)
	if err != nil {
		return model.Evaluation{}, err
	}

	evaluation.CurrentPrice = &price
	evaluation.Signal = signal

	return evaluation, nil
}

func (s *PriceAlertService) EvaluatePosition(ctx context.Context, positionID int64, settings model.ScanSettings) (model.Position, model.Evaluation, error) {
	p, err := s.GetPosition(ctx, positionID)
	if err != nil {
		return model.Position{}, model.Evaluation{}, err
	}

	evaluation, err := s.EvaluateTargets(ctx, p, settings)
	if err != nil {
		return model.Position{}, model.Evaluation{}, err
	}

	return p, evaluation, nil
}

// ScanPortfolio evaluates every open position and returns the crossed targets.
func (s *PriceAlertService) ScanPortfolio(ctx context.Context, settings model.ScanSettings) ([]model.AlertEvent, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "PriceAlertService.ScanPortfolio"

	positions, err := s.ListPositions(ctx)
	if err != nil {
		return nil, err
	}

	events, err := s.scanner.Scan(ctx, positions, settings)
	if err != nil {
		slog.Error("scan failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return nil, err
	}

	slog.Info("portfolio scanned", slog.String("rqID", rqID), slog.String("op", op), slog.Int("positions", len(positions)), slog.Int("alerts", len(events)))

	return events, nil
}

// CheckAndNotify is the scheduled scan: stored settings, every alert to the
// notifier. Notifier failures are logged and never fail the scan.
func (s *PriceAlertService) CheckAndNotify(ctx context.Context) error {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "PriceAlertService.CheckAndNotify"

	slog.Debug("CheckAndNotify start", slog.String("rqID", rqID), slog.String("op", op))
	defer func() {
		slog.Debug("CheckAndNotify finished", slog.String("rqID", rqID), slog.String("op", op))
	}()

	if !s.NotificationsEnabled(ctx) {
		slog.Info("notifications disabled, scan skipped", slog.String("rqID", rqID), slog.String("op", op))
		return nil
	}

	settings, err := s.GetScanSettings(ctx)
	if err != nil {
		return err
	}

	events, err := s.ScanPortfolio(ctx, settings)
	if err != nil {
		return err
	}

	for _, ev := range events {
		if err = s.notifier.Notify(ctx, ev); err != nil {
			slog.Error("can't deliver alert", slog.String("rqID", rqID), slog.String("op", op), slog.Int64("positionID", ev.Position.ID), slog.String("err", err.Error()))
		}
	}

	return nil
}
