package priceAlertService

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strconv"

	"github.com/KotFed0t/price_alert_bot/internal/model"
	"github.com/KotFed0t/price_alert_bot/internal/priceCalculator"
	"github.com/KotFed0t/price_alert_bot/internal/service"
	"github.com/KotFed0t/price_alert_bot/utils"
)

// GetScanSettings reads the stored fractions. Missing or unparseable values
// fall back to the defaults; stored values out of range are an error.
func (s *PriceAlertService) GetScanSettings(ctx context.Context) (model.ScanSettings, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "PriceAlertService.GetScanSettings"

	settings := model.DefaultScanSettings()

	buyStep, err := s.floatSetting(ctx, model.SettingBuyStep, model.DefaultBuyStep)
	if err != nil {
		return model.ScanSettings{}, err
	}
	settings.BuyStep = buyStep

	annualRate, err := s.floatSetting(ctx, model.SettingAnnualReturnRate, model.DefaultAnnualReturnRate)
	if err != nil {
		return model.ScanSettings{}, err
	}
	settings.AnnualReturnRate = annualRate

	if err = priceCalculator.ValidateSettings(settings); err != nil {
		slog.Warn("stored scan settings are invalid", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return model.ScanSettings{}, err
	}

	return settings, nil
}

// ResolveScanSettings applies per-request overrides on top of the stored settings.
func (s *PriceAlertService) ResolveScanSettings(ctx context.Context, buyStep, annualRate *float64) (model.ScanSettings, error) {
	if buyStep != nil && annualRate != nil {
		settings := model.ScanSettings{BuyStep: *buyStep, AnnualReturnRate: *annualRate}
		return settings, priceCalculator.ValidateSettings(settings)
	}

	settings, err := s.GetScanSettings(ctx)
	if err != nil {
		return model.ScanSettings{}, err
	}

	if buyStep != nil {
		settings.BuyStep = *buyStep
	}
	if annualRate != nil {
		settings.AnnualReturnRate = *annualRate
	}

	return settings, priceCalculator.ValidateSettings(settings)
}

func (s *PriceAlertService) floatSetting(ctx context.Context, key string, def float64) (float64, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "PriceAlertService.floatSetting"

	raw, ok, err := s.repo.GetSetting(ctx, key)
	if err != nil {
		slog.Error("got error from repo.GetSetting", slog.String("rqID", rqID), slog.String("op", op), slog.String("key", key), slog.String("err", err.Error()))
		return 0, err
	}
	if !ok {
		return def, nil
	}

	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		slog.Warn("unparseable setting, using default", slog.String("rqID", rqID), slog.String("op", op), slog.String("key", key), slog.String("value", raw))
		return def, nil
	}

	return v, nil
}

// NotificationsEnabled defaults to true when the setting is absent or unreadable.
func (s *PriceAlertService) NotificationsEnabled(ctx context.Context) bool {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "PriceAlertService.NotificationsEnabled"

	raw, ok, err := s.repo.GetSetting(ctx, model.SettingNotificationEnabled)
	if err != nil {
		slog.Error("got error from repo.GetSetting", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return true
	}
	if !ok {
		return true
	}

	enabled, err := strconv.ParseBool(raw)
	if err != nil {
		return true
	}

	return enabled
}

func (s *PriceAlertService) GetSetting(ctx context.Context, key string) (string, error) {
	if !slices.Contains(model.SettingKeys, key) {
		return "", fmt.Errorf("%w: setting %q", service.ErrNotFound, key)
	}

	value, ok, err := s.repo.GetSetting(ctx, key)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", fmt.Errorf("%w: setting %q", service.ErrNotFound, key)
	}

	return value, nil
}

func (s *PriceAlertService) ListSettings(ctx context.Context) (map[string]string, error) {
	return s.repo.ListSettings(ctx)
}

// SetSetting validates value for key before storing it.
func (s *PriceAlertService) SetSetting(ctx context.Context, key, value string) error {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "PriceAlertService.SetSetting"

	slog.Debug("SetSetting start", slog.String("rqID", rqID), slog.String("op", op), slog.String("key", key), slog.String("value", value))
	defer func() {
		slog.Debug("SetSetting finished", slog.String("rqID", rqID), slog.String("op", op), slog.String("key", key))
	}()

	normalized, err := normalizeSetting(key, value)
	if err != nil {
		return err
	}

	if err = s.repo.SetSetting(ctx, key, normalized); err != nil {
		slog.Error("got error from repo.SetSetting", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return err
	}

	return nil
}

func normalizeSetting(key, value string) (string, error) {
	switch key {
	case model.SettingBuyStep, model.SettingAnnualReturnRate:
		v, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return "", fmt.Errorf("%w: %s must be a number, got %q", service.ErrInvalidInput, key, value)
		}

		settings := model.ScanSettings{BuyStep: model.DefaultBuyStep, AnnualReturnRate: model.DefaultAnnualReturnRate}
		if key == model.SettingBuyStep {
			settings.BuyStep = v
		} else {
			settings.AnnualReturnRate = v
		}
		if err = priceCalculator.ValidateSettings(settings); err != nil {
			return "", err
		}

		return strconv.FormatFloat(v, 'f', -1, 64), nil
	case model.SettingNotificationEnabled:
		v, err := strconv.ParseBool(value)
		if err != nil {
			return "", fmt.Errorf("%w: %s must be true or false, got %q", service.ErrInvalidInput, key, value)
		}
		return strconv.FormatBool(v), nil
	default:
		return "", fmt.Errorf("%w: unknown setting %q", service.ErrInvalidInput, key)
	}
}

// UpdateScanSettings stores both fractions atomically.
func (s *PriceAlertService) UpdateScanSettings(ctx context.Context, settings model.ScanSettings) error {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "PriceAlertService.UpdateScanSettings"

	if err := priceCalculator.ValidateSettings(settings); err != nil {
		return err
	}

	err := s.repo.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := s.repo.SetSetting(ctx, model.SettingBuyStep, strconv.FormatFloat(settings.BuyStep, 'f', -1, 64)); err != nil {
			return err
		}
		return s.repo.SetSetting(ctx, model.SettingAnnualReturnRate, strconv.FormatFloat(settings.AnnualReturnRate, 'f', -1, 64))
	})
	if err != nil {
		slog.Error("can't update scan settings", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return err
	}

	return nil
}
