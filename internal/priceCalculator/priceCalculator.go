package priceCalculator

import (
	"fmt"
	"math"
	"time"

	"github.com/KotFed0t/price_alert_bot/internal/model"
	"github.com/KotFed0t/price_alert_bot/internal/service"
)

const (
	minHoldingDays = 30
	dayCountBasis  = 360.0
	daysInYear     = 365.0
	maxAnnualRate  = 10.0
)

// SellTarget is buyPrice grown at annualRate over daysHeld, never fewer than 30 days.
func SellTarget(buyPrice, annualRate float64, daysHeld int64) float64 {
	effectiveDays := max(daysHeld, minHoldingDays)
	return buyPrice * (1 + (annualRate/dayCountBasis)*float64(effectiveDays))
}

func BuyTarget(sellTarget, buyStep float64) float64 {
	return sellTarget * (1 - buyStep)
}

// ValidateSettings checks buy step in [0, 1) and annual rate in [0, 10].
func ValidateSettings(s model.ScanSettings) error {
	if math.IsNaN(s.BuyStep) || s.BuyStep < 0 || s.BuyStep >= 1 {
		return fmt.Errorf("%w: buy step %v must be in [0, 1)", service.ErrInvalidInput, s.BuyStep)
	}
	if math.IsNaN(s.AnnualReturnRate) || s.AnnualReturnRate < 0 || s.AnnualReturnRate > maxAnnualRate {
		return fmt.Errorf("%w: annual return rate %v must be in [0, %v]", service.ErrInvalidInput, s.AnnualReturnRate, maxAnnualRate)
	}
	return nil
}

func ValidatedSellTarget(buyPrice, annualRate float64, daysHeld int64) (float64, error) {
	if !(buyPrice > 0) {
		return 0, fmt.Errorf("%w: buy price %v must be positive", service.ErrInvalidInput, buyPrice)
	}
	if math.IsNaN(annualRate) || annualRate < 0 {
		return 0, fmt.Errorf("%w: annual return rate %v must not be negative", service.ErrInvalidInput, annualRate)
	}
	return SellTarget(buyPrice, annualRate, daysHeld), nil
}

func ValidatedBuyTarget(sellTarget, buyStep float64) (float64, error) {
	if math.IsNaN(buyStep) || buyStep < 0 || buyStep >= 1 {
		return 0, fmt.Errorf("%w: buy step %v must be in [0, 1)", service.ErrInvalidInput, buyStep)
	}
	return BuyTarget(sellTarget, buyStep), nil
}

// Thresholds computes both targets for one position at one instant.
func Thresholds(buyPrice float64, daysHeld int64, s model.ScanSettings) (model.TargetThresholds, error) {
	if err := ValidateSettings(s); err != nil {
		return model.TargetThresholds{}, err
	}

	sell, err := ValidatedSellTarget(buyPrice, s.AnnualReturnRate, daysHeld)
	if err != nil {
		return model.TargetThresholds{}, err
	}

	return model.TargetThresholds{SellTarget: sell, BuyTarget: BuyTarget(sell, s.BuyStep)}, nil
}

// Classify checks sell first: a price at or above the sell target is always Sell.
func Classify(price float64, t model.TargetThresholds) (model.AlertSignal, error) {
	if !(price > 0) || !(t.SellTarget > 0) || !(t.BuyTarget > 0) {
		return model.SignalNone, fmt.Errorf("%w: price %v, sell target %v, buy target %v must be positive",
			service.ErrInvalidInput, price, t.SellTarget, t.BuyTarget)
	}

	switch {
	case price >= t.SellTarget:
		return model.SignalSell, nil
	case price <= t.BuyTarget:
		return model.SignalBuy, nil
	default:
		return model.SignalNone, nil
	}
}

// DaysHeld counts whole days from buyTime to now. Negative for future purchases.
func DaysHeld(buyTime, now time.Time) int64 {
	return int64(now.Sub(buyTime) / (24 * time.Hour))
}

// ReturnRate is a fraction: 0.15 means 15%.
func ReturnRate(buyPrice, price float64) float64 {
	if !(buyPrice > 0) {
		return 0
	}
	return (price - buyPrice) / buyPrice
}

func ProfitAmount(buyPrice, price float64, quantity int) float64 {
	return (price - buyPrice) * float64(quantity)
}

func AnnualizedReturn(buyPrice, price float64, daysHeld int64) float64 {
	if daysHeld <= 0 {
		return 0
	}
	return ReturnRate(buyPrice, price) * daysInYear / float64(daysHeld)
}
