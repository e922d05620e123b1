package priceAlertService

import (
	"context"
	"log/slog"

	"github.com/KotFed0t/price_alert_bot/internal/model"
	"github.com/KotFed0t/price_alert_bot/internal/portfolioScanner"
	"github.com/KotFed0t/price_alert_bot/internal/priceCalculator"
	"github.com/KotFed0t/price_alert_bot/utils"
	"github.com/shopspring/decimal"
	"gonum.org/v1/gonum/stat"
)

const percentPlaces = 2

var hundred = decimal.NewFromInt(100)

func (s *PriceAlertService) AnalyzePortfolio(ctx context.Context, settings model.ScanSettings) (model.PortfolioAnalysis, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "PriceAlertService.AnalyzePortfolio"

	slog.Debug("AnalyzePortfolio start", slog.String("rqID", rqID), slog.String("op", op))
	defer func() {
		slog.Debug("AnalyzePortfolio finished", slog.String("rqID", rqID), slog.String("op", op))
	}()

	positions, err := s.ListPositions(ctx)
	if err != nil {
		return model.PortfolioAnalysis{}, err
	}

	results, err := s.scanner.EvaluateAll(ctx, positions, settings)
	if err != nil {
		return model.PortfolioAnalysis{}, err
	}

	return BuildAnalysis(results), nil
}

// BuildAnalysis aggregates evaluated positions. Summaries keep the order in
// which codes first appear.
func BuildAnalysis(results []portfolioScanner.Result) model.PortfolioAnalysis {
	overview := model.PortfolioOverview{
		TotalInvestment:   decimal.Zero,
		TotalCurrentValue: decimal.Zero,
		TotalPositions:    len(results),
	}

	summaries := make([]model.SecuritySummary, 0)
	summaryIdx := make(map[string]int)
	investments := make(map[string]decimal.Decimal)
	performances := make([]model.PositionPerformance, 0, len(results))
	returnRates := make([]float64, 0, len(results))

	for _, r := range results {
		p := r.Position
		qty := decimal.NewFromInt(int64(p.Quantity))
		currentPrice := decimal.NewFromFloat(r.Quote.Price)
		investment := p.BuyPrice.Mul(qty)
		value := currentPrice.Mul(qty)

		overview.TotalInvestment = overview.TotalInvestment.Add(investment)
		overview.TotalCurrentValue = overview.TotalCurrentValue.Add(value)

		idx, ok := summaryIdx[p.Code]
		if !ok {
			idx = len(summaries)
			summaryIdx[p.Code] = idx
			summaries = append(summaries, model.SecuritySummary{
				Code:       p.Code,
				Name:       p.Name,
				TotalValue: decimal.Zero,
			})
		}
		summary := &summaries[idx]
		summary.TotalQuantity += p.Quantity
		summary.CurrentPrice = currentPrice
		summary.TotalValue = summary.TotalValue.Add(value)
		investments[p.Code] = investments[p.Code].Add(investment)

		switch r.Evaluation.Signal {
		case model.SignalSell:
			overview.SellSignals++
			summary.Signals = append(summary.Signals, model.PositionSignal{PositionID: p.ID, Signal: model.SignalSell, TargetPrice: r.Evaluation.SellTarget})
		case model.SignalBuy:
			overview.BuySignals++
			summary.Signals = append(summary.Signals, model.PositionSignal{PositionID: p.ID, Signal: model.SignalBuy, TargetPrice: r.Evaluation.BuyTarget})
		}

		buyPrice := p.BuyPrice.InexactFloat64()
		returnRate := priceCalculator.ReturnRate(buyPrice, r.Quote.Price)
		returnRates = append(returnRates, returnRate)

		performances = append(performances, model.PositionPerformance{
			Position:         p,
			Evaluation:       r.Evaluation,
			ReturnRate:       returnRate,
			ProfitAmount:     priceCalculator.ProfitAmount(buyPrice, r.Quote.Price, p.Quantity),
			AnnualizedReturn: priceCalculator.AnnualizedReturn(buyPrice, r.Quote.Price, r.Evaluation.DaysHeld),
		})
	}

	for i := range summaries {
		summary := &summaries[i]
		investment := investments[summary.Code]
		if summary.TotalQuantity > 0 {
			summary.AveragePrice = investment.Div(decimal.NewFromInt(int64(summary.TotalQuantity)))
		}
		summary.UnrealizedGain = summary.TotalValue.Sub(investment)
		summary.UnrealizedGainPercent = gainPercent(summary.UnrealizedGain, investment)
	}

	overview.TotalUnrealizedGain = overview.TotalCurrentValue.Sub(overview.TotalInvestment)
	overview.TotalUnrealizedGainPercent = gainPercent(overview.TotalUnrealizedGain, overview.TotalInvestment)
	overview.TotalSecurities = len(summaries)
	overview.MeanReturnRate, overview.ReturnRateStdDev = returnStats(returnRates)

	return model.PortfolioAnalysis{
		Overview:  overview,
		Summaries: summaries,
		Positions: performances,
	}
}

func gainPercent(gain, investment decimal.Decimal) decimal.Decimal {
	if investment.IsZero() {
		return decimal.Zero
	}
	return gain.Div(investment).Mul(hundred).Round(percentPlaces)
}

// returnStats is 0, 0 for no data; the deviation needs at least two points.
func returnStats(rates []float64) (mean, stdDev float64) {
	if len(rates) == 0 {
		return 0, 0
	}
	mean = stat.Mean(rates, nil)
	if len(rates) > 1 {
		stdDev = stat.StdDev(rates, nil)
	}
	return mean, stdDev
}
