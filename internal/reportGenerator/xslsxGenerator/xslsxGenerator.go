package xslsxGenerator

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"github.com/KotFed0t/price_alert_bot/internal/model"
	"github.com/KotFed0t/price_alert_bot/utils"
	"github.com/xuri/excelize/v2"
)

const (
	positionsSheet = "Positions"
	summarySheet   = "Summary"
	dateLayout     = "2006-01-02"
)

var positionHeaders = []string{
	"code", "name", "buy price", "quantity", "buy date", "days held",
	"sell target", "buy target", "current price", "signal", "return, %", "profit",
}

var summaryHeaders = []string{
	"code", "name", "quantity", "average price", "current price", "value", "gain", "gain, %", "signals",
}

type XSLSXGenerator struct{}

func New() *XSLSXGenerator {
	return &XSLSXGenerator{}
}

// Generate renders the analysis into a workbook with a positions sheet and a
// per-security summary sheet.
func (g *XSLSXGenerator) Generate(ctx context.Context, analysis model.PortfolioAnalysis) (fileBytes []byte, fileExtension string, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "XSLSXGenerator.Generate"

	slog.Debug("Generate start", slog.String("rqID", rqID), slog.String("op", op))

	f := excelize.NewFile()
	defer func() {
		if err := f.Close(); err != nil {
			slog.Error("got error while closing file", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		}
	}()

	if err = f.SetSheetName("Sheet1", positionsSheet); err != nil {
		return nil, "", err
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
		Font:      &excelize.Font{Bold: true, Size: 11},
		Fill:      excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#cfe2f3"}},
	})
	if err != nil {
		return nil, "", err
	}

	if err = g.fillPositions(f, analysis.Positions, headerStyle); err != nil {
		slog.Error("got error while filling positions", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return nil, "", err
	}

	if _, err = f.NewSheet(summarySheet); err != nil {
		return nil, "", err
	}

	if err = g.fillSummary(f, analysis, headerStyle); err != nil {
		slog.Error("got error while filling summary", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return nil, "", err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		slog.Error("got error while Saving file to bytes buffer", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return nil, "", err
	}

	slog.Debug("Generate completed", slog.String("rqID", rqID), slog.String("op", op))

	return buf.Bytes(), ".xlsx", nil
}

func writeHeader(f *excelize.File, sheet string, headers []string, styleID int) error {
	for i, h := range headers {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return err
		}
		if err = f.SetCellStr(sheet, cell, h); err != nil {
			return err
		}
	}

	last, err := excelize.CoordinatesToCellName(len(headers), 1)
	if err != nil {
		return err
	}

	return f.SetCellStyle(sheet, "A1", last, styleID)
}

func (g *XSLSXGenerator) fillPositions(f *excelize.File, positions []model.PositionPerformance, headerStyle int) error {
	if err := writeHeader(f, positionsSheet, positionHeaders, headerStyle); err != nil {
		return err
	}

	for i, perf := range positions {
		row := i + 2
		p := perf.Position
		ev := perf.Evaluation

		var currentPrice any = ""
		if ev.CurrentPrice != nil {
			currentPrice = *ev.CurrentPrice
		}

		values := []any{
			p.Code,
			p.Name,
			p.BuyPrice.InexactFloat64(),
			p.Quantity,
			p.BuyTime.Format(dateLayout),
			ev.DaysHeld,
			round2(ev.SellTarget),
			round2(ev.BuyTarget),
			currentPrice,
			ev.Signal.String(),
			round2(perf.ReturnRate * 100),
			round2(perf.ProfitAmount),
		}

		if err := f.SetSheetRow(positionsSheet, fmt.Sprintf("A%d", row), &values); err != nil {
			return err
		}
	}

	return nil
}

func (g *XSLSXGenerator) fillSummary(f *excelize.File, analysis model.PortfolioAnalysis, headerStyle int) error {
	if err := writeHeader(f, summarySheet, summaryHeaders, headerStyle); err != nil {
		return err
	}

	row := 2
	for _, s := range analysis.Summaries {
		values := []any{
			s.Code,
			s.Name,
			s.TotalQuantity,
			s.AveragePrice.Round(4).InexactFloat64(),
			s.CurrentPrice.InexactFloat64(),
			s.TotalValue.Round(2).InexactFloat64(),
			s.UnrealizedGain.Round(2).InexactFloat64(),
			s.UnrealizedGainPercent.InexactFloat64(),
			len(s.Signals),
		}
		if err := f.SetSheetRow(summarySheet, fmt.Sprintf("A%d", row), &values); err != nil {
			return err
		}
		row++
	}

	o := analysis.Overview
	row++
	totals := [][]any{
		{"total investment", o.TotalInvestment.Round(2).InexactFloat64()},
		{"current value", o.TotalCurrentValue.Round(2).InexactFloat64()},
		{"unrealized gain", o.TotalUnrealizedGain.Round(2).InexactFloat64()},
		{"unrealized gain, %", o.TotalUnrealizedGainPercent.InexactFloat64()},
		{"sell signals", o.SellSignals},
		{"buy signals", o.BuySignals},
		{"mean return, %", round2(o.MeanReturnRate * 100)},
		{"return std dev, %", round2(o.ReturnRateStdDev * 100)},
	}
	for _, t := range totals {
		if err := f.SetSheetRow(summarySheet, fmt.Sprintf("A%d", row), &t); err != nil {
			return err
		}
		row++
	}

	return nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
