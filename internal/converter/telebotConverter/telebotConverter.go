package telebotConverter

import (
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/KotFed0t/price_alert_bot/internal/model"
	"github.com/shopspring/decimal"
	tele "gopkg.in/telebot.v4"
)

// inline button identifiers
const (
	CallbackTargets = "targets"
	CallbackDelete  = "delete"
)

const dateLayout = "2006-01-02"

var ErrBadArgs = errors.New("bad command arguments")

func QuoteResponse(q model.Quote) string {
	var sb strings.Builder

	arrow := "▪️"
	switch {
	case q.Change() > 0:
		arrow = "🔺"
	case q.Change() < 0:
		arrow = "🔻"
	}

	sb.WriteString(fmt.Sprintf("📈 %s (%s)\n", q.Name, q.Code))
	sb.WriteString(fmt.Sprintf("%s ¥%.2f  %+.2f (%+.2f%%)\n", arrow, q.Price, q.Change(), q.ChangePercent()))
	sb.WriteString(fmt.Sprintf("   ▸ open: ¥%.2f, prev close: ¥%.2f\n", q.Open, q.PrevClose))
	sb.WriteString(fmt.Sprintf("   ▸ high: ¥%.2f, low: ¥%.2f\n", q.High, q.Low))
	sb.WriteString(fmt.Sprintf("   ▸ volume: %d\n", q.Volume))
	sb.WriteString(fmt.Sprintf("🕒 %s", q.Timestamp.Format("2006-01-02 15:04:05")))

	return sb.String()
}

func SecuritiesResponse(securities []model.Security) string {
	if len(securities) == 0 {
		return "Nothing found"
	}

	var sb strings.Builder
	sb.WriteString("🔎 Found:\n\n")
	for _, s := range securities {
		sb.WriteString(fmt.Sprintf("%s  %s [%s]\n", s.Code, s.Name, s.Market))
	}
	return sb.String()
}

// PositionsResponse lists positions with a row of inline buttons per position.
func PositionsResponse(positions []model.Position) (text string, markup *tele.ReplyMarkup) {
	markup = &tele.ReplyMarkup{}

	if len(positions) == 0 {
		return "No positions yet. Add one with /add CODE PRICE QTY [YYYY-MM-DD] [note]", markup
	}

	var sb strings.Builder
	sb.WriteString("📋 Positions:\n\n")

	rows := make([]tele.Row, 0, len(positions))
	for i, p := range positions {
		id := strconv.FormatInt(p.ID, 10)

		sb.WriteString(fmt.Sprintf("%d. #%d %s (%s)\n", i+1, p.ID, p.Name, p.Code))
		sb.WriteString(fmt.Sprintf("   ▸ bought: ¥%s x %d on %s\n", p.BuyPrice.StringFixed(2), p.Quantity, p.BuyTime.Format(dateLayout)))
		if p.Notes != "" {
			sb.WriteString(fmt.Sprintf("   ▸ %s\n", p.Notes))
		}

		rows = append(rows, markup.Row(
			markup.Data("🎯 #"+id, CallbackTargets, id),
			markup.Data("🗑 #"+id, CallbackDelete, id),
		))
	}

	markup.Inline(rows...)

	return sb.String(), markup
}

func TargetsResponse(p model.Position, ev model.Evaluation) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("🎯 #%d %s (%s)\n", p.ID, p.Name, p.Code))
	sb.WriteString(fmt.Sprintf("   ▸ buy price: ¥%s, held %d days\n", p.BuyPrice.StringFixed(2), ev.DaysHeld))
	sb.WriteString(fmt.Sprintf("   ▸ sell target: ¥%.2f\n", ev.SellTarget))
	sb.WriteString(fmt.Sprintf("   ▸ buy target: ¥%.2f\n", ev.BuyTarget))
	if ev.CurrentPrice != nil {
		sb.WriteString(fmt.Sprintf("   ▸ current price: ¥%.2f\n", *ev.CurrentPrice))
	} else {
		sb.WriteString("   ▸ current price: unavailable\n")
	}
	sb.WriteString(fmt.Sprintf("signal: %s", ev.Signal))

	return sb.String()
}

func ScanResponse(events []model.AlertEvent) string {
	if len(events) == 0 {
		return "✅ No alerts"
	}

	var sb strings.Builder
	for i, ev := range events {
		if i > 0 {
			sb.WriteString("\n\n")
		}
		sb.WriteString(ev.Title())
		sb.WriteString("\n")
		sb.WriteString(ev.Message)
	}
	return sb.String()
}

func AnalysisResponse(a model.PortfolioAnalysis) string {
	o := a.Overview
	var sb strings.Builder

	sb.WriteString("📊 Portfolio\n")
	sb.WriteString(fmt.Sprintf("💰 invested: ¥%s, value: ¥%s\n", o.TotalInvestment.StringFixed(2), o.TotalCurrentValue.StringFixed(2)))
	sb.WriteString(fmt.Sprintf(" - gain: ¥%s (%s%%)\n", o.TotalUnrealizedGain.StringFixed(2), o.TotalUnrealizedGainPercent.StringFixed(2)))
	sb.WriteString(fmt.Sprintf(" - positions: %d, securities: %d\n", o.TotalPositions, o.TotalSecurities))
	sb.WriteString(fmt.Sprintf(" - signals: %d sell, %d buy\n", o.SellSignals, o.BuySignals))
	sb.WriteString(fmt.Sprintf(" - mean return: %.2f%%, std dev: %.2f%%\n", o.MeanReturnRate*100, o.ReturnRateStdDev*100))

	if len(a.Summaries) > 0 {
		sb.WriteString("\n")
	}
	for _, s := range a.Summaries {
		sb.WriteString(fmt.Sprintf("%s (%s): %d @ ¥%s → ¥%s, %s%%\n",
			s.Name, s.Code, s.TotalQuantity, s.AveragePrice.StringFixed(2), s.CurrentPrice.StringFixed(2), s.UnrealizedGainPercent.StringFixed(2)))
	}

	return sb.String()
}

func SettingsResponse(settings map[string]string) string {
	keys := make([]string, 0, len(settings))
	for k := range settings {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	var sb strings.Builder
	sb.WriteString("⚙️ Settings:\n")
	for _, k := range keys {
		sb.WriteString(fmt.Sprintf("%s = %s\n", k, settings[k]))
	}
	return sb.String()
}

// PositionFromArgs parses "CODE PRICE QTY [YYYY-MM-DD] [note...]".
func PositionFromArgs(args []string) (model.Position, error) {
	if len(args) < 3 {
		return model.Position{}, ErrBadArgs
	}

	price, err := decimal.NewFromString(args[1])
	if err != nil {
		return model.Position{}, fmt.Errorf("%w: price %q", ErrBadArgs, args[1])
	}

	qty, err := strconv.Atoi(args[2])
	if err != nil {
		return model.Position{}, fmt.Errorf("%w: quantity %q", ErrBadArgs, args[2])
	}

	p := model.Position{Code: args[0], BuyPrice: price, Quantity: qty}

	rest := args[3:]
	if len(rest) > 0 {
		if buyTime, err := time.ParseInLocation(dateLayout, rest[0], time.Local); err == nil {
			p.BuyTime = buyTime
			rest = rest[1:]
		}
	}
	p.Notes = strings.Join(rest, " ")

	return p, nil
}

func ParseID(s string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimPrefix(s, "#"), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: id %q", ErrBadArgs, s)
	}
	return id, nil
}
