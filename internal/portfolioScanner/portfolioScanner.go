package portfolioScanner

import (
	"context"
	"log/slog"
	"time"

	"github.com/KotFed0t/price_alert_bot/internal/metrics"
	"github.com/KotFed0t/price_alert_bot/internal/model"
	"github.com/KotFed0t/price_alert_bot/internal/priceCalculator"
	"github.com/KotFed0t/price_alert_bot/utils"
	"golang.org/x/sync/errgroup"
)

const defaultConcurrency = 8

type QuoteSource interface {
	Fetch(ctx context.Context, code string) model.Quote
}

// Result is one evaluated position.
type Result struct {
	Position   model.Position
	Quote      model.Quote
	Evaluation model.Evaluation
}

type Scanner struct {
	quotes      QuoteSource
	concurrency int
	now         func() time.Time
}

func New(quotes QuoteSource, concurrency int) *Scanner {
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}
	return &Scanner{quotes: quotes, concurrency: concurrency, now: time.Now}
}

// EvaluateAll evaluates positions concurrently and returns the results in
// input order. Positions that can't be evaluated are left out; a cancelled ctx
// yields the results finished so far.
func (s *Scanner) EvaluateAll(ctx context.Context, positions []model.Position, settings model.ScanSettings) ([]Result, error) {
	if err := priceCalculator.ValidateSettings(settings); err != nil {
		return nil, err
	}

	results := make([]*Result, len(positions))
	now := s.now()

	g := new(errgroup.Group)
	g.SetLimit(s.concurrency)

	for i, p := range positions {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			results[i] = s.evaluate(ctx, p, settings, now)
			return nil
		})
	}

	_ = g.Wait()

	res := make([]Result, 0, len(positions))
	for _, r := range results {
		if r != nil {
			res = append(res, *r)
		}
	}

	return res, nil
}

func (s *Scanner) evaluate(ctx context.Context, p model.Position, settings model.ScanSettings, now time.Time) *Result {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Scanner.evaluate"

	if ctx.Err() != nil {
		return nil
	}

	daysHeld := priceCalculator.DaysHeld(p.BuyTime, now)

	thresholds, err := priceCalculator.Thresholds(p.BuyPrice.InexactFloat64(), daysHeld, settings)
	if err != nil {
		slog.Warn("skip position", slog.String("rqID", rqID), slog.String("op", op), slog.Int64("positionID", p.ID), slog.String("err", err.Error()))
		return nil
	}

	quote := s.quotes.Fetch(ctx, p.Code)
	if ctx.Err() != nil {
		return nil
	}

	if !(quote.Price > 0) {
		slog.Warn("skip position without price", slog.String("rqID", rqID), slog.String("op", op), slog.Int64("positionID", p.ID), slog.String("code", p.Code))
		return nil
	}

	signal, err := priceCalculator.Classify(quote.Price, thresholds)
	if err != nil {
		slog.Warn("skip position", slog.String("rqID", rqID), slog.String("op", op), slog.Int64("positionID", p.ID), slog.String("err", err.Error()))
		return nil
	}

	price := quote.Price

	return &Result{
		Position: p,
		Quote:    quote,
		Evaluation: model.Evaluation{
			TargetThresholds: thresholds,
			DaysHeld:         daysHeld,
			CurrentPrice:     &price,
			Signal:           signal,
		},
	}
}

// Scan returns an alert for every position whose price crossed a target.
func (s *Scanner) Scan(ctx context.Context, positions []model.Position, settings model.ScanSettings) ([]model.AlertEvent, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Scanner.Scan"

	slog.Debug("Scan start", slog.String("rqID", rqID), slog.String("op", op), slog.Int("positions", len(positions)))

	start := time.Now()
	defer func() { metrics.ScanDuration.Observe(time.Since(start).Seconds()) }()

	results, err := s.EvaluateAll(ctx, positions, settings)
	if err != nil {
		return nil, err
	}

	events := make([]model.AlertEvent, 0)
	for _, r := range results {
		ev, ok := AlertFor(r)
		if !ok {
			continue
		}
		metrics.Alerts.WithLabelValues(ev.Signal.String()).Inc()
		events = append(events, ev)
	}

	slog.Debug("Scan finished", slog.String("rqID", rqID), slog.String("op", op), slog.Int("alerts", len(events)))

	return events, nil
}

// AlertFor builds the alert event for r, ok is false when no target was crossed.
func AlertFor(r Result) (model.AlertEvent, bool) {
	var target float64
	switch r.Evaluation.Signal {
	case model.SignalSell:
		target = r.Evaluation.SellTarget
	case model.SignalBuy:
		target = r.Evaluation.BuyTarget
	default:
		return model.AlertEvent{}, false
	}

	return model.AlertEvent{
		Position: r.Position,
		Signal:   r.Evaluation.Signal,
		Target:   target,
		Price:    r.Quote.Price,
		Message:  model.AlertMessage(r.Position, r.Evaluation.Signal, target, r.Quote.Price),
	}, true
}
