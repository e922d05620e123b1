package notifier

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/KotFed0t/price_alert_bot/internal/metrics"
	"github.com/KotFed0t/price_alert_bot/internal/model"
	"github.com/KotFed0t/price_alert_bot/utils"
)

type Sink interface {
	Name() string
	Notify(ctx context.Context, ev model.AlertEvent) error
}

// Multi delivers every event to all sinks. One failing sink does not stop
// delivery to the others.
type Multi struct {
	sinks []Sink
}

func NewMulti(sinks ...Sink) *Multi {
	m := &Multi{sinks: make([]Sink, 0, len(sinks))}
	for _, s := range sinks {
		if s != nil {
			m.sinks = append(m.sinks, s)
		}
	}
	return m
}

func (m *Multi) Notify(ctx context.Context, ev model.AlertEvent) error {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Multi.Notify"

	var errs []error
	for _, s := range m.sinks {
		if err := s.Notify(ctx, ev); err != nil {
			metrics.NotificationFailures.WithLabelValues(s.Name()).Inc()
			slog.Warn("sink failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("sink", s.Name()), slog.String("err", err.Error()))
			errs = append(errs, fmt.Errorf("%s: %w", s.Name(), err))
		}
	}

	return errors.Join(errs...)
}

// alertPayload is the wire shape shared by the kafka and websocket sinks.
type alertPayload struct {
	Title string `json:"title"`
	model.AlertEvent
	SentAt time.Time `json:"sent_at"`
}

func newPayload(ev model.AlertEvent, now time.Time) alertPayload {
	return alertPayload{Title: ev.Title(), AlertEvent: ev, SentAt: now.UTC()}
}

func FormatText(ev model.AlertEvent) string {
	return ev.Title() + "\n" + ev.Message
}
