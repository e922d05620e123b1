package notifier

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/KotFed0t/price_alert_bot/internal/model"
	"github.com/KotFed0t/price_alert_bot/utils"
	tele "gopkg.in/telebot.v4"
)

type TeleSender interface {
	Send(to tele.Recipient, what interface{}, opts ...interface{}) (*tele.Message, error)
}

type SubscriberList interface {
	List(ctx context.Context) ([]int64, error)
}

// Telegram sends alerts to every subscribed chat.
type Telegram struct {
	sender      TeleSender
	subscribers SubscriberList
}

func NewTelegram(sender TeleSender, subscribers SubscriberList) *Telegram {
	return &Telegram{sender: sender, subscribers: subscribers}
}

func (t *Telegram) Name() string {
	return "telegram"
}

func (t *Telegram) Notify(ctx context.Context, ev model.AlertEvent) error {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Telegram.Notify"

	chatIDs, err := t.subscribers.List(ctx)
	if err != nil {
		return err
	}

	slog.Debug("sending alert", slog.String("rqID", rqID), slog.String("op", op), slog.Int("chats", len(chatIDs)))

	text := FormatText(ev)
	var errs []error
	for _, id := range chatIDs {
		if _, err = t.sender.Send(tele.ChatID(id), text); err != nil {
			errs = append(errs, fmt.Errorf("chat %d: %w", id, err))
		}
	}

	return errors.Join(errs...)
}
