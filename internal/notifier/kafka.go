package notifier

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/KotFed0t/price_alert_bot/internal/model"
	"github.com/KotFed0t/price_alert_bot/utils"
	"github.com/segmentio/kafka-go"
)

type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Kafka publishes alerts as JSON keyed by security code.
type Kafka struct {
	writer MessageWriter
	now    func() time.Time
}

func NewKafka(brokers []string, topic string) *Kafka {
	return NewKafkaWithWriter(&kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		BatchTimeout: 50 * time.Millisecond,
	})
}

func NewKafkaWithWriter(writer MessageWriter) *Kafka {
	return &Kafka{writer: writer, now: time.Now}
}

func (k *Kafka) Name() string {
	return "kafka"
}

func (k *Kafka) Notify(ctx context.Context, ev model.AlertEvent) error {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Kafka.Notify"

	now := k.now()
	value, err := json.Marshal(newPayload(ev, now))
	if err != nil {
		return err
	}

	err = k.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(ev.Position.Code),
		Value: value,
		Time:  now,
	})
	if err != nil {
		return err
	}

	slog.Debug("alert published", slog.String("rqID", rqID), slog.String("op", op), slog.String("code", ev.Position.Code))

	return nil
}

func (k *Kafka) Close() error {
	return k.writer.Close()
}
