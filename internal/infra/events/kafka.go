package events

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"time"

	"checkout-engine/internal/pkg/config"
	"checkout-engine/internal/pkg/errs"
	"checkout-engine/internal/usecase/shared"

	"github.com/segmentio/kafka-go"
)

const (
	headerEventID   = "event_id"
	headerEventKind = "event_kind"
	headerAttempt   = "attempt"
)

// messageWriter is the part of *kafka.Writer the publisher needs.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher writes outbox events synchronously. Messages are keyed by
// aggregate id so events for one order land on one partition in order.
type KafkaPublisher struct {
	writer messageWriter
	topic  string
}

func NewKafkaPublisher(cfg config.KafkaConfig, logger *slog.Logger) *KafkaPublisher {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: 10 * time.Millisecond,
		RequiredAcks: kafka.RequireAll,
		Async:        false,
		MaxAttempts:  3,
		Transport: &kafka.Transport{
			Dial: func(ctx context.Context, network, address string) (net.Conn, error) {
				dialer := &kafka.Dialer{
					Timeout:   10 * time.Second,
					DualStack: true,
					KeepAlive: 30 * time.Second,
				}
				return dialer.DialContext(ctx, network, address)
			},
		},
		ErrorLogger: kafka.LoggerFunc(func(msg string, args ...interface{}) {
			logger.Error("kafka writer error", "detail", fmt.Sprintf(msg, args...))
		}),
	}
	return newKafkaPublisher(writer, cfg.Topic)
}

func newKafkaPublisher(writer messageWriter, topic string) *KafkaPublisher {
	return &KafkaPublisher{writer: writer, topic: topic}
}

func (p *KafkaPublisher) Publish(ctx context.Context, events []shared.OutboxEvent) error {
	if len(events) == 0 {
		return nil
	}
	msgs := make([]kafka.Message, len(events))
	for i, e := range events {
		msgs[i] = toMessage(e)
	}
	if err := p.writer.WriteMessages(ctx, msgs...); err != nil {
		return errs.Wrapf(err, "publish %d events to %s", len(events), p.topic)
	}
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

func toMessage(e shared.OutboxEvent) kafka.Message {
	return kafka.Message{
		Key:   []byte(e.AggregateID.String()),
		Value: e.Payload,
		Headers: []kafka.Header{
			{Key: headerEventID, Value: []byte(e.ID.String())},
			{Key: headerEventKind, Value: []byte(e.Kind)},
			{Key: headerAttempt, Value: []byte(strconv.Itoa(e.Attempts + 1))},
		},
	}
}
