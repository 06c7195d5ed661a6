package kafka

import (
	"context"
	"errors"
	"io"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/shestoi/orderpipe/platform/events"
	platformkafka "github.com/shestoi/orderpipe/platform/kafka"
	platformobservability "github.com/shestoi/orderpipe/platform/observability"
	"github.com/shestoi/orderpipe/services/consumer/internal/event"
)

// Reader часть kafka.Reader, которой пользуется consumer
type Reader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// NewReader создаёт kafka.Reader для топика в consumer group
func NewReader(cfg platformkafka.Config, topic string) *kafka.Reader {
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:     cfg.Brokers,
		GroupID:     cfg.GroupID,
		Topic:       topic,
		MinBytes:    1,
		MaxBytes:    10e6, // 10MB
		StartOffset: kafka.FirstOffset,
	})
}

// OrderEventConsumer читает события заказов и платежей из топика
type OrderEventConsumer struct {
	logger  *zap.Logger
	reader  Reader
	handler event.MessageHandler
	topic   string
}

// NewOrderEventConsumer создаёт consumer поверх reader
func NewOrderEventConsumer(logger *zap.Logger, reader Reader, handler event.MessageHandler, topic string) *OrderEventConsumer {
	return &OrderEventConsumer{
		logger:  logger,
		reader:  reader,
		handler: handler,
		topic:   topic,
	}
}

// Start читает сообщения, пока не отменён ctx или не закрыт reader.
// Семантика at-most-once: offset коммитится сразу после получения, до обработки.
func (c *OrderEventConsumer) Start(ctx context.Context) error {
	c.logger.Info("starting kafka consumer", zap.String("topic", c.topic))

	for {
		m, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, io.EOF) {
				c.logger.Info("consumer stopped")
				return nil
			}
			c.logger.Error("failed to fetch message from kafka", zap.Error(err))
			continue
		}

		if err := c.reader.CommitMessages(ctx, m); err != nil {
			c.logger.Error("failed to commit message offset",
				zap.Error(err),
				zap.Int("partition", m.Partition),
				zap.Int64("offset", m.Offset),
			)
		}

		c.processMessage(ctx, m)
	}
}

// processMessage передаёт сообщение в handler; ошибка логируется и сообщение считается обработанным
func (c *OrderEventConsumer) processMessage(ctx context.Context, m kafka.Message) {
	carrier := platformobservability.NewKafkaHeaderCarrier(&m.Headers)
	msgType := carrier.Get(events.HeaderMsgType)

	ctx, span := platformobservability.StartConsumeSpan(ctx, "consumer", carrier, platformobservability.MessageInfo{
		System:      "kafka",
		Destination: m.Topic,
		MsgType:     msgType,
		MessageID:   carrier.Get(events.HeaderMessageID),
	})

	err := c.handler.HandleMessage(ctx, msgType, m.Value)
	platformobservability.EndSpan(span, err)

	if err != nil {
		platformobservability.L(ctx, c.logger).Error("failed to process message",
			zap.Error(err),
			zap.String("msg_type", msgType),
			zap.String("key", string(m.Key)),
			zap.Int("partition", m.Partition),
			zap.Int64("offset", m.Offset),
		)
	}
}

// Close закрывает reader; Start после этого возвращает nil
func (c *OrderEventConsumer) Close() error {
	return c.reader.Close()
}
