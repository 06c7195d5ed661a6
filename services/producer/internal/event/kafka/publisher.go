package kafka

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/shestoi/orderpipe/platform/events"
	platformkafka "github.com/shestoi/orderpipe/platform/kafka"
	platformobservability "github.com/shestoi/orderpipe/platform/observability"
)

// Writer часть kafka.Writer, которой пользуется publisher
type Writer interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// NewWriter создаёт async kafka.Writer: WriteMessages не ждёт подтверждения брокера,
// ошибки доставки приходят в Completion и только логируются
func NewWriter(cfg platformkafka.Config, topic string, logger *zap.Logger) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{}, // один заказ - одна партиция
		RequiredAcks: kafka.RequireOne,
		BatchTimeout: 10 * time.Millisecond,
		Async:        true,
		Completion: func(messages []kafka.Message, err error) {
			if err != nil {
				logger.Error("failed to deliver messages to kafka",
					zap.Error(err),
					zap.String("topic", topic),
					zap.Int("count", len(messages)),
				)
			}
		},
	}
}

// EventPublisher публикует события заказов и платежей в топик
type EventPublisher struct {
	logger *zap.Logger
	writer Writer
	topic  string
}

// NewEventPublisher создаёт publisher поверх writer
func NewEventPublisher(logger *zap.Logger, writer Writer, topic string) *EventPublisher {
	return &EventPublisher{
		logger: logger,
		writer: writer,
		topic:  topic,
	}
}

// Publish отправляет событие; ключ сообщения - идентификатор заказа
func (p *EventPublisher) Publish(ctx context.Context, env events.Envelope) error {
	messageID := uuid.NewString()
	headers := []kafka.Header{
		{Key: events.HeaderMsgType, Value: []byte(env.Type)},
		{Key: events.HeaderMessageID, Value: []byte(messageID)},
	}

	ctx, span := platformobservability.StartPublishSpan(ctx, "producer", platformobservability.NewKafkaHeaderCarrier(&headers), platformobservability.MessageInfo{
		System:      "kafka",
		Destination: p.topic,
		MsgType:     string(env.Type),
		MessageID:   messageID,
	})

	err := p.writer.WriteMessages(ctx, kafka.Message{
		Key:     []byte(env.Key),
		Value:   env.Body,
		Headers: headers,
	})
	platformobservability.EndSpan(span, err)

	if err != nil {
		return err
	}

	platformobservability.L(ctx, p.logger).Debug("event published",
		zap.String("topic", p.topic),
		zap.String("msg_type", string(env.Type)),
		zap.String("key", env.Key),
		zap.String("message_id", messageID),
	)
	return nil
}

// Close дожидается отправки буфера и закрывает writer
func (p *EventPublisher) Close() error {
	return p.writer.Close()
}
