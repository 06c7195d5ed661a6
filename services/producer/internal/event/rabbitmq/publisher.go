package rabbitmq

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/shestoi/orderpipe/platform/events"
	platformobservability "github.com/shestoi/orderpipe/platform/observability"
)

// Channel часть amqp.Channel, которой пользуется publisher
type Channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// EventPublisher публикует события в durable очередь через default exchange.
// Publisher confirms не включены: отправка fire-and-forget.
type EventPublisher struct {
	logger *zap.Logger
	ch     Channel
	queue  string
}

// NewEventPublisher создаёт publisher поверх открытого канала
func NewEventPublisher(logger *zap.Logger, ch Channel, queue string) *EventPublisher {
	return &EventPublisher{
		logger: logger,
		ch:     ch,
		queue:  queue,
	}
}

// Publish отправляет событие с заголовком X-MsgType (байтами, как ждут существующие consumers)
func (p *EventPublisher) Publish(ctx context.Context, env events.Envelope) error {
	messageID := uuid.NewString()
	headers := amqp.Table{
		events.HeaderMsgType: []byte(env.Type),
	}

	ctx, span := platformobservability.StartPublishSpan(ctx, "producer", platformobservability.AMQPTableCarrier(headers), platformobservability.MessageInfo{
		System:      "rabbitmq",
		Destination: p.queue,
		MsgType:     string(env.Type),
		MessageID:   messageID,
	})

	err := p.ch.PublishWithContext(ctx,
		"",      // default exchange
		p.queue, // routing key = имя очереди
		false,   // mandatory
		false,   // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    messageID,
			Timestamp:    time.Now().UTC(),
			Headers:      headers,
			Body:         env.Body,
		},
	)
	platformobservability.EndSpan(span, err)

	if err != nil {
		return fmt.Errorf("publish to queue %q: %w", p.queue, err)
	}

	platformobservability.L(ctx, p.logger).Debug("event published",
		zap.String("queue", p.queue),
		zap.String("msg_type", string(env.Type)),
		zap.String("message_id", messageID),
	)
	return nil
}
