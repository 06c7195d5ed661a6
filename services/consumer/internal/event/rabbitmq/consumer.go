package rabbitmq

import (
	"context"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/shestoi/orderpipe/platform/events"
	platformobservability "github.com/shestoi/orderpipe/platform/observability"
	"github.com/shestoi/orderpipe/services/consumer/internal/event"
)

// Channel часть amqp.Channel, которой пользуется consumer
type Channel interface {
	Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp.Table) (<-chan amqp.Delivery, error)
	Cancel(consumer string, noWait bool) error
}

const consumerTag = "order-event-processor"

// OrderEventConsumer читает события из durable очереди
type OrderEventConsumer struct {
	logger  *zap.Logger
	ch      Channel
	handler event.MessageHandler
	queue   string
}

// NewOrderEventConsumer создаёт consumer поверх открытого канала
func NewOrderEventConsumer(logger *zap.Logger, ch Channel, handler event.MessageHandler, queue string) *OrderEventConsumer {
	return &OrderEventConsumer{
		logger:  logger,
		ch:      ch,
		handler: handler,
		queue:   queue,
	}
}

// Start подписывается на очередь с autoAck: брокер считает сообщение доставленным
// в момент отправки, повторной доставки после ошибки обработки нет.
// Возвращается, когда отменён ctx или брокер закрыл канал доставок.
func (c *OrderEventConsumer) Start(ctx context.Context) error {
	deliveries, err := c.ch.Consume(
		c.queue,
		consumerTag,
		true,  // autoAck
		false, // exclusive
		false, // noLocal
		false, // noWait
		nil,
	)
	if err != nil {
		return fmt.Errorf("consume queue %q: %w", c.queue, err)
	}

	c.logger.Info("starting rabbitmq consumer", zap.String("queue", c.queue))

	for {
		select {
		case <-ctx.Done():
			c.logger.Info("consumer stopped")
			return nil
		case d, ok := <-deliveries:
			if !ok {
				c.logger.Info("delivery channel closed, consumer stopped")
				return nil
			}
			c.processDelivery(ctx, d)
		}
	}
}

func (c *OrderEventConsumer) processDelivery(ctx context.Context, d amqp.Delivery) {
	msgType := events.HeaderString(d.Headers[events.HeaderMsgType])

	headers := d.Headers
	if headers == nil {
		headers = amqp.Table{}
	}
	ctx, span := platformobservability.StartConsumeSpan(ctx, "consumer", platformobservability.AMQPTableCarrier(headers), platformobservability.MessageInfo{
		System:      "rabbitmq",
		Destination: c.queue,
		MsgType:     msgType,
		MessageID:   d.MessageId,
	})

	err := c.handler.HandleMessage(ctx, msgType, d.Body)
	platformobservability.EndSpan(span, err)

	if err != nil {
		platformobservability.L(ctx, c.logger).Error("failed to process message",
			zap.Error(err),
			zap.String("msg_type", msgType),
			zap.String("message_id", d.MessageId),
			zap.Uint64("delivery_tag", d.DeliveryTag),
		)
	}
}

// Close отменяет подписку; брокер закроет канал доставок и Start вернётся
func (c *OrderEventConsumer) Close() error {
	return c.ch.Cancel(consumerTag, false)
}
