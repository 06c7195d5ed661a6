package observability

import (
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/segmentio/kafka-go"
)

// KafkaHeaderCarrier адаптирует заголовки kafka.Message к propagation.TextMapCarrier
type KafkaHeaderCarrier struct {
	headers *[]kafka.Header
}

// NewKafkaHeaderCarrier создаёт carrier поверх заголовков сообщения (Set меняет исходный slice)
func NewKafkaHeaderCarrier(headers *[]kafka.Header) KafkaHeaderCarrier {
	return KafkaHeaderCarrier{headers: headers}
}

// Get возвращает значение первого заголовка с ключом key
func (c KafkaHeaderCarrier) Get(key string) string {
	for _, h := range *c.headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}

// Set заменяет значение заголовка или добавляет новый
func (c KafkaHeaderCarrier) Set(key, value string) {
	for i, h := range *c.headers {
		if h.Key == key {
			(*c.headers)[i].Value = []byte(value)
			return
		}
	}
	*c.headers = append(*c.headers, kafka.Header{Key: key, Value: []byte(value)})
}

// Keys возвращает ключи всех заголовков
func (c KafkaHeaderCarrier) Keys() []string {
	out := make([]string, 0, len(*c.headers))
	for _, h := range *c.headers {
		out = append(out, h.Key)
	}
	return out
}

// AMQPTableCarrier адаптирует amqp.Table (headers сообщения RabbitMQ)
type AMQPTableCarrier amqp.Table

// Get возвращает значение заголовка; в таблице оно может лежать как string или []byte
func (c AMQPTableCarrier) Get(key string) string {
	switch v := c[key].(type) {
	case string:
		return v
	case []byte:
		return string(v)
	default:
		return ""
	}
}

// Set устанавливает пару key-value
func (c AMQPTableCarrier) Set(key, value string) {
	c[key] = value
}

// Keys возвращает все ключи таблицы
func (c AMQPTableCarrier) Keys() []string {
	out := make([]string, 0, len(c))
	for k := range c {
		out = append(out, k)
	}
	return out
}
