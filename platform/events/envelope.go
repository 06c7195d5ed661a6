package events

import (
	"encoding/json"
	"fmt"
)

// Envelope сериализованное событие, готовое к публикации
type Envelope struct {
	Type MsgType
	// Key идентификатор заказа: ключ партиционирования в Kafka
	Key  string
	Body []byte
}

// DecodeError ошибка разбора тела сообщения известного типа
type DecodeError struct {
	Type MsgType
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s: %v", e.Type, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// Encode сериализует событие в JSON. UnknownEvent не публикуется.
func Encode(ev Event) (Envelope, error) {
	switch ev.(type) {
	case OrderEvent, PaymentEvent:
	default:
		return Envelope{}, fmt.Errorf("cannot encode event of type %q", ev.MsgType())
	}

	body, err := json.Marshal(ev)
	if err != nil {
		return Envelope{}, fmt.Errorf("marshal %s: %w", ev.MsgType(), err)
	}

	return Envelope{
		Type: ev.MsgType(),
		Key:  ev.AggregateID(),
		Body: body,
	}, nil
}

// Decode выбирает вариант по значению X-MsgType и разбирает тело.
// Неизвестный тип не ошибка: возвращается UnknownEvent, решение за обработчиком.
func Decode(msgType string, body []byte) (Event, error) {
	switch MsgType(msgType) {
	case TypeOrder:
		var ev OrderEvent
		if err := json.Unmarshal(body, &ev); err != nil {
			return nil, &DecodeError{Type: TypeOrder, Err: err}
		}
		if err := ev.Validate(); err != nil {
			return nil, &DecodeError{Type: TypeOrder, Err: err}
		}
		return ev, nil
	case TypePayment:
		var ev PaymentEvent
		if err := json.Unmarshal(body, &ev); err != nil {
			return nil, &DecodeError{Type: TypePayment, Err: err}
		}
		if err := ev.Validate(); err != nil {
			return nil, &DecodeError{Type: TypePayment, Err: err}
		}
		return ev, nil
	default:
		return UnknownEvent{Type: msgType, Body: body}, nil
	}
}

// HeaderString приводит значение заголовка к строке.
// RabbitMQ клиенты кладут X-MsgType и как byte[], и как string.
func HeaderString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case []byte:
		return string(t)
	default:
		return ""
	}
}
