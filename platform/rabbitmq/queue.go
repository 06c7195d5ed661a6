package rabbitmq

import (
	"errors"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Dial открывает соединение и канал к брокеру
// При ошибке открытия канала соединение закрывается
func Dial(cfg Config) (*amqp.Connection, *amqp.Channel, error) {
	conn, err := amqp.Dial(cfg.URL())
	if err != nil {
		return nil, nil, fmt.Errorf("dial rabbitmq %s: %w", cfg.MaskedURL(), err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, nil, fmt.Errorf("open rabbitmq channel: %w", err)
	}

	return conn, ch, nil
}

// IsPermanent сообщает, что ошибка подключения не исправится повтором
// (неверные логин/пароль или несуществующий vhost)
func IsPermanent(err error) bool {
	return errors.Is(err, amqp.ErrCredentials) || errors.Is(err, amqp.ErrVhost)
}

// DeclareQueue объявляет durable очередь на default exchange.
// Объявление идемпотентно: повторный вызов с теми же параметрами ничего не меняет.
func DeclareQueue(ch *amqp.Channel, name string) (amqp.Queue, error) {
	q, err := ch.QueueDeclare(
		name,
		true,  // durable
		false, // autoDelete
		false, // exclusive
		false, // noWait
		nil,
	)
	if err != nil {
		return amqp.Queue{}, fmt.Errorf("declare queue %q: %w", name, err)
	}
	return q, nil
}
