// Package events описывает контракт сообщений между producer и consumer:
// JSON-тело плюс заголовок X-MsgType с типом payload.
package events

import (
	"errors"
	"fmt"
	"strings"
)

const (
	// HeaderMsgType заголовок сообщения с типом payload
	HeaderMsgType = "X-MsgType"
	// HeaderMessageID заголовок с уникальным идентификатором сообщения (Kafka; в AMQP есть свойство MessageId)
	HeaderMessageID = "X-Message-Id"
)

// MsgType тип payload, передаётся в заголовке X-MsgType
type MsgType string

const (
	TypeOrder   MsgType = "OrderEvent"
	TypePayment MsgType = "PaymentEvent"
)

// Event закрытое объединение {OrderEvent, PaymentEvent, UnknownEvent}.
// Обработчики разбирают его через type switch.
type Event interface {
	MsgType() MsgType
	// AggregateID идентификатор заказа, к которому относится событие
	AggregateID() string
	isEvent()
}

// OrderEvent заказ, созданный оператором в producer
type OrderEvent struct {
	ID       string `json:"id"`
	Product  string `json:"product"`
	Total    Amount `json:"total"`
	Currency string `json:"currency"`
}

func (OrderEvent) MsgType() MsgType      { return TypeOrder }
func (e OrderEvent) AggregateID() string { return e.ID }
func (OrderEvent) isEvent()              {}

// Validate проверяет обязательные поля и неотрицательность суммы
func (e OrderEvent) Validate() error {
	var errs []error
	if strings.TrimSpace(e.ID) == "" {
		errs = append(errs, errors.New("id is required"))
	}
	if strings.TrimSpace(e.Product) == "" {
		errs = append(errs, errors.New("product is required"))
	}
	if e.Total.IsNegative() {
		errs = append(errs, errors.New("total must not be negative"))
	}
	if err := CheckRange(e.Total.Decimal); err != nil {
		errs = append(errs, fmt.Errorf("total: %w", err))
	}
	if strings.TrimSpace(e.Currency) == "" {
		errs = append(errs, errors.New("currency is required"))
	}
	return errors.Join(errs...)
}

// PaymentEvent платёж по заказу. Заказ с OrderID может ещё не существовать.
type PaymentEvent struct {
	OrderID string `json:"orderId"`
	Amount  Amount `json:"amount"`
}

func (PaymentEvent) MsgType() MsgType      { return TypePayment }
func (e PaymentEvent) AggregateID() string { return e.OrderID }
func (PaymentEvent) isEvent()              {}

// Validate проверяет обязательные поля и неотрицательность суммы
func (e PaymentEvent) Validate() error {
	var errs []error
	if strings.TrimSpace(e.OrderID) == "" {
		errs = append(errs, errors.New("orderId is required"))
	}
	if e.Amount.IsNegative() {
		errs = append(errs, errors.New("amount must not be negative"))
	}
	if err := CheckRange(e.Amount.Decimal); err != nil {
		errs = append(errs, fmt.Errorf("amount: %w", err))
	}
	return errors.Join(errs...)
}

// UnknownEvent сообщение с неизвестным (или отсутствующим) X-MsgType
type UnknownEvent struct {
	Type string
	Body []byte
}

func (e UnknownEvent) MsgType() MsgType { return MsgType(e.Type) }
func (UnknownEvent) AggregateID() string { return "" }
func (UnknownEvent) isEvent()            {}
