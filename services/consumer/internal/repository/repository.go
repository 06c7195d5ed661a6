package repository

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
)

// Order заказ в хранилище
type Order struct {
	ID       string
	Product  string
	Total    decimal.Decimal
	Currency string
}

// Payment платёж по заказу. Хранилище не требует, чтобы заказ уже существовал.
type Payment struct {
	OrderID string
	Amount  decimal.Decimal
}

// PaymentStatus результат сверки заказа с суммой его платежей
type PaymentStatus struct {
	OrderID  string
	Product  string
	Currency string
	Total    decimal.Decimal
	Paid     decimal.Decimal
}

// PaidInFull заказ оплачен, когда сумма платежей не меньше суммы заказа
func (s PaymentStatus) PaidInFull() bool {
	return s.Paid.GreaterThanOrEqual(s.Total)
}

// Repository хранилище заказов и платежей
type Repository interface {
	// InsertOrder сохраняет заказ, если заказа с таким ID ещё нет.
	// inserted=false означает дубликат: строка в хранилище не изменилась.
	InsertOrder(ctx context.Context, order Order) (inserted bool, err error)

	// InsertPayment добавляет платёж (append-only)
	InsertPayment(ctx context.Context, payment Payment) error

	// PaymentStatus сверяет заказ с его платежами.
	// Возвращает ErrNotFound, если заказа нет (в том числе когда платежи пришли раньше заказа).
	PaymentStatus(ctx context.Context, orderID string) (PaymentStatus, error)

	// Ping проверка доступности хранилища для readiness
	Ping(ctx context.Context) error
}

// ErrNotFound возвращается, когда заказ не найден в хранилище
var ErrNotFound = errors.New("order not found")
