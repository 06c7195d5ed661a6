package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shestoi/orderpipe/platform/events"
)

var (
	// ErrInvalidOrder строка не разбирается как "<id> <product> <total> <currency>"
	ErrInvalidOrder = errors.New("invalid order format")
	// ErrInvalidPayment строка не разбирается как "<orderId> <amount>"
	ErrInvalidPayment = errors.New("invalid payment format")
)

// ParseOrder разбирает "<id> <product> <total> <currency>".
// Поля разделяются любым количеством пробелов, сумма в записи с точкой.
func ParseOrder(line string) (events.OrderEvent, error) {
	fields := strings.Fields(line)
	if len(fields) != 4 {
		return events.OrderEvent{}, fmt.Errorf("%w: expected 4 fields, got %d", ErrInvalidOrder, len(fields))
	}

	total, err := parseMoney(fields[2])
	if err != nil {
		return events.OrderEvent{}, fmt.Errorf("%w: total: %v", ErrInvalidOrder, err)
	}

	return events.OrderEvent{
		ID:       fields[0],
		Product:  fields[1],
		Total:    total,
		Currency: fields[3],
	}, nil
}

// ParsePayment разбирает "<orderId> <amount>"
func ParsePayment(line string) (events.PaymentEvent, error) {
	fields := strings.Fields(line)
	if len(fields) != 2 {
		return events.PaymentEvent{}, fmt.Errorf("%w: expected 2 fields, got %d", ErrInvalidPayment, len(fields))
	}

	amount, err := parseMoney(fields[1])
	if err != nil {
		return events.PaymentEvent{}, fmt.Errorf("%w: amount: %v", ErrInvalidPayment, err)
	}

	return events.PaymentEvent{
		OrderID: fields[0],
		Amount:  amount,
	}, nil
}

func parseMoney(s string) (events.Amount, error) {
	a, err := events.ParseAmount(s)
	if err != nil {
		return events.Amount{}, err
	}
	if a.IsNegative() {
		return events.Amount{}, fmt.Errorf("%s is negative", s)
	}
	return a, nil
}
