package events

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Amount денежная сумма.
// В JSON пишется числом с исходной точностью (10.00, а не "10" или "10.00"),
// читается и из числа, и из строки.
type Amount struct {
	decimal.Decimal
}

const (
	// MaxIntegerDigits цифр до запятой, MaxFractionDigits после
	MaxIntegerDigits  = 18
	MaxFractionDigits = 8
)

// ErrAmountOutOfRange сумма не помещается в денежный диапазон
var ErrAmountOutOfRange = errors.New("amount out of range")

// CheckRange проверяет, что сумма укладывается в MaxIntegerDigits и MaxFractionDigits.
// Считается по коэффициенту и экспоненте, без перевода в строку: 1e50000000 отсекается сразу.
func CheckRange(d decimal.Decimal) error {
	exp := int64(d.Exponent())
	fraction := int64(0)
	if exp < 0 {
		fraction = -exp
	}
	if fraction > MaxFractionDigits {
		return fmt.Errorf("%w: more than %d fractional digits", ErrAmountOutOfRange, MaxFractionDigits)
	}
	if d.IsZero() {
		return nil
	}
	if integer := int64(d.NumDigits()) + exp; integer > MaxIntegerDigits {
		return fmt.Errorf("%w: more than %d integer digits", ErrAmountOutOfRange, MaxIntegerDigits)
	}
	return nil
}

// NewAmount оборачивает decimal.Decimal
func NewAmount(d decimal.Decimal) Amount {
	return Amount{Decimal: d}
}

// ParseAmount разбирает сумму в инвариантной записи (точка как разделитель)
func ParseAmount(s string) (Amount, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Amount{}, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	if err := CheckRange(d); err != nil {
		return Amount{}, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	return Amount{Decimal: d}, nil
}

// MustAmount как ParseAmount, но паникует при ошибке. Для тестов и констант.
func MustAmount(s string) Amount {
	a, err := ParseAmount(s)
	if err != nil {
		panic(err)
	}
	return a
}

// String сохраняет количество знаков после запятой, с которым сумма была задана
func (a Amount) String() string {
	if exp := a.Exponent(); exp < 0 {
		return a.StringFixed(-exp)
	}
	return a.Decimal.String()
}

// MarshalJSON пишет сумму JSON-числом
func (a Amount) MarshalJSON() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalJSON принимает 10.5 и "10.5"
func (a *Amount) UnmarshalJSON(b []byte) error {
	var d decimal.Decimal
	if err := d.UnmarshalJSON(b); err != nil {
		return err
	}
	if err := CheckRange(d); err != nil {
		return err
	}
	a.Decimal = d
	return nil
}

// FormatMoney форматирует сумму минимум с двумя знаками после запятой: 10 -> "10.00", 1.005 -> "1.005"
func FormatMoney(d decimal.Decimal) string {
	places := int32(2)
	if exp := d.Exponent(); -exp > places {
		places = -exp
	}
	return d.StringFixed(places)
}
