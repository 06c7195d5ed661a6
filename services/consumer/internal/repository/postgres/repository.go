package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/shestoi/orderpipe/services/consumer/internal/repository"
)

// Repository реализует repository.Repository используя PostgreSQL
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository создаёт новый PostgreSQL репозиторий
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{
		pool: pool,
	}
}

// InsertOrder вставляет заказ; дубликат по id игнорируется через ON CONFLICT DO NOTHING
func (r *Repository) InsertOrder(ctx context.Context, order repository.Order) (bool, error) {
	tag, err := r.pool.Exec(ctx,
		`INSERT INTO orders (id, product, total, currency)
		 VALUES ($1, $2, $3::numeric, $4)
		 ON CONFLICT (id) DO NOTHING`,
		order.ID, order.Product, order.Total.String(), order.Currency)
	if err != nil {
		return false, fmt.Errorf("insert order %s: %w", order.ID, err)
	}
	return tag.RowsAffected() == 1, nil
}

// InsertPayment добавляет платёж
func (r *Repository) InsertPayment(ctx context.Context, payment repository.Payment) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO payments (order_id, amount) VALUES ($1, $2::numeric)`,
		payment.OrderID, payment.Amount.String())
	if err != nil {
		return fmt.Errorf("insert payment for order %s: %w", payment.OrderID, err)
	}
	return nil
}

// PaymentStatus сверяет сумму заказа с суммой платежей одним запросом.
// NUMERIC читаем как text, чтобы не терять точность при переводе в decimal.
func (r *Repository) PaymentStatus(ctx context.Context, orderID string) (repository.PaymentStatus, error) {
	var (
		status          repository.PaymentStatus
		totalStr, paidStr string
	)
	err := r.pool.QueryRow(ctx,
		`SELECT o.id, o.product, o.currency, o.total::text, COALESCE(SUM(p.amount), 0)::text
		 FROM orders o
		 LEFT JOIN payments p ON p.order_id = o.id
		 WHERE o.id = $1
		 GROUP BY o.id`,
		orderID).Scan(&status.OrderID, &status.Product, &status.Currency, &totalStr, &paidStr)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return repository.PaymentStatus{}, repository.ErrNotFound
		}
		return repository.PaymentStatus{}, fmt.Errorf("payment status for order %s: %w", orderID, err)
	}

	if status.Total, err = decimal.NewFromString(totalStr); err != nil {
		return repository.PaymentStatus{}, fmt.Errorf("parse total %q: %w", totalStr, err)
	}
	if status.Paid, err = decimal.NewFromString(paidStr); err != nil {
		return repository.PaymentStatus{}, fmt.Errorf("parse paid %q: %w", paidStr, err)
	}

	return status, nil
}

// Ping проверяет соединение с PostgreSQL
func (r *Repository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}
