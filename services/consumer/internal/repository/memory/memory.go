package memory

import (
	"context"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/shestoi/orderpipe/services/consumer/internal/repository"
)

// MemoryRepository реализует repository.Repository используя in-memory хранилище
// Тестовая реализация с той же семантикой, что у postgres: тесты service и api/http идут без базы
type MemoryRepository struct {
	mu       sync.RWMutex
	orders   map[string]repository.Order
	payments map[string][]decimal.Decimal
}

// NewMemoryRepository создаёт новый in-memory репозиторий
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		orders:   make(map[string]repository.Order),
		payments: make(map[string][]decimal.Decimal),
	}
}

// InsertOrder сохраняет заказ, первый записанный заказ с данным ID не перезаписывается
func (r *MemoryRepository) InsertOrder(ctx context.Context, order repository.Order) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.orders[order.ID]; exists {
		return false, nil
	}
	r.orders[order.ID] = order
	return true, nil
}

// InsertPayment добавляет платёж
func (r *MemoryRepository) InsertPayment(ctx context.Context, payment repository.Payment) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.payments[payment.OrderID] = append(r.payments[payment.OrderID], payment.Amount)
	return nil
}

// PaymentStatus суммирует платежи заказа
func (r *MemoryRepository) PaymentStatus(ctx context.Context, orderID string) (repository.PaymentStatus, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	order, exists := r.orders[orderID]
	if !exists {
		return repository.PaymentStatus{}, repository.ErrNotFound
	}

	paid := decimal.Zero
	for _, amount := range r.payments[orderID] {
		paid = paid.Add(amount)
	}

	return repository.PaymentStatus{
		OrderID:  order.ID,
		Product:  order.Product,
		Currency: order.Currency,
		Total:    order.Total,
		Paid:     paid,
	}, nil
}

// Ping всегда успешен
func (r *MemoryRepository) Ping(ctx context.Context) error {
	return nil
}

// Counts возвращает число заказов и платежей. Нужен тестам.
func (r *MemoryRepository) Counts() (orders, payments int) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, p := range r.payments {
		payments += len(p)
	}
	return len(r.orders), payments
}
