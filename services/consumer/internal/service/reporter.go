package service

import (
	"context"
	"fmt"
	"io"
	"sync"

	"go.uber.org/zap"

	"github.com/shestoi/orderpipe/platform/events"
	platformobservability "github.com/shestoi/orderpipe/platform/observability"
	"github.com/shestoi/orderpipe/services/consumer/internal/repository"
)

// ConsoleReporter печатает строку подтверждения оплаты в out (stdout процесса)
type ConsoleReporter struct {
	mu     sync.Mutex
	out    io.Writer
	logger *zap.Logger
}

// NewConsoleReporter создаёт ConsoleReporter
func NewConsoleReporter(out io.Writer, logger *zap.Logger) *ConsoleReporter {
	return &ConsoleReporter{out: out, logger: logger}
}

// ReportPaid печатает "✅ Order O-1 PAID in full (10.00 / 10.00)"
func (r *ConsoleReporter) ReportPaid(ctx context.Context, status repository.PaymentStatus) {
	paid := events.FormatMoney(status.Paid)
	total := events.FormatMoney(status.Total)

	r.mu.Lock()
	_, err := fmt.Fprintf(r.out, "✅ Order %s PAID in full (%s / %s)\n", status.OrderID, paid, total)
	r.mu.Unlock()

	log := platformobservability.L(ctx, r.logger)
	if err != nil {
		log.Error("Failed to print payment confirmation", zap.String("order_id", status.OrderID), zap.Error(err))
		return
	}
	log.Info("Order paid in full",
		zap.String("order_id", status.OrderID),
		zap.String("paid", paid),
		zap.String("total", total),
		zap.String("currency", status.Currency))
}
