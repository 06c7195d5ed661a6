package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/shestoi/orderpipe/platform/events"
	platformobservability "github.com/shestoi/orderpipe/platform/observability"
	"github.com/shestoi/orderpipe/services/consumer/internal/repository"
)

// StatusReader источник сверки заказа
type StatusReader interface {
	PaymentStatus(ctx context.Context, orderID string) (repository.PaymentStatus, error)
}

// Handler содержит HTTP-обработчики admin API consumer
type Handler struct {
	statuses StatusReader
	logger   *zap.Logger
}

// NewHandler создаёт новый HTTP handler
func NewHandler(statuses StatusReader, logger *zap.Logger) *Handler {
	return &Handler{
		statuses: statuses,
		logger:   logger,
	}
}

// PaymentStatusResponse ответ GET /orders/{id}/payment-status
type PaymentStatusResponse struct {
	OrderID    string `json:"order_id"`
	Product    string `json:"product"`
	Currency   string `json:"currency"`
	Total      string `json:"total"`
	Paid       string `json:"paid"`
	PaidInFull bool   `json:"paid_in_full"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// GetPaymentStatus обрабатывает GET /orders/{id}/payment-status
func (h *Handler) GetPaymentStatus(w http.ResponseWriter, r *http.Request, orderID string) {
	ctx := r.Context()
	log := platformobservability.LoggerFromContext(ctx, h.logger)

	status, err := h.statuses.PaymentStatus(ctx, orderID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorResponse{Error: "order not found"})
			return
		}
		log.Error("Failed to load payment status", zap.String("order_id", orderID), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
		return
	}

	writeJSON(w, http.StatusOK, PaymentStatusResponse{
		OrderID:    status.OrderID,
		Product:    status.Product,
		Currency:   status.Currency,
		Total:      events.FormatMoney(status.Total),
		Paid:       events.FormatMoney(status.Paid),
		PaidInFull: status.PaidInFull(),
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
