package service

import (
	"context"
	"time"

	"github.com/shestoi/orderpipe/services/consumer/internal/repository"
)

// Outcome итог обработки одного сообщения (label метрики)
type Outcome string

const (
	OutcomeStored    Outcome = "stored"
	OutcomeDuplicate Outcome = "duplicate"
	OutcomeDropped   Outcome = "dropped"
	OutcomeFailed    Outcome = "failed"
)

// Значения label type помимо OrderEvent и PaymentEvent
const (
	TypeLabelUnknown = "unknown"
	TypeLabelNone    = "none"
)

// PaidReporter получает сверку заказа, оплаченного полностью
type PaidReporter interface {
	ReportPaid(ctx context.Context, status repository.PaymentStatus)
}

// Recorder принимает метрики обработки.
// msgType всегда один из OrderEvent, PaymentEvent, unknown, none.
type Recorder interface {
	MessageHandled(msgType, outcome string, d time.Duration)
	OrderPaid()
}

type nopRecorder struct{}

func (nopRecorder) MessageHandled(string, string, time.Duration) {}
func (nopRecorder) OrderPaid()                                   {}
