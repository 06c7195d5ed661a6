package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/shestoi/orderpipe/platform/events"
	platformobservability "github.com/shestoi/orderpipe/platform/observability"
	"github.com/shestoi/orderpipe/services/consumer/internal/repository"
)

// Processor обрабатывает сообщения очереди: decode -> сохранение -> сверка -> уведомление.
// Вызывается из одной горутины транспорта, сообщения идут строго по очереди.
type Processor struct {
	logger   *zap.Logger
	repo     repository.Repository
	reporter PaidReporter
	recorder Recorder
}

// NewProcessor создаёт Processor. recorder может быть nil.
func NewProcessor(logger *zap.Logger, repo repository.Repository, reporter PaidReporter, recorder Recorder) *Processor {
	if recorder == nil {
		recorder = nopRecorder{}
	}
	return &Processor{
		logger:   logger,
		repo:     repo,
		reporter: reporter,
		recorder: recorder,
	}
}

// HandleMessage разбирает тело по значению X-MsgType и обрабатывает событие.
// Сообщение к этому моменту уже подтверждено брокеру; ошибка только логируется вызывающим.
func (p *Processor) HandleMessage(ctx context.Context, msgType string, body []byte) error {
	start := time.Now()

	outcome, err := p.handleMessage(ctx, msgType, body)
	if err != nil {
		outcome = OutcomeFailed
	}
	p.recorder.MessageHandled(typeLabel(msgType), string(outcome), time.Since(start))

	return err
}

// typeLabel сводит X-MsgType к конечному набору значений label.
// Заголовок приходит от клиента как есть и может быть любой строкой, в том числе не UTF-8.
func typeLabel(msgType string) string {
	switch events.MsgType(msgType) {
	case events.TypeOrder, events.TypePayment:
		return msgType
	case "":
		return TypeLabelNone
	default:
		return TypeLabelUnknown
	}
}

func (p *Processor) handleMessage(ctx context.Context, msgType string, body []byte) (Outcome, error) {
	ev, err := events.Decode(msgType, body)
	if err != nil {
		return OutcomeFailed, err
	}
	return p.handle(ctx, ev)
}

// Handle обрабатывает уже разобранное событие.
// Транспорт вызывает HandleMessage, Handle используют тесты с готовыми событиями.
func (p *Processor) Handle(ctx context.Context, ev events.Event) error {
	_, err := p.handle(ctx, ev)
	return err
}

func (p *Processor) handle(ctx context.Context, ev events.Event) (Outcome, error) {
	log := platformobservability.L(ctx, p.logger)

	switch e := ev.(type) {
	case events.OrderEvent:
		inserted, err := p.repo.InsertOrder(ctx, repository.Order{
			ID:       e.ID,
			Product:  e.Product,
			Total:    e.Total.Decimal,
			Currency: e.Currency,
		})
		if err != nil {
			return OutcomeFailed, err
		}

		outcome := OutcomeStored
		if inserted {
			log.Info("Order stored", zap.String("order_id", e.ID), zap.String("total", e.Total.String()), zap.String("currency", e.Currency))
		} else {
			outcome = OutcomeDuplicate
			log.Info("Duplicate order ignored", zap.String("order_id", e.ID))
		}

		// Сверяем и после дубликата: платежи могли прийти между двумя копиями заказа
		return outcome, p.reconcile(ctx, e.ID)

	case events.PaymentEvent:
		if err := p.repo.InsertPayment(ctx, repository.Payment{
			OrderID: e.OrderID,
			Amount:  e.Amount.Decimal,
		}); err != nil {
			return OutcomeFailed, err
		}
		log.Info("Payment stored", zap.String("order_id", e.OrderID), zap.String("amount", e.Amount.String()))

		return OutcomeStored, p.reconcile(ctx, e.OrderID)

	case events.UnknownEvent:
		log.Warn("Unknown message type, dropping", zap.String("msg_type", e.Type), zap.Int("body_size", len(e.Body)))
		return OutcomeDropped, nil

	default:
		return OutcomeFailed, fmt.Errorf("unsupported event %T", ev)
	}
}

// reconcile сверяет заказ с платежами и сообщает о полной оплате
func (p *Processor) reconcile(ctx context.Context, orderID string) error {
	status, err := p.repo.PaymentStatus(ctx, orderID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			// Платёж раньше заказа: сверка случится, когда придёт заказ
			platformobservability.L(ctx, p.logger).Debug("Order not stored yet, reconciliation deferred", zap.String("order_id", orderID))
			return nil
		}
		return fmt.Errorf("reconcile order %s: %w", orderID, err)
	}

	if !status.PaidInFull() {
		return nil
	}

	p.reporter.ReportPaid(ctx, status)
	p.recorder.OrderPaid()
	return nil
}
