package service

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/shestoi/orderpipe/platform/events"
	"github.com/shestoi/orderpipe/services/consumer/internal/metrics"
	"github.com/shestoi/orderpipe/services/consumer/internal/repository"
	"github.com/shestoi/orderpipe/services/consumer/internal/repository/memory"
)

// MockRepository реализует repository.Repository для тестов
type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) InsertOrder(ctx context.Context, order repository.Order) (bool, error) {
	args := m.Called(ctx, order)
	return args.Bool(0), args.Error(1)
}

func (m *MockRepository) InsertPayment(ctx context.Context, payment repository.Payment) error {
	args := m.Called(ctx, payment)
	return args.Error(0)
}

func (m *MockRepository) PaymentStatus(ctx context.Context, orderID string) (repository.PaymentStatus, error) {
	args := m.Called(ctx, orderID)
	return args.Get(0).(repository.PaymentStatus), args.Error(1)
}

func (m *MockRepository) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// MockRecorder реализует Recorder для тестов
type MockRecorder struct {
	mock.Mock
}

func (m *MockRecorder) MessageHandled(msgType, outcome string, d time.Duration) {
	m.Called(msgType, outcome)
}

func (m *MockRecorder) OrderPaid() {
	m.Called()
}

// recordingReporter запоминает все подтверждения оплаты
type recordingReporter struct {
	reports []repository.PaymentStatus
}

func (r *recordingReporter) ReportPaid(ctx context.Context, status repository.PaymentStatus) {
	r.reports = append(r.reports, status)
}

const (
	orderO1   = `{"id":"O-1","product":"Widget","total":10.00,"currency":"USD"}`
	payO1Full = `{"orderId":"O-1","amount":10.00}`
)

func newConsoleProcessor(t *testing.T) (*Processor, *memory.MemoryRepository, *bytes.Buffer) {
	t.Helper()
	repo := memory.NewMemoryRepository()
	var out bytes.Buffer
	p := NewProcessor(zap.NewNop(), repo, NewConsoleReporter(&out, zap.NewNop()), nil)
	return p, repo, &out
}

func TestProcessor_OrderThenPaymentPrintsConfirmation(t *testing.T) {
	ctx := context.Background()
	p, _, out := newConsoleProcessor(t)

	require.NoError(t, p.HandleMessage(ctx, "OrderEvent", []byte(orderO1)))
	assert.Empty(t, out.String())

	require.NoError(t, p.HandleMessage(ctx, "PaymentEvent", []byte(payO1Full)))
	assert.Equal(t, "✅ Order O-1 PAID in full (10.00 / 10.00)\n", out.String())
}

func TestProcessor_PartialPaymentsAccumulate(t *testing.T) {
	ctx := context.Background()
	p, _, out := newConsoleProcessor(t)

	require.NoError(t, p.HandleMessage(ctx, "OrderEvent", []byte(orderO1)))
	require.NoError(t, p.HandleMessage(ctx, "PaymentEvent", []byte(`{"orderId":"O-1","amount":4}`)))
	assert.Empty(t, out.String(), "4 of 10 is not paid")

	require.NoError(t, p.HandleMessage(ctx, "PaymentEvent", []byte(`{"orderId":"O-1","amount":7.5}`)))
	assert.Contains(t, out.String(), "Order O-1 PAID in full (11.50 / 10.00)")
}

func TestProcessor_DuplicateOrderStoredOnce(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewMemoryRepository()
	recorder := new(MockRecorder)
	p := NewProcessor(zap.NewNop(), repo, &recordingReporter{}, recorder)

	recorder.On("MessageHandled", "OrderEvent", "stored").Once()
	recorder.On("MessageHandled", "OrderEvent", "duplicate").Once()

	require.NoError(t, p.HandleMessage(ctx, "OrderEvent", []byte(orderO1)))
	require.NoError(t, p.HandleMessage(ctx, "OrderEvent", []byte(orderO1)))

	orders, _ := repo.Counts()
	assert.Equal(t, 1, orders)
	recorder.AssertExpectations(t)
}

func TestProcessor_DuplicateOrderStillReconciles(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewMemoryRepository()
	reporter := &recordingReporter{}
	p := NewProcessor(zap.NewNop(), repo, reporter, nil)

	require.NoError(t, p.HandleMessage(ctx, "OrderEvent", []byte(orderO1)))
	require.NoError(t, p.HandleMessage(ctx, "PaymentEvent", []byte(payO1Full)))
	require.NoError(t, p.HandleMessage(ctx, "OrderEvent", []byte(orderO1)))

	require.Len(t, reporter.reports, 2)
	assert.Equal(t, "O-1", reporter.reports[1].OrderID)
}

func TestProcessor_PaymentBeforeOrder(t *testing.T) {
	ctx := context.Background()
	p, repo, out := newConsoleProcessor(t)

	require.NoError(t, p.HandleMessage(ctx, "PaymentEvent", []byte(payO1Full)))
	assert.Empty(t, out.String())
	_, payments := repo.Counts()
	assert.Equal(t, 1, payments, "payment is stored even without its order")

	require.NoError(t, p.HandleMessage(ctx, "OrderEvent", []byte(orderO1)))
	assert.Equal(t, "✅ Order O-1 PAID in full (10.00 / 10.00)\n", out.String())
}

func TestProcessor_UnknownTypeDropped(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewMemoryRepository()
	recorder := new(MockRecorder)
	p := NewProcessor(zap.NewNop(), repo, &recordingReporter{}, recorder)

	recorder.On("MessageHandled", "unknown", "dropped").Once()
	recorder.On("MessageHandled", "none", "dropped").Once()

	require.NoError(t, p.HandleMessage(ctx, "RefundEvent", []byte(orderO1)))
	require.NoError(t, p.HandleMessage(ctx, "", []byte(orderO1)))

	orders, payments := repo.Counts()
	assert.Zero(t, orders)
	assert.Zero(t, payments)
	recorder.AssertExpectations(t)
}

func TestProcessor_ArbitraryTypeHeaderKeepsLabelsBounded(t *testing.T) {
	ctx := context.Background()
	reg := prometheus.NewRegistry()
	p := NewProcessor(zap.NewNop(), memory.NewMemoryRepository(), &recordingReporter{}, metrics.New(reg))

	headers := []string{"Order\xffEvent", "RefundEvent", "\x00", "OrderEvent "}
	for _, h := range headers {
		require.NotPanics(t, func() {
			require.NoError(t, p.HandleMessage(ctx, h, []byte("{}")))
		}, "header %q", h)
	}
	require.NoError(t, p.HandleMessage(ctx, "", []byte("{}")))

	expected := `
# HELP orderpipe_messages_total Messages received from the queue by type and outcome
# TYPE orderpipe_messages_total counter
orderpipe_messages_total{outcome="dropped",type="none"} 1
orderpipe_messages_total{outcome="dropped",type="unknown"} 4
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "orderpipe_messages_total"))
}

func TestTypeLabel(t *testing.T) {
	assert.Equal(t, "OrderEvent", typeLabel("OrderEvent"))
	assert.Equal(t, "PaymentEvent", typeLabel("PaymentEvent"))
	assert.Equal(t, TypeLabelUnknown, typeLabel("Payment\xffEvent"))
	assert.Equal(t, TypeLabelUnknown, typeLabel("orderevent"))
	assert.Equal(t, TypeLabelNone, typeLabel(""))
}

func TestProcessor_MalformedBodyDropped(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewMemoryRepository()
	recorder := new(MockRecorder)
	p := NewProcessor(zap.NewNop(), repo, &recordingReporter{}, recorder)

	recorder.On("MessageHandled", "OrderEvent", "failed").Once()
	recorder.On("MessageHandled", "PaymentEvent", "failed").Once()

	err := p.HandleMessage(ctx, "OrderEvent", []byte(`{"id":"O-1","total":"abc"}`))
	var decErr *events.DecodeError
	require.ErrorAs(t, err, &decErr)

	err = p.HandleMessage(ctx, "PaymentEvent", []byte(`{"orderId":"O-1","amount":-1}`))
	require.ErrorAs(t, err, &decErr)

	orders, payments := repo.Counts()
	assert.Zero(t, orders)
	assert.Zero(t, payments)
	recorder.AssertExpectations(t)
}

func TestProcessor_RepositoryErrors(t *testing.T) {
	ctx := context.Background()
	dbErr := errors.New("connection reset")

	t.Run("insert order fails", func(t *testing.T) {
		repo := new(MockRepository)
		reporter := &recordingReporter{}
		recorder := new(MockRecorder)
		p := NewProcessor(zap.NewNop(), repo, reporter, recorder)

		repo.On("InsertOrder", ctx, mock.MatchedBy(func(o repository.Order) bool {
			return o.ID == "O-1" && o.Total.Equal(decimal.NewFromInt(10))
		})).Return(false, dbErr).Once()
		recorder.On("MessageHandled", "OrderEvent", "failed").Once()

		err := p.HandleMessage(ctx, "OrderEvent", []byte(orderO1))
		require.ErrorIs(t, err, dbErr)
		assert.Empty(t, reporter.reports)

		// PaymentStatus не должен вызываться
		repo.AssertExpectations(t)
		recorder.AssertExpectations(t)
	})

	t.Run("reconciliation fails", func(t *testing.T) {
		repo := new(MockRepository)
		recorder := new(MockRecorder)
		p := NewProcessor(zap.NewNop(), repo, &recordingReporter{}, recorder)

		repo.On("InsertPayment", ctx, mock.Anything).Return(nil).Once()
		repo.On("PaymentStatus", ctx, "O-1").Return(repository.PaymentStatus{}, dbErr).Once()
		recorder.On("MessageHandled", "PaymentEvent", "failed").Once()

		err := p.HandleMessage(ctx, "PaymentEvent", []byte(payO1Full))
		require.ErrorIs(t, err, dbErr)

		repo.AssertExpectations(t)
		recorder.AssertExpectations(t)
	})
}

func TestProcessor_PaidRecordsMetric(t *testing.T) {
	ctx := context.Background()
	repo := new(MockRepository)
	recorder := new(MockRecorder)
	reporter := &recordingReporter{}
	p := NewProcessor(zap.NewNop(), repo, reporter, recorder)

	status := repository.PaymentStatus{OrderID: "O-1", Total: decimal.NewFromInt(10), Paid: decimal.NewFromInt(10)}
	repo.On("InsertPayment", ctx, mock.MatchedBy(func(pm repository.Payment) bool {
		return pm.OrderID == "O-1" && pm.Amount.Equal(decimal.NewFromInt(10))
	})).Return(nil).Once()
	repo.On("PaymentStatus", ctx, "O-1").Return(status, nil).Once()
	recorder.On("OrderPaid").Once()
	recorder.On("MessageHandled", "PaymentEvent", "stored").Once()

	require.NoError(t, p.HandleMessage(ctx, "PaymentEvent", []byte(payO1Full)))
	require.Equal(t, []repository.PaymentStatus{status}, reporter.reports)

	repo.AssertExpectations(t)
	recorder.AssertExpectations(t)
}

func TestProcessor_HandleDecodedEvent(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewMemoryRepository()
	reporter := &recordingReporter{}
	p := NewProcessor(zap.NewNop(), repo, reporter, nil)

	require.NoError(t, p.Handle(ctx, events.OrderEvent{ID: "O-9", Product: "Gizmo", Total: events.MustAmount("0"), Currency: "USD"}))

	// Заказ на ноль оплачен сразу
	require.Len(t, reporter.reports, 1)
	assert.Equal(t, "O-9", reporter.reports[0].OrderID)
}
