package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics счётчики обработки сообщений consumer
type Metrics struct {
	messages   *prometheus.CounterVec
	ordersPaid prometheus.Counter
	duration   *prometheus.HistogramVec
}

// New регистрирует метрики в reg. В тестах передаётся prometheus.NewRegistry().
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		messages: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "orderpipe_messages_total",
			Help: "Messages received from the queue by type and outcome",
		}, []string{"type", "outcome"}),
		ordersPaid: factory.NewCounter(prometheus.CounterOpts{
			Name: "orderpipe_orders_paid_total",
			Help: "Paid-in-full confirmations reported",
		}),
		duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "orderpipe_message_processing_seconds",
			Help:    "Time taken to decode, store and reconcile a message",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2},
		}, []string{"type"}),
	}
}

// MessageHandled учитывает одно сообщение
func (m *Metrics) MessageHandled(msgType, outcome string, d time.Duration) {
	if msgType == "" {
		msgType = "none"
	}
	m.messages.WithLabelValues(msgType, outcome).Inc()
	m.duration.WithLabelValues(msgType).Observe(d.Seconds())
}

// OrderPaid учитывает подтверждение полной оплаты
func (m *Metrics) OrderPaid() {
	m.ordersPaid.Inc()
}
