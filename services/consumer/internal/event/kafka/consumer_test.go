package kafka

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/shestoi/orderpipe/platform/events"
)

// fakeReader отдаёт заранее заданные сообщения, затем io.EOF (как закрытый kafka.Reader)
type fakeReader struct {
	mu       sync.Mutex
	messages []kafka.Message
	fetchErr []error
	log      *[]string
	closed   bool
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.fetchErr) > 0 {
		err := r.fetchErr[0]
		r.fetchErr = r.fetchErr[1:]
		return kafka.Message{}, err
	}
	if len(r.messages) == 0 {
		return kafka.Message{}, io.EOF
	}
	m := r.messages[0]
	r.messages = r.messages[1:]
	return m, nil
}

func (r *fakeReader) CommitMessages(ctx context.Context, msgs ...kafka.Message) error {
	for _, m := range msgs {
		*r.log = append(*r.log, "commit "+string(m.Key))
	}
	return nil
}

func (r *fakeReader) Close() error {
	r.closed = true
	return nil
}

type handlerCall struct {
	msgType string
	body    string
}

type fakeHandler struct {
	calls []handlerCall
	log   *[]string
	err   error
}

func (h *fakeHandler) HandleMessage(ctx context.Context, msgType string, body []byte) error {
	h.calls = append(h.calls, handlerCall{msgType: msgType, body: string(body)})
	*h.log = append(*h.log, "handle "+msgType)
	return h.err
}

func message(key, msgType, body string) kafka.Message {
	m := kafka.Message{Topic: "order-events", Key: []byte(key), Value: []byte(body)}
	if msgType != "" {
		m.Headers = []kafka.Header{{Key: events.HeaderMsgType, Value: []byte(msgType)}}
	}
	return m
}

func TestOrderEventConsumer_CommitsBeforeProcessing(t *testing.T) {
	var log []string
	reader := &fakeReader{
		log: &log,
		messages: []kafka.Message{
			message("O-1", "OrderEvent", `{"id":"O-1"}`),
			message("O-1", "PaymentEvent", `{"orderId":"O-1"}`),
		},
	}
	handler := &fakeHandler{log: &log}

	c := NewOrderEventConsumer(zap.NewNop(), reader, handler, "order-events")
	require.NoError(t, c.Start(context.Background()))

	assert.Equal(t, []string{
		"commit O-1", "handle OrderEvent",
		"commit O-1", "handle PaymentEvent",
	}, log)
	assert.Equal(t, []handlerCall{
		{msgType: "OrderEvent", body: `{"id":"O-1"}`},
		{msgType: "PaymentEvent", body: `{"orderId":"O-1"}`},
	}, handler.calls)
}

func TestOrderEventConsumer_HandlerErrorDoesNotStopLoop(t *testing.T) {
	var log []string
	reader := &fakeReader{
		log: &log,
		messages: []kafka.Message{
			message("O-1", "OrderEvent", `{`),
			message("O-2", "OrderEvent", `{`),
		},
	}
	handler := &fakeHandler{log: &log, err: errors.New("decode failed")}

	c := NewOrderEventConsumer(zap.NewNop(), reader, handler, "order-events")
	require.NoError(t, c.Start(context.Background()))

	assert.Len(t, handler.calls, 2)
	assert.Contains(t, log, "commit O-2")
}

func TestOrderEventConsumer_MissingHeaderPassesEmptyType(t *testing.T) {
	var log []string
	reader := &fakeReader{log: &log, messages: []kafka.Message{message("k", "", `{}`)}}
	handler := &fakeHandler{log: &log}

	c := NewOrderEventConsumer(zap.NewNop(), reader, handler, "order-events")
	require.NoError(t, c.Start(context.Background()))

	require.Len(t, handler.calls, 1)
	assert.Equal(t, "", handler.calls[0].msgType)
}

func TestOrderEventConsumer_FetchErrorIsSkipped(t *testing.T) {
	var log []string
	reader := &fakeReader{
		log:      &log,
		fetchErr: []error{errors.New("rebalance in progress")},
		messages: []kafka.Message{message("O-1", "OrderEvent", `{}`)},
	}
	handler := &fakeHandler{log: &log}

	c := NewOrderEventConsumer(zap.NewNop(), reader, handler, "order-events")
	require.NoError(t, c.Start(context.Background()))

	assert.Len(t, handler.calls, 1)
}

func TestOrderEventConsumer_StopsOnContextCancel(t *testing.T) {
	var log []string
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	reader := &fakeReader{log: &log, fetchErr: []error{context.Canceled}}
	c := NewOrderEventConsumer(zap.NewNop(), reader, &fakeHandler{log: &log}, "order-events")
	require.NoError(t, c.Start(ctx))

	require.NoError(t, c.Close())
	assert.True(t, reader.closed)
}
