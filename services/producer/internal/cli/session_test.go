package cli

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/shestoi/orderpipe/platform/events"
)

// MockPublisher реализует Publisher для тестов
type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(ctx context.Context, env events.Envelope) error {
	args := m.Called(ctx, env)
	return args.Error(0)
}

func runSession(t *testing.T, input string, publisher Publisher) string {
	t.Helper()
	var out bytes.Buffer
	s := NewSession(strings.NewReader(input), &out, publisher, zap.NewNop())
	require.NoError(t, s.Run(context.Background()))
	return out.String()
}

func TestSession_PublishesOrderAndPayment(t *testing.T) {
	publisher := new(MockPublisher)
	publisher.On("Publish", mock.Anything, events.Envelope{
		Type: events.TypeOrder,
		Key:  "O-1",
		Body: []byte(`{"id":"O-1","product":"Widget","total":10.00,"currency":"USD"}`),
	}).Return(nil).Once()
	publisher.On("Publish", mock.Anything, events.Envelope{
		Type: events.TypePayment,
		Key:  "O-1",
		Body: []byte(`{"orderId":"O-1","amount":10.00}`),
	}).Return(nil).Once()

	out := runSession(t, "-o\nO-1 Widget 10.00 USD\n-p\nO-1 10.00\nexit\n", publisher)

	assert.Equal(t, strings.Join([]string{
		"To send OrderEvent or PaymentEvent, type '-o' or '-p'. Type 'exit' or empty string to quit.",
		"Choose action...",
		"Enter OrderEvent data: <id> <product> <total> <currency>",
		`Sent OrderEvent: {"id":"O-1","product":"Widget","total":10.00,"currency":"USD"}`,
		"Choose action...",
		"Enter PaymentEvent data: <orderId> <amount>",
		`Sent PaymentEvent: {"orderId":"O-1","amount":10.00}`,
		"Choose action...",
		"Client program exited.",
		"",
	}, "\n"), out)
	publisher.AssertExpectations(t)
}

func TestSession_InvalidInputSendsNothing(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantOut string
	}{
		{name: "non-numeric total", input: "-o\nO-1 Widget ten USD\n\n", wantOut: "Invalid order format."},
		{name: "missing currency", input: "-o\nO-1 Widget 10\n\n", wantOut: "Invalid order format."},
		{name: "bad payment", input: "-p\nO-1\n\n", wantOut: "Invalid payment format."},
		{name: "negative payment", input: "-p\nO-1 -3\n\n", wantOut: "Invalid payment format."},
		{name: "unknown action", input: "-x\n\n", wantOut: "Invalid input. Please enter '-o', '-p', or 'exit'."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			publisher := new(MockPublisher)

			out := runSession(t, tt.input, publisher)

			assert.Contains(t, out, tt.wantOut)
			assert.True(t, strings.HasSuffix(out, "Client program exited.\n"))
			// Publish не должен вызываться
			publisher.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything)
		})
	}
}

func TestSession_ContinuesAfterInvalidInput(t *testing.T) {
	publisher := new(MockPublisher)
	publisher.On("Publish", mock.Anything, mock.MatchedBy(func(env events.Envelope) bool {
		return env.Type == events.TypeOrder && env.Key == "O-2"
	})).Return(nil).Once()

	out := runSession(t, "-o\nbroken\n-o\nO-2 Gadget 5 EUR\nEXIT\n", publisher)

	assert.Contains(t, out, "Invalid order format.")
	assert.Contains(t, out, "Sent OrderEvent:")
	publisher.AssertExpectations(t)
}

func TestSession_EndsOnEOF(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{name: "empty input", input: ""},
		{name: "eof after action", input: "-o\n"},
		{name: "eof after payment action", input: "-p"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			publisher := new(MockPublisher)
			out := runSession(t, tt.input, publisher)
			assert.True(t, strings.HasSuffix(out, "Client program exited.\n"))
			publisher.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything)
		})
	}
}

func TestSession_PublishErrorIsReported(t *testing.T) {
	publisher := new(MockPublisher)
	publisher.On("Publish", mock.Anything, mock.Anything).Return(errors.New("channel closed")).Once()

	out := runSession(t, "-p\nO-1 5\n\n", publisher)

	assert.Contains(t, out, "Failed to send PaymentEvent: channel closed")
	assert.NotContains(t, out, "Sent PaymentEvent")
	publisher.AssertExpectations(t)
}

func TestSession_StopsWhenContextCancelled(t *testing.T) {
	publisher := new(MockPublisher)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var out bytes.Buffer
	s := NewSession(strings.NewReader("-o\nO-1 Widget 10 USD\n"), &out, publisher, zap.NewNop())
	require.NoError(t, s.Run(ctx))

	assert.NotContains(t, out.String(), "Choose action...")
	publisher.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything)
}
