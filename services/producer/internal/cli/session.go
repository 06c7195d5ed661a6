package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"

	"github.com/shestoi/orderpipe/platform/events"
)

const (
	actionOrder   = "-o"
	actionPayment = "-p"
)

// Publisher отправляет событие в очередь без ожидания подтверждения
type Publisher interface {
	Publish(ctx context.Context, env events.Envelope) error
}

// Session интерактивный диалог оператора: выбор действия, ввод полей, публикация
type Session struct {
	in        *bufio.Scanner
	out       io.Writer
	publisher Publisher
	logger    *zap.Logger
}

// NewSession создаёт Session. Диалог идёт через in/out, логи через logger.
func NewSession(in io.Reader, out io.Writer, publisher Publisher, logger *zap.Logger) *Session {
	return &Session{
		in:        bufio.NewScanner(in),
		out:       out,
		publisher: publisher,
		logger:    logger,
	}
}

// Run читает команды до "exit", пустой строки или конца ввода
func (s *Session) Run(ctx context.Context) error {
	s.println("To send OrderEvent or PaymentEvent, type '-o' or '-p'. Type 'exit' or empty string to quit.")

loop:
	for ctx.Err() == nil {
		s.println("Choose action...")
		action, ok := s.readLine()
		if !ok || action == "" || strings.EqualFold(action, "exit") {
			break
		}

		var ev events.Event
		switch action {
		case actionOrder:
			s.println("Enter OrderEvent data: <id> <product> <total> <currency>")
			line, ok := s.readLine()
			if !ok {
				break loop
			}
			order, err := ParseOrder(line)
			if err != nil {
				s.logger.Debug("Rejected order input", zap.Error(err))
				s.println("Invalid order format.")
				continue
			}
			ev = order
		case actionPayment:
			s.println("Enter PaymentEvent data: <orderId> <amount>")
			line, ok := s.readLine()
			if !ok {
				break loop
			}
			payment, err := ParsePayment(line)
			if err != nil {
				s.logger.Debug("Rejected payment input", zap.Error(err))
				s.println("Invalid payment format.")
				continue
			}
			ev = payment
		default:
			s.println("Invalid input. Please enter '-o', '-p', or 'exit'.")
			continue
		}

		if err := s.send(ctx, ev); err != nil {
			s.logger.Error("Failed to publish event", zap.String("msg_type", string(ev.MsgType())), zap.Error(err))
			s.println(fmt.Sprintf("Failed to send %s: %v", ev.MsgType(), err))
		}
	}

	s.println("Client program exited.")

	if err := s.in.Err(); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("read input: %w", err)
	}
	return nil
}

func (s *Session) send(ctx context.Context, ev events.Event) error {
	env, err := events.Encode(ev)
	if err != nil {
		return err
	}
	if err := s.publisher.Publish(ctx, env); err != nil {
		return err
	}
	s.println(fmt.Sprintf("Sent %s: %s", env.Type, env.Body))
	return nil
}

// readLine возвращает следующую строку без пробелов по краям; false на конце ввода
func (s *Session) readLine() (string, bool) {
	if !s.in.Scan() {
		return "", false
	}
	return strings.TrimSpace(s.in.Text()), true
}

func (s *Session) println(line string) {
	fmt.Fprintln(s.out, line)
}
