// Package main публикует тестовые события через тот же publisher, что и интерактивный producer.
//
// Без аргументов отправляет заказ O-1 на 10.00 USD и платёж, который его полностью покрывает:
// consumer должен напечатать "Order O-1 PAID in full (10.00 / 10.00)".
//
// Аргументы задают свои события в формате диалога producer:
//
//	seed -o "O-2 Gadget 5.00 EUR" -p "O-2 2.50" -p "O-2 2.50"
package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/shestoi/orderpipe/platform/events"
	"github.com/shestoi/orderpipe/services/producer/internal/app"
	"github.com/shestoi/orderpipe/services/producer/internal/cli"
	"github.com/shestoi/orderpipe/services/producer/internal/config"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Fatalf("Failed to load .env: %v", err)
	}

	evs, err := parseArgs(os.Args[1:])
	if err != nil {
		log.Fatalf("Invalid arguments: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	application, err := app.Build(cfg)
	if err != nil {
		log.Fatalf("Failed to build app: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := application.Seed(ctx, evs); err != nil {
		log.Fatalf("Seed failed: %v", err)
	}
}

// parseArgs разбирает пары "-o <order>" и "-p <payment>"
func parseArgs(args []string) ([]events.Event, error) {
	if len(args) == 0 {
		return []events.Event{
			events.OrderEvent{ID: "O-1", Product: "Widget", Total: events.MustAmount("10.00"), Currency: "USD"},
			events.PaymentEvent{OrderID: "O-1", Amount: events.MustAmount("10.00")},
		}, nil
	}
	if len(args)%2 != 0 {
		return nil, fmt.Errorf("expected pairs of -o/-p and data, got %d arguments", len(args))
	}

	evs := make([]events.Event, 0, len(args)/2)
	for i := 0; i < len(args); i += 2 {
		switch args[i] {
		case "-o":
			ev, err := cli.ParseOrder(args[i+1])
			if err != nil {
				return nil, err
			}
			evs = append(evs, ev)
		case "-p":
			ev, err := cli.ParsePayment(args[i+1])
			if err != nil {
				return nil, err
			}
			evs = append(evs, ev)
		default:
			return nil, fmt.Errorf("unknown action %q (must be -o or -p)", args[i])
		}
	}
	return evs, nil
}
