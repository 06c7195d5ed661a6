package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/shestoi/orderpipe/platform/events"
	platformkafka "github.com/shestoi/orderpipe/platform/kafka"
	platformlogging "github.com/shestoi/orderpipe/platform/logging"
	platformobservability "github.com/shestoi/orderpipe/platform/observability"
	platformrabbitmq "github.com/shestoi/orderpipe/platform/rabbitmq"
	platformretry "github.com/shestoi/orderpipe/platform/retry"
	platformshutdown "github.com/shestoi/orderpipe/platform/shutdown"
	"github.com/shestoi/orderpipe/services/producer/internal/cli"
	"github.com/shestoi/orderpipe/services/producer/internal/config"
	eventkafka "github.com/shestoi/orderpipe/services/producer/internal/event/kafka"
	eventrabbitmq "github.com/shestoi/orderpipe/services/producer/internal/event/rabbitmq"
)

// App содержит зависимости Producer
type App struct {
	logger      *zap.Logger
	publisher   cli.Publisher
	shutdownMgr *platformshutdown.Manager
	in          io.Reader
	out         io.Writer
}

// Build подключается к очереди и создаёт publisher выбранного транспорта
func Build(cfg config.Config) (*App, error) {
	ctx := context.Background()

	// stdout занят диалогом, логи идут в stderr
	logger, err := platformlogging.New(platformlogging.Config{
		ServiceName: "producer",
		Env:         string(cfg.AppEnv),
		Level:       os.Getenv("LOG_LEVEL"),
		Format:      os.Getenv("LOG_FORMAT"),
		Output:      os.Stderr,
	})
	if err != nil {
		return nil, err
	}

	otelShutdown, err := platformobservability.Init(ctx, cfg.OTel)
	if err != nil {
		return nil, err
	}

	shutdownMgr := platformshutdown.New(cfg.FlushTimeout, logger)
	shutdownMgr.Add("otel", otelShutdown)

	var publisher cli.Publisher
	switch cfg.Transport {
	case config.TransportKafka:
		publisher, err = buildKafkaPublisher(ctx, cfg, logger, shutdownMgr)
	case config.TransportRabbitMQ:
		publisher, err = buildRabbitMQPublisher(ctx, cfg, logger, shutdownMgr)
	default:
		err = fmt.Errorf("unsupported transport %q", cfg.Transport)
	}
	if err != nil {
		shutdownMgr.Shutdown()
		return nil, err
	}

	return &App{
		logger:      logger,
		publisher:   publisher,
		shutdownMgr: shutdownMgr,
		in:          os.Stdin,
		out:         os.Stdout,
	}, nil
}

func buildKafkaPublisher(ctx context.Context, cfg config.Config, logger *zap.Logger, shutdownMgr *platformshutdown.Manager) (*eventkafka.EventPublisher, error) {
	err := platformretry.Connect(ctx, logger, "Kafka", cfg.ConnectAttempts, cfg.ConnectDelay, func(ctx context.Context) error {
		return platformkafka.EnsureTopic(ctx, cfg.Kafka.Brokers, cfg.QueueName, cfg.Kafka.Partitions)
	})
	if err != nil {
		return nil, err
	}

	publisher := eventkafka.NewEventPublisher(logger, eventkafka.NewWriter(cfg.Kafka, cfg.QueueName, logger), cfg.QueueName)
	shutdownMgr.Add("kafka_writer", platformshutdown.Close(publisher))
	return publisher, nil
}

func buildRabbitMQPublisher(ctx context.Context, cfg config.Config, logger *zap.Logger, shutdownMgr *platformshutdown.Manager) (*eventrabbitmq.EventPublisher, error) {
	var (
		conn *amqp.Connection
		ch   *amqp.Channel
	)
	err := platformretry.Connect(ctx, logger, "RabbitMQ", cfg.ConnectAttempts, cfg.ConnectDelay, func(ctx context.Context) error {
		c, channel, err := platformrabbitmq.Dial(cfg.RabbitMQ)
		if err != nil {
			if platformrabbitmq.IsPermanent(err) {
				return platformretry.Permanent(err)
			}
			return err
		}
		if _, err := platformrabbitmq.DeclareQueue(channel, cfg.QueueName); err != nil {
			c.Close()
			return err
		}
		conn, ch = c, channel
		return nil
	})
	if err != nil {
		return nil, err
	}

	shutdownMgr.Add("rabbitmq_connection", platformshutdown.Close(conn))
	return eventrabbitmq.NewEventPublisher(logger, ch, cfg.QueueName), nil
}

// Run запускает интерактивный диалог и блокируется до выхода оператора или SIGINT/SIGTERM
func (a *App) Run() error {
	defer platformlogging.Sync(a.logger)
	defer a.shutdownMgr.Shutdown()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	session := cli.NewSession(a.in, a.out, a.publisher, a.logger)

	// Чтение stdin не прерывается контекстом, поэтому сессия живёт в своей горутине
	done := make(chan error, 1)
	go func() {
		done <- session.Run(ctx)
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		a.logger.Info("Received shutdown signal")
		return nil
	}
}

// Seed публикует события без диалога и дожидается отправки буфера
func (a *App) Seed(ctx context.Context, evs []events.Event) error {
	defer platformlogging.Sync(a.logger)
	defer a.shutdownMgr.Shutdown()

	for _, ev := range evs {
		env, err := events.Encode(ev)
		if err != nil {
			return err
		}
		if err := a.publisher.Publish(ctx, env); err != nil {
			return fmt.Errorf("publish %s %s: %w", env.Type, env.Key, err)
		}
		a.logger.Info("Seed event sent", zap.String("msg_type", string(env.Type)), zap.String("key", env.Key), zap.ByteString("body", env.Body))
	}
	return nil
}
