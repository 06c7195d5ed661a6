package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	platformkafka "github.com/shestoi/orderpipe/platform/kafka"
	platformlogging "github.com/shestoi/orderpipe/platform/logging"
	platformobservability "github.com/shestoi/orderpipe/platform/observability"
	platformrabbitmq "github.com/shestoi/orderpipe/platform/rabbitmq"
	platformretry "github.com/shestoi/orderpipe/platform/retry"
	platformshutdown "github.com/shestoi/orderpipe/platform/shutdown"
	httpapi "github.com/shestoi/orderpipe/services/consumer/internal/api/http"
	"github.com/shestoi/orderpipe/services/consumer/internal/config"
	"github.com/shestoi/orderpipe/services/consumer/internal/event"
	eventkafka "github.com/shestoi/orderpipe/services/consumer/internal/event/kafka"
	eventrabbitmq "github.com/shestoi/orderpipe/services/consumer/internal/event/rabbitmq"
	"github.com/shestoi/orderpipe/services/consumer/internal/metrics"
	"github.com/shestoi/orderpipe/services/consumer/internal/repository/postgres"
	"github.com/shestoi/orderpipe/services/consumer/internal/service"
)

// initObservability подменяется в тестах
var initObservability = platformobservability.Init

// queueConsumer транспорт очереди (Kafka или RabbitMQ)
type queueConsumer interface {
	Start(ctx context.Context) error
	Close() error
}

// App содержит все зависимости для запуска и корректного shutdown Consumer
type App struct {
	logger       *zap.Logger
	consumer     queueConsumer
	adminServer  *http.Server
	shutdownMgr  *platformshutdown.Manager
	consumerDone chan struct{}
	wg           sync.WaitGroup
}

// Build создаёт и настраивает все зависимости Consumer
func Build(cfg config.Config) (*App, error) {
	const op = "app.Build"
	ctx := context.Background()

	logger, err := platformlogging.New(platformlogging.Config{
		ServiceName: "consumer",
		Env:         string(cfg.AppEnv),
		Level:       os.Getenv("LOG_LEVEL"),
		Format:      os.Getenv("LOG_FORMAT"),
	})
	if err != nil {
		return nil, err
	}
	logger.Info("Building consumer", zap.String("op", op), zap.String("transport", string(cfg.Transport)), zap.String("queue", cfg.QueueName))

	otelShutdown, err := initObservability(ctx, cfg.OTel)
	if err != nil {
		return nil, err
	}

	// Менеджер создаётся сразу: при ошибке дальше по Build уже поднятое закрывается через него
	shutdownMgr := platformshutdown.New(cfg.ShutdownTimeout, logger)
	shutdownMgr.Add("otel", otelShutdown)

	// PostgreSQL может подниматься дольше consumer, ждём его так же, как брокер
	logger.Info("Connecting to PostgreSQL")
	pool, err := pgxpool.New(ctx, cfg.PostgresDSN)
	if err != nil {
		shutdownMgr.Shutdown()
		return nil, fmt.Errorf("create postgres pool: %w", err)
	}
	shutdownMgr.Add("postgres_pool", platformshutdown.ClosePool(pool))

	err = platformretry.Connect(ctx, logger, "PostgreSQL", cfg.ConnectAttempts, cfg.ConnectDelay, pool.Ping)
	if err != nil {
		shutdownMgr.Shutdown()
		return nil, err
	}
	logger.Info("PostgreSQL connection established")

	logger.Info("Applying database migrations")
	if err := postgres.Migrate(ctx, pool); err != nil {
		shutdownMgr.Shutdown()
		return nil, err
	}
	logger.Info("Database migrations applied successfully")

	repo := postgres.NewRepository(pool)

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	processor := service.NewProcessor(
		logger,
		repo,
		service.NewConsoleReporter(os.Stdout, logger),
		metrics.New(registry),
	)

	var consumer queueConsumer
	switch cfg.Transport {
	case config.TransportKafka:
		consumer, err = buildKafkaConsumer(ctx, cfg, logger, processor)
	case config.TransportRabbitMQ:
		var conn *amqp.Connection
		consumer, conn, err = buildRabbitMQConsumer(ctx, cfg, logger, processor)
		if err == nil {
			shutdownMgr.Add("rabbitmq_connection", platformshutdown.Close(conn))
		}
	default:
		err = fmt.Errorf("unsupported transport %q", cfg.Transport)
	}
	if err != nil {
		shutdownMgr.Shutdown()
		return nil, err
	}

	a := &App{
		logger:       logger,
		consumer:     consumer,
		shutdownMgr:  shutdownMgr,
		consumerDone: make(chan struct{}),
	}

	// Закрываем транспорт и ждём, пока обработка текущего сообщения закончится,
	// до закрытия pool
	shutdownMgr.Add("queue_consumer", func(ctx context.Context) error {
		err := consumer.Close()
		select {
		case <-a.consumerDone:
		case <-ctx.Done():
			return errors.Join(err, ctx.Err())
		}
		return err
	})

	if cfg.AdminHTTPAddr != "" {
		handler := httpapi.NewHandler(repo, logger)
		router := httpapi.NewRouter(handler, repo.Ping, promhttp.HandlerFor(registry, promhttp.HandlerOpts{}), logger)
		a.adminServer = &http.Server{
			Addr:              cfg.AdminHTTPAddr,
			Handler:           router,
			ReadHeaderTimeout: 5 * time.Second,
		}
		shutdownMgr.Add("admin_http_server", platformshutdown.ShutdownHTTPServer(a.adminServer))
		logger.Info("Admin HTTP server configured", zap.String("addr", cfg.AdminHTTPAddr))
	}

	return a, nil
}

// buildKafkaConsumer ждёт брокер и создаёт топик (одна партиция), затем reader в consumer group
func buildKafkaConsumer(ctx context.Context, cfg config.Config, logger *zap.Logger, handler event.MessageHandler) (*eventkafka.OrderEventConsumer, error) {
	err := platformretry.Connect(ctx, logger, "Kafka", cfg.ConnectAttempts, cfg.ConnectDelay, func(ctx context.Context) error {
		return platformkafka.EnsureTopic(ctx, cfg.Kafka.Brokers, cfg.QueueName, cfg.Kafka.Partitions)
	})
	if err != nil {
		return nil, err
	}
	logger.Info("Kafka topic ready", zap.Strings("brokers", cfg.Kafka.Brokers), zap.String("topic", cfg.QueueName))

	reader := eventkafka.NewReader(cfg.Kafka, cfg.QueueName)
	return eventkafka.NewOrderEventConsumer(logger, reader, handler, cfg.QueueName), nil
}

// buildRabbitMQConsumer ждёт брокер и объявляет durable очередь
func buildRabbitMQConsumer(ctx context.Context, cfg config.Config, logger *zap.Logger, handler event.MessageHandler) (*eventrabbitmq.OrderEventConsumer, *amqp.Connection, error) {
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
		return nil, nil, err
	}
	logger.Info("RabbitMQ queue ready", zap.String("url", cfg.RabbitMQ.MaskedURL()), zap.String("queue", cfg.QueueName))

	return eventrabbitmq.NewOrderEventConsumer(logger, ch, handler, cfg.QueueName), conn, nil
}

// Run запускает сервис и блокируется до сигнала shutdown или остановки consumer
func (a *App) Run() error {
	defer platformlogging.Sync(a.logger)

	a.logger.Info("Starting consumer")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if a.adminServer != nil {
		a.wg.Add(1)
		go func() {
			defer a.wg.Done()
			if err := a.adminServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				a.logger.Error("Admin HTTP server error", zap.Error(err))
			}
		}()
	}

	// stopped отменяется, если consumer завершился сам (брокер закрыл канал и т.п.)
	stopped, stop := context.WithCancel(context.Background())
	defer stop()

	var consumerErr error
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		defer close(a.consumerDone)
		defer stop()
		if err := a.consumer.Start(ctx); err != nil {
			a.logger.Error("Queue consumer error", zap.Error(err))
			consumerErr = err
		}
	}()

	a.shutdownMgr.WaitContext(stopped)

	cancel()
	a.wg.Wait()

	a.logger.Info("Consumer stopped")
	return consumerErr
}
