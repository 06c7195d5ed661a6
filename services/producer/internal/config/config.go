package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	platformkafka "github.com/shestoi/orderpipe/platform/kafka"
	platformobservability "github.com/shestoi/orderpipe/platform/observability"
	platformrabbitmq "github.com/shestoi/orderpipe/platform/rabbitmq"
)

// Env представляет окружение приложения
type Env string

const (
	// EnvLocal - локальное окружение (для разработки на хосте)
	EnvLocal Env = "local"
	// EnvDocker - Docker окружение (для запуска в контейнерах)
	EnvDocker Env = "docker"
)

// Transport реализация очереди
type Transport string

const (
	TransportKafka    Transport = "kafka"
	TransportRabbitMQ Transport = "rabbitmq"
)

// Config содержит конфигурацию Producer
type Config struct {
	AppEnv    Env
	Transport Transport
	QueueName string

	ConnectAttempts int
	ConnectDelay    time.Duration

	// FlushTimeout сколько ждать доставки буфера async writer при выходе
	FlushTimeout time.Duration

	Kafka    platformkafka.Config
	RabbitMQ platformrabbitmq.Config
	OTel     platformobservability.Config
}

// Load загружает конфигурацию из переменных окружения
func Load() (Config, error) {
	cfg := Config{}

	appEnvStr := getString("APP_ENV", string(EnvLocal))
	appEnv := Env(appEnvStr)
	if appEnv != EnvLocal && appEnv != EnvDocker {
		return Config{}, fmt.Errorf("invalid APP_ENV: %s (must be 'local' or 'docker')", appEnvStr)
	}
	cfg.AppEnv = appEnv

	cfg.Transport = Transport(getString("QUEUE_TRANSPORT", string(TransportKafka)))

	// EVENT_QUEUE_NAME общий с consumer; QUEUE_NAME оставлен для старых .env producer
	cfg.QueueName = getString("EVENT_QUEUE_NAME", getString("QUEUE_NAME", "order-events"))

	attempts, err := strconv.Atoi(getString("QUEUE_CONNECT_ATTEMPTS", "10"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid QUEUE_CONNECT_ATTEMPTS: %w", err)
	}
	cfg.ConnectAttempts = attempts

	delay, err := time.ParseDuration(getString("QUEUE_CONNECT_DELAY", "3s"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid QUEUE_CONNECT_DELAY: %w", err)
	}
	cfg.ConnectDelay = delay

	flushTimeout, err := time.ParseDuration(getString("SHUTDOWN_TIMEOUT", "5s"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid SHUTDOWN_TIMEOUT: %w", err)
	}
	cfg.FlushTimeout = flushTimeout

	cfg.Kafka = platformkafka.DefaultConfig(string(cfg.AppEnv))
	if err := platformkafka.LoadEnv(&cfg.Kafka); err != nil {
		return Config{}, fmt.Errorf("kafka config: %w", err)
	}

	cfg.RabbitMQ = platformrabbitmq.DefaultConfig(string(cfg.AppEnv))
	if err := platformrabbitmq.LoadEnv(&cfg.RabbitMQ); err != nil {
		return Config{}, fmt.Errorf("rabbitmq config: %w", err)
	}

	cfg.OTel = platformobservability.Config{
		ServiceName:           "producer",
		DeploymentEnvironment: string(cfg.AppEnv),
	}
	if err := platformobservability.LoadEnv(&cfg.OTel); err != nil {
		return Config{}, fmt.Errorf("otel config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// Validate проверяет корректность конфигурации
func (c Config) Validate() error {
	if c.Transport != TransportKafka && c.Transport != TransportRabbitMQ {
		return fmt.Errorf("invalid QUEUE_TRANSPORT: %s (must be 'kafka' or 'rabbitmq')", c.Transport)
	}
	if c.QueueName == "" {
		return fmt.Errorf("EVENT_QUEUE_NAME is required")
	}
	if c.ConnectAttempts < 1 {
		return fmt.Errorf("QUEUE_CONNECT_ATTEMPTS must be at least 1")
	}
	if c.ConnectDelay < 0 {
		return fmt.Errorf("QUEUE_CONNECT_DELAY must not be negative")
	}
	if c.FlushTimeout <= 0 {
		return fmt.Errorf("SHUTDOWN_TIMEOUT must be positive")
	}
	if c.Transport == TransportKafka && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("KAFKA_BROKERS is required")
	}
	if c.Transport == TransportRabbitMQ && c.RabbitMQ.Host == "" {
		return fmt.Errorf("RABBITMQ_HOST is required")
	}
	return nil
}

// Log выводит конфигурацию в лог (с маскировкой паролей).
// log пишет в stderr и не мешает диалогу в stdout.
func (c Config) Log() {
	log.Printf("Config loaded:")
	log.Printf("  APP_ENV: %s", c.AppEnv)
	log.Printf("  QUEUE_TRANSPORT: %s", c.Transport)
	log.Printf("  EVENT_QUEUE_NAME: %s", c.QueueName)
	switch c.Transport {
	case TransportKafka:
		log.Printf("  KAFKA_BROKERS: %v", c.Kafka.Brokers)
	case TransportRabbitMQ:
		log.Printf("  RABBITMQ_URL: %s", c.RabbitMQ.MaskedURL())
	}
	log.Printf("  OTEL_ENABLED: %t", c.OTel.Enabled)
}

// getString читает переменную окружения или возвращает дефолт
func getString(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}
