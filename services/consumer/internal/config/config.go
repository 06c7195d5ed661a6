package config

import (
	"fmt"
	"log"
	"net"
	"net/url"
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

// Config содержит конфигурацию Consumer
type Config struct {
	AppEnv    Env
	Transport Transport
	QueueName string

	// Подключение к очереди при старте: ConnectAttempts попыток с паузой ConnectDelay
	ConnectAttempts int
	ConnectDelay    time.Duration

	PostgresDSN string

	// AdminHTTPAddr адрес /health, /metrics и /orders/{id}/payment-status. Пусто - сервер не поднимается.
	AdminHTTPAddr   string
	ShutdownTimeout time.Duration

	Kafka    platformkafka.Config
	RabbitMQ platformrabbitmq.Config
	OTel     platformobservability.Config
}

// Load загружает конфигурацию из переменных окружения
// Читает APP_ENV и устанавливает дефолты в зависимости от окружения
func Load() (Config, error) {
	cfg := Config{}

	appEnvStr := getString("APP_ENV", string(EnvLocal))
	appEnv := Env(appEnvStr)
	if appEnv != EnvLocal && appEnv != EnvDocker {
		return Config{}, fmt.Errorf("invalid APP_ENV: %s (must be 'local' or 'docker')", appEnvStr)
	}
	cfg.AppEnv = appEnv

	cfg.Transport = Transport(getString("QUEUE_TRANSPORT", string(TransportKafka)))
	cfg.QueueName = getString("EVENT_QUEUE_NAME", "order-events")

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

	// POSTGRES_DSN целиком или по частям POSTGRES_HOST/PORT/USER/PASSWORD/DB
	cfg.PostgresDSN = getString("POSTGRES_DSN", "")
	if cfg.PostgresDSN == "" {
		host := "127.0.0.1"
		if cfg.AppEnv == EnvDocker {
			host = "postgres"
		}
		cfg.PostgresDSN = buildPostgresDSN(
			getString("POSTGRES_HOST", host),
			getString("POSTGRES_PORT", "5432"),
			getString("POSTGRES_USER", "postgres"),
			getString("POSTGRES_PASSWORD", "postgres"),
			getString("POSTGRES_DB", "orders"),
		)
	}

	if cfg.AppEnv == EnvLocal {
		cfg.AdminHTTPAddr = getEnvAllowEmpty("ADMIN_HTTP_ADDR", "127.0.0.1:8090")
	} else {
		cfg.AdminHTTPAddr = getEnvAllowEmpty("ADMIN_HTTP_ADDR", "0.0.0.0:8090")
	}

	shutdownTimeout, err := time.ParseDuration(getString("SHUTDOWN_TIMEOUT", "10s"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid SHUTDOWN_TIMEOUT: %w", err)
	}
	cfg.ShutdownTimeout = shutdownTimeout

	cfg.Kafka = platformkafka.DefaultConfig(string(cfg.AppEnv))
	if err := platformkafka.LoadEnv(&cfg.Kafka); err != nil {
		return Config{}, fmt.Errorf("kafka config: %w", err)
	}

	cfg.RabbitMQ = platformrabbitmq.DefaultConfig(string(cfg.AppEnv))
	if err := platformrabbitmq.LoadEnv(&cfg.RabbitMQ); err != nil {
		return Config{}, fmt.Errorf("rabbitmq config: %w", err)
	}

	cfg.OTel = platformobservability.Config{
		ServiceName:           "consumer",
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
	if c.PostgresDSN == "" {
		return fmt.Errorf("POSTGRES_DSN is required")
	}
	if c.ShutdownTimeout <= 0 {
		return fmt.Errorf("SHUTDOWN_TIMEOUT must be positive")
	}
	switch c.Transport {
	case TransportKafka:
		if len(c.Kafka.Brokers) == 0 {
			return fmt.Errorf("KAFKA_BROKERS is required")
		}
		if c.Kafka.GroupID == "" {
			return fmt.Errorf("KAFKA_GROUP_ID is required")
		}
	case TransportRabbitMQ:
		if c.RabbitMQ.Host == "" {
			return fmt.Errorf("RABBITMQ_HOST is required")
		}
	}
	return nil
}

// Log выводит конфигурацию в лог (с маскировкой паролей)
func (c Config) Log() {
	log.Printf("Config loaded:")
	log.Printf("  APP_ENV: %s", c.AppEnv)
	log.Printf("  QUEUE_TRANSPORT: %s", c.Transport)
	log.Printf("  EVENT_QUEUE_NAME: %s", c.QueueName)
	log.Printf("  QUEUE_CONNECT_ATTEMPTS: %d", c.ConnectAttempts)
	log.Printf("  QUEUE_CONNECT_DELAY: %s", c.ConnectDelay)
	log.Printf("  POSTGRES_DSN: %s", maskDSN(c.PostgresDSN))
	log.Printf("  ADMIN_HTTP_ADDR: %s", c.AdminHTTPAddr)
	log.Printf("  SHUTDOWN_TIMEOUT: %s", c.ShutdownTimeout)
	switch c.Transport {
	case TransportKafka:
		log.Printf("  KAFKA_BROKERS: %v", c.Kafka.Brokers)
		log.Printf("  KAFKA_GROUP_ID: %s", c.Kafka.GroupID)
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

// getEnvAllowEmpty как getString, но явно заданная пустая строка остаётся пустой
func getEnvAllowEmpty(key, defaultValue string) string {
	value, ok := os.LookupEnv(key)
	if !ok {
		return defaultValue
	}
	return value
}

func buildPostgresDSN(host, port, user, password, db string) string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(user, password),
		Host:     net.JoinHostPort(host, port),
		Path:     "/" + db,
		RawQuery: "sslmode=disable",
	}
	return u.String()
}

// maskDSN маскирует пароль в DSN для безопасного логирования
func maskDSN(dsn string) string {
	u, err := url.Parse(dsn)
	if err != nil {
		return "***"
	}
	return u.Redacted()
}
