package rabbitmq

import (
	"net"
	"net/url"
	"strconv"

	"github.com/caarlos0/env/v10"
)

// Config содержит параметры подключения к RabbitMQ
type Config struct {
	// Host хост брокера: localhost при go run, rabbitmq в Docker
	Host     string `env:"RABBITMQ_HOST"`
	Port     int    `env:"RABBITMQ_PORT" envDefault:"5672"`
	User     string `env:"RABBITMQ_USER" envDefault:"guest"`
	Password string `env:"RABBITMQ_PASSWORD" envDefault:"guest"`
	VHost    string `env:"RABBITMQ_VHOST" envDefault:"/"`
}

// DefaultConfig возвращает конфигурацию с дефолтами для окружения (local/docker)
func DefaultConfig(appEnv string) Config {
	host := "localhost"
	if appEnv == "docker" {
		host = "rabbitmq"
	}
	return Config{
		Host:     host,
		Port:     5672,
		User:     "guest",
		Password: "guest",
		VHost:    "/",
	}
}

// LoadEnv загружает конфигурацию из переменных окружения
func LoadEnv(cfg *Config) error {
	return env.Parse(cfg)
}

// URL собирает AMQP URI из параметров
// vhost "/" (по умолчанию) кодируется пустым путём "/"
func (c Config) URL() string {
	u := url.URL{
		Scheme: "amqp",
		User:   url.UserPassword(c.User, c.Password),
		Host:   net.JoinHostPort(c.Host, strconv.Itoa(c.Port)),
		Path:   "/",
	}
	if c.VHost != "" && c.VHost != "/" {
		u.Path = "/" + c.VHost
		u.RawPath = "/" + url.PathEscape(c.VHost)
	}
	return u.String()
}

// MaskedURL возвращает URI без пароля для логов
func (c Config) MaskedURL() string {
	masked := c
	masked.Password = "***"
	return masked.URL()
}
