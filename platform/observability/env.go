package observability

import "github.com/caarlos0/env/v10"

// LoadEnv заполняет OTEL_* поля Config из переменных окружения.
// ServiceName и DeploymentEnvironment задаёт сам сервис.
func LoadEnv(cfg *Config) error {
	return env.Parse(cfg)
}
