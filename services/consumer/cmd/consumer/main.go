package main

import (
	"log"

	"github.com/shestoi/orderpipe/services/consumer/internal/app"
	"github.com/shestoi/orderpipe/services/consumer/internal/config"
)

func main() {
	// Загружаем конфигурацию
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	cfg.Log()

	// Подключение к очереди с retry; после исчерпания попыток завершаемся с кодом 1
	application, err := app.Build(cfg)
	if err != nil {
		log.Fatalf("Failed to build app: %v", err)
	}

	if err := application.Run(); err != nil {
		log.Fatalf("Service error: %v", err)
	}
}
