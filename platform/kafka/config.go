package kafka

// Config содержит конфигурацию для подключения к Kafka
type Config struct {
	// Brokers список брокеров Kafka.
	//   - локальная разработка (go run): localhost:19092
	//   - запуск в Docker: kafka:9092
	// Можно указать несколько брокеров через запятую: "broker1:9092,broker2:9092"
	Brokers []string `env:"KAFKA_BROKERS" envSeparator:","`
	// GroupID consumer group, в которой читает consumer.
	// Producer это поле не использует.
	GroupID string `env:"KAFKA_GROUP_ID" envDefault:"order-event-processor"`
	// Partitions число партиций при автосоздании топика.
	// Одна партиция даёт порядок доставки, совпадающий с порядком публикации.
	Partitions int `env:"KAFKA_TOPIC_PARTITIONS" envDefault:"1"`
}

// DefaultConfig возвращает конфигурацию с дефолтными значениями для окружения (local/docker)
func DefaultConfig(appEnv string) Config {
	brokers := []string{"localhost:19092"}
	if appEnv == "docker" {
		brokers = []string{"kafka:9092"}
	}
	return Config{
		Brokers:    brokers,
		GroupID:    "order-event-processor",
		Partitions: 1,
	}
}
