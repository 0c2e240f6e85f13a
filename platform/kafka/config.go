package kafka

// Config содержит конфигурацию для подключения к Kafka
type Config struct {
	// Brokers — список брокеров Kafka, через который подключаются сервисы.
	// Значение зависит от среды выполнения:
	//   - локальная разработка (go run): localhost:19092
	//   - запуск в Docker: kafka:9092
	// Можно указать несколько брокеров через запятую: "broker1:9092,broker2:9092"
	Brokers []string `env:"KAFKA_BROKERS" envSeparator:","`
	// OrderCreatedTopic — топик событий создания заказа.
	OrderCreatedTopic string `env:"KAFKA_ORDER_CREATED_TOPIC" envDefault:"snacks.order.created"`
	// DLQTopic — топик для событий, исчерпавших retry при обработке.
	DLQTopic string `env:"KAFKA_ORDER_CREATED_DLQ_TOPIC" envDefault:"snacks.order.created.dlq"`
}

// DefaultConfig возвращает конфигурацию с дефолтными значениями для локальной разработки.
// Сервисы должны получать актуальные значения через переменные окружения.
func DefaultConfig() Config {
	return Config{
		Brokers:           []string{"localhost:19092"},
		OrderCreatedTopic: "snacks.order.created",
		DLQTopic:          "snacks.order.created.dlq",
	}
}
