package wmstore

import "time"

// Config controls how records are published.
type Config struct {
	Topic string `yaml:"topic" default:"statebus.messages" validate:"required"`

	// RetryCount is the number of publish attempts, including the first.
	RetryCount int           `yaml:"retry_count" default:"3" validate:"gte=1"`
	RetryDelay time.Duration `yaml:"retry_delay" default:"100ms"`
}

// KafkaConfig configures the watermill-kafka publisher.
type KafkaConfig struct {
	Brokers  string `yaml:"brokers"   validate:"required"`
	ClientID string `yaml:"client_id" default:"statebus"`
}

// SQLConfig configures the watermill-sql publisher.
type SQLConfig struct {
	// Table receives every record. It is created on first publish.
	Table string `yaml:"table" default:"watermill_statebus_messages"`
}
