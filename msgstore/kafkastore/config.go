package kafkastore

import (
	"strings"
	"time"

	"github.com/IBM/sarama"
	"github.com/code19m/errx"
)

// Config holds the producer settings for the store.
type Config struct {
	Brokers      string `yaml:"brokers"       validate:"required"`
	SaslUsername string `yaml:"sasl_username"`
	SaslPassword string `yaml:"sasl_password" mask:"true"`

	Topic        string `yaml:"topic"         default:"statebus.messages" validate:"required"`
	ClientID     string `yaml:"client_id"     default:"statebus"`
	KafkaVersion string `yaml:"kafka_version" default:"3.6.0"`

	RetryCount int           `yaml:"retry_count" default:"3" validate:"gte=1"`
	RetryDelay time.Duration `yaml:"retry_delay" default:"200ms"`
}

func (c Config) brokers() []string {
	return strings.Split(c.Brokers, ",")
}

// SaramaConfig builds the sync producer configuration for c.
func (c Config) SaramaConfig() (*sarama.Config, error) {
	saramaCfg := sarama.NewConfig()
	saramaCfg.ClientID = c.ClientID

	version, err := sarama.ParseKafkaVersion(c.KafkaVersion)
	if err != nil {
		return nil, errx.Wrap(err, errx.WithDetails(errx.D{"kafka_version": c.KafkaVersion}))
	}
	saramaCfg.Version = version

	// only SASL_PLAINTEXT is supported
	if c.SaslUsername != "" && c.SaslPassword != "" {
		saramaCfg.Net.SASL.Enable = true
		saramaCfg.Net.SASL.User = c.SaslUsername
		saramaCfg.Net.SASL.Password = c.SaslPassword
		saramaCfg.Net.SASL.Mechanism = sarama.SASLTypePlaintext
	}

	// required by SyncProducer
	saramaCfg.Producer.Return.Successes = true
	saramaCfg.Producer.Return.Errors = true

	return saramaCfg, nil
}
