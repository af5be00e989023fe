package wmstore

import (
	stdsql "database/sql"
	"strings"

	"github.com/ThreeDotsLabs/watermill"
	wkafka "github.com/ThreeDotsLabs/watermill-kafka/pkg/kafka"
	wsql "github.com/ThreeDotsLabs/watermill-sql/v3/pkg/sql"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/code19m/errx"
)

// partitionKey is the metadata key records are partitioned by on Kafka.
const partitionKey = "partition_key"

// NewGoChannel returns an in-process pub/sub. Subscribe to the store's topic on it to
// consume what the bus dispatched.
func NewGoChannel(logger watermill.LoggerAdapter) *gochannel.GoChannel {
	return gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: 64}, logger)
}

// NewKafkaPublisher publishes to Kafka, partitioned by message type.
func NewKafkaPublisher(cfg KafkaConfig, logger watermill.LoggerAdapter) (message.Publisher, error) {
	saramaCfg := wkafka.DefaultSaramaSyncPublisherConfig()
	saramaCfg.ClientID = cfg.ClientID

	marshaler := wkafka.NewWithPartitioningMarshaler(func(_ string, msg *message.Message) (string, error) {
		key := msg.Metadata.Get(partitionKey)
		if key == "" {
			return "", errx.New("[wmstore]: partition key is empty")
		}
		return key, nil
	})

	publisher, err := wkafka.NewPublisher(strings.Split(cfg.Brokers, ","), marshaler, saramaCfg, logger)
	if err != nil {
		return nil, errx.Wrap(err)
	}
	return publisher, nil
}

// NewSQLPublisher publishes into a PostgreSQL table managed by watermill-sql.
func NewSQLPublisher(db *stdsql.DB, cfg SQLConfig, logger watermill.LoggerAdapter) (message.Publisher, error) {
	table := cfg.Table
	if table == "" {
		table = "watermill_statebus_messages"
	}

	publisher, err := wsql.NewPublisher(
		db,
		wsql.PublisherConfig{
			SchemaAdapter: wsql.DefaultPostgreSQLSchema{
				GenerateMessagesTableName: func(string) string { return table },
			},
			AutoInitializeSchema: true,
		},
		logger,
	)
	if err != nil {
		return nil, errx.Wrap(err)
	}
	return publisher, nil
}
