package kafka

import (
	"testing"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/diegodemontetech/bone-heal-web-77-sub002/pkg/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBrokers(t *testing.T) {
	t.Parallel()

	assert.Equal(t, []string{"localhost:9092", "kafka:9092"}, Brokers(" localhost:9092, ,kafka:9092"))
	assert.Empty(t, Brokers(""))
}

func TestConfigFromEnv(t *testing.T) {
	t.Setenv("KAFKA_BROKERS", "kafka-1:9092,kafka-2:9092")

	config, err := ConfigFromEnv("automation-api")
	require.NoError(t, err)

	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, config.Brokers)
	assert.Equal(t, "cg-automation-api", config.ConsumerGroup)
}

func TestCreateChannel_RequiresBrokers(t *testing.T) {
	t.Setenv("KAFKA_BROKERS", "")

	_, _, err := CreateChannel(watermill.NopLogger{}, "automation")
	assert.ErrorIs(t, err, ErrNoBrokers)
}

func TestNewChannel_RequiresBrokers(t *testing.T) {
	t.Parallel()

	_, _, err := NewChannel(Config{ConsumerGroup: "cg-test"}, watermill.NopLogger{})
	assert.ErrorIs(t, err, ErrNoBrokers)
}

func TestPartitionKey_UsesEventKey(t *testing.T) {
	t.Parallel()

	msg := message.NewMessage("msg-1", []byte(`{}`))
	msg.Metadata.Set(events.EventMetadataKey, "exec-42")

	key, err := partitionKey(events.Topic, msg)
	require.NoError(t, err)
	assert.Equal(t, "exec-42", key)
}
