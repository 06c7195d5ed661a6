package kafka

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	require.Equal(t, []string{"localhost:19092"}, DefaultConfig("local").Brokers)
	require.Equal(t, []string{"kafka:9092"}, DefaultConfig("docker").Brokers)
	require.Equal(t, 1, DefaultConfig("local").Partitions)
}

func TestLoadEnv_OverridesDefaults(t *testing.T) {
	os.Clearenv()
	t.Setenv("KAFKA_BROKERS", "b1:9092,b2:9092")
	t.Setenv("KAFKA_GROUP_ID", "replay")

	cfg := DefaultConfig("local")
	require.NoError(t, LoadEnv(&cfg))

	require.Equal(t, []string{"b1:9092", "b2:9092"}, cfg.Brokers)
	require.Equal(t, "replay", cfg.GroupID)
	require.Equal(t, 1, cfg.Partitions)
}

func TestLoadEnv_KeepsDefaultBrokers(t *testing.T) {
	os.Clearenv()

	cfg := DefaultConfig("docker")
	require.NoError(t, LoadEnv(&cfg))
	require.Equal(t, []string{"kafka:9092"}, cfg.Brokers)
}

func TestEnsureTopic_NoBrokers(t *testing.T) {
	err := EnsureTopic(context.Background(), nil, "order-events", 1)
	require.Error(t, err)
}
