package config

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadEnvDefaults(t *testing.T) {
	cfg := LoadEnv()

	require.Equal(t, ":8084", cfg.Server.HTTPPort)
	require.Equal(t, "localhost", cfg.Postgres.Host)
	require.Equal(t, 10, cfg.Postgres.MaxOpenConns)
	require.Equal(t, []string{"localhost:9092"}, cfg.Kafka.Brokers)
	require.Equal(t, "repairs.events", cfg.Kafka.RepairTopic)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("HTTP_PORT", ":9000")
	t.Setenv("POSTGRES_MAX_OPEN_CONNS", "25")
	t.Setenv("KAFKA_BROKERS", "kafka-1:9092,kafka-2:9092")
	t.Setenv("LOGGER_DISABLE_STACKTRACE", "false")

	cfg := LoadEnv()

	require.Equal(t, ":9000", cfg.Server.HTTPPort)
	require.Equal(t, 25, cfg.Postgres.MaxOpenConns)
	require.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.Kafka.Brokers)
	require.False(t, cfg.Logger.DisableStacktrace)
}

func TestLoadEnvIgnoresMalformedInt(t *testing.T) {
	t.Setenv("POSTGRES_MAX_IDLE_CONNS", "not-a-number")

	cfg := LoadEnv()

	require.Equal(t, 5, cfg.Postgres.MaxIdleConns)
}
