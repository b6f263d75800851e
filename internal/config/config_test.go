// internal/config/config_test.go
package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"balance-ledger/internal/repository"
)

func TestLoadConfig(t *testing.T) {
	t.Run("Defaults", func(t *testing.T) {
		for _, key := range []string{"SERVER_PORT", "LEDGER_BACKEND", "LEDGER_LOCK_TIMEOUT", "DB_PORT", "DB_MIGRATE", "KAFKA_BROKERS", "KAFKA_TOPIC"} {
			t.Setenv(key, "")
		}

		cfg, err := LoadConfig()
		require.NoError(t, err)
		assert.Equal(t, "8080", cfg.ServerPort)
		assert.Equal(t, BackendPostgres, cfg.Backend)
		assert.Equal(t, repository.DefaultLockTimeout, cfg.LockTimeout)
		assert.Equal(t, 5432, cfg.DB.Port)
		assert.True(t, cfg.Migrate)
		assert.Empty(t, cfg.Kafka.Brokers)
		assert.Equal(t, "ledger.balance-changed", cfg.Kafka.Topic)
	})

	t.Run("Overrides", func(t *testing.T) {
		t.Setenv("LEDGER_BACKEND", "Memory")
		t.Setenv("LEDGER_LOCK_TIMEOUT", "750ms")
		t.Setenv("DB_CONN_MAX_LIFETIME", "1m")
		t.Setenv("DB_MIGRATE", "false")
		t.Setenv("KAFKA_BROKERS", "kafka-1:9092, kafka-2:9092,")

		cfg, err := LoadConfig()
		require.NoError(t, err)
		assert.Equal(t, BackendMemory, cfg.Backend)
		assert.Equal(t, 750*time.Millisecond, cfg.LockTimeout)
		assert.Equal(t, time.Minute, cfg.DB.ConnMaxLifetime)
		assert.False(t, cfg.Migrate)
		assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.Kafka.Brokers)
	})

	t.Run("InvalidValues", func(t *testing.T) {
		cases := map[string]string{
			"LEDGER_BACKEND":      "sqlite",
			"LEDGER_LOCK_TIMEOUT": "soon",
			"DB_PORT":             "abc",
			"DB_MIGRATE":          "maybe",
		}
		for key, value := range cases {
			t.Run(key, func(t *testing.T) {
				t.Setenv(key, value)
				_, err := LoadConfig()
				assert.ErrorContains(t, err, key)
			})
		}
	})
}
