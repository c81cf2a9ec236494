package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envMap(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func TestApplyEnv(t *testing.T) {
	t.Run("overrides defaults", func(t *testing.T) {
		cfg := Default()
		err := applyEnv(&cfg, envMap(map[string]string{
			"DINEIN_ADDR":            ":9090",
			"DINEIN_KAFKA_BROKERS":   "k1:9092, k2:9092,",
			"DINEIN_BOARD_CACHE_TTL": "1500ms",
			"DINEIN_RATE_LIMIT_RPS":  "2.5",
		}))
		require.NoError(t, err)
		assert.Equal(t, ":9090", cfg.Server.Addr)
		assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
		assert.Equal(t, 1500*time.Millisecond, cfg.Board.CacheTTL)
		assert.InDelta(t, 2.5, cfg.RateLimit.RequestsPerSecond, 0.0001)
	})

	t.Run("rejects malformed durations", func(t *testing.T) {
		cfg := Default()
		err := applyEnv(&cfg, envMap(map[string]string{"DINEIN_BOARD_CACHE_TTL": "soon"}))
		assert.ErrorContains(t, err, "DINEIN_BOARD_CACHE_TTL")
	})
}

func TestValidate(t *testing.T) {
	t.Run("defaults are valid", func(t *testing.T) {
		assert.NoError(t, Default().Validate())
	})

	t.Run("production requires a real signing key", func(t *testing.T) {
		cfg := Default()
		cfg.Server.Environment = "production"
		assert.ErrorContains(t, cfg.Validate(), "signing key")
	})

	t.Run("board cache must stay under the polling interval", func(t *testing.T) {
		cfg := Default()
		cfg.Board.CacheTTL = 5 * time.Second
		assert.ErrorContains(t, cfg.Validate(), "board cache ttl")
	})
}

func TestLoadYAMLThenEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "dinein.yaml")
	yamlDoc := []byte(`
server:
  addr: ":7000"
kafka:
  brokers: ["yaml-broker:9092"]
  topic: orders
board:
  cache_ttl: 1s
`)
	require.NoError(t, os.WriteFile(path, yamlDoc, 0o600))

	t.Setenv("DINEIN_CONFIG_FILE", path)
	t.Setenv("DINEIN_KAFKA_TOPIC", "orders-from-env")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":7000", cfg.Server.Addr)
	assert.Equal(t, []string{"yaml-broker:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, "orders-from-env", cfg.Kafka.Topic)
	assert.Equal(t, time.Second, cfg.Board.CacheTTL)
}
