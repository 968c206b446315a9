package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	assert.Equal(t, BackendMemory, cfg.Inventory.Backend)
	assert.Equal(t, BackendMemory, cfg.Order.LogBackend)
	assert.Equal(t, DefaultSeed(), cfg.Inventory.Seed)
	assert.Equal(t, 10*time.Second, cfg.Order.ProcessingTimeout)
	assert.False(t, cfg.Infra.Nacos.Enabled())
}

func TestLoad_FileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
app:
  port: 9000
inventory:
  seed:
    - id: 7
      name: Monitor
      quantity: 4
order:
  processingTimeout: 3s
  inventoryBaseURL: http://inventory:8082
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	t.Setenv("APP_PORT", "9100")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9100, cfg.App.Port)
	assert.Equal(t, []ProductSeed{{ID: 7, Name: "Monitor", Quantity: 4}}, cfg.Inventory.Seed)
	assert.Equal(t, 3*time.Second, cfg.Order.ProcessingTimeout)
	assert.Equal(t, "http://inventory:8082", cfg.Order.InventoryBaseURL)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Infra.Kafka.Brokers)
}

func TestLoad_RejectsInconsistentBackends(t *testing.T) {
	t.Setenv("INVENTORY_BACKEND", BackendRedis)
	_, err := Load("")
	require.Error(t, err)

	t.Setenv("INVENTORY_BACKEND", "etcd")
	_, err = Load("")
	require.Error(t, err)

	t.Setenv("INVENTORY_BACKEND", BackendMemory)
	t.Setenv("ORDER_LOG_BACKEND", BackendMySQL)
	_, err = Load("")
	require.Error(t, err)
}

func TestLoad_BadEnvValues(t *testing.T) {
	t.Setenv("ORDER_PROCESSING_TIMEOUT", "soon")
	_, err := Load("")
	require.Error(t, err)
}

func TestLoad_GatewayEnv(t *testing.T) {
	t.Setenv("GATEWAY_ORDER_BASE_URL", "http://order:8080")
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "http://order:8080", cfg.Gateway.OrderBaseURL)
	assert.Equal(t, "http://localhost:8082", cfg.Gateway.InventoryBaseURL)

	t.Setenv("GATEWAY_INVENTORY_BASE_URL", "")
	_, err = Load("")
	require.Error(t, err)
}
