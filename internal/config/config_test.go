package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	raw := `
database:
  host: localhost
  port: 5432
  user: bistro
  password: secret
  database: bistro_royale
rabbitmq:
  host: localhost
  port: 5672
  user: guest
  password: guest
http:
  port: 8080
orders:
  number_prefix: XX
loyalty:
  points_per_currency_unit: 5
`
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(raw), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "localhost", cfg.Database.Host)
	assert.Equal(t, "bistro_royale", cfg.Database.Database)
	assert.Equal(t, 8080, cfg.HTTP.Port)
	assert.Equal(t, "XX", cfg.Orders.NumberPrefix)
	assert.Equal(t, 5, cfg.Loyalty.PointsPerCurrencyUnit)

	// Unset fields fall back to defaults.
	assert.Equal(t, 3, cfg.Orders.MaxNumberRetries)
	assert.Equal(t, 100, cfg.Loyalty.PointsToCurrencyRate)
	assert.Equal(t, 1000, cfg.Loyalty.RewardMilestone)
	assert.Equal(t, 60, cfg.Aggregator.IntervalSeconds)
}

func TestLoadDefaultsOnEmptyConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("{}"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 3000, cfg.HTTP.Port)
	assert.Equal(t, "BR", cfg.Orders.NumberPrefix)
	assert.Equal(t, 10, cfg.Loyalty.PointsPerCurrencyUnit)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestLoadInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("database: [unclosed"), 0o644))

	_, err := Load(path)
	require.Error(t, err)
}
