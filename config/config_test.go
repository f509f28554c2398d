package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, 1433, cfg.Port)
	assert.Equal(t, 15*time.Second, cfg.ConnectTimeout)
	assert.Equal(t, int32(10), cfg.Pool.MaxSize)
	assert.False(t, cfg.RowsAsRecords)
}

func TestValidate(t *testing.T) {
	cfg := Default()
	require.Error(t, cfg.Validate(), "server is required")

	cfg.Server = "db.example.test"
	require.NoError(t, cfg.Validate())

	cfg.Port = 0
	assert.Error(t, cfg.Validate())
	cfg.Port = 70000
	assert.Error(t, cfg.Validate())
	cfg.Port = 1433

	cfg.Pool.MaxSize = 0
	assert.Error(t, cfg.Validate())
	cfg.Pool.MaxSize = 4

	cfg.Pool.MinSize = 5
	assert.Error(t, cfg.Validate(), "min_size may not exceed max_size")
	cfg.Pool.MinSize = 4
	assert.NoError(t, cfg.Validate())
}

func TestAddr(t *testing.T) {
	cfg := Default()
	cfg.Server = "db.example.test"
	assert.Equal(t, "db.example.test:1433", cfg.Addr())
}
