package infra

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, 8443, cfg.Server.Port)
	assert.Equal(t, "./downloads", cfg.Server.DownloadsDir)
	assert.Equal(t, int32(15), cfg.Database.MaxConns)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, "admin", cfg.Auth.BootstrapID)
	assert.Equal(t, 12*time.Hour, cfg.Auth.TokenTTL)
	assert.Equal(t, 10000, cfg.Engine.AuditBufferSize)
	assert.Equal(t, 30*time.Second, cfg.Engine.SummaryCacheTTL)
	assert.Equal(t, "info", cfg.Logger.Level)
}

func TestLoadConfig_AdminEnvOverrides(t *testing.T) {
	t.Setenv("ADMIN_ID", "  secops ")
	t.Setenv("ADMIN_PW", "s3cret")
	t.Setenv("ADMIN_KEY", "emergency")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	// Старые деплой-скрипты передают учетку без префиксов, с пробелами
	assert.Equal(t, "secops", cfg.Auth.BootstrapID)
	assert.Equal(t, "s3cret", cfg.Auth.BootstrapPW)
	assert.Equal(t, "emergency", cfg.Auth.BypassKey)
}

func TestLoadConfig_EnvOverridesDefaults(t *testing.T) {
	t.Setenv("SERVER_PORT", "9000")
	t.Setenv("LOGGER_LEVEL", "debug")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, "debug", cfg.Logger.Level)
}
