package app

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hotel-pms/hotel-pms/internal/testing/testmode"
)

func TestLoadConfigDefaultsInTestMode(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	t.Setenv("APP_ENV", "development")
	t.Setenv(testmode.Env, "1")
	require.True(t, InTestMode())

	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.Equal(t, testJWTSecret, cfg.JWTSecret)
	require.Equal(t, 5, cfg.TxMaxRetries)
	require.Equal(t, "inventory.low_stock", cfg.AlertChannel)
	require.False(t, cfg.IsProduction())
	require.Equal(t, int32(10), cfg.PGMaxConns)
	require.Equal(t, "hotel-api", cfg.Postgres("hotel-api").AppName)
	require.Equal(t, cfg.RedisAddr, cfg.Queue().Addr)
}

func TestLoadConfigNeedsSecretOutsideTests(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	t.Setenv("APP_ENV", "development")
	t.Setenv(testmode.Env, "0")

	_, err := LoadConfig()
	require.ErrorContains(t, err, "JWT_SECRET")
}

func TestLoadConfigRequiresSecretInProduction(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	t.Setenv("APP_ENV", "production")

	_, err := LoadConfig()
	require.Error(t, err)
}

func TestParseLevel(t *testing.T) {
	require.Equal(t, "DEBUG", parseLevel(&Config{LogLevel: "debug"}).String())
	require.Equal(t, "INFO", parseLevel(nil).String())
}
