package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	v, err := loadConfig(serveCmd)
	require.NoError(t, err)

	cfg := serverConfig(v)
	assert.Equal(t, ":8080", cfg.Port)
	assert.Equal(t, []string{"http://localhost:8080"}, cfg.AllowedOrigins)
	assert.Equal(t, 5, cfg.RateLimit.Burst)
	assert.Equal(t, time.Second, cfg.RateLimit.RefillInterval)
	assert.Equal(t, "chat.db", storeConfig(v).Path)
	assert.False(t, v.GetBool(cfgKeySeed))
}

func TestLoadConfig_EnvironmentOverrides(t *testing.T) {
	t.Setenv("SERVER_PORT", ":9999")
	t.Setenv("ALLOWED_ORIGINS", "http://a.example, http://b.example")
	t.Setenv("MAX_MESSAGE_SIZE", "1024")
	t.Setenv("RATE_LIMIT_BURST", "12")
	t.Setenv("RATE_LIMIT_REFILL_INTERVAL", "3")
	t.Setenv("DATABASE_PATH", "/tmp/other.db")

	v, err := loadConfig(serveCmd)
	require.NoError(t, err)

	cfg := serverConfig(v)
	assert.Equal(t, ":9999", cfg.Port)
	assert.Equal(t, []string{"http://a.example", "http://b.example"}, cfg.AllowedOrigins)
	assert.EqualValues(t, 1024, cfg.MaxMessageSize)
	assert.Equal(t, 12, cfg.RateLimit.Burst)
	assert.Equal(t, 3*time.Second, cfg.RateLimit.RefillInterval)
	assert.Equal(t, "/tmp/other.db", storeConfig(v).Path)
}

func TestNewLogger(t *testing.T) {
	log, err := newLogger("debug")
	require.NoError(t, err)
	assert.NotNil(t, log)

	_, err = newLogger("chatty")
	assert.Error(t, err)
}

func TestLoadConfig_FlagsBoundThroughViper(t *testing.T) {
	t.Cleanup(func() {
		for _, name := range []string{"db", "log-level", "port"} {
			f := serveCmd.Flags().Lookup(name)
			require.NotNil(t, f)
			require.NoError(t, f.Value.Set(f.DefValue))
			f.Changed = false
		}
	})
	require.NoError(t, serveCmd.ParseFlags([]string{"--db", "flags.db", "--log-level", "debug", "--port", ":7070"}))

	v, err := loadConfig(serveCmd)
	require.NoError(t, err)

	assert.Equal(t, "flags.db", storeConfig(v).Path)
	assert.Equal(t, "debug", v.GetString(cfgKeyLogLevel))
	assert.Equal(t, ":7070", serverConfig(v).Port)
}
