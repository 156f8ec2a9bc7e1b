package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "farmacia_leads.db", cfg.Store.DatabaseURL)
	assert.Equal(t, "https://serpapi.com", cfg.SerpAPI.BaseURL)
	assert.Equal(t, "smtp.gmail.com", cfg.SMTP.Host)
	assert.Equal(t, 465, cfg.SMTP.Port)
	assert.Equal(t, 15, cfg.HTTP.TimeoutSecs)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Len(t, cfg.Overpass.Endpoints, 2)
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("FARMALEADS_STORE_DRIVER", "postgres")
	t.Setenv("FARMALEADS_SERVER_PORT", "9090")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, 9090, cfg.Server.Port)
}

func TestSMTPConfig_Configured(t *testing.T) {
	assert.False(t, SMTPConfig{}.Configured())
	assert.False(t, SMTPConfig{Address: "ana@sol.es"}.Configured())
	assert.True(t, SMTPConfig{Address: "ana@sol.es", Password: "x"}.Configured())
}

func TestSupabaseConfig_Configured(t *testing.T) {
	assert.False(t, SupabaseConfig{}.Configured())
	assert.True(t, SupabaseConfig{URL: "https://x.supabase.co", AnonKey: "k"}.Configured())
}

func TestInitLogger_BadLevel(t *testing.T) {
	err := InitLogger(LogConfig{Level: "shouting", Format: "json"})
	require.Error(t, err)
}

func TestInitLogger_Console(t *testing.T) {
	require.NoError(t, InitLogger(LogConfig{Level: "debug", Format: "console"}))
}
