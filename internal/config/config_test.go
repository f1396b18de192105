package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testAPIKey = "owm-test-key"

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "weather.db", cfg.DBPath)
	assert.Empty(t, cfg.CatalogPath)
	assert.Equal(t, time.Local, cfg.TimeZone)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
	assert.Empty(t, cfg.OWMAPIKey)
	assert.Equal(t, "https://api.openweathermap.org", cfg.OWMBaseURL)
	assert.Equal(t, 5*time.Second, cfg.OWMTimeout)
	assert.Equal(t, 1.0, cfg.OWMRateLimit)
	assert.Equal(t, 5, cfg.OWMBurst)
	assert.Equal(t, 128, cfg.OWMCacheSize)
	assert.Equal(t, 10*time.Minute, cfg.OWMCacheTTL)
	assert.Empty(t, cfg.KafkaBrokers)
	assert.False(t, cfg.KafkaEnabled)
	assert.Equal(t, "weather-cues", cfg.KafkaCueTopic)
	assert.Empty(t, cfg.BacklightDir)
	assert.True(t, cfg.BellEnabled)
}

func TestLoad_CustomEnv(t *testing.T) {
	t.Setenv("DB_PATH", "/tmp/custom.db")
	t.Setenv("CATALOG_PATH", "/tmp/cities.json")
	t.Setenv("TIME_ZONE", "America/Chicago")
	t.Setenv("HTTP_ADDR", ":9090")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "text")
	t.Setenv("SHUTDOWN_TIMEOUT", "30s")
	t.Setenv("OWM_API_KEY", testAPIKey)
	t.Setenv("OWM_BASE_URL", "http://localhost:9999/")
	t.Setenv("OWM_TIMEOUT", "2s")
	t.Setenv("OWM_RATE_LIMIT", "0.5")
	t.Setenv("OWM_BURST", "2")
	t.Setenv("OWM_CACHE_SIZE", "0")
	t.Setenv("OWM_CACHE_TTL", "1m")
	t.Setenv("KAFKA_BROKERS", "broker1:9092, broker2:9092")
	t.Setenv("KAFKA_CUE_TOPIC", "cues")
	t.Setenv("BACKLIGHT_DIR", "/sys/class/backlight/intel_backlight")
	t.Setenv("SOUND_ENABLED_BELL", "false")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "/tmp/custom.db", cfg.DBPath)
	assert.Equal(t, "/tmp/cities.json", cfg.CatalogPath)
	assert.Equal(t, "America/Chicago", cfg.TimeZone.String())
	assert.Equal(t, ":9090", cfg.HTTPAddr)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, 30*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, testAPIKey, cfg.OWMAPIKey)
	assert.Equal(t, "http://localhost:9999", cfg.OWMBaseURL)
	assert.Equal(t, 2*time.Second, cfg.OWMTimeout)
	assert.Equal(t, 0.5, cfg.OWMRateLimit)
	assert.Equal(t, 2, cfg.OWMBurst)
	assert.Zero(t, cfg.OWMCacheSize)
	assert.Equal(t, time.Minute, cfg.OWMCacheTTL)
	assert.Equal(t, []string{"broker1:9092", "broker2:9092"}, cfg.KafkaBrokers)
	assert.True(t, cfg.KafkaEnabled)
	assert.Equal(t, "cues", cfg.KafkaCueTopic)
	assert.Equal(t, "/sys/class/backlight/intel_backlight", cfg.BacklightDir)
	assert.False(t, cfg.BellEnabled)
}

func TestLoad_InvalidShutdownTimeout(t *testing.T) {
	t.Setenv("SHUTDOWN_TIMEOUT", "not-a-duration")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SHUTDOWN_TIMEOUT")
}

func TestLoad_NegativeOWMTimeout(t *testing.T) {
	t.Setenv("OWM_TIMEOUT", "-1s")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "OWM_TIMEOUT")
}

func TestLoad_InvalidRateLimit(t *testing.T) {
	t.Setenv("OWM_RATE_LIMIT", "0")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "OWM_RATE_LIMIT")
}

func TestLoad_InvalidBurst(t *testing.T) {
	t.Setenv("OWM_BURST", "many")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "OWM_BURST")
}

func TestLoad_InvalidTimeZone(t *testing.T) {
	t.Setenv("TIME_ZONE", "Mars/Olympus_Mons")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "TIME_ZONE")
}

func TestLoad_InvalidBell(t *testing.T) {
	t.Setenv("SOUND_ENABLED_BELL", "loud")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SOUND_ENABLED_BELL")
}

func TestLoad_InvalidCacheSize(t *testing.T) {
	t.Setenv("OWM_CACHE_SIZE", "-3")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "OWM_CACHE_SIZE")
}
