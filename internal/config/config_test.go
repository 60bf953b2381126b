package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testWeatherKey = "ow-test-key"

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, 15*time.Second, cfg.RequestTimeout)
	assert.Equal(t, 4*time.Second, cfg.UpstreamTimeout)
	assert.False(t, cfg.LiveDataEnabled)
	assert.False(t, cfg.MapboxEnabled)
	assert.Equal(t, 1000, cfg.MapboxCacheSize)
	assert.Empty(t, cfg.RedisAddr)
	assert.Equal(t, 10*time.Minute, cfg.WeatherCacheTTL)
	assert.Empty(t, cfg.EstimatorCommand)
	assert.Equal(t, 5*time.Second, cfg.EstimatorTimeout)
	assert.Equal(t, "kg/ha", cfg.EstimatorOutputUnit)
	assert.True(t, cfg.JitterEnabled)
	assert.Zero(t, cfg.JitterSeed)
	assert.Empty(t, cfg.StoreDriver)
	assert.Empty(t, cfg.KafkaBrokers)
	assert.Equal(t, "yield-predictions", cfg.KafkaPredictionTopic)
}

func TestLoad_CustomEnv(t *testing.T) {
	t.Setenv("HTTP_ADDR", ":9090")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "text")
	t.Setenv("SHUTDOWN_TIMEOUT", "30s")
	t.Setenv("REQUEST_TIMEOUT", "20s")
	t.Setenv("UPSTREAM_TIMEOUT", "2s")
	t.Setenv("OPENWEATHER_API_KEY", testWeatherKey)
	t.Setenv("MAPBOX_TOKEN", "pk.test-token")
	t.Setenv("MAPBOX_CACHE_SIZE", "500")
	t.Setenv("REDIS_ADDR", "localhost:6379")
	t.Setenv("REDIS_DB", "2")
	t.Setenv("WEATHER_CACHE_TTL", "1m")
	t.Setenv("ESTIMATOR_COMMAND", "apymodel -state-factors")
	t.Setenv("ESTIMATOR_TIMEOUT", "3s")
	t.Setenv("ESTIMATOR_OUTPUT_UNIT", "quintal/ha")
	t.Setenv("JITTER_SEED", "42")
	t.Setenv("STORE_DRIVER", "sqlite3")
	t.Setenv("STORE_DSN", "file:yield.db")
	t.Setenv("KAFKA_BROKERS", "broker1:9092, broker2:9092")
	t.Setenv("KAFKA_PREDICTION_TOPIC", "custom-topic")
	t.Setenv("JWT_SECRET", "secret")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.HTTPAddr)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, 30*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, 20*time.Second, cfg.RequestTimeout)
	assert.Equal(t, 2*time.Second, cfg.UpstreamTimeout)
	assert.True(t, cfg.LiveDataEnabled)
	assert.Equal(t, testWeatherKey, cfg.OpenWeatherAPIKey)
	assert.True(t, cfg.MapboxEnabled)
	assert.Equal(t, 500, cfg.MapboxCacheSize)
	assert.Equal(t, "localhost:6379", cfg.RedisAddr)
	assert.Equal(t, 2, cfg.RedisDB)
	assert.Equal(t, time.Minute, cfg.WeatherCacheTTL)
	assert.Equal(t, []string{"apymodel", "-state-factors"}, cfg.EstimatorCommand)
	assert.Equal(t, 3*time.Second, cfg.EstimatorTimeout)
	assert.Equal(t, "quintal/ha", cfg.EstimatorOutputUnit)
	assert.Equal(t, uint64(42), cfg.JitterSeed)
	assert.Equal(t, "sqlite3", cfg.StoreDriver)
	assert.Equal(t, "file:yield.db", cfg.StoreDSN)
	assert.Equal(t, []string{"broker1:9092", "broker2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, "custom-topic", cfg.KafkaPredictionTopic)
	assert.Equal(t, "secret", cfg.JWTSecret)
}

func TestLoad_InvalidShutdownTimeout(t *testing.T) {
	t.Setenv("SHUTDOWN_TIMEOUT", "not-a-duration")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SHUTDOWN_TIMEOUT")
}

func TestLoad_InvalidDurations(t *testing.T) {
	for _, key := range []string{"REQUEST_TIMEOUT", "UPSTREAM_TIMEOUT", "ESTIMATOR_TIMEOUT", "WEATHER_CACHE_TTL"} {
		t.Run(key, func(t *testing.T) {
			t.Setenv(key, "-1s")
			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), key)
		})
	}
}

func TestLoad_InvalidRedisDB(t *testing.T) {
	t.Setenv("REDIS_DB", "-3")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "REDIS_DB")
}

func TestLoad_InvalidJitterSeed(t *testing.T) {
	t.Setenv("JITTER_SEED", "abc")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JITTER_SEED")
}

func TestLoad_UnknownOutputUnit(t *testing.T) {
	t.Setenv("ESTIMATOR_OUTPUT_UNIT", "bushel/acre")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ESTIMATOR_OUTPUT_UNIT")
}

func TestLoad_LiveDataWithoutKey(t *testing.T) {
	t.Setenv("LIVE_DATA_ENABLED", "true")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "OPENWEATHER_API_KEY")
}

func TestLoad_LiveDataExplicitlyDisabled(t *testing.T) {
	t.Setenv("OPENWEATHER_API_KEY", testWeatherKey)
	t.Setenv("LIVE_DATA_ENABLED", "false")
	cfg, err := Load()
	require.NoError(t, err)
	assert.False(t, cfg.LiveDataEnabled)
}

func TestLoad_MapboxOffWithoutLiveData(t *testing.T) {
	t.Setenv("MAPBOX_TOKEN", "pk.test-token")
	t.Setenv("MAPBOX_ENABLED", "true")
	cfg, err := Load()
	require.NoError(t, err)
	assert.False(t, cfg.LiveDataEnabled)
	assert.False(t, cfg.MapboxEnabled)

	t.Setenv("OPENWEATHER_API_KEY", testWeatherKey)
	cfg, err = Load()
	require.NoError(t, err)
	assert.True(t, cfg.MapboxEnabled)
}

func TestLoad_MapboxEnabledWithoutToken(t *testing.T) {
	t.Setenv("MAPBOX_ENABLED", "true")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "MAPBOX_TOKEN")
}

func TestLoad_MapboxInvalidCacheSize(t *testing.T) {
	t.Setenv("MAPBOX_CACHE_SIZE", "zero")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 1000, cfg.MapboxCacheSize)
}

func TestLoad_StoreDriver(t *testing.T) {
	t.Run("unknown driver", func(t *testing.T) {
		t.Setenv("STORE_DRIVER", "mysql")
		t.Setenv("STORE_DSN", "x")
		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "STORE_DRIVER")
	})
	t.Run("missing dsn", func(t *testing.T) {
		t.Setenv("STORE_DRIVER", "postgres")
		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "STORE_DSN")
	})
}
