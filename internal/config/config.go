package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
	"github.com/fasalneeti/yield-service/internal/domain"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration
	RequestTimeout  time.Duration

	// Upstream environmental data providers.
	LiveDataEnabled   bool
	UpstreamTimeout   time.Duration
	OpenWeatherAPIKey string
	OpenWeatherURL    string
	SoilGridsURL      string
	NASAPowerURL      string

	// Mapbox geocoding for districts missing from the coordinates table.
	MapboxToken     string
	MapboxEnabled   bool
	MapboxCacheSize int

	// Redis cache for live weather readings. Disabled when RedisAddr is empty.
	RedisAddr       string
	RedisPassword   string
	RedisDB         int
	WeatherCacheTTL time.Duration

	// Primary estimator tier. Disabled when EstimatorCommand is empty.
	EstimatorCommand    []string
	EstimatorTimeout    time.Duration
	EstimatorOutputUnit string

	JitterEnabled bool
	JitterSeed    uint64

	// Record store. Disabled when StoreDriver is empty.
	StoreDriver string
	StoreDSN    string

	// Prediction events. Disabled when KafkaBrokers is empty.
	KafkaBrokers         []string
	KafkaPredictionTopic string

	JWTSecret string
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	requestTimeout, err := parseDuration("REQUEST_TIMEOUT", "15s")
	if err != nil {
		return nil, err
	}
	upstreamTimeout, err := parseDuration("UPSTREAM_TIMEOUT", "4s")
	if err != nil {
		return nil, err
	}
	estimatorTimeout, err := parseDuration("ESTIMATOR_TIMEOUT", "5s")
	if err != nil {
		return nil, err
	}
	weatherCacheTTL, err := parseDuration("WEATHER_CACHE_TTL", "10m")
	if err != nil {
		return nil, err
	}

	redisDB, err := parseNonNegativeInt("REDIS_DB", 0)
	if err != nil {
		return nil, err
	}
	jitterSeed, err := strconv.ParseUint(sharedcfg.EnvOrDefault("JITTER_SEED", "0"), 10, 64)
	if err != nil {
		return nil, errors.New("invalid JITTER_SEED")
	}

	openWeatherKey := os.Getenv("OPENWEATHER_API_KEY")
	liveEnabled := openWeatherKey != ""
	if v := os.Getenv("LIVE_DATA_ENABLED"); v != "" {
		liveEnabled = v == "true"
	}

	mapboxToken := os.Getenv("MAPBOX_TOKEN")
	mapboxEnabled := mapboxToken != ""
	if v := os.Getenv("MAPBOX_ENABLED"); v != "" {
		mapboxEnabled = v == "true"
	}

	cfg := &Config{
		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,
		RequestTimeout:  requestTimeout,

		LiveDataEnabled:   liveEnabled,
		UpstreamTimeout:   upstreamTimeout,
		OpenWeatherAPIKey: openWeatherKey,
		OpenWeatherURL:    sharedcfg.EnvOrDefault("OPENWEATHER_BASE_URL", "https://api.openweathermap.org/data/2.5"),
		SoilGridsURL:      sharedcfg.EnvOrDefault("SOILGRIDS_BASE_URL", "https://rest.isric.org/soilgrids/v2.0"),
		NASAPowerURL:      sharedcfg.EnvOrDefault("NASA_POWER_BASE_URL", "https://power.larc.nasa.gov/api"),

		MapboxToken:     mapboxToken,
		MapboxEnabled:   mapboxEnabled,
		MapboxCacheSize: parseMapboxCacheSize(),

		RedisAddr:       os.Getenv("REDIS_ADDR"),
		RedisPassword:   os.Getenv("REDIS_PASSWORD"),
		RedisDB:         redisDB,
		WeatherCacheTTL: weatherCacheTTL,

		EstimatorCommand:    strings.Fields(os.Getenv("ESTIMATOR_COMMAND")),
		EstimatorTimeout:    estimatorTimeout,
		EstimatorOutputUnit: sharedcfg.EnvOrDefault("ESTIMATOR_OUTPUT_UNIT", domain.UnitKgPerHectare),

		JitterEnabled: sharedcfg.EnvOrDefault("JITTER_ENABLED", "true") == "true",
		JitterSeed:    jitterSeed,

		StoreDriver: os.Getenv("STORE_DRIVER"),
		StoreDSN:    os.Getenv("STORE_DSN"),

		KafkaBrokers:         sharedcfg.ParseBrokers(os.Getenv("KAFKA_BROKERS")),
		KafkaPredictionTopic: sharedcfg.EnvOrDefault("KAFKA_PREDICTION_TOPIC", "yield-predictions"),

		JWTSecret: os.Getenv("JWT_SECRET"),
	}

	if cfg.MapboxEnabled && cfg.MapboxToken == "" {
		return nil, errors.New("MAPBOX_ENABLED is true but MAPBOX_TOKEN is not set")
	}
	if cfg.LiveDataEnabled && cfg.OpenWeatherAPIKey == "" {
		return nil, errors.New("LIVE_DATA_ENABLED is true but OPENWEATHER_API_KEY is not set")
	}
	// Geocoding only feeds live lookups.
	if !cfg.LiveDataEnabled {
		cfg.MapboxEnabled = false
	}
	if _, err := domain.ConvertYield(1, cfg.EstimatorOutputUnit); err != nil {
		return nil, fmt.Errorf("invalid ESTIMATOR_OUTPUT_UNIT: %w", err)
	}
	switch cfg.StoreDriver {
	case "", "postgres", "sqlite3":
	default:
		return nil, fmt.Errorf("invalid STORE_DRIVER %q: want postgres or sqlite3", cfg.StoreDriver)
	}
	if cfg.StoreDriver != "" && cfg.StoreDSN == "" {
		return nil, errors.New("STORE_DRIVER is set but STORE_DSN is not")
	}
	if len(cfg.KafkaBrokers) > 0 && cfg.KafkaPredictionTopic == "" {
		return nil, errors.New("KAFKA_PREDICTION_TOPIC is required when KAFKA_BROKERS is set")
	}

	return cfg, nil
}

func parseDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(sharedcfg.EnvOrDefault(key, def))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return d, nil
}

func parseNonNegativeInt(key string, def int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return n, nil
}

func parseMapboxCacheSize() int {
	if s := os.Getenv("MAPBOX_CACHE_SIZE"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			return n
		}
	}
	return 1000
}
