package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/joho/godotenv"
	goredis "github.com/redis/go-redis/v9"

	httpadapter "github.com/fasalneeti/yield-service/internal/adapter/http"
	kafkaadapter "github.com/fasalneeti/yield-service/internal/adapter/kafka"
	"github.com/fasalneeti/yield-service/internal/adapter/mapbox"
	"github.com/fasalneeti/yield-service/internal/adapter/nasapower"
	"github.com/fasalneeti/yield-service/internal/adapter/openweather"
	redisadapter "github.com/fasalneeti/yield-service/internal/adapter/redis"
	"github.com/fasalneeti/yield-service/internal/adapter/soilgrids"
	"github.com/fasalneeti/yield-service/internal/adapter/store"
	"github.com/fasalneeti/yield-service/internal/adapter/upstream"
	"github.com/fasalneeti/yield-service/internal/config"
	"github.com/fasalneeti/yield-service/internal/domain"
	"github.com/fasalneeti/yield-service/internal/environment"
	"github.com/fasalneeti/yield-service/internal/estimator"
	"github.com/fasalneeti/yield-service/internal/observability"
	"github.com/fasalneeti/yield-service/internal/prediction"
)

func main() {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := sharedobs.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var closers []func() error

	sources, redisClient := buildSources(ctx, cfg, logger, metrics)
	if redisClient != nil {
		closers = append(closers, redisClient.Close)
	}

	var rand domain.Random
	if cfg.JitterEnabled {
		rand = domain.NewRandom(cfg.JitterSeed)
	}
	provider := environment.NewProvider(sources, rand, logger, metrics)

	chain := buildEstimator(cfg, rand, logger, metrics)

	var opts []prediction.Option
	if cfg.StoreDriver != "" {
		st, err := store.Open(ctx, cfg.StoreDriver, cfg.StoreDSN)
		if err != nil {
			logger.Error("failed to open prediction store", "driver", cfg.StoreDriver, "error", err)
			os.Exit(1)
		}
		closers = append(closers, st.Close)
		opts = append(opts, prediction.WithRecorders(st), prediction.WithHistory(st))
		logger.Info("prediction store enabled", "driver", cfg.StoreDriver)
	}
	if len(cfg.KafkaBrokers) > 0 {
		pub := kafkaadapter.NewPublisher(cfg.KafkaBrokers, cfg.KafkaPredictionTopic, logger)
		closers = append(closers, pub.Close)
		opts = append(opts, prediction.WithRecorders(pub))
		logger.Info("prediction events enabled", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaPredictionTopic)
	}

	svc := prediction.NewService(provider, chain, logger, metrics, opts...)
	srv := httpadapter.NewServer(cfg.HTTPAddr, svc, httpadapter.NewAuthenticator(cfg.JWTSecret), cfg.RequestTimeout, logger)

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	for _, closeFn := range closers {
		if err := closeFn(); err != nil {
			logger.Error("close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}

// buildSources wires the live data clients. Components left nil resolve from
// the static tables.
func buildSources(ctx context.Context, cfg *config.Config, logger *slog.Logger, metrics *observability.Metrics) (environment.Sources, *goredis.Client) {
	var sources environment.Sources

	if cfg.MapboxEnabled {
		client := mapbox.NewClient(cfg.MapboxToken, cfg.UpstreamTimeout, logger, metrics)
		sources.Geocoder = mapbox.NewCachedGeocoder(client, cfg.MapboxCacheSize, metrics)
		metrics.GeocodeEnabled.Set(1)
		logger.Info("mapbox geocoding enabled", "cache_size", cfg.MapboxCacheSize)
	} else {
		logger.Info("mapbox geocoding disabled")
	}

	if !cfg.LiveDataEnabled {
		logger.Info("live environmental data disabled")
		return sources, nil
	}

	var weather domain.WeatherSource = openweather.NewClient(
		cfg.OpenWeatherAPIKey, cfg.OpenWeatherURL,
		upstream.NewFetcher("openweather", cfg.UpstreamTimeout, metrics))
	sources.Soil = soilgrids.NewClient(cfg.SoilGridsURL,
		upstream.NewFetcher("soilgrids", cfg.UpstreamTimeout, metrics))
	sources.Vegetation = nasapower.NewClient(cfg.NASAPowerURL, 0,
		upstream.NewFetcher("nasapower", cfg.UpstreamTimeout, metrics))

	var redisClient *goredis.Client
	if cfg.RedisAddr != "" {
		client, err := redisadapter.Connect(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			// Weather still resolves live, just uncached.
			logger.Warn("redis unavailable, weather cache disabled", "addr", cfg.RedisAddr, "error", err)
		} else {
			redisClient = client
			weather = redisadapter.NewWeatherCache(weather, client, cfg.WeatherCacheTTL, logger, metrics)
			logger.Info("weather cache enabled", "addr", cfg.RedisAddr, "ttl", cfg.WeatherCacheTTL)
		}
	}
	sources.Weather = weather

	logger.Info("live environmental data enabled", "timeout", cfg.UpstreamTimeout)
	return sources, redisClient
}

func buildEstimator(cfg *config.Config, rand domain.Random, logger *slog.Logger, metrics *observability.Metrics) *estimator.Chain {
	var tiers []estimator.Estimator
	if len(cfg.EstimatorCommand) > 0 {
		proc, err := estimator.NewProcess(estimator.ProcessConfig{
			Command:    cfg.EstimatorCommand,
			Timeout:    cfg.EstimatorTimeout,
			OutputUnit: cfg.EstimatorOutputUnit,
		})
		if err != nil {
			logger.Error("invalid estimator command", "error", err)
			os.Exit(1)
		}
		tiers = append(tiers, proc)
	}
	tiers = append(tiers, estimator.NewStatistical())

	chain := estimator.NewChain(tiers, estimator.NewFallback(rand), logger, metrics)
	logger.Info("estimator chain ready", "tiers", chain.Tiers())
	return chain
}
