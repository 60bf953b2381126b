// Package redis caches live weather readings in Redis.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/fasalneeti/yield-service/internal/domain"
	"github.com/fasalneeti/yield-service/internal/observability"
)

const keyPrefix = "fasalneeti:weather:"

// Connect opens a Redis client and verifies it with PING.
func Connect(ctx context.Context, addr, password string, db int) (*goredis.Client, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return client, nil
}

// WeatherCache wraps a WeatherSource with a Redis read-through cache.
// Cache failures are logged and never returned.
type WeatherCache struct {
	inner   domain.WeatherSource
	client  *goredis.Client
	ttl     time.Duration
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewWeatherCache creates the cache decorator.
func NewWeatherCache(inner domain.WeatherSource, client *goredis.Client, ttl time.Duration, logger *slog.Logger, metrics *observability.Metrics) *WeatherCache {
	return &WeatherCache{
		inner:   inner,
		client:  client,
		ttl:     ttl,
		logger:  logger,
		metrics: metrics,
	}
}

func (c *WeatherCache) CurrentWeather(ctx context.Context, at domain.Coordinates) (domain.Weather, error) {
	key := cacheKey(at)

	data, err := c.client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var w domain.Weather
		if jerr := json.Unmarshal(data, &w); jerr == nil {
			c.metrics.WeatherCache.WithLabelValues("hit").Inc()
			return w, nil
		}
		c.metrics.WeatherCache.WithLabelValues("error").Inc()
		c.logger.Warn("discarding corrupt cached weather", "key", key)
	case errors.Is(err, goredis.Nil):
		c.metrics.WeatherCache.WithLabelValues("miss").Inc()
	default:
		c.metrics.WeatherCache.WithLabelValues("error").Inc()
		c.logger.Warn("weather cache read failed", "key", key, "error", err)
	}

	w, err := c.inner.CurrentWeather(ctx, at)
	if err != nil {
		return w, err
	}

	if data, err := json.Marshal(w); err == nil {
		if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
			c.metrics.WeatherCache.WithLabelValues("error").Inc()
			c.logger.Warn("weather cache write failed", "key", key, "error", err)
		}
	}
	return w, nil
}

// cacheKey rounds to about 1 km so nearby requests share an entry.
func cacheKey(at domain.Coordinates) string {
	return fmt.Sprintf("%s%.2f,%.2f", keyPrefix, at.Lat, at.Lon)
}
