//go:build mapbox

package mapbox

import (
	"context"
	"io"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fasalneeti/yield-service/internal/observability"
)

// These tests hit the real Mapbox API and require a valid MAPBOX_TOKEN env var.
// Run with: go test -tags=mapbox ./internal/adapter/mapbox/ -v -count=1

func smokeClient(t *testing.T) *Client {
	t.Helper()
	token := os.Getenv("MAPBOX_TOKEN")
	if token == "" {
		t.Fatal("MAPBOX_TOKEN must be set to run smoke tests")
	}
	return NewClient(token, 10*time.Second, slog.New(slog.NewTextHandler(io.Discard, nil)), observability.NewMetricsForTesting())
}

func TestSmoke_ForwardGeocode(t *testing.T) {
	c := smokeClient(t)

	result, err := c.ForwardGeocode(context.Background(), "Varanasi", "Uttar Pradesh")
	require.NoError(t, err)

	assert.InDelta(t, 25.3, result.Lat, 0.5)
	assert.InDelta(t, 83.0, result.Lon, 0.5)
	assert.Contains(t, result.FormattedAddress, "Varanasi")
	assert.Greater(t, result.Confidence, 0.5)
}

func TestSmoke_CachedForwardGeocode(t *testing.T) {
	c := smokeClient(t)
	cached := NewCachedGeocoder(c, 10, observability.NewMetricsForTesting())

	r1, err := cached.ForwardGeocode(context.Background(), "Nagpur", "Maharashtra")
	require.NoError(t, err)
	r2, err := cached.ForwardGeocode(context.Background(), "Nagpur", "Maharashtra")
	require.NoError(t, err)
	assert.Equal(t, r1, r2)
}
