// Package nasapower fetches a recent vegetation index from the NASA POWER
// daily point API.
package nasapower

import (
	"context"
	"errors"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/fasalneeti/yield-service/internal/adapter/upstream"
	"github.com/fasalneeti/yield-service/internal/domain"
)

const (
	// fillValue marks days without data.
	fillValue  = -999.0
	dateLayout = "20060102"
)

// Client implements domain.VegetationSource.
type Client struct {
	baseURL string
	window  time.Duration
	fetcher *upstream.Fetcher
}

// NewClient creates a NASA POWER client rooted at baseURL, e.g.
// https://power.larc.nasa.gov/api. The index is averaged over the trailing window.
func NewClient(baseURL string, window time.Duration, fetcher *upstream.Fetcher) *Client {
	if window <= 0 {
		window = 30 * 24 * time.Hour
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), window: window, fetcher: fetcher}
}

// VegetationIndex returns the mean NDVI over the trailing window ending today.
func (c *Client) VegetationIndex(ctx context.Context, at domain.Coordinates) (float64, error) {
	end := domain.Now().UTC()
	start := end.Add(-c.window)
	params := url.Values{
		"parameters": {"NDVI"},
		"community":  {"AG"},
		"longitude":  {strconv.FormatFloat(at.Lon, 'f', 4, 64)},
		"latitude":   {strconv.FormatFloat(at.Lat, 'f', 4, 64)},
		"start":      {start.Format(dateLayout)},
		"end":        {end.Format(dateLayout)},
		"format":     {"JSON"},
	}

	var resp response
	if err := c.fetcher.GetJSON(ctx, c.baseURL+"/temporal/daily/point?"+params.Encode(), &resp); err != nil {
		return 0, err
	}

	var sum float64
	var n int
	for _, v := range resp.Properties.Parameter.NDVI {
		if v == fillValue {
			continue
		}
		sum += v
		n++
	}
	if n == 0 {
		return 0, errors.New("nasa power returned no NDVI observations")
	}
	return sum / float64(n), nil
}

type response struct {
	Properties struct {
		Parameter struct {
			NDVI map[string]float64 `json:"NDVI"`
		} `json:"parameter"`
	} `json:"properties"`
}
