// Package openweather fetches current conditions from the OpenWeather API.
package openweather

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/fasalneeti/yield-service/internal/adapter/upstream"
	"github.com/fasalneeti/yield-service/internal/domain"
)

// msToKmh converts OpenWeather's metric wind speed to km/h.
const msToKmh = 3.6

// Client implements domain.WeatherSource.
type Client struct {
	apiKey  string
	baseURL string
	fetcher *upstream.Fetcher
}

// NewClient creates an OpenWeather client. baseURL is the API root, e.g.
// https://api.openweathermap.org/data/2.5.
func NewClient(apiKey, baseURL string, fetcher *upstream.Fetcher) *Client {
	return &Client{
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		fetcher: fetcher,
	}
}

// CurrentWeather returns conditions at the given coordinates.
func (c *Client) CurrentWeather(ctx context.Context, at domain.Coordinates) (domain.Weather, error) {
	params := url.Values{
		"lat":   {strconv.FormatFloat(at.Lat, 'f', 4, 64)},
		"lon":   {strconv.FormatFloat(at.Lon, 'f', 4, 64)},
		"appid": {c.apiKey},
		"units": {"metric"},
	}

	var resp response
	if err := c.fetcher.GetJSON(ctx, c.baseURL+"/weather?"+params.Encode(), &resp); err != nil {
		return domain.Weather{}, err
	}
	return resp.toWeather()
}

type response struct {
	Main *struct {
		Temp     *float64 `json:"temp"`
		Humidity *float64 `json:"humidity"`
	} `json:"main"`
	Rain *struct {
		OneHour float64 `json:"1h"`
	} `json:"rain"`
	Wind *struct {
		Speed float64 `json:"speed"`
	} `json:"wind"`
	Weather []struct {
		Description string `json:"description"`
	} `json:"weather"`
}

func (r response) toWeather() (domain.Weather, error) {
	if r.Main == nil || r.Main.Temp == nil || r.Main.Humidity == nil {
		return domain.Weather{}, errors.New("openweather response missing main temperature or humidity")
	}
	if len(r.Weather) == 0 {
		return domain.Weather{}, fmt.Errorf("openweather response missing weather description")
	}

	w := domain.Weather{
		TemperatureAvg: *r.Main.Temp,
		HumidityPct:    *r.Main.Humidity,
		Description:    r.Weather[0].Description,
	}
	if r.Rain != nil {
		w.RainfallMm = r.Rain.OneHour
	}
	if r.Wind != nil {
		w.WindSpeedKmh = r.Wind.Speed * msToKmh
	}
	return w, nil
}
