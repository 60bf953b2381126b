// Package soilgrids fetches topsoil pH from the ISRIC SoilGrids REST API.
package soilgrids

import (
	"context"
	"errors"
	"net/url"
	"strconv"
	"strings"

	"github.com/fasalneeti/yield-service/internal/adapter/upstream"
	"github.com/fasalneeti/yield-service/internal/domain"
)

// SoilGrids reports phh2o as pH×10.
const phScale = 10.0

// Client implements domain.SoilSource.
type Client struct {
	baseURL string
	fetcher *upstream.Fetcher
}

// NewClient creates a SoilGrids client rooted at baseURL, e.g.
// https://rest.isric.org/soilgrids/v2.0.
func NewClient(baseURL string, fetcher *upstream.Fetcher) *Client {
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), fetcher: fetcher}
}

// SoilPH returns the mean 0-5 cm pH in water at the given coordinates.
func (c *Client) SoilPH(ctx context.Context, at domain.Coordinates) (float64, error) {
	params := url.Values{
		"lon":      {strconv.FormatFloat(at.Lon, 'f', 4, 64)},
		"lat":      {strconv.FormatFloat(at.Lat, 'f', 4, 64)},
		"property": {"phh2o"},
		"depth":    {"0-5cm"},
		"value":    {"mean"},
	}

	var resp response
	if err := c.fetcher.GetJSON(ctx, c.baseURL+"/properties/query?"+params.Encode(), &resp); err != nil {
		return 0, err
	}

	layers := resp.Properties.Layers
	if len(layers) == 0 || len(layers[0].Depths) == 0 {
		return 0, errors.New("soilgrids response has no phh2o layer")
	}
	mean := layers[0].Depths[0].Values.Mean
	if mean == nil {
		// Water bodies and urban cells have no value.
		return 0, errors.New("soilgrids returned no pH value for location")
	}
	return *mean / phScale, nil
}

type response struct {
	Properties struct {
		Layers []struct {
			Name   string `json:"name"`
			Depths []struct {
				Label  string `json:"label"`
				Values struct {
					Mean *float64 `json:"mean"`
				} `json:"values"`
			} `json:"depths"`
		} `json:"layers"`
	} `json:"properties"`
}
