package domain

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
)

// Yield units accepted at the estimator process boundary.
const (
	UnitKgPerHectare      = "kg/ha"
	UnitQuintalPerHectare = "quintal/ha"
)

// Factor sources, ordered from strongest to weakest.
const (
	SourceLive            = "live"
	SourceStaticTable     = "static-table"
	SourceGenericFallback = "generic-fallback"
)

// ErrInvalidRequest is the sentinel wrapped by every ValidationError.
var ErrInvalidRequest = errors.New("invalid prediction request")

// ValidationError describes the first request field that failed validation.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrInvalidRequest }

// Location identifies a district within an Indian state.
type Location struct {
	State    string `json:"state"`
	District string `json:"district"`
}

func (l Location) String() string {
	if l.State == "" {
		return l.District
	}
	return l.District + ", " + l.State
}

// Coordinates is a WGS-84 latitude/longitude pair.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// IsZero reports whether the coordinates are unset.
func (c Coordinates) IsZero() bool { return c.Lat == 0 && c.Lon == 0 }

// PredictionRequest is the input to a yield prediction. Area is in hectares.
type PredictionRequest struct {
	Location Location `json:"location"`
	Crop     string   `json:"crop"`
	Season   string   `json:"season"`
	Year     int      `json:"year"`
	Area     float64  `json:"area"`
}

// Normalize trims surrounding whitespace from every string field.
func (r PredictionRequest) Normalize() PredictionRequest {
	r.Location.State = strings.TrimSpace(r.Location.State)
	r.Location.District = strings.TrimSpace(r.Location.District)
	r.Crop = strings.TrimSpace(r.Crop)
	r.Season = strings.TrimSpace(r.Season)
	return r
}

// Validate returns a *ValidationError for the first missing or out-of-range field.
func (r PredictionRequest) Validate() error {
	switch {
	case r.Location.State == "":
		return &ValidationError{Field: "state", Reason: "is required"}
	case r.Location.District == "":
		return &ValidationError{Field: "district", Reason: "is required"}
	case r.Crop == "":
		return &ValidationError{Field: "crop", Reason: "is required"}
	case r.Season == "":
		return &ValidationError{Field: "season", Reason: "is required"}
	case r.Year <= 0:
		return &ValidationError{Field: "year", Reason: "is required"}
	case math.IsNaN(r.Area) || math.IsInf(r.Area, 0) || r.Area <= 0:
		return &ValidationError{Field: "area", Reason: "must be a positive number of hectares"}
	}
	return nil
}

// EnvironmentalFactors bundles the site and weather inputs for one prediction.
type EnvironmentalFactors struct {
	VegetationIndex float64 `json:"ndvi"`
	SoilPH          float64 `json:"soilPh"`
	TemperatureAvg  float64 `json:"tempAvg"`
	HumidityPct     float64 `json:"humidity"`
	RainfallMm      float64 `json:"rainfallMm"`
	WindSpeedKmh    float64 `json:"windSpeedKmh"`
	Description     string  `json:"description"`
	Source          string  `json:"source"`
}

// SiteData is the slow-changing part of the factors: vegetation and soil.
type SiteData struct {
	VegetationIndex float64
	SoilPH          float64
}

// Weather is the current-conditions part of the factors.
type Weather struct {
	TemperatureAvg float64 `json:"tempAvg"`
	HumidityPct    float64 `json:"humidity"`
	RainfallMm     float64 `json:"rainfallMm"`
	WindSpeedKmh   float64 `json:"windSpeedKmh"`
	Description    string  `json:"description"`
}

// CombineFactors merges site and weather readings. The resulting Source is the
// weaker of the two component sources.
func CombineFactors(site SiteData, siteSource string, weather Weather, weatherSource string) EnvironmentalFactors {
	return EnvironmentalFactors{
		VegetationIndex: site.VegetationIndex,
		SoilPH:          site.SoilPH,
		TemperatureAvg:  weather.TemperatureAvg,
		HumidityPct:     weather.HumidityPct,
		RainfallMm:      weather.RainfallMm,
		WindSpeedKmh:    weather.WindSpeedKmh,
		Description:     weather.Description,
		Source:          WeakerSource(siteSource, weatherSource),
	}
}

// Weather extracts the current-conditions fields.
func (f EnvironmentalFactors) Weather() Weather {
	return Weather{
		TemperatureAvg: f.TemperatureAvg,
		HumidityPct:    f.HumidityPct,
		RainfallMm:     f.RainfallMm,
		WindSpeedKmh:   f.WindSpeedKmh,
		Description:    f.Description,
	}
}

var sourceRank = map[string]int{
	SourceLive:            0,
	SourceStaticTable:     1,
	SourceGenericFallback: 2,
}

// WeakerSource returns whichever of a and b sits lower in the live →
// static-table → generic-fallback order. Unknown labels rank weakest.
func WeakerSource(a, b string) string {
	ra, ok := sourceRank[a]
	if !ok {
		ra = len(sourceRank)
	}
	rb, ok := sourceRank[b]
	if !ok {
		rb = len(sourceRank)
	}
	if rb > ra {
		return b
	}
	return a
}

// Accuracy holds error and fit metrics for an estimate.
type Accuracy struct {
	MAE     float64 `json:"mae"`
	R2      float64 `json:"r2"`
	Nominal bool    `json:"nominal"` // fixed tier constants rather than measured values
}

// EstimationResult is produced by exactly one estimator tier.
type EstimationResult struct {
	PredictedYield float64   `json:"predictedYield"` // kg/ha
	ConfidencePct  float64   `json:"confidencePct"`
	ModelUsed      string    `json:"modelUsed"`
	Tier           string    `json:"tier"`
	Accuracy       *Accuracy `json:"accuracy,omitempty"`
}

// ClampConfidence bounds a confidence percentage to [0, 100].
func ClampConfidence(pct float64) float64 {
	switch {
	case math.IsNaN(pct) || pct < 0:
		return 0
	case pct > 100:
		return 100
	default:
		return pct
	}
}

// ConvertYield converts a per-hectare yield in the given unit to kg/ha.
func ConvertYield(value float64, unit string) (float64, error) {
	switch strings.ToLower(strings.TrimSpace(unit)) {
	case "", UnitKgPerHectare, "kg_ha":
		return value, nil
	case UnitQuintalPerHectare, "quintal_ha", "q/ha":
		return value * 100, nil
	default:
		return 0, fmt.Errorf("unknown yield unit %q", unit)
	}
}

// Prediction is the record of one completed estimation, kept for its owner.
type Prediction struct {
	ID              string               `json:"id"`
	OwnerID         string               `json:"ownerId,omitempty"`
	State           string               `json:"state"`
	District        string               `json:"district"`
	Crop            string               `json:"crop"`
	Season          string               `json:"season"`
	Year            int                  `json:"year"`
	Area            float64              `json:"area"`
	Result          EstimationResult     `json:"result"`
	Factors         EnvironmentalFactors `json:"factors"`
	TotalProduction float64              `json:"totalProduction"`
	Alerts          []Alert              `json:"alerts"`
	CreatedAt       time.Time            `json:"createdAt"`
}
