package environment

import (
	"slices"
	"strings"

	"github.com/fasalneeti/yield-service/internal/domain"
)

// District is a district with known site characteristics.
type District struct {
	Name            string             `json:"name"`
	State           string             `json:"state"`
	VegetationIndex float64            `json:"ndvi"`
	SoilPH          float64            `json:"soilPh"`
	Coordinates     domain.Coordinates `json:"coordinates"`
}

var siteTable = map[string]District{
	"lucknow":   {Name: "Lucknow", State: "Uttar Pradesh", VegetationIndex: 0.68, SoilPH: 7.1},
	"kanpur":    {Name: "Kanpur", State: "Uttar Pradesh", VegetationIndex: 0.65, SoilPH: 6.8},
	"agra":      {Name: "Agra", State: "Uttar Pradesh", VegetationIndex: 0.62, SoilPH: 7.3},
	"varanasi":  {Name: "Varanasi", State: "Uttar Pradesh", VegetationIndex: 0.70, SoilPH: 6.9},
	"allahabad": {Name: "Allahabad", State: "Uttar Pradesh", VegetationIndex: 0.67, SoilPH: 7.0},
}

var coordinatesTable = map[string]domain.Coordinates{
	"lucknow":   {Lat: 26.8467, Lon: 80.9462},
	"kanpur":    {Lat: 26.4499, Lon: 80.3319},
	"agra":      {Lat: 27.1767, Lon: 78.0081},
	"varanasi":  {Lat: 25.3176, Lon: 82.9739},
	"allahabad": {Lat: 25.4358, Lon: 81.8463},
	"mumbai":    {Lat: 19.0760, Lon: 72.8777},
	"delhi":     {Lat: 28.6139, Lon: 77.2090},
	"bangalore": {Lat: 12.9716, Lon: 77.5946},
	"chennai":   {Lat: 13.0827, Lon: 80.2707},
	"kolkata":   {Lat: 22.5726, Lon: 88.3639},
	"pune":      {Lat: 18.5204, Lon: 73.8567},
	"hyderabad": {Lat: 17.3850, Lon: 78.4867},
}

var weatherTable = map[string]domain.Weather{
	"mumbai":    {TemperatureAvg: 28, HumidityPct: 78, RainfallMm: 15, WindSpeedKmh: 12, Description: "humid"},
	"delhi":     {TemperatureAvg: 25, HumidityPct: 45, RainfallMm: 2, WindSpeedKmh: 8, Description: "clear"},
	"bangalore": {TemperatureAvg: 22, HumidityPct: 65, RainfallMm: 8, WindSpeedKmh: 6, Description: "pleasant"},
	"chennai":   {TemperatureAvg: 30, HumidityPct: 82, RainfallMm: 12, WindSpeedKmh: 10, Description: "hot humid"},
	"kolkata":   {TemperatureAvg: 27, HumidityPct: 75, RainfallMm: 18, WindSpeedKmh: 7, Description: "humid"},
	"pune":      {TemperatureAvg: 24, HumidityPct: 60, RainfallMm: 5, WindSpeedKmh: 9, Description: "pleasant"},
	"hyderabad": {TemperatureAvg: 26, HumidityPct: 55, RainfallMm: 3, WindSpeedKmh: 8, Description: "warm"},
	"lucknow":   {TemperatureAvg: 23, HumidityPct: 68, RainfallMm: 8, WindSpeedKmh: 6, Description: "moderate"},
	"kanpur":    {TemperatureAvg: 24, HumidityPct: 65, RainfallMm: 6, WindSpeedKmh: 7, Description: "moderate"},
	"agra":      {TemperatureAvg: 25, HumidityPct: 62, RainfallMm: 4, WindSpeedKmh: 8, Description: "dry"},
}

// Location-independent defaults for the last resolution tier.
var (
	genericSite    = domain.SiteData{VegetationIndex: 0.65, SoilPH: 6.8}
	genericWeather = domain.Weather{TemperatureAvg: 28, HumidityPct: 70, RainfallMm: 5, WindSpeedKmh: 10, Description: "partly cloudy"}
)

func districtKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// Districts returns the districts with static site data, sorted by name.
func Districts() []District {
	out := make([]District, 0, len(siteTable))
	for key, d := range siteTable {
		d.Coordinates = coordinatesTable[key]
		out = append(out, d)
	}
	slices.SortFunc(out, func(a, b District) int { return strings.Compare(a.Name, b.Name) })
	return out
}
