package domain

import "context"

// WeatherSource reports current conditions at a point.
type WeatherSource interface {
	CurrentWeather(ctx context.Context, at Coordinates) (Weather, error)
}

// SoilSource reports topsoil pH at a point.
type SoilSource interface {
	SoilPH(ctx context.Context, at Coordinates) (float64, error)
}

// VegetationSource reports a recent vegetation index at a point.
type VegetationSource interface {
	VegetationIndex(ctx context.Context, at Coordinates) (float64, error)
}
