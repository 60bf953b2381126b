// Package domain models crop yield prediction requests, the environmental
// factors that feed them, and the estimates produced by the estimator chain.
//
// # Units
//
// Yields are always kilograms per hectare (kg/ha) inside the service. Area is in
// hectares, so total production is in kilograms:
//
//	totalProduction = predictedYield * area
//
// The external statistical model historically reported quintals per hectare
// (1 quintal = 100 kg). That conversion happens once, where the process output is
// decoded (see [ConvertYield]), and nowhere else.
//
// # Environmental Factors
//
//	VegetationIndex: NDVI, conventionally 0–1. Treated as an opaque input.
//	SoilPH:          0–14, topsoil (0–5 cm) pH in water.
//	TemperatureAvg:  °C.
//	HumidityPct:     relative humidity, 0–100.
//	RainfallMm:      recent precipitation in millimetres.
//	WindSpeedKmh:    km/h (OpenWeather reports m/s; converted at the adapter).
//
// Every resolution records the weakest source that satisfied it:
//
//	live             upstream satellite/soil/weather APIs
//	static-table     per-district constants
//	generic-fallback location-independent defaults with cosmetic jitter
//
// Jitter is applied only so repeated fallback answers do not look identical.
// It is not measurement precision.
//
// # Provenance
//
// [EstimationResult.Tier] names the estimator strategy that answered
// ("primary", "statistical", "fallback") and [EstimationResult.ModelUsed] is the
// human-readable model label. Accuracy figures flagged Nominal are fixed
// descriptive constants of that tier, not measured statistics.
package domain
