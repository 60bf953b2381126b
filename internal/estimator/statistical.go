package estimator

import (
	"context"

	"github.com/fasalneeti/yield-service/internal/domain"
)

// Correction thresholds and multipliers applied, in order, to the base yield.
const (
	heatStressC      = 35.0
	heatStressFactor = 0.90

	lowVegetationIndex  = 0.4
	lowVegetationFactor = 0.85

	minSoilPH       = 6.0
	maxSoilPH       = 8.0
	soilPHFactor    = 0.92
	droughtMm       = 5.0
	droughtFactor   = 0.88
	waterloggingMm  = 200.0
	waterlogFactor  = 0.90
	statConfidence  = 85.0
	statNominalMAE  = 250.0
	statNominalR2   = 0.80
	statisticalName = "Statistical Heuristic"
)

// Statistical estimates yield from a crop by season table with
// multiplicative environmental corrections. It always succeeds.
type Statistical struct{}

// NewStatistical returns the statistical heuristic tier.
func NewStatistical() *Statistical { return &Statistical{} }

func (*Statistical) Name() string { return TierStatistical }

func (*Statistical) Estimate(_ context.Context, req domain.PredictionRequest, f domain.EnvironmentalFactors) (domain.EstimationResult, error) {
	return domain.EstimationResult{
		PredictedYield: StatisticalYield(req.Crop, req.Season, f),
		ConfidencePct:  statConfidence,
		ModelUsed:      statisticalName,
		Tier:           TierStatistical,
		Accuracy:       &domain.Accuracy{MAE: statNominalMAE, R2: statNominalR2, Nominal: true},
	}, nil
}

// StatisticalYield returns the corrected base yield in kg/ha.
func StatisticalYield(crop, season string, f domain.EnvironmentalFactors) float64 {
	return ApplyCorrections(lookupBaseYield(crop, season), f)
}

// ApplyCorrections scales y by the heat, vegetation, soil and rainfall
// penalties that f triggers. The unit of y is preserved.
func ApplyCorrections(y float64, f domain.EnvironmentalFactors) float64 {
	if f.TemperatureAvg > heatStressC {
		y *= heatStressFactor
	}
	if f.VegetationIndex < lowVegetationIndex {
		y *= lowVegetationFactor
	}
	if f.SoilPH < minSoilPH || f.SoilPH > maxSoilPH {
		y *= soilPHFactor
	}
	switch {
	case f.RainfallMm < droughtMm:
		y *= droughtFactor
	case f.RainfallMm > waterloggingMm:
		y *= waterlogFactor
	}
	return y
}
