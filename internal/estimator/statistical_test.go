package estimator

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fasalneeti/yield-service/internal/domain"
)

func TestStatistical_RiceKharifNoCorrections(t *testing.T) {
	res, err := NewStatistical().Estimate(context.Background(), riceRequest(), neutralFactors())
	require.NoError(t, err)

	assert.InDelta(t, 2540.0, res.PredictedYield, 0)
	assert.InDelta(t, 85.0, res.ConfidencePct, 0)
	assert.Equal(t, TierStatistical, res.Tier)
	require.NotNil(t, res.Accuracy)
	assert.Equal(t, domain.Accuracy{MAE: 250, R2: 0.8, Nominal: true}, *res.Accuracy)
}

func TestStatisticalYield_Corrections(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*domain.EnvironmentalFactors)
		want   float64
	}{
		{"none", func(*domain.EnvironmentalFactors) {}, 2540},
		{"heat stress", func(f *domain.EnvironmentalFactors) { f.TemperatureAvg = 36 }, 2540 * 0.90},
		{"boundary heat is not stress", func(f *domain.EnvironmentalFactors) { f.TemperatureAvg = 35 }, 2540},
		{"low vegetation", func(f *domain.EnvironmentalFactors) { f.VegetationIndex = 0.3 }, 2540 * 0.85},
		{"acidic soil", func(f *domain.EnvironmentalFactors) { f.SoilPH = 5.5 }, 2540 * 0.92},
		{"alkaline soil", func(f *domain.EnvironmentalFactors) { f.SoilPH = 8.4 }, 2540 * 0.92},
		{"drought", func(f *domain.EnvironmentalFactors) { f.RainfallMm = 1 }, 2540 * 0.88},
		{"waterlogging", func(f *domain.EnvironmentalFactors) { f.RainfallMm = 250 }, 2540 * 0.90},
		{"compounded", func(f *domain.EnvironmentalFactors) {
			f.TemperatureAvg = 40
			f.VegetationIndex = 0.2
			f.SoilPH = 9
		}, 2540 * 0.90 * 0.85 * 0.92},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := neutralFactors()
			tt.mutate(&f)
			assert.InDelta(t, tt.want, StatisticalYield("Rice", "Kharif", f), 1e-9)
		})
	}
}

func TestStatisticalYield_TableLookup(t *testing.T) {
	f := neutralFactors()
	assert.InDelta(t, 3280.0, StatisticalYield("wheat", "RABI", f), 0)
	assert.InDelta(t, 1280.0, StatisticalYield("Cotton(lint)", "Kharif", f), 0)
	assert.InDelta(t, 2000.0, StatisticalYield("Millet", "Kharif", f), 0)
	assert.InDelta(t, 2000.0, StatisticalYield("Rice", "Whole Year", f), 0)
}

func TestFallback_Variation(t *testing.T) {
	fb := NewFallback(domain.NewRandom(11))
	for range 200 {
		res, err := fb.Estimate(context.Background(), domain.PredictionRequest{Crop: "Sugarcane"}, neutralFactors())
		require.NoError(t, err)
		assert.GreaterOrEqual(t, res.PredictedYield, 65000*0.8)
		assert.Less(t, res.PredictedYield, 65000*1.2)
		assert.InDelta(t, 60.0, res.ConfidencePct, 0)
	}
}

func TestFallback_NoRandIsDeterministic(t *testing.T) {
	fb := NewFallback(nil)
	for crop, want := range map[string]float64{"Rice": 2500, "wheat": 3000, "Maize": 4000, "Cotton": 1500, "Jowar": 2500} {
		res, err := fb.Estimate(context.Background(), domain.PredictionRequest{Crop: crop}, domain.EnvironmentalFactors{})
		require.NoError(t, err)
		assert.InDelta(t, want, res.PredictedYield, 0, crop)
	}
}
