package environment

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fasalneeti/yield-service/internal/domain"
	"github.com/fasalneeti/yield-service/internal/observability"
)

var errUpstream = errors.New("upstream unavailable")

type fakeWeather struct {
	calls atomic.Int32
	w     domain.Weather
	err   error
}

func (f *fakeWeather) CurrentWeather(context.Context, domain.Coordinates) (domain.Weather, error) {
	f.calls.Add(1)
	return f.w, f.err
}

type fakeSoil struct {
	ph  float64
	err error
}

func (f *fakeSoil) SoilPH(context.Context, domain.Coordinates) (float64, error) { return f.ph, f.err }

type fakeVegetation struct {
	ndvi float64
	err  error
}

func (f *fakeVegetation) VegetationIndex(context.Context, domain.Coordinates) (float64, error) {
	return f.ndvi, f.err
}

type fakeGeocoder struct {
	calls  atomic.Int32
	result domain.GeocodingResult
	err    error
}

func (f *fakeGeocoder) ForwardGeocode(context.Context, string, string) (domain.GeocodingResult, error) {
	f.calls.Add(1)
	return f.result, f.err
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func downSources() Sources {
	return Sources{
		Weather:    &fakeWeather{err: errUpstream},
		Soil:       &fakeSoil{err: errUpstream},
		Vegetation: &fakeVegetation{err: errUpstream},
		Geocoder:   &fakeGeocoder{err: errUpstream},
	}
}

func TestResolve_AllUpstreamsDown_KnownDistrict(t *testing.T) {
	metrics := observability.NewMetricsForTesting()
	p := NewProvider(downSources(), nil, discardLogger(), metrics)

	got := p.Resolve(context.Background(), domain.Location{State: "Uttar Pradesh", District: "Lucknow"})

	want := domain.EnvironmentalFactors{
		VegetationIndex: 0.68,
		SoilPH:          7.1,
		TemperatureAvg:  23,
		HumidityPct:     68,
		RainfallMm:      8,
		WindSpeedKmh:    6,
		Description:     "moderate",
		Source:          domain.SourceStaticTable,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Resolve() mismatch (-want +got):\n%s", diff)
	}
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.EnvironmentResolutions.WithLabelValues("site", domain.SourceStaticTable)), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.EnvironmentResolutions.WithLabelValues("weather", domain.SourceStaticTable)), 0)
}

func TestResolve_AllUpstreamsDown_UnknownDistrict(t *testing.T) {
	sources := downSources()
	p := NewProvider(sources, nil, discardLogger(), observability.NewMetricsForTesting())

	got := p.Resolve(context.Background(), domain.Location{State: "Bihar", District: "Gaya"})

	assert.Equal(t, domain.SourceGenericFallback, got.Source)
	assert.InDelta(t, 0.65, got.VegetationIndex, 0)
	assert.InDelta(t, 6.8, got.SoilPH, 0)
	assert.InDelta(t, 28.0, got.TemperatureAvg, 0)
	assert.InDelta(t, 70.0, got.HumidityPct, 0)
	assert.InDelta(t, 5.0, got.RainfallMm, 0)
	assert.InDelta(t, 10.0, got.WindSpeedKmh, 0)
	assert.Equal(t, "partly cloudy", got.Description)
	assert.Equal(t, int32(1), sources.Geocoder.(*fakeGeocoder).calls.Load())
}

func TestResolve_NoSources(t *testing.T) {
	p := NewProvider(Sources{}, nil, discardLogger(), observability.NewMetricsForTesting())

	got := p.Resolve(context.Background(), domain.Location{State: "Maharashtra", District: "Pune"})

	// Pune has static weather but no site row.
	assert.Equal(t, domain.SourceGenericFallback, got.Source)
	assert.InDelta(t, 24.0, got.TemperatureAvg, 0)
	assert.Equal(t, "pleasant", got.Description)
	assert.InDelta(t, 0.65, got.VegetationIndex, 0)
}

func TestResolve_Live(t *testing.T) {
	live := domain.Weather{TemperatureAvg: 37, HumidityPct: 25, RainfallMm: 0, WindSpeedKmh: 14.4, Description: "clear sky"}
	sources := Sources{
		Weather:    &fakeWeather{w: live},
		Soil:       &fakeSoil{ph: 7.6},
		Vegetation: &fakeVegetation{ndvi: 0.41},
		Geocoder:   &fakeGeocoder{},
	}
	p := NewProvider(sources, domain.NewRandom(1), discardLogger(), observability.NewMetricsForTesting())

	got := p.Resolve(context.Background(), domain.Location{State: "Uttar Pradesh", District: "Agra"})

	assert.Equal(t, domain.SourceLive, got.Source)
	assert.Equal(t, live, got.Weather())
	assert.InDelta(t, 0.41, got.VegetationIndex, 0)
	assert.InDelta(t, 7.6, got.SoilPH, 0)
	assert.Equal(t, int32(0), sources.Geocoder.(*fakeGeocoder).calls.Load(), "table coordinates need no geocoding")
}

func TestResolve_PartialLive(t *testing.T) {
	sources := Sources{
		Weather:    &fakeWeather{w: domain.Weather{TemperatureAvg: 30, HumidityPct: 50, Description: "haze"}},
		Soil:       &fakeSoil{err: errUpstream},
		Vegetation: &fakeVegetation{ndvi: 0.5},
	}
	p := NewProvider(sources, nil, discardLogger(), observability.NewMetricsForTesting())

	got := p.Resolve(context.Background(), domain.Location{State: "Uttar Pradesh", District: "Varanasi"})

	assert.Equal(t, domain.SourceStaticTable, got.Source, "weakest component wins")
	assert.InDelta(t, 0.70, got.VegetationIndex, 0, "site falls back as a whole")
	assert.InDelta(t, 6.9, got.SoilPH, 0)
	assert.InDelta(t, 30.0, got.TemperatureAvg, 0)
}

func TestResolve_GeocodesUnknownDistrict(t *testing.T) {
	weather := &fakeWeather{w: domain.Weather{TemperatureAvg: 31, HumidityPct: 60, Description: "cloudy"}}
	geo := &fakeGeocoder{result: domain.GeocodingResult{Lat: 25.61, Lon: 85.14, FormattedAddress: "Patna, Bihar, India"}}
	p := NewProvider(Sources{Weather: weather, Geocoder: geo}, nil, discardLogger(), observability.NewMetricsForTesting())

	got := p.Resolve(context.Background(), domain.Location{State: "Bihar", District: "Patna"})

	assert.Equal(t, int32(1), geo.calls.Load())
	assert.Equal(t, int32(1), weather.calls.Load())
	assert.InDelta(t, 31.0, got.TemperatureAvg, 0)
	// No live site sources, no site row.
	assert.Equal(t, domain.SourceGenericFallback, got.Source)
}

func TestResolve_GeocoderEmptyResultSkipsLive(t *testing.T) {
	weather := &fakeWeather{w: domain.Weather{TemperatureAvg: 31}}
	p := NewProvider(Sources{Weather: weather, Geocoder: &fakeGeocoder{}}, nil, discardLogger(), observability.NewMetricsForTesting())

	got := p.Resolve(context.Background(), domain.Location{State: "Nowhere", District: "Atlantis"})

	assert.Equal(t, int32(0), weather.calls.Load())
	assert.Equal(t, domain.SourceGenericFallback, got.Source)
}

func TestResolve_JitterBands(t *testing.T) {
	p := NewProvider(Sources{}, domain.NewRandom(99), discardLogger(), observability.NewMetricsForTesting())

	for range 200 {
		static := p.Resolve(context.Background(), domain.Location{State: "Uttar Pradesh", District: "Kanpur"})
		assert.InDelta(t, 24.0, static.TemperatureAvg, 24*0.05+1e-9)
		assert.InDelta(t, 65.0, static.HumidityPct, 65*0.05+1e-9)
		assert.InDelta(t, 0.65, static.VegetationIndex, 0, "static site data is not jittered")

		generic := p.Resolve(context.Background(), domain.Location{State: "Kerala", District: "Idukki"})
		assert.InDelta(t, 28.0, generic.TemperatureAvg, 28*0.10+1e-9)
		assert.InDelta(t, 6.8, generic.SoilPH, 6.8*0.10+1e-9)
		assert.LessOrEqual(t, generic.HumidityPct, 100.0)
	}
}

func TestResolve_CaseInsensitiveDistrict(t *testing.T) {
	p := NewProvider(Sources{}, nil, discardLogger(), observability.NewMetricsForTesting())
	got := p.Resolve(context.Background(), domain.Location{State: "Uttar Pradesh", District: "  ALLAHABAD "})
	assert.Equal(t, domain.SourceGenericFallback, got.Source, "allahabad has site data but no weather row")
	assert.InDelta(t, 0.67, got.VegetationIndex, 0)
}

func TestDistricts(t *testing.T) {
	ds := Districts()
	require.Len(t, ds, 5)
	names := make([]string, len(ds))
	for i, d := range ds {
		names[i] = d.Name
		assert.False(t, d.Coordinates.IsZero(), d.Name)
	}
	assert.Equal(t, []string{"Agra", "Allahabad", "Kanpur", "Lucknow", "Varanasi"}, names)
}
