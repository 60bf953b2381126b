// Package environment resolves the site and weather factors used for a prediction.
//
// Each component is resolved independently through three tiers: live upstream
// APIs, per-district static tables, then location-independent defaults.
// Resolution never fails.
package environment

import (
	"context"
	"log/slog"
	"math"

	"golang.org/x/sync/errgroup"

	"github.com/fasalneeti/yield-service/internal/domain"
	"github.com/fasalneeti/yield-service/internal/observability"
)

const (
	staticWeatherJitter = 0.05
	genericJitter       = 0.10

	componentSite    = "site"
	componentWeather = "weather"
)

// Sources are the live upstreams. A nil source disables that live lookup.
type Sources struct {
	Weather    domain.WeatherSource
	Soil       domain.SoilSource
	Vegetation domain.VegetationSource
	// Geocoder locates districts missing from the coordinates table.
	Geocoder domain.Geocoder
}

// Provider implements factor resolution.
type Provider struct {
	sources Sources
	rand    domain.Random
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewProvider creates a Provider. A nil rand disables cosmetic jitter.
func NewProvider(sources Sources, rand domain.Random, logger *slog.Logger, metrics *observability.Metrics) *Provider {
	return &Provider{
		sources: sources,
		rand:    rand,
		logger:  logger,
		metrics: metrics,
	}
}

// Resolve returns factors for loc. Source is the weaker of the site and
// weather sources.
func (p *Provider) Resolve(ctx context.Context, loc domain.Location) domain.EnvironmentalFactors {
	coords, located := p.locate(ctx, loc)

	var site domain.SiteData
	var weather domain.Weather
	var siteSrc, weatherSrc string
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		site, siteSrc = p.resolveSite(gctx, loc, coords, located)
		return nil
	})
	g.Go(func() error {
		weather, weatherSrc = p.resolveWeather(gctx, loc, coords, located)
		return nil
	})
	_ = g.Wait()

	p.record(loc, componentSite, siteSrc)
	p.record(loc, componentWeather, weatherSrc)
	return domain.CombineFactors(site, siteSrc, weather, weatherSrc)
}

func (p *Provider) record(loc domain.Location, component, source string) {
	p.metrics.EnvironmentResolutions.WithLabelValues(component, source).Inc()
	p.logger.Info("environmental factors resolved",
		"component", component,
		"source", source,
		"district", loc.District,
		"state", loc.State,
	)
}

// locate finds coordinates for live lookups, from the table first and the
// geocoder second.
func (p *Provider) locate(ctx context.Context, loc domain.Location) (domain.Coordinates, bool) {
	if !p.liveEnabled() {
		return domain.Coordinates{}, false
	}
	if c, ok := coordinatesTable[districtKey(loc.District)]; ok {
		return c, true
	}
	if p.sources.Geocoder == nil {
		return domain.Coordinates{}, false
	}
	res, err := p.sources.Geocoder.ForwardGeocode(ctx, loc.District, loc.State)
	if err != nil {
		p.logger.Warn("district geocoding failed", "district", loc.District, "error", err)
		return domain.Coordinates{}, false
	}
	c := res.Coordinates()
	if c.IsZero() {
		return domain.Coordinates{}, false
	}
	return c, true
}

func (p *Provider) liveEnabled() bool {
	return p.sources.Weather != nil || (p.sources.Soil != nil && p.sources.Vegetation != nil)
}

func (p *Provider) resolveSite(ctx context.Context, loc domain.Location, at domain.Coordinates, located bool) (domain.SiteData, string) {
	if located && p.sources.Soil != nil && p.sources.Vegetation != nil {
		site, err := p.liveSite(ctx, at)
		if err == nil {
			return site, domain.SourceLive
		}
		p.logger.Warn("live site data unavailable", "district", loc.District, "error", err)
	}

	if d, ok := siteTable[districtKey(loc.District)]; ok {
		return domain.SiteData{VegetationIndex: d.VegetationIndex, SoilPH: d.SoilPH}, domain.SourceStaticTable
	}

	return domain.SiteData{
		VegetationIndex: domain.Jitter(p.rand, genericSite.VegetationIndex, genericJitter),
		SoilPH:          domain.Jitter(p.rand, genericSite.SoilPH, genericJitter),
	}, domain.SourceGenericFallback
}

// liveSite needs both NDVI and pH; the first failure cancels the other call.
func (p *Provider) liveSite(ctx context.Context, at domain.Coordinates) (domain.SiteData, error) {
	var site domain.SiteData
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		v, err := p.sources.Vegetation.VegetationIndex(gctx, at)
		site.VegetationIndex = v
		return err
	})
	g.Go(func() error {
		v, err := p.sources.Soil.SoilPH(gctx, at)
		site.SoilPH = v
		return err
	})
	if err := g.Wait(); err != nil {
		return domain.SiteData{}, err
	}
	return site, nil
}

func (p *Provider) resolveWeather(ctx context.Context, loc domain.Location, at domain.Coordinates, located bool) (domain.Weather, string) {
	if located && p.sources.Weather != nil {
		w, err := p.sources.Weather.CurrentWeather(ctx, at)
		if err == nil {
			return w, domain.SourceLive
		}
		p.logger.Warn("live weather unavailable", "district", loc.District, "error", err)
	}

	if w, ok := weatherTable[districtKey(loc.District)]; ok {
		return p.jitterWeather(w, staticWeatherJitter), domain.SourceStaticTable
	}
	return p.jitterWeather(genericWeather, genericJitter), domain.SourceGenericFallback
}

func (p *Provider) jitterWeather(w domain.Weather, fraction float64) domain.Weather {
	return domain.Weather{
		TemperatureAvg: domain.Jitter(p.rand, w.TemperatureAvg, fraction),
		HumidityPct:    math.Min(100, domain.Jitter(p.rand, w.HumidityPct, fraction)),
		RainfallMm:     domain.Jitter(p.rand, w.RainfallMm, fraction),
		WindSpeedKmh:   domain.Jitter(p.rand, w.WindSpeedKmh, fraction),
		Description:    w.Description,
	}
}
