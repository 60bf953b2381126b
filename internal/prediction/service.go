// Package prediction orchestrates a yield prediction: factor resolution,
// estimation, response composition and best-effort recording.
package prediction

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/fasalneeti/yield-service/internal/domain"
	"github.com/fasalneeti/yield-service/internal/observability"
)

const (
	recordTimeout = 5 * time.Second

	DefaultRecentLimit = 10
	MaxRecentLimit     = 100
)

// ErrHistoryUnavailable is returned by Recent when no record store is configured.
var ErrHistoryUnavailable = errors.New("prediction history is not configured")

// EnvironmentProvider resolves environmental factors. It never fails.
type EnvironmentProvider interface {
	Resolve(ctx context.Context, loc domain.Location) domain.EnvironmentalFactors
}

// Estimator produces an estimate. It never fails.
type Estimator interface {
	Estimate(ctx context.Context, req domain.PredictionRequest, factors domain.EnvironmentalFactors) domain.EstimationResult
}

// Recorder persists or publishes a completed prediction.
type Recorder interface {
	Name() string
	Record(ctx context.Context, p domain.Prediction) error
}

// History lists an owner's stored predictions, newest first.
type History interface {
	ListByOwner(ctx context.Context, ownerID string, limit int) ([]domain.Prediction, error)
}

type pinger interface {
	Ping(ctx context.Context) error
}

// Service runs predictions.
type Service struct {
	provider  EnvironmentProvider
	estimator Estimator
	recorders []Recorder
	history   History
	logger    *slog.Logger
	metrics   *observability.Metrics
}

// Option configures optional Service collaborators.
type Option func(*Service)

// WithRecorders adds sinks that receive every owned prediction.
func WithRecorders(rs ...Recorder) Option {
	return func(s *Service) { s.recorders = append(s.recorders, rs...) }
}

// WithHistory enables Recent.
func WithHistory(h History) Option {
	return func(s *Service) { s.history = h }
}

// NewService creates a Service.
func NewService(provider EnvironmentProvider, estimator Estimator, logger *slog.Logger, metrics *observability.Metrics, opts ...Option) *Service {
	s := &Service{
		provider:  provider,
		estimator: estimator,
		logger:    logger,
		metrics:   metrics,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Predict validates req, resolves factors, estimates yield and, when ownerID
// is set, hands the prediction to every recorder. Only validation fails.
func (s *Service) Predict(ctx context.Context, req domain.PredictionRequest, ownerID string) (Response, error) {
	req = req.Normalize()
	if err := req.Validate(); err != nil {
		s.metrics.ValidationErrors.Inc()
		return Response{}, err
	}

	factors := s.provider.Resolve(ctx, req.Location)
	result := s.estimator.Estimate(ctx, req, factors)
	s.metrics.PredictionsTotal.WithLabelValues(result.Tier).Inc()

	resp := newResponse(req, factors, result)

	s.logger.Info("prediction completed",
		"district", req.Location.District,
		"crop", req.Crop,
		"season", req.Season,
		"tier", result.Tier,
		"yield_kg_ha", result.PredictedYield,
		"factor_source", factors.Source,
	)

	if ownerID != "" {
		p := domain.Prediction{
			ID:              uuid.NewString(),
			OwnerID:         ownerID,
			State:           req.Location.State,
			District:        req.Location.District,
			Crop:            req.Crop,
			Season:          req.Season,
			Year:            req.Year,
			Area:            req.Area,
			Result:          result,
			Factors:         factors,
			TotalProduction: resp.TotalProduction,
			Alerts:          resp.Alerts,
			CreatedAt:       domain.Now().UTC(),
		}
		resp.PredictionID = p.ID
		s.record(ctx, p)
	}

	return resp, nil
}

// record writes to every recorder, detached from request cancellation so a
// client disconnect does not drop the write. Failures are swallowed.
func (s *Service) record(ctx context.Context, p domain.Prediction) {
	if len(s.recorders) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), recordTimeout)
	defer cancel()

	for _, r := range s.recorders {
		if err := r.Record(ctx, p); err != nil {
			s.metrics.RecordWrites.WithLabelValues(r.Name(), "error").Inc()
			s.logger.Error("record prediction failed", "sink", r.Name(), "prediction_id", p.ID, "error", err)
			continue
		}
		s.metrics.RecordWrites.WithLabelValues(r.Name(), "success").Inc()
	}
}

// Recent returns up to limit of the owner's stored predictions, newest first.
// limit is clamped to [1, MaxRecentLimit]; zero means DefaultRecentLimit.
func (s *Service) Recent(ctx context.Context, ownerID string, limit int) ([]domain.Prediction, error) {
	if s.history == nil {
		return nil, ErrHistoryUnavailable
	}
	switch {
	case limit <= 0:
		limit = DefaultRecentLimit
	case limit > MaxRecentLimit:
		limit = MaxRecentLimit
	}
	preds, err := s.history.ListByOwner(ctx, ownerID, limit)
	if err != nil {
		return nil, fmt.Errorf("list predictions: %w", err)
	}
	return preds, nil
}

// Factors resolves environmental factors for a location without estimating.
func (s *Service) Factors(ctx context.Context, loc domain.Location) domain.EnvironmentalFactors {
	return s.provider.Resolve(ctx, loc)
}

// CheckReadiness pings every recorder that supports it.
func (s *Service) CheckReadiness(ctx context.Context) error {
	for _, r := range s.recorders {
		p, ok := r.(pinger)
		if !ok {
			continue
		}
		if err := p.Ping(ctx); err != nil {
			return fmt.Errorf("%s not ready: %w", r.Name(), err)
		}
	}
	return nil
}
