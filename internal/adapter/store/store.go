// Package store persists predictions in a SQL database via sqlx. PostgreSQL
// (lib/pq) and SQLite (go-sqlite3) are supported.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"           // postgres driver
	_ "github.com/mattn/go-sqlite3" // sqlite3 driver

	"github.com/fasalneeti/yield-service/internal/domain"
)

// Store implements prediction.Recorder and prediction.History.
type Store struct {
	db *sqlx.DB
}

// Open connects to the database and applies the schema.
func Open(ctx context.Context, driver, dsn string) (*Store, error) {
	db, err := sqlx.ConnectContext(ctx, driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", driver, err)
	}
	if driver == "sqlite3" {
		// A single connection keeps :memory: databases shared and avoids SQLITE_BUSY.
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(10)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(30 * time.Minute)
	}

	s := &Store{db: db}
	if err := s.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// Migrate creates the predictions table and index if missing.
func (s *Store) Migrate(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}

// Name labels this sink in metrics and logs.
func (s *Store) Name() string { return "store" }

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close releases the connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// Record inserts p.
func (s *Store) Record(ctx context.Context, p domain.Prediction) error {
	row, err := toRow(p)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO predictions (
			id, owner_id, state, district, crop, season, year, area,
			predicted_yield, confidence_pct, model_used, tier, accuracy,
			factors, total_production, alerts, created_at
		) VALUES (
			:id, :owner_id, :state, :district, :crop, :season, :year, :area,
			:predicted_yield, :confidence_pct, :model_used, :tier, :accuracy,
			:factors, :total_production, :alerts, :created_at
		)
	`
	if _, err := s.db.NamedExecContext(ctx, query, row); err != nil {
		return fmt.Errorf("insert prediction %s: %w", p.ID, err)
	}
	return nil
}

// ListByOwner returns up to limit of the owner's predictions, newest first.
func (s *Store) ListByOwner(ctx context.Context, ownerID string, limit int) ([]domain.Prediction, error) {
	query := s.db.Rebind(`SELECT * FROM predictions WHERE owner_id = ? ORDER BY created_at DESC LIMIT ?`)

	var rows []predictionRow
	if err := s.db.SelectContext(ctx, &rows, query, ownerID, limit); err != nil {
		return nil, fmt.Errorf("select predictions: %w", err)
	}

	preds := make([]domain.Prediction, 0, len(rows))
	for _, r := range rows {
		p, err := r.toDomain()
		if err != nil {
			return nil, err
		}
		preds = append(preds, p)
	}
	return preds, nil
}

type predictionRow struct {
	ID              string    `db:"id"`
	OwnerID         string    `db:"owner_id"`
	State           string    `db:"state"`
	District        string    `db:"district"`
	Crop            string    `db:"crop"`
	Season          string    `db:"season"`
	Year            int       `db:"year"`
	Area            float64   `db:"area"`
	PredictedYield  float64   `db:"predicted_yield"`
	ConfidencePct   float64   `db:"confidence_pct"`
	ModelUsed       string    `db:"model_used"`
	Tier            string    `db:"tier"`
	Accuracy        *string   `db:"accuracy"`
	Factors         string    `db:"factors"`
	TotalProduction float64   `db:"total_production"`
	Alerts          string    `db:"alerts"`
	CreatedAt       time.Time `db:"created_at"`
}

func toRow(p domain.Prediction) (predictionRow, error) {
	factors, err := json.Marshal(p.Factors)
	if err != nil {
		return predictionRow{}, fmt.Errorf("encode factors: %w", err)
	}
	alerts := p.Alerts
	if alerts == nil {
		alerts = []domain.Alert{}
	}
	alertsJSON, err := json.Marshal(alerts)
	if err != nil {
		return predictionRow{}, fmt.Errorf("encode alerts: %w", err)
	}

	row := predictionRow{
		ID:              p.ID,
		OwnerID:         p.OwnerID,
		State:           p.State,
		District:        p.District,
		Crop:            p.Crop,
		Season:          p.Season,
		Year:            p.Year,
		Area:            p.Area,
		PredictedYield:  p.Result.PredictedYield,
		ConfidencePct:   p.Result.ConfidencePct,
		ModelUsed:       p.Result.ModelUsed,
		Tier:            p.Result.Tier,
		Factors:         string(factors),
		TotalProduction: p.TotalProduction,
		Alerts:          string(alertsJSON),
		CreatedAt:       p.CreatedAt.UTC(),
	}
	if p.Result.Accuracy != nil {
		acc, err := json.Marshal(p.Result.Accuracy)
		if err != nil {
			return predictionRow{}, fmt.Errorf("encode accuracy: %w", err)
		}
		s := string(acc)
		row.Accuracy = &s
	}
	return row, nil
}

func (r predictionRow) toDomain() (domain.Prediction, error) {
	p := domain.Prediction{
		ID:       r.ID,
		OwnerID:  r.OwnerID,
		State:    r.State,
		District: r.District,
		Crop:     r.Crop,
		Season:   r.Season,
		Year:     r.Year,
		Area:     r.Area,
		Result: domain.EstimationResult{
			PredictedYield: r.PredictedYield,
			ConfidencePct:  r.ConfidencePct,
			ModelUsed:      r.ModelUsed,
			Tier:           r.Tier,
		},
		TotalProduction: r.TotalProduction,
		CreatedAt:       r.CreatedAt.UTC(),
	}
	if err := json.Unmarshal([]byte(r.Factors), &p.Factors); err != nil {
		return domain.Prediction{}, fmt.Errorf("decode factors of %s: %w", r.ID, err)
	}
	if err := json.Unmarshal([]byte(r.Alerts), &p.Alerts); err != nil {
		return domain.Prediction{}, fmt.Errorf("decode alerts of %s: %w", r.ID, err)
	}
	if r.Accuracy != nil {
		p.Result.Accuracy = &domain.Accuracy{}
		if err := json.Unmarshal([]byte(*r.Accuracy), p.Result.Accuracy); err != nil {
			return domain.Prediction{}, fmt.Errorf("decode accuracy of %s: %w", r.ID, err)
		}
	}
	return p, nil
}
