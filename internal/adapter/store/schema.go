package store

// schema is portable across PostgreSQL and SQLite. Factors, alerts and
// accuracy are stored as JSON text.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS predictions (
		id               TEXT PRIMARY KEY,
		owner_id         TEXT NOT NULL,
		state            TEXT NOT NULL,
		district         TEXT NOT NULL,
		crop             TEXT NOT NULL,
		season           TEXT NOT NULL,
		year             INTEGER NOT NULL,
		area             DOUBLE PRECISION NOT NULL,
		predicted_yield  DOUBLE PRECISION NOT NULL,
		confidence_pct   DOUBLE PRECISION NOT NULL,
		model_used       TEXT NOT NULL,
		tier             TEXT NOT NULL,
		accuracy         TEXT,
		factors          TEXT NOT NULL,
		total_production DOUBLE PRECISION NOT NULL,
		alerts           TEXT NOT NULL,
		created_at       TIMESTAMP NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS predictions_owner_created_idx ON predictions (owner_id, created_at DESC)`,
}
