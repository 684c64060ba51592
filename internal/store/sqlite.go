// Package store persists scored run output to a SQLite file so prior runs
// can be inspected without re-running the pipeline.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // pure go sqlite driver

	"github.com/couchcryptid/chemtrac-risk-pipeline/internal/domain"
)

// Record is one persisted facility row.
type Record struct {
	FacilityID        string
	RiskScore         *float64
	Anomaly           bool
	AnomalyConfidence float64
	ProcessedAt       time.Time
}

// Store writes scored facilities to a single SQLite table, replacing rows
// by facility ID on each run.
type Store struct {
	db *sql.DB
}

// Open creates or opens the run store at path and ensures the schema exists.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil && !errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("create store dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS scored_facilities (
		facility_id        TEXT PRIMARY KEY,
		risk_score         REAL,
		anomaly            INTEGER NOT NULL,
		anomaly_confidence REAL NOT NULL,
		processed_at       TEXT NOT NULL
	)`); err != nil {
		return nil, fmt.Errorf("create scored_facilities table: %w", err)
	}
	return &Store{db: db}, nil
}

// SaveRun replaces the stored rows with the given population inside one
// transaction. A null risk_score marks an unscored facility.
func (s *Store) SaveRun(ctx context.Context, scored []domain.ScoredFacility) (retErr error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin run transaction: %w", err)
	}
	defer func() {
		if retErr != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err := tx.ExecContext(ctx, `DELETE FROM scored_facilities`); err != nil {
		return fmt.Errorf("clear previous run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO scored_facilities
		(facility_id, risk_score, anomaly, anomaly_confidence, processed_at)
		VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, f := range scored {
		var risk sql.NullFloat64
		if f.RiskScore != nil {
			risk = sql.NullFloat64{Float64: *f.RiskScore, Valid: true}
		}
		if _, err := stmt.ExecContext(ctx, f.ID, risk, f.Anomaly, f.AnomalyConfidence,
			f.ProcessedAt.UTC().Format(time.RFC3339)); err != nil {
			return fmt.Errorf("insert facility %s: %w", f.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit run: %w", err)
	}
	return nil
}

// LoadRun reads back the stored rows ordered by facility ID.
func (s *Store) LoadRun(ctx context.Context) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT facility_id, risk_score, anomaly,
		anomaly_confidence, processed_at FROM scored_facilities ORDER BY facility_id`)
	if err != nil {
		return nil, fmt.Errorf("select run: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var records []Record
	for rows.Next() {
		var (
			rec       Record
			risk      sql.NullFloat64
			processed string
		)
		if err := rows.Scan(&rec.FacilityID, &risk, &rec.Anomaly, &rec.AnomalyConfidence, &processed); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		if risk.Valid {
			r := risk.Float64
			rec.RiskScore = &r
		}
		ts, err := time.Parse(time.RFC3339, processed)
		if err != nil {
			return nil, fmt.Errorf("parse processed_at for %s: %w", rec.FacilityID, err)
		}
		rec.ProcessedAt = ts
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return records, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}
