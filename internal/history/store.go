// Package history keeps an audit trail of served predictions in a
// local sqlite database. The prediction core persists nothing; the
// serving layer records outcomes here after the response is built.
package history

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// Record is one audited prediction outcome. Raw attributions are not
// stored; they are request-scoped by design.
type Record struct {
	ID          int64     `json:"id"`
	CreatedAt   time.Time `json:"created_at"`
	Prediction  string    `json:"prediction"`
	Probability float64   `json:"probability"`
	TopFeature  string    `json:"top_feature"`
	Source      string    `json:"source"`
}

// Store wraps the sqlite connection. *sql.DB is safe for concurrent
// use; WAL mode keeps the single writer from blocking readers.
type Store struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS predictions (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	created_at TEXT NOT NULL,
	prediction TEXT NOT NULL,
	probability REAL NOT NULL,
	top_feature TEXT NOT NULL,
	source TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_predictions_created_at ON predictions(created_at);
`

// Open creates the data directory if needed, opens the database, and
// applies the schema.
func Open(dataDir string) (*Store, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "predictions.db")
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Insert records one prediction outcome. Timestamps are stored as
// RFC3339 text so they sort and round-trip without driver-specific
// time handling.
func (s *Store) Insert(prediction string, probability float64, topFeature, source string) error {
	_, err := s.db.Exec(
		`INSERT INTO predictions (created_at, prediction, probability, top_feature, source)
		 VALUES (?, ?, ?, ?, ?)`,
		time.Now().UTC().Format(time.RFC3339Nano), prediction, probability, topFeature, source,
	)
	if err != nil {
		return fmt.Errorf("failed to insert prediction record: %w", err)
	}
	return nil
}

// List returns the most recent records, newest first.
func (s *Store) List(limit int) ([]Record, error) {
	if limit < 1 {
		limit = 50
	}

	rows, err := s.db.Query(
		`SELECT id, created_at, prediction, probability, top_feature, source
		 FROM predictions ORDER BY id DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query prediction records: %w", err)
	}
	defer rows.Close()

	records := make([]Record, 0, limit)
	for rows.Next() {
		var r Record
		var createdAt string
		if err := rows.Scan(&r.ID, &createdAt, &r.Prediction, &r.Probability, &r.TopFeature, &r.Source); err != nil {
			return nil, fmt.Errorf("failed to scan prediction record: %w", err)
		}
		r.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt)
		if err != nil {
			return nil, fmt.Errorf("failed to parse prediction timestamp: %w", err)
		}
		records = append(records, r)
	}

	return records, rows.Err()
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}
