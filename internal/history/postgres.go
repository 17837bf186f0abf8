package history

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
)

// PostgresStore implements Recorder on PostgreSQL for deployments where
// several workers share one history, such as the queue intake mode.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore connects to the database and ensures the history
// table exists.
func NewPostgresStore(databaseURL string) (*PostgresStore, error) {
	if databaseURL == "" {
		return nil, fmt.Errorf("database URL is required")
	}

	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(2 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if _, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS ocr_history (
			id UUID PRIMARY KEY,
			file_name TEXT NOT NULL,
			text TEXT NOT NULL,
			settings_summary TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ensure history table: %w", err)
	}

	return &PostgresStore{db: db}, nil
}

// Append persists a record, generating its ID.
func (s *PostgresStore) Append(ctx context.Context, rec Record) (string, error) {
	id := uuid.NewString()
	createdAt := rec.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO ocr_history (id, file_name, text, settings_summary, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, id, rec.FileName, rec.Text, rec.SettingsSummary, createdAt.UTC())
	if err != nil {
		return "", fmt.Errorf("failed to append history record: %w", err)
	}

	return id, nil
}

// List returns all records, most recent first.
func (s *PostgresStore) List(ctx context.Context) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, file_name, text, settings_summary, created_at
		FROM ocr_history
		ORDER BY created_at DESC, id DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list history: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var rec Record
		if err := rows.Scan(&rec.ID, &rec.FileName, &rec.Text, &rec.SettingsSummary, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan history record: %w", err)
		}
		records = append(records, rec)
	}

	return records, rows.Err()
}

// DeleteOne removes a record by ID.
func (s *PostgresStore) DeleteOne(ctx context.Context, id string) (bool, error) {
	if _, err := uuid.Parse(id); err != nil {
		return false, nil
	}

	res, err := s.db.ExecContext(ctx, "DELETE FROM ocr_history WHERE id = $1", id)
	if err != nil {
		return false, fmt.Errorf("failed to delete history record %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// DeleteAll clears the history.
func (s *PostgresStore) DeleteAll(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM ocr_history")
	if err != nil {
		return 0, fmt.Errorf("failed to clear history: %w", err)
	}
	return res.RowsAffected()
}

// Close closes the underlying database.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

// Ping checks database connectivity.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}
