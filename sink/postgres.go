package sink

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/lib/pq"
)

// PostgresSink appends every snapshot to a history table, so attribute
// values can be queried over time.
type PostgresSink struct {
	db *sql.DB
}

func NewPostgresSink(connectionString string) (*PostgresSink, error) {
	db, err := sql.Open("postgres", connectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping PostgreSQL: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	return &PostgresSink{db: db}, nil
}

func (s *PostgresSink) Name() string {
	return "postgres"
}

func (s *PostgresSink) Write(ctx context.Context, snap *Snapshot) error {
	attributes, err := json.Marshal(snap.Attributes)
	if err != nil {
		return fmt.Errorf("failed to marshal attributes: %w", err)
	}

	query := `
		INSERT INTO managed_snapshots (id, object_name, taken_at, attributes)
		VALUES ($1, $2, $3, $4)
	`

	if _, err := s.db.ExecContext(ctx, query, snap.ID, snap.ObjectName, snap.TakenAt, attributes); err != nil {
		return fmt.Errorf("failed to insert snapshot: %w", err)
	}

	return nil
}

// Latest returns the most recent snapshot stored for an object name.
func (s *PostgresSink) Latest(ctx context.Context, objectName string) (*Snapshot, error) {
	query := `
		SELECT id, object_name, taken_at, attributes
		FROM managed_snapshots
		WHERE object_name = $1
		ORDER BY taken_at DESC
		LIMIT 1
	`

	var snap Snapshot
	var attributes []byte

	err := s.db.QueryRowContext(ctx, query, objectName).Scan(
		&snap.ID,
		&snap.ObjectName,
		&snap.TakenAt,
		&attributes,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(attributes, &snap.Attributes); err != nil {
		return nil, fmt.Errorf("failed to unmarshal attributes: %w", err)
	}

	return &snap, nil
}

func (s *PostgresSink) Close() error {
	return s.db.Close()
}
