package labels

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// SQLiteStore persists labels in a local SQLite file. It suits a single
// analytics process that has no PostgreSQL at hand.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLiteStore opens or creates the label database at path. Use
// ":memory:" for a throwaway store.
func OpenSQLiteStore(ctx context.Context, path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening label database: %w", err)
	}

	// SQLite serialises writers anyway; one connection also keeps
	// ":memory:" databases alive across calls.
	db.SetMaxOpenConns(1)

	schema := `
		CREATE TABLE IF NOT EXISTS node_labels (
			node_id    TEXT NOT NULL,
			label      TEXT NOT NULL,
			updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (node_id, label)
		);

		CREATE INDEX IF NOT EXISTS idx_node_labels_label ON node_labels(label);
	`
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating label schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// ReadLabels returns the sorted labels of a node.
func (s *SQLiteStore) ReadLabels(ctx context.Context, nodeID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT label FROM node_labels WHERE node_id = ? ORDER BY label`, nodeID)
	if err != nil {
		return nil, fmt.Errorf("reading labels for %s: %w", nodeID, err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var label string
		if err := rows.Scan(&label); err != nil {
			return nil, fmt.Errorf("scanning label for %s: %w", nodeID, err)
		}
		out = append(out, label)
	}
	return out, rows.Err()
}

// ReadAllLabels loads the whole table in one query.
func (s *SQLiteStore) ReadAllLabels(ctx context.Context) (map[string][]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT node_id, label FROM node_labels ORDER BY node_id, label`)
	if err != nil {
		return nil, fmt.Errorf("reading labels: %w", err)
	}
	defer rows.Close()

	out := make(map[string][]string)
	for rows.Next() {
		var nodeID, label string
		if err := rows.Scan(&nodeID, &label); err != nil {
			return nil, fmt.Errorf("scanning label row: %w", err)
		}
		out[nodeID] = append(out[nodeID], label)
	}
	return out, rows.Err()
}

// ApplyDelta commits removals and additions for one node in a single
// transaction.
func (s *SQLiteStore) ApplyDelta(ctx context.Context, nodeID string, add, remove []string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin for %s: %v", ErrWriteFailure, nodeID, err)
	}
	defer tx.Rollback()

	for _, label := range remove {
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM node_labels WHERE node_id = ? AND label = ?`, nodeID, label); err != nil {
			return fmt.Errorf("%w: remove %s for %s: %v", ErrWriteFailure, label, nodeID, err)
		}
	}
	for _, label := range add {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO node_labels (node_id, label) VALUES (?, ?)
			 ON CONFLICT (node_id, label) DO UPDATE SET updated_at = CURRENT_TIMESTAMP`, nodeID, label); err != nil {
			return fmt.Errorf("%w: add %s for %s: %v", ErrWriteFailure, label, nodeID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit for %s: %v", ErrWriteFailure, nodeID, err)
	}
	return nil
}

// Ping checks the database is reachable.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
