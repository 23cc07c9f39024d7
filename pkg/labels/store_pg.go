package labels

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PGStore persists labels in PostgreSQL, one row per (node, label).
type PGStore struct {
	pool *pgxpool.Pool
}

// NewPGStore connects, verifies and migrates the label table.
func NewPGStore(ctx context.Context, databaseURL string) (*PGStore, error) {
	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}

	config.MaxConns = 10
	config.MinConns = 1
	config.MaxConnLifetime = 5 * time.Minute
	config.MaxConnIdleTime = 1 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("database unreachable: %w", err)
	}

	s := &PGStore{pool: pool}
	if err := s.migrate(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("migration failed: %w", err)
	}
	return s, nil
}

func (s *PGStore) migrate(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS node_labels (
		node_id    TEXT NOT NULL,
		label      TEXT NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		PRIMARY KEY (node_id, label)
	);

	CREATE INDEX IF NOT EXISTS idx_node_labels_label ON node_labels(label);
	`
	_, err := s.pool.Exec(ctx, schema)
	return err
}

// ReadLabels returns the sorted labels of a node.
func (s *PGStore) ReadLabels(ctx context.Context, nodeID string) ([]string, error) {
	rows, err := s.pool.Query(ctx, `SELECT label FROM node_labels WHERE node_id = $1 ORDER BY label`, nodeID)
	if err != nil {
		return nil, fmt.Errorf("failed to read labels for %s: %w", nodeID, err)
	}
	out, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("failed to scan labels for %s: %w", nodeID, err)
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out, nil
}

// ReadAllLabels loads the whole table in one query.
func (s *PGStore) ReadAllLabels(ctx context.Context) (map[string][]string, error) {
	rows, err := s.pool.Query(ctx, `SELECT node_id, label FROM node_labels ORDER BY node_id, label`)
	if err != nil {
		return nil, fmt.Errorf("failed to read labels: %w", err)
	}
	defer rows.Close()

	out := make(map[string][]string)
	for rows.Next() {
		var nodeID, label string
		if err := rows.Scan(&nodeID, &label); err != nil {
			return nil, fmt.Errorf("failed to scan label row: %w", err)
		}
		out[nodeID] = append(out[nodeID], label)
	}
	return out, rows.Err()
}

// ApplyDelta commits removals and additions for one node in a single
// transaction. Inserts ignore existing rows so replays are harmless.
func (s *PGStore) ApplyDelta(ctx context.Context, nodeID string, add, remove []string) (err error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("%w: begin for %s: %v", ErrWriteFailure, nodeID, err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
				err = fmt.Errorf("%w (rollback: %v)", err, rbErr)
			}
		}
	}()

	if len(remove) > 0 {
		if _, err = tx.Exec(ctx,
			`DELETE FROM node_labels WHERE node_id = $1 AND label = ANY($2)`,
			nodeID, remove,
		); err != nil {
			return fmt.Errorf("%w: remove for %s: %v", ErrWriteFailure, nodeID, err)
		}
	}
	if len(add) > 0 {
		if _, err = tx.Exec(ctx,
			`INSERT INTO node_labels (node_id, label)
			 SELECT $1, unnest($2::text[])
			 ON CONFLICT (node_id, label) DO UPDATE SET updated_at = now()`,
			nodeID, add,
		); err != nil {
			return fmt.Errorf("%w: add for %s: %v", ErrWriteFailure, nodeID, err)
		}
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("%w: commit for %s: %v", ErrWriteFailure, nodeID, err)
	}
	return nil
}

// Ping checks database connectivity
func (s *PGStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close closes the database connection pool
func (s *PGStore) Close() error {
	s.pool.Close()
	return nil
}
