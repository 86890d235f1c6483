package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/example/roombook/internal/persistence"
)

// Store implements persistence.CollectionStore on a single SQLite table of
// JSON documents keyed by collection name and position. Saving a collection
// replaces its content atomically inside one transaction, so a concurrent
// load observes either the previous or the new content, never a mix.
type Store struct {
	pool *ConnectionPool
}

const schema = `
CREATE TABLE IF NOT EXISTS collections (
	name     TEXT    NOT NULL,
	position INTEGER NOT NULL,
	payload  TEXT    NOT NULL,
	PRIMARY KEY (name, position)
)`

// Open opens (or creates) the collection store at the given DSN.
func Open(dsn string) (*Store, error) {
	pool, err := NewConnectionPool(dsn)
	if err != nil {
		return nil, err
	}

	if _, err := pool.DB().Exec(schema); err != nil {
		_ = pool.Close()
		return nil, fmt.Errorf("failed to initialise schema: %w", err)
	}

	return &Store{pool: pool}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.pool.Close()
}

// Ping verifies the backing database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		return fmt.Errorf("%w: %v", persistence.ErrUnavailable, err)
	}
	return nil
}

// LoadCollection returns the records saved under name in saved order. A name
// that was never saved yields an empty sequence.
func (s *Store) LoadCollection(ctx context.Context, name string) ([]json.RawMessage, error) {
	rows, err := s.pool.DB().QueryContext(ctx,
		`SELECT payload FROM collections WHERE name = ? ORDER BY position`, name)
	if err != nil {
		return nil, mapDriverError(err)
	}
	defer rows.Close()

	var records []json.RawMessage
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, mapDriverError(err)
		}
		records = append(records, json.RawMessage(payload))
	}
	if err := rows.Err(); err != nil {
		return nil, mapDriverError(err)
	}

	return records, nil
}

// SaveCollection replaces the records stored under name.
func (s *Store) SaveCollection(ctx context.Context, name string, records []json.RawMessage) error {
	err := s.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM collections WHERE name = ?`, name); err != nil {
			return err
		}
		for i, record := range records {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO collections (name, position, payload) VALUES (?, ?, ?)`,
				name, i, string(record)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return mapDriverError(err)
	}
	return nil
}

func mapDriverError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return fmt.Errorf("%w: %v", persistence.ErrUnavailable, err)
}

var _ persistence.CollectionStore = (*Store)(nil)
