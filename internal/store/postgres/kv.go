package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/lib/pq"

	"carva/internal/store"
)

const notifyChannel = "carva_kv_changes"

// KVStore keeps each collection as one JSONB row. Writers NOTIFY the key so
// other instances can refresh without waiting for a poll.
type KVStore struct {
	db     *sql.DB
	dsn    string
	logger *slog.Logger
}

// NewKVStore creates a PostgreSQL-backed store.KV. dsn is used for the
// LISTEN connection, which cannot share the pooled handle.
func NewKVStore(db *sql.DB, dsn string, logger *slog.Logger) *KVStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &KVStore{db: db, dsn: dsn, logger: logger}
}

var _ store.KV = (*KVStore)(nil)

// Get returns the value for key, or nil if it is absent.
func (s *KVStore) Get(ctx context.Context, key string) ([]byte, error) {
	return get(ctx, s.db, key, false)
}

// Put replaces the value for key.
func (s *KVStore) Put(ctx context.Context, key string, value []byte) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if err := upsert(ctx, tx, key, value); err != nil {
			return err
		}
		return notify(ctx, tx, key)
	})
}

// Update serializes writers of a key with a transaction-scoped advisory lock
// so the read-modify-write also covers keys that do not exist yet.
func (s *KVStore) Update(ctx context.Context, key string, fn store.UpdateFunc) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, key); err != nil {
			return fmt.Errorf("lock %s: %w", key, err)
		}

		current, err := get(ctx, tx, key, true)
		if err != nil {
			return err
		}

		next, err := fn(current)
		if err != nil {
			return err
		}

		if next == nil {
			if _, err := tx.ExecContext(ctx, `DELETE FROM carva_kv WHERE key = $1`, key); err != nil {
				return err
			}
		} else if err := upsert(ctx, tx, key, next); err != nil {
			return err
		}
		return notify(ctx, tx, key)
	})
}

// Delete removes key.
func (s *KVStore) Delete(ctx context.Context, key string) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM carva_kv WHERE key = $1`, key); err != nil {
			return err
		}
		return notify(ctx, tx, key)
	})
}

// SetNX inserts key only if it is absent.
func (s *KVStore) SetNX(ctx context.Context, key string, value []byte) (bool, error) {
	var inserted bool
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			INSERT INTO carva_kv (key, value, updated_at)
			VALUES ($1, $2, now())
			ON CONFLICT (key) DO NOTHING
		`, key, string(value))
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		inserted = n == 1
		if !inserted {
			return nil
		}
		return notify(ctx, tx, key)
	})
	return inserted, err
}

// Subscribe opens a dedicated LISTEN connection and forwards notified keys.
func (s *KVStore) Subscribe(ctx context.Context) (<-chan string, error) {
	listener := pq.NewListener(s.dsn, 10*time.Second, time.Minute, func(ev pq.ListenerEventType, err error) {
		if err != nil {
			s.logger.Warn("postgres listener event", "event", ev, "error", err)
		}
	})
	if err := listener.Listen(notifyChannel); err != nil {
		_ = listener.Close()
		return nil, fmt.Errorf("listen %s: %w", notifyChannel, err)
	}

	out := make(chan string, 64)
	go func() {
		defer close(out)
		defer listener.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case n, ok := <-listener.Notify:
				if !ok {
					return
				}
				// A nil notification means the connection was re-established.
				if n == nil {
					continue
				}
				select {
				case out <- n.Extra:
				default:
				}
			case <-time.After(90 * time.Second):
				go func() { _ = listener.Ping() }()
			}
		}
	}()
	return out, nil
}

// Close is a no-op; the pool is owned by the caller.
func (s *KVStore) Close() error {
	return nil
}

func (s *KVStore) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

func get(ctx context.Context, q Querier, key string, forUpdate bool) ([]byte, error) {
	query := `SELECT value FROM carva_kv WHERE key = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}

	var value []byte
	err := q.QueryRowContext(ctx, query, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return value, nil
}

func upsert(ctx context.Context, q Querier, key string, value []byte) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO carva_kv (key, value, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = now()
	`, key, string(value))
	return err
}

func notify(ctx context.Context, q Querier, key string) error {
	_, err := q.ExecContext(ctx, `SELECT pg_notify($1, $2)`, notifyChannel, key)
	return err
}
