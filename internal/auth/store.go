package auth

import (
	"context"
	"database/sql"
	"time"

	"github.com/lib/pq"
)

// Store persists session flags keyed by session id.
type Store interface {
	Load(ctx context.Context, sessionID string) (Flags, error)
	Save(ctx context.Context, sessionID string, flags Flags) error
	Clear(ctx context.Context, sessionID string) error
	Purge(ctx context.Context, before time.Time) (int64, error)
}

type PGStore struct {
	db *sql.DB
}

func NewPGStore(db *sql.DB) *PGStore {
	return &PGStore{db: db}
}

func (s *PGStore) Load(ctx context.Context, sessionID string) (Flags, error) {
	const q = `SELECT key, value FROM session_flags WHERE session_id = $1`
	rows, err := s.db.QueryContext(ctx, q, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	flags := Flags{}
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, err
		}
		flags[k] = v
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return flags, nil
}

// Save upserts every key in flags. Keys absent from flags are left alone.
func (s *PGStore) Save(ctx context.Context, sessionID string, flags Flags) error {
	if len(flags) == 0 {
		return nil
	}
	keys := make([]string, 0, len(flags))
	values := make([]string, 0, len(flags))
	for k, v := range flags {
		keys = append(keys, k)
		values = append(values, v)
	}
	const q = `
		INSERT INTO session_flags (session_id, key, value, updated_at)
		SELECT $1, t.key, t.value, $4
		FROM unnest($2::text[], $3::text[]) AS t(key, value)
		ON CONFLICT (session_id, key)
		DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at
	`
	_, err := s.db.ExecContext(ctx, q, sessionID, pq.Array(keys), pq.Array(values), time.Now().UTC())
	return err
}

func (s *PGStore) Clear(ctx context.Context, sessionID string) error {
	const q = `DELETE FROM session_flags WHERE session_id = $1`
	_, err := s.db.ExecContext(ctx, q, sessionID)
	return err
}

// Purge drops sessions whose newest flag was written before the cutoff.
func (s *PGStore) Purge(ctx context.Context, before time.Time) (int64, error) {
	const q = `
		DELETE FROM session_flags WHERE session_id IN (
			SELECT session_id FROM session_flags
			GROUP BY session_id
			HAVING max(updated_at) < $1
		)
	`
	res, err := s.db.ExecContext(ctx, q, before.UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
