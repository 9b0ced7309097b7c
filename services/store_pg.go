package services

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PGStore keeps one customer's keys in the storefront_kv table.
type PGStore struct {
	pool     *pgxpool.Pool
	tgUserID int64
}

func NewPGStore(pool *pgxpool.Pool, tgUserID int64) *PGStore {
	return &PGStore{pool: pool, tgUserID: tgUserID}
}

func (s *PGStore) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.pool.QueryRow(ctx, `
		SELECT value FROM storefront_kv WHERE tg_user_id = $1 AND key = $2`,
		s.tgUserID, key,
	).Scan(&value)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", false, nil
		}
		return "", false, err
	}
	return value, true, nil
}

func (s *PGStore) Set(ctx context.Context, key, value string) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO storefront_kv (tg_user_id, key, value, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (tg_user_id, key) DO UPDATE SET
			value = EXCLUDED.value,
			updated_at = now()`,
		s.tgUserID, key, value,
	)
	return err
}

func (s *PGStore) Remove(ctx context.Context, key string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM storefront_kv WHERE tg_user_id = $1 AND key = $2`, s.tgUserID, key)
	return err
}
