package store

import (
	"context"
	"database/sql"
	"time"
)

// BlacklistRepository persists revoked access tokens.
type BlacklistRepository struct {
	db *sql.DB
}

func NewBlacklistRepository(db *sql.DB) *BlacklistRepository {
	return &BlacklistRepository{db: db}
}

// Add records token as revoked. Adding an already revoked token is a no-op.
func (r *BlacklistRepository) Add(ctx context.Context, token string, expiresAt time.Time) error {
	const query = `
		INSERT INTO blacklist (token, blacklisted_on, expires_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (token) DO NOTHING`
	_, err := r.db.ExecContext(ctx, query, token, time.Now().UTC(), expiresAt.UTC())
	return translate(err)
}

func (r *BlacklistRepository) Contains(ctx context.Context, token string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM blacklist WHERE token = $1)`
	var exists bool
	if err := r.db.QueryRowContext(ctx, query, token).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

// PruneExpired deletes entries whose token expired before now.
func (r *BlacklistRepository) PruneExpired(ctx context.Context, now time.Time) (int64, error) {
	const query = `DELETE FROM blacklist WHERE expires_at < $1`
	result, err := r.db.ExecContext(ctx, query, now.UTC())
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
