package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/NordCoder/Recipebox/internal/domain/auth"
)

var (
	_ auth.RefreshTokenStore = (*RefreshTokenRepo)(nil)
	_ auth.ExpiredPurger     = (*RefreshTokenRepo)(nil)
)

type RefreshTokenRepo struct{ db *DB }

func NewRefreshTokenRepo(db *DB) *RefreshTokenRepo { return &RefreshTokenRepo{db: db} }

const (
	qRTInsert = `
INSERT INTO refresh_tokens (account_id, token_hash, expires_at)
VALUES ($1, $2, $3)
RETURNING id, created_at;`

	qRTFindByHash = `
SELECT id, account_id, token_hash, expires_at, created_at
FROM refresh_tokens
WHERE token_hash = $1;`

	qRTDeleteByHash = `DELETE FROM refresh_tokens WHERE token_hash = $1;`

	qRTDeleteByOwner = `DELETE FROM refresh_tokens WHERE account_id = $1;`

	qRTDeleteExpired = `DELETE FROM refresh_tokens WHERE expires_at <= $1;`
)

func (r *RefreshTokenRepo) Save(ctx context.Context, t *auth.RefreshToken) error {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	err := r.db.execQueryer(ctx).
		QueryRow(ctx, qRTInsert, t.AccountID, t.TokenHash, t.ExpiresAt).
		Scan(&t.ID, &t.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrConflict
		}
		return fmt.Errorf("refresh token insert: %w", err)
	}
	return nil
}

func (r *RefreshTokenRepo) FindByHash(ctx context.Context, tokenHash string) (*auth.RefreshToken, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	var t auth.RefreshToken
	err := r.db.execQueryer(ctx).
		QueryRow(ctx, qRTFindByHash, tokenHash).
		Scan(&t.ID, &t.AccountID, &t.TokenHash, &t.ExpiresAt, &t.CreatedAt)
	if err != nil {
		if noRows(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("refresh token find: %w", err)
	}
	return &t, nil
}

// DeleteByHash relies on the row lock taken by DELETE: of two concurrent
// callers only the first sees an affected row.
func (r *RefreshTokenRepo) DeleteByHash(ctx context.Context, tokenHash string) (bool, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	tag, err := r.db.execQueryer(ctx).Exec(ctx, qRTDeleteByHash, tokenHash)
	if err != nil {
		return false, fmt.Errorf("refresh token delete: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *RefreshTokenRepo) DeleteByOwner(ctx context.Context, accountID uuid.UUID) (int64, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	tag, err := r.db.execQueryer(ctx).Exec(ctx, qRTDeleteByOwner, accountID)
	if err != nil {
		return 0, fmt.Errorf("refresh token delete by owner: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (r *RefreshTokenRepo) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	tag, err := r.db.execQueryer(ctx).Exec(ctx, qRTDeleteExpired, before)
	if err != nil {
		return 0, fmt.Errorf("refresh token purge: %w", err)
	}
	return tag.RowsAffected(), nil
}
