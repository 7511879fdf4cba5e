package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/NordCoder/Recipebox/internal/domain/account"
)

var _ account.Repo = (*AccountRepo)(nil)

type AccountRepo struct {
	db *DB
}

func NewAccountRepo(db *DB) *AccountRepo { return &AccountRepo{db: db} }

const (
	qAccountInsert = `
INSERT INTO accounts (id, email, password_hash, is_verified)
VALUES ($1, $2, $3, FALSE)
RETURNING id, email, password_hash, is_verified, created_at, updated_at;`

	qAccountByID = `
SELECT id, email, password_hash, is_verified, created_at, updated_at
FROM accounts
WHERE id = $1;`

	qAccountByEmail = `
SELECT id, email, password_hash, is_verified, created_at, updated_at
FROM accounts
WHERE email = $1;`

	qAccountMarkVerified = `
UPDATE accounts
SET is_verified = TRUE,
    updated_at  = NOW()
WHERE id = $1;`
)

func (r *AccountRepo) Create(ctx context.Context, a *account.Account) error {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	row := r.db.execQueryer(ctx).QueryRow(ctx, qAccountInsert, a.ID, a.Email, a.PasswordHash)
	if err := scanAccount(row, a); err != nil {
		if isUniqueViolation(err) {
			return ErrConflict
		}
		return fmt.Errorf("account insert: %w", err)
	}
	return nil
}

func (r *AccountRepo) GetByID(ctx context.Context, id uuid.UUID) (*account.Account, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	var a account.Account
	if err := scanAccount(r.db.execQueryer(ctx).QueryRow(ctx, qAccountByID, id), &a); err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *AccountRepo) GetByEmail(ctx context.Context, email string) (*account.Account, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	var a account.Account
	if err := scanAccount(r.db.execQueryer(ctx).QueryRow(ctx, qAccountByEmail, email), &a); err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *AccountRepo) MarkVerified(ctx context.Context, id uuid.UUID) (bool, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	tag, err := r.db.execQueryer(ctx).Exec(ctx, qAccountMarkVerified, id)
	if err != nil {
		return false, fmt.Errorf("account mark verified: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func scanAccount(row pgx.Row, out *account.Account) error {
	if err := row.Scan(&out.ID, &out.Email, &out.PasswordHash, &out.IsVerified, &out.CreatedAt, &out.UpdatedAt); err != nil {
		if noRows(err) {
			return ErrNotFound
		}
		return fmt.Errorf("scan account: %w", err)
	}
	return nil
}
