package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/NordCoder/Recipebox/internal/domain/auth"
)

func newMockDB(t *testing.T) (pgxmock.PgxPoolIface, *DB) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return mock, NewFromPool(mock, time.Second)
}

func TestRefreshTokenRepo_Save(t *testing.T) {
	mock, db := newMockDB(t)
	repo := NewRefreshTokenRepo(db)

	owner := uuid.New()
	exp := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	created := exp.Add(-30 * 24 * time.Hour)

	mock.ExpectQuery("INSERT INTO refresh_tokens").
		WithArgs(owner, "h1", exp).
		WillReturnRows(pgxmock.NewRows([]string{"id", "created_at"}).AddRow(int64(7), created))

	rec := &auth.RefreshToken{AccountID: owner, TokenHash: "h1", ExpiresAt: exp}
	require.NoError(t, repo.Save(context.Background(), rec))
	assert.Equal(t, int64(7), rec.ID)
	assert.Equal(t, created, rec.CreatedAt)
	assert.Equal(t, exp, rec.ExpiresAt, "caller expiry must be stored as given")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRefreshTokenRepo_SaveDuplicateHash(t *testing.T) {
	mock, db := newMockDB(t)
	repo := NewRefreshTokenRepo(db)

	mock.ExpectQuery("INSERT INTO refresh_tokens").
		WithArgs(pgxmock.AnyArg(), "dup", pgxmock.AnyArg()).
		WillReturnError(&pgconn.PgError{Code: "23505"})

	err := repo.Save(context.Background(), &auth.RefreshToken{AccountID: uuid.New(), TokenHash: "dup", ExpiresAt: time.Now()})
	assert.ErrorIs(t, err, ErrConflict)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRefreshTokenRepo_FindByHash(t *testing.T) {
	mock, db := newMockDB(t)
	repo := NewRefreshTokenRepo(db)

	owner := uuid.New()
	exp := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	created := exp.Add(-time.Hour)
	cols := []string{"id", "account_id", "token_hash", "expires_at", "created_at"}

	mock.ExpectQuery("SELECT id, account_id, token_hash").
		WithArgs("h1").
		WillReturnRows(pgxmock.NewRows(cols).AddRow(int64(3), owner, "h1", exp, created))
	mock.ExpectQuery("SELECT id, account_id, token_hash").
		WithArgs("missing").
		WillReturnRows(pgxmock.NewRows(cols))

	rec, err := repo.FindByHash(context.Background(), "h1")
	require.NoError(t, err)
	assert.Equal(t, &auth.RefreshToken{ID: 3, AccountID: owner, TokenHash: "h1", ExpiresAt: exp, CreatedAt: created}, rec)

	_, err = repo.FindByHash(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRefreshTokenRepo_DeleteByHashReportsRows(t *testing.T) {
	mock, db := newMockDB(t)
	repo := NewRefreshTokenRepo(db)

	mock.ExpectExec("DELETE FROM refresh_tokens WHERE token_hash").
		WithArgs("h1").
		WillReturnResult(pgxmock.NewResult("DELETE", 1))
	mock.ExpectExec("DELETE FROM refresh_tokens WHERE token_hash").
		WithArgs("h1").
		WillReturnResult(pgxmock.NewResult("DELETE", 0))

	deleted, err := repo.DeleteByHash(context.Background(), "h1")
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = repo.DeleteByHash(context.Background(), "h1")
	require.NoError(t, err, "deleting a missing hash is not an error")
	assert.False(t, deleted)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRefreshTokenRepo_DeleteByOwnerAndExpired(t *testing.T) {
	mock, db := newMockDB(t)
	repo := NewRefreshTokenRepo(db)
	owner := uuid.New()
	cutoff := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectExec("DELETE FROM refresh_tokens WHERE account_id").
		WithArgs(owner).
		WillReturnResult(pgxmock.NewResult("DELETE", 3))
	mock.ExpectExec("DELETE FROM refresh_tokens WHERE expires_at").
		WithArgs(cutoff).
		WillReturnResult(pgxmock.NewResult("DELETE", 2))

	n, err := repo.DeleteByOwner(context.Background(), owner)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	n, err = repo.DeleteExpired(context.Background(), cutoff)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactor_RotationCommitsInOneTx(t *testing.T) {
	mock, db := newMockDB(t)
	repo := NewRefreshTokenRepo(db)
	tr := NewTransactor(db, zap.NewNop())
	owner := uuid.New()

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM refresh_tokens WHERE token_hash").
		WithArgs("old").
		WillReturnResult(pgxmock.NewResult("DELETE", 1))
	mock.ExpectQuery("INSERT INTO refresh_tokens").
		WithArgs(owner, "new", pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows([]string{"id", "created_at"}).AddRow(int64(9), time.Now()))
	mock.ExpectCommit()

	err := tr.WithTx(context.Background(), func(ctx context.Context) error {
		ok, err := repo.DeleteByHash(ctx, "old")
		if err != nil || !ok {
			return errors.New("old token not deleted")
		}
		return repo.Save(ctx, &auth.RefreshToken{AccountID: owner, TokenHash: "new", ExpiresAt: time.Now().Add(time.Hour)})
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactor_RollsBackOnError(t *testing.T) {
	mock, db := newMockDB(t)
	repo := NewRefreshTokenRepo(db)
	tr := NewTransactor(db, zap.NewNop())
	sentinel := errors.New("already redeemed")

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM refresh_tokens WHERE token_hash").
		WithArgs("old").
		WillReturnResult(pgxmock.NewResult("DELETE", 0))
	mock.ExpectRollback()

	err := tr.WithTx(context.Background(), func(ctx context.Context) error {
		ok, err := repo.DeleteByHash(ctx, "old")
		if err != nil {
			return err
		}
		if !ok {
			return sentinel
		}
		return nil
	})
	assert.ErrorIs(t, err, sentinel)
	require.NoError(t, mock.ExpectationsWereMet())
}
