package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NordCoder/Recipebox/internal/domain/account"
)

var accountCols = []string{"id", "email", "password_hash", "is_verified", "created_at", "updated_at"}

func TestAccountRepo_Create(t *testing.T) {
	mock, db := newMockDB(t)
	repo := NewAccountRepo(db)
	now := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery("INSERT INTO accounts").
		WithArgs(pgxmock.AnyArg(), "Cook@Example.com", "digest").
		WillReturnRows(pgxmock.NewRows(accountCols).
			AddRow(uuid.MustParse("7c1a57b4-7a55-4f0e-8d87-3f2f4ad0b5a1"), "Cook@Example.com", "digest", false, now, now))

	a := &account.Account{Email: "Cook@Example.com", PasswordHash: "digest"}
	require.NoError(t, repo.Create(context.Background(), a))
	assert.Equal(t, uuid.MustParse("7c1a57b4-7a55-4f0e-8d87-3f2f4ad0b5a1"), a.ID)
	assert.Equal(t, "Cook@Example.com", a.Email, "email case is preserved")
	assert.False(t, a.IsVerified)
	assert.Equal(t, now, a.CreatedAt)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAccountRepo_CreateDuplicateEmail(t *testing.T) {
	mock, db := newMockDB(t)
	repo := NewAccountRepo(db)

	mock.ExpectQuery("INSERT INTO accounts").
		WithArgs(pgxmock.AnyArg(), "cook@example.com", "digest").
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "accounts_email_key"})

	err := repo.Create(context.Background(), &account.Account{Email: "cook@example.com", PasswordHash: "digest"})
	assert.ErrorIs(t, err, ErrConflict)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAccountRepo_Lookups(t *testing.T) {
	mock, db := newMockDB(t)
	repo := NewAccountRepo(db)
	id := uuid.New()
	now := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`FROM accounts\s+WHERE email`).
		WithArgs("cook@example.com").
		WillReturnRows(pgxmock.NewRows(accountCols).AddRow(id, "cook@example.com", "digest", true, now, now))
	mock.ExpectQuery(`FROM accounts\s+WHERE id`).
		WithArgs(id).
		WillReturnRows(pgxmock.NewRows(accountCols))

	a, err := repo.GetByEmail(context.Background(), "cook@example.com")
	require.NoError(t, err)
	assert.Equal(t, id, a.ID)
	assert.True(t, a.IsVerified)

	_, err = repo.GetByID(context.Background(), id)
	assert.ErrorIs(t, err, ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAccountRepo_MarkVerified(t *testing.T) {
	mock, db := newMockDB(t)
	repo := NewAccountRepo(db)
	id := uuid.New()

	mock.ExpectExec("UPDATE accounts").WithArgs(id).WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec("UPDATE accounts").WithArgs(id).WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	ok, err := repo.MarkVerified(context.Background(), id)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.MarkVerified(context.Background(), id)
	require.NoError(t, err)
	assert.False(t, ok)
	require.NoError(t, mock.ExpectationsWereMet())
}
