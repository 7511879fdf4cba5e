package auth

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	authutil "github.com/NordCoder/Recipebox/internal/auth"
	"github.com/NordCoder/Recipebox/internal/domain"
	domainauth "github.com/NordCoder/Recipebox/internal/domain/auth"
	"github.com/NordCoder/Recipebox/internal/domain/notification"
	"github.com/NordCoder/Recipebox/internal/repository/memory"
)

const testPassword = "correct horse battery"

type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

type captureNotifier struct {
	mu   sync.Mutex
	regs []notification.Registration
	err  error
}

func (n *captureNotifier) NotifyRegistration(_ context.Context, r notification.Registration) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.regs = append(n.regs, r)
	return n.err
}

func (n *captureNotifier) last(t *testing.T) notification.Registration {
	t.Helper()
	n.mu.Lock()
	defer n.mu.Unlock()
	require.NotEmpty(t, n.regs)
	return n.regs[len(n.regs)-1]
}

type fixture struct {
	uc       *Usecase
	accounts *memory.AccountRepo
	tokens   *memory.RefreshTokenStore
	clock    *testClock
	notifier *captureNotifier
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	clock := &testClock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}

	hasher, err := authutil.NewBcryptHasher(bcrypt.MinCost, 4)
	require.NoError(t, err)
	signer, err := authutil.NewSigner(authutil.SignerConfig{
		Secret:   []byte("0123456789abcdef0123456789abcdef"),
		Issuer:   "recipebox",
		Audience: "recipebox-users",
		Realm:    "recipebox",
		Now:      clock.Now,
	})
	require.NoError(t, err)

	f := &fixture{
		accounts: memory.NewAccountRepo(clock.Now),
		tokens:   memory.NewRefreshTokenStore(clock.Now),
		clock:    clock,
		notifier: &captureNotifier{},
	}
	f.uc = NewUseCase(Deps{
		Accounts:  f.accounts,
		Tokens:    f.tokens,
		Tx:        memory.PassthroughTransactor{},
		Hasher:    hasher,
		Signer:    signer,
		Generator: authutil.NewRandomTokenGenerator(),
		Notifier:  f.notifier,
	}, Config{Now: clock.Now})
	t.Cleanup(f.uc.Wait)
	return f
}

// verifiedSession registers, verifies and logs in one account.
func (f *fixture) verifiedSession(t *testing.T, email string) *Session {
	t.Helper()
	ctx := context.Background()
	acc, err := f.uc.Register(ctx, email, testPassword)
	require.NoError(t, err)
	ok, err := f.uc.VerifyEmail(ctx, acc.ID)
	require.NoError(t, err)
	require.True(t, ok)

	s, err := f.uc.Authenticate(ctx, email, testPassword)
	require.NoError(t, err)
	require.NotEmpty(t, s.RefreshToken)
	return s
}

func TestRegister_CreatesUnverifiedAccount(t *testing.T) {
	f := newFixture(t)
	acc, err := f.uc.Register(context.Background(), "  cook@example.com ", testPassword)
	require.NoError(t, err)

	assert.NotEqual(t, uuid.Nil, acc.ID)
	assert.Equal(t, "cook@example.com", acc.Email)
	assert.False(t, acc.IsVerified)
	assert.NotEqual(t, testPassword, acc.PasswordHash)

	f.uc.Wait()
	reg := f.notifier.last(t)
	assert.Equal(t, acc.ID, reg.AccountID)
	assert.Equal(t, acc.Email, reg.Email)
	assert.NotEmpty(t, reg.VerifyToken)
}

func TestRegister_DuplicateKeepsFirstAccount(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	first, err := f.uc.Register(ctx, "dup@example.com", testPassword)
	require.NoError(t, err)

	_, err = f.uc.Register(ctx, "dup@example.com", "another password")
	require.ErrorIs(t, err, ErrAlreadyExists)

	got, err := f.uc.GetAccountByEmail(ctx, "dup@example.com")
	require.NoError(t, err)
	assert.Equal(t, first.ID, got.ID)
	assert.Equal(t, first.PasswordHash, got.PasswordHash)
}

func TestRegister_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.uc.Register(ctx, "not-an-email", testPassword)
	assert.ErrorIs(t, err, ErrInvalidEmail)
	_, err = f.uc.Register(ctx, "   ", testPassword)
	assert.ErrorIs(t, err, ErrInvalidEmail)
	_, err = f.uc.Register(ctx, "a@b.c", "short")
	assert.ErrorIs(t, err, ErrWeakPassword)
	_, err = f.uc.Register(ctx, "a@b.c", strings.Repeat("x", authutil.MaxPasswordBytes+1))
	assert.ErrorIs(t, err, ErrPasswordTooLong)
}

func TestRegister_NotifierFailureDoesNotFailRegistration(t *testing.T) {
	f := newFixture(t)
	f.notifier.err = errors.New("mail relay down")

	acc, err := f.uc.Register(context.Background(), "a@b.c", testPassword)
	require.NoError(t, err)
	f.uc.Wait()

	got, err := f.uc.GetAccountByID(context.Background(), acc.ID)
	require.NoError(t, err)
	assert.Equal(t, acc.ID, got.ID)
}

func TestAuthenticate_UnverifiedGetsAccessOnly(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.uc.Register(ctx, "new@example.com", testPassword)
	require.NoError(t, err)

	s, err := f.uc.Authenticate(ctx, "new@example.com", testPassword)
	require.NoError(t, err)
	assert.NotEmpty(t, s.AccessToken)
	assert.Empty(t, s.RefreshToken)
	assert.Equal(t, 0, f.tokens.Len())
	assert.True(t, s.AccessExpiresAt.After(f.clock.Now()))
}

func TestAuthenticate_VerifiedGetsBothTokens(t *testing.T) {
	f := newFixture(t)
	s := f.verifiedSession(t, "v@example.com")

	assert.NotEmpty(t, s.AccessToken)
	assert.Equal(t, 1, f.tokens.Len())
	assert.True(t, s.Account.IsVerified)

	id, err := f.uc.ParseAccess(s.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, s.Account.ID, id)
}

func TestAuthenticate_FailuresAreIndistinguishable(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.uc.Register(ctx, "known@example.com", testPassword)
	require.NoError(t, err)

	_, wrongPass := f.uc.Authenticate(ctx, "known@example.com", "wrong password!")
	_, unknown := f.uc.Authenticate(ctx, "unknown@example.com", testPassword)
	_, caseChanged := f.uc.Authenticate(ctx, "known@example.com", strings.ToUpper(testPassword))

	require.ErrorIs(t, wrongPass, ErrInvalidCredentials)
	require.ErrorIs(t, unknown, ErrInvalidCredentials)
	require.ErrorIs(t, caseChanged, ErrInvalidCredentials)
	assert.Equal(t, wrongPass.Error(), unknown.Error())
}

func TestAuthenticate_EmailIsCaseSensitive(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.uc.Register(ctx, "Chef@example.com", testPassword)
	require.NoError(t, err)

	_, err = f.uc.Authenticate(ctx, "chef@example.com", testPassword)
	require.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestRefresh_RotatesOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	s := f.verifiedSession(t, "rot@example.com")
	t0 := s.RefreshToken

	pair, err := f.uc.Refresh(ctx, t0)
	require.NoError(t, err)
	t1 := pair.RefreshToken
	assert.NotEqual(t, t0, t1)
	assert.NotEmpty(t, pair.AccessToken)

	_, err = f.uc.Refresh(ctx, t0)
	require.ErrorIs(t, err, ErrInvalidToken)

	pair2, err := f.uc.Refresh(ctx, t1)
	require.NoError(t, err)
	assert.NotEqual(t, t1, pair2.RefreshToken)
	assert.Equal(t, 1, f.tokens.Len())
}

func TestRefresh_StoresOnlyDigest(t *testing.T) {
	f := newFixture(t)
	s := f.verifiedSession(t, "digest@example.com")

	_, err := f.tokens.FindByHash(context.Background(), s.RefreshToken)
	require.ErrorIs(t, err, domain.ErrNotFound)
	rec, err := f.tokens.FindByHash(context.Background(), authutil.HashToken(s.RefreshToken))
	require.NoError(t, err)
	assert.Equal(t, s.Account.ID, rec.AccountID)
	assert.True(t, f.clock.Now().Add(DefaultRefreshTTL).Equal(rec.ExpiresAt))
}

func TestRefresh_ExpiredThenInvalid(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	s := f.verifiedSession(t, "exp@example.com")

	f.clock.Advance(DefaultRefreshTTL)

	_, err := f.uc.Refresh(ctx, s.RefreshToken)
	require.ErrorIs(t, err, ErrTokenExpired)
	_, err = f.uc.Refresh(ctx, s.RefreshToken)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestRefresh_UnknownAndEmpty(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.uc.Refresh(ctx, "")
	require.ErrorIs(t, err, ErrInvalidToken)
	_, err = f.uc.Refresh(ctx, "never-issued")
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestRefresh_OwnerGone(t *testing.T) {
	f := newFixture(t)
	s := f.verifiedSession(t, "gone@example.com")
	f.accounts.Delete(s.Account.ID)

	_, err := f.uc.Refresh(context.Background(), s.RefreshToken)
	require.ErrorIs(t, err, ErrUserNotFound)
}

func TestLogout_RevokesAllRefreshTokens(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	s1 := f.verifiedSession(t, "out@example.com")
	s2, err := f.uc.Authenticate(ctx, "out@example.com", testPassword)
	require.NoError(t, err)

	n, err := f.uc.Logout(ctx, s1.Account.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	_, err = f.uc.Refresh(ctx, s1.RefreshToken)
	require.ErrorIs(t, err, ErrInvalidToken)
	_, err = f.uc.Refresh(ctx, s2.RefreshToken)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestRefresh_ConcurrentRedemptionHasOneWinner(t *testing.T) {
	f := newFixture(t)
	s := f.verifiedSession(t, "race@example.com")

	const n = 16
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		wins    int
		invalid int
		start   = make(chan struct{})
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, err := f.uc.Refresh(context.Background(), s.RefreshToken)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				wins++
			case errors.Is(err, ErrInvalidToken):
				invalid++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	close(start)
	wg.Wait()

	assert.Equal(t, 1, wins)
	assert.Equal(t, n-1, invalid)
	assert.Equal(t, 1, f.tokens.Len())
}

func TestVerifyEmailToken(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	acc, err := f.uc.Register(ctx, "mail@example.com", testPassword)
	require.NoError(t, err)
	f.uc.Wait()

	id, err := f.uc.VerifyEmailToken(ctx, f.notifier.last(t).VerifyToken)
	require.NoError(t, err)
	assert.Equal(t, acc.ID, id)

	got, err := f.uc.GetAccountByID(ctx, acc.ID)
	require.NoError(t, err)
	assert.True(t, got.IsVerified)

	_, err = f.uc.VerifyEmailToken(ctx, "garbage")
	require.ErrorIs(t, err, ErrInvalidToken)

	s, err := f.uc.Authenticate(ctx, "mail@example.com", testPassword)
	require.NoError(t, err)
	_, err = f.uc.VerifyEmailToken(ctx, s.AccessToken)
	require.ErrorIs(t, err, ErrInvalidToken, "access tokens must not verify emails")
}

func TestGetAccount_NotFound(t *testing.T) {
	f := newFixture(t)
	_, err := f.uc.GetAccountByID(context.Background(), uuid.New())
	require.ErrorIs(t, err, ErrUserNotFound)
	_, err = f.uc.GetAccountByEmail(context.Background(), "nobody@example.com")
	require.ErrorIs(t, err, ErrUserNotFound)
}

func TestPurgeExpired(t *testing.T) {
	f := newFixture(t)
	f.verifiedSession(t, "purge@example.com")

	n, err := f.uc.PurgeExpired(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)

	f.clock.Advance(DefaultRefreshTTL + time.Second)
	n, err = f.uc.PurgeExpired(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.Equal(t, 0, f.tokens.Len())
}

type brokenStore struct{ domainauth.RefreshTokenStore }

func (brokenStore) FindByHash(context.Context, string) (*domainauth.RefreshToken, error) {
	return nil, errors.New("connection refused")
}

func TestRefresh_StorageFailure(t *testing.T) {
	f := newFixture(t)
	f.uc.tokens = brokenStore{f.tokens}

	_, err := f.uc.Refresh(context.Background(), "whatever")
	require.ErrorIs(t, err, ErrStorageUnavailable)
	assert.NotErrorIs(t, err, ErrInvalidToken)
}
