package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	authutil "github.com/NordCoder/Recipebox/internal/auth"
	"github.com/NordCoder/Recipebox/internal/domain"
	"github.com/NordCoder/Recipebox/internal/domain/account"
	domainauth "github.com/NordCoder/Recipebox/internal/domain/auth"
	"github.com/NordCoder/Recipebox/internal/domain/notification"
	"github.com/NordCoder/Recipebox/internal/obs"
)

const (
	DefaultRefreshTTL     = 30 * 24 * time.Hour
	DefaultNotifyTimeout  = 10 * time.Second
	DefaultMinPasswordLen = 8
)

var tracer = otel.Tracer("recipebox/auth")

type PasswordHasher interface {
	Hash(ctx context.Context, plaintext string) (string, error)
	Verify(ctx context.Context, plaintext, digest string) (bool, error)
}

type TokenSigner interface {
	Issue(a *account.Account) (string, time.Time, error)
	IssueVerification(a *account.Account) (string, time.Time, error)
	ParseAccess(raw string) (*authutil.Claims, error)
	ParseVerification(raw string) (*authutil.Claims, error)
}

type TokenGenerator interface {
	Generate() (string, error)
}

type Deps struct {
	Accounts  account.Repo
	Tokens    domainauth.RefreshTokenStore
	Tx        domainauth.Transactor
	Hasher    PasswordHasher
	Signer    TokenSigner
	Generator TokenGenerator
	Notifier  notification.RegistrationNotifier
	Logger    *zap.Logger
}

type Config struct {
	RefreshTTL     time.Duration
	NotifyTimeout  time.Duration
	MinPasswordLen int
	Now            func() time.Time
}

// Session is the result of a successful login. RefreshToken is empty for
// unverified accounts.
type Session struct {
	Account         *account.Account
	AccessToken     string
	AccessExpiresAt time.Time
	RefreshToken    string
}

type TokenPair struct {
	AccessToken     string
	AccessExpiresAt time.Time
	RefreshToken    string
}

// Usecase is the credential service: registration, login and the
// rotating refresh token protocol.
type Usecase struct {
	accounts account.Repo
	tokens   domainauth.RefreshTokenStore
	tx       domainauth.Transactor
	hasher   PasswordHasher
	signer   TokenSigner
	gen      TokenGenerator
	notifier notification.RegistrationNotifier
	log      *zap.Logger
	cfg      Config

	dummyOnce   sync.Once
	dummyDigest string
	pending     sync.WaitGroup
}

func NewUseCase(d Deps, cfg Config) *Usecase {
	if cfg.RefreshTTL <= 0 {
		cfg.RefreshTTL = DefaultRefreshTTL
	}
	if cfg.NotifyTimeout <= 0 {
		cfg.NotifyTimeout = DefaultNotifyTimeout
	}
	if cfg.MinPasswordLen <= 0 {
		cfg.MinPasswordLen = DefaultMinPasswordLen
	}
	if cfg.Now == nil {
		cfg.Now = func() time.Time { return time.Now().UTC() }
	}
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	if d.Tx == nil {
		d.Tx = passthroughTx{}
	}
	return &Usecase{
		accounts: d.Accounts,
		tokens:   d.Tokens,
		tx:       d.Tx,
		hasher:   d.Hasher,
		signer:   d.Signer,
		gen:      d.Generator,
		notifier: d.Notifier,
		log:      d.Logger,
		cfg:      cfg,
	}
}

func (u *Usecase) Register(ctx context.Context, email, password string) (acc *account.Account, err error) {
	ctx, span := tracer.Start(ctx, "auth.Register")
	defer func() { u.finish(span, "register", err) }()

	email = strings.TrimSpace(email)
	if email == "" || !strings.Contains(email, "@") {
		return nil, ErrInvalidEmail
	}
	if len(password) < u.cfg.MinPasswordLen {
		return nil, ErrWeakPassword
	}
	if len(password) > authutil.MaxPasswordBytes {
		return nil, ErrPasswordTooLong
	}

	switch _, err := u.accounts.GetByEmail(ctx, email); {
	case err == nil:
		return nil, ErrAlreadyExists
	case !errors.Is(err, domain.ErrNotFound):
		return nil, storageErr("find account", err)
	}

	digest, err := u.hasher.Hash(ctx, password)
	if err != nil {
		if errors.Is(err, authutil.ErrPasswordTooLong) {
			return nil, ErrPasswordTooLong
		}
		return nil, fmt.Errorf("hash password: %w", err)
	}

	acc = &account.Account{Email: email, PasswordHash: digest}
	if err := u.accounts.Create(ctx, acc); err != nil {
		if errors.Is(err, domain.ErrConflict) {
			return nil, ErrAlreadyExists
		}
		return nil, storageErr("create account", err)
	}

	obs.WithTrace(ctx, u.log).Info("auth.register", zap.String("account_id", acc.ID.String()))
	u.notifyRegistration(ctx, acc)
	return acc, nil
}

func (u *Usecase) Authenticate(ctx context.Context, email, password string) (s *Session, err error) {
	ctx, span := tracer.Start(ctx, "auth.Authenticate")
	defer func() { u.finish(span, "authenticate", err) }()

	email = strings.TrimSpace(email)
	acc, err := u.accounts.GetByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			return nil, storageErr("find account", err)
		}
		u.burnVerify(ctx, password)
		return nil, ErrInvalidCredentials
	}

	ok, err := u.hasher.Verify(ctx, password, acc.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("verify password: %w", err)
	}
	if !ok {
		return nil, ErrInvalidCredentials
	}

	access, exp, err := u.signer.Issue(acc)
	if err != nil {
		return nil, fmt.Errorf("sign access token: %w", err)
	}
	s = &Session{Account: acc, AccessToken: access, AccessExpiresAt: exp}

	if acc.IsVerified {
		s.RefreshToken, err = u.issueRefresh(ctx, acc.ID, u.cfg.Now())
		if err != nil {
			return nil, err
		}
	}

	obs.WithTrace(ctx, u.log).Info("auth.login",
		zap.String("account_id", acc.ID.String()),
		zap.Bool("refresh_issued", s.RefreshToken != ""))
	return s, nil
}

// Refresh redeems raw once. The old record is deleted before the new one is
// written, and a delete that removes nothing means another caller already
// redeemed it.
func (u *Usecase) Refresh(ctx context.Context, raw string) (pair *TokenPair, err error) {
	ctx, span := tracer.Start(ctx, "auth.Refresh")
	defer func() { u.finish(span, "refresh", err) }()

	if raw == "" {
		return nil, ErrInvalidToken
	}
	hash := authutil.HashToken(raw)

	rec, err := u.tokens.FindByHash(ctx, hash)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, storageErr("find refresh token", err)
	}

	now := u.cfg.Now()
	if rec.Expired(now) {
		if _, err := u.tokens.DeleteByHash(ctx, hash); err != nil {
			return nil, storageErr("delete expired refresh token", err)
		}
		return nil, ErrTokenExpired
	}

	acc, err := u.accounts.GetByID(ctx, rec.AccountID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			obs.WithTrace(ctx, u.log).Warn("auth.refresh.orphan", zap.Int64("token_id", rec.ID))
			return nil, ErrUserNotFound
		}
		return nil, storageErr("find account", err)
	}

	access, exp, err := u.signer.Issue(acc)
	if err != nil {
		return nil, fmt.Errorf("sign access token: %w", err)
	}

	var next string
	err = u.tx.WithTx(ctx, func(ctx context.Context) error {
		deleted, err := u.tokens.DeleteByHash(ctx, hash)
		if err != nil {
			return storageErr("delete refresh token", err)
		}
		if !deleted {
			return ErrInvalidToken
		}
		next, err = u.issueRefresh(ctx, acc.ID, now)
		return err
	})
	if err != nil {
		return nil, err
	}

	obs.WithTrace(ctx, u.log).Info("auth.refresh.rotated", zap.String("account_id", acc.ID.String()))
	return &TokenPair{AccessToken: access, AccessExpiresAt: exp, RefreshToken: next}, nil
}

// Logout revokes every refresh token of the account. Access tokens already
// handed out stay valid until they expire.
func (u *Usecase) Logout(ctx context.Context, accountID uuid.UUID) (n int64, err error) {
	ctx, span := tracer.Start(ctx, "auth.Logout")
	defer func() { u.finish(span, "logout", err) }()

	n, err = u.tokens.DeleteByOwner(ctx, accountID)
	if err != nil {
		return 0, storageErr("delete refresh tokens", err)
	}
	obs.WithTrace(ctx, u.log).Info("auth.logout",
		zap.String("account_id", accountID.String()),
		zap.Int64("revoked", n))
	return n, nil
}

func (u *Usecase) GetAccountByID(ctx context.Context, id uuid.UUID) (*account.Account, error) {
	acc, err := u.accounts.GetByID(ctx, id)
	return lookup(acc, err)
}

func (u *Usecase) GetAccountByEmail(ctx context.Context, email string) (*account.Account, error) {
	acc, err := u.accounts.GetByEmail(ctx, strings.TrimSpace(email))
	return lookup(acc, err)
}

// VerifyEmail marks the account verified. Only later logins get refresh tokens.
func (u *Usecase) VerifyEmail(ctx context.Context, accountID uuid.UUID) (ok bool, err error) {
	ctx, span := tracer.Start(ctx, "auth.VerifyEmail")
	defer func() { u.finish(span, "verify_email", err) }()

	ok, err = u.accounts.MarkVerified(ctx, accountID)
	if err != nil {
		return false, storageErr("mark verified", err)
	}
	return ok, nil
}

// VerifyEmailToken checks a verification token from the registration email
// and marks its account verified.
func (u *Usecase) VerifyEmailToken(ctx context.Context, token string) (uuid.UUID, error) {
	claims, err := u.signer.ParseVerification(token)
	if err != nil {
		return uuid.Nil, ErrInvalidToken
	}
	id, err := claims.AccountID()
	if err != nil {
		return uuid.Nil, ErrInvalidToken
	}
	ok, err := u.VerifyEmail(ctx, id)
	if err != nil {
		return uuid.Nil, err
	}
	if !ok {
		return uuid.Nil, ErrUserNotFound
	}
	return id, nil
}

func (u *Usecase) ParseAccess(token string) (uuid.UUID, error) {
	claims, err := u.signer.ParseAccess(token)
	if err != nil {
		return uuid.Nil, err
	}
	return claims.AccountID()
}

// PurgeExpired drops expired refresh token records when the store supports it.
func (u *Usecase) PurgeExpired(ctx context.Context) (int64, error) {
	p, ok := u.tokens.(domainauth.ExpiredPurger)
	if !ok {
		return 0, nil
	}
	n, err := p.DeleteExpired(ctx, u.cfg.Now())
	if err != nil {
		return 0, storageErr("purge refresh tokens", err)
	}
	purgedTokens.Add(float64(n))
	return n, nil
}

// Wait blocks until in-flight registration notifications finish.
func (u *Usecase) Wait() { u.pending.Wait() }

func (u *Usecase) issueRefresh(ctx context.Context, accountID uuid.UUID, now time.Time) (string, error) {
	raw, err := u.gen.Generate()
	if err != nil {
		return "", fmt.Errorf("generate refresh token: %w", err)
	}
	rec := &domainauth.RefreshToken{
		AccountID: accountID,
		TokenHash: authutil.HashToken(raw),
		ExpiresAt: now.Add(u.cfg.RefreshTTL),
	}
	if err := u.tokens.Save(ctx, rec); err != nil {
		return "", storageErr("save refresh token", err)
	}
	return raw, nil
}

func (u *Usecase) notifyRegistration(ctx context.Context, acc *account.Account) {
	if u.notifier == nil {
		return
	}
	log := obs.WithTrace(ctx, u.log)

	token, _, err := u.signer.IssueVerification(acc)
	if err != nil {
		notifyFailures.Inc()
		log.Warn("auth.register.notify", zap.Error(err))
		return
	}
	reg := notification.Registration{
		AccountID:   acc.ID,
		Email:       acc.Email,
		VerifyToken: token,
		At:          u.cfg.Now(),
	}

	detached := context.WithoutCancel(ctx)
	u.pending.Add(1)
	go func() {
		defer u.pending.Done()
		ctx, cancel := context.WithTimeout(detached, u.cfg.NotifyTimeout)
		defer cancel()
		if err := u.notifier.NotifyRegistration(ctx, reg); err != nil {
			notifyFailures.Inc()
			log.Warn("auth.register.notify", zap.String("account_id", reg.AccountID.String()), zap.Error(err))
		}
	}()
}

// burnVerify spends one bcrypt compare so an unknown email costs the same
// as a wrong password.
func (u *Usecase) burnVerify(ctx context.Context, password string) {
	u.dummyOnce.Do(func() {
		u.dummyDigest, _ = u.hasher.Hash(context.Background(), "recipebox-dummy-password")
	})
	if u.dummyDigest != "" {
		_, _ = u.hasher.Verify(ctx, password, u.dummyDigest)
	}
}

func (u *Usecase) finish(span trace.Span, op string, err error) {
	res := outcome(err)
	opsTotal.WithLabelValues(op, res).Inc()
	if res == "error" || res == "storage_unavailable" {
		span.RecordError(err)
		span.SetStatus(codes.Error, res)
	}
	span.End()
}

func lookup(acc *account.Account, err error) (*account.Account, error) {
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, storageErr("find account", err)
	}
	return acc, nil
}

type passthroughTx struct{}

func (passthroughTx) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}
