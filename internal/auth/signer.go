package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/NordCoder/Recipebox/internal/domain/account"
)

type Purpose string

const (
	PurposeAccess            Purpose = "access"
	PurposeEmailVerification Purpose = "email_verification"
)

const (
	DefaultAccessTTL = time.Hour
	DefaultVerifyTTL = 24 * time.Hour
)

var ErrInvalidAccessToken = errors.New("invalid access token")

// SignerConfig is read once at startup and never changes afterwards.
type SignerConfig struct {
	Secret    []byte
	Issuer    string
	Audience  string
	Realm     string
	AccessTTL time.Duration
	VerifyTTL time.Duration
	Now       func() time.Time
}

type Claims struct {
	UserID  string  `json:"userId"`
	Email   string  `json:"email"`
	Purpose Purpose `json:"purpose"`
	jwt.RegisteredClaims
}

func (c *Claims) AccountID() (uuid.UUID, error) {
	return uuid.Parse(c.Subject)
}

// Signer issues and parses HS256 tokens. Access and email verification
// tokens share the key and are told apart by the purpose claim.
type Signer struct {
	cfg    SignerConfig
	parser *jwt.Parser
}

func NewSigner(cfg SignerConfig) (*Signer, error) {
	if len(cfg.Secret) == 0 {
		return nil, errors.New("signer: empty secret")
	}
	if cfg.Issuer == "" || cfg.Audience == "" {
		return nil, errors.New("signer: issuer and audience are required")
	}
	if cfg.AccessTTL <= 0 {
		cfg.AccessTTL = DefaultAccessTTL
	}
	if cfg.VerifyTTL <= 0 {
		cfg.VerifyTTL = DefaultVerifyTTL
	}
	if cfg.Now == nil {
		cfg.Now = func() time.Time { return time.Now().UTC() }
	}
	cfg.Secret = append([]byte(nil), cfg.Secret...)

	return &Signer{
		cfg: cfg,
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithIssuer(cfg.Issuer),
			jwt.WithAudience(cfg.Audience),
			jwt.WithExpirationRequired(),
			jwt.WithIssuedAt(),
			jwt.WithTimeFunc(cfg.Now),
		),
	}, nil
}

func (s *Signer) Realm() string { return s.cfg.Realm }

func (s *Signer) AccessTTL() time.Duration { return s.cfg.AccessTTL }

// Issue returns a signed access token for a and its expiry.
func (s *Signer) Issue(a *account.Account) (string, time.Time, error) {
	return s.issue(a, PurposeAccess, s.cfg.AccessTTL)
}

func (s *Signer) IssueVerification(a *account.Account) (string, time.Time, error) {
	return s.issue(a, PurposeEmailVerification, s.cfg.VerifyTTL)
}

func (s *Signer) ParseAccess(raw string) (*Claims, error) {
	return s.parse(raw, PurposeAccess)
}

func (s *Signer) ParseVerification(raw string) (*Claims, error) {
	return s.parse(raw, PurposeEmailVerification)
}

func (s *Signer) issue(a *account.Account, purpose Purpose, ttl time.Duration) (string, time.Time, error) {
	now := s.cfg.Now()
	exp := now.Add(ttl)
	id := a.ID.String()

	claims := Claims{
		UserID:  id,
		Email:   a.Email,
		Purpose: purpose,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id,
			Issuer:    s.cfg.Issuer,
			Audience:  jwt.ClaimStrings{s.cfg.Audience},
			ExpiresAt: jwt.NewNumericDate(exp),
			IssuedAt:  jwt.NewNumericDate(now),
			ID:        uuid.NewString(),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.cfg.Secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign %s token: %w", purpose, err)
	}
	return signed, exp, nil
}

func (s *Signer) parse(raw string, purpose Purpose) (*Claims, error) {
	if raw == "" {
		return nil, ErrInvalidAccessToken
	}
	var claims Claims
	tok, err := s.parser.ParseWithClaims(raw, &claims, func(*jwt.Token) (any, error) {
		return s.cfg.Secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidAccessToken, err)
	}
	if !tok.Valid || claims.Purpose != purpose {
		return nil, ErrInvalidAccessToken
	}
	if _, err := claims.AccountID(); err != nil || claims.UserID != claims.Subject {
		return nil, ErrInvalidAccessToken
	}
	return &claims, nil
}
