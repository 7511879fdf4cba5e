package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/sync/semaphore"
)

// MaxPasswordBytes is the bcrypt input ceiling. Longer inputs are rejected
// by Hash and never verify.
const MaxPasswordBytes = 72

const DefaultBcryptCost = 12

var ErrPasswordTooLong = errors.New("password exceeds 72 bytes")

var hashDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "recipebox_password_hash_seconds",
	Help:    "Duration of bcrypt hash and verify calls.",
	Buckets: []float64{.01, .025, .05, .1, .25, .5, 1, 2},
}, []string{"op"})

// BcryptHasher hashes passwords with a per-call random salt. It is only
// for passwords; refresh tokens use HashToken.
type BcryptHasher struct {
	cost int
	sem  *semaphore.Weighted
}

// NewBcryptHasher bounds concurrent hash calls to maxConcurrent (unbounded when <= 0).
func NewBcryptHasher(cost, maxConcurrent int) (*BcryptHasher, error) {
	if cost == 0 {
		cost = DefaultBcryptCost
	}
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		return nil, fmt.Errorf("bcrypt cost %d out of range [%d,%d]", cost, bcrypt.MinCost, bcrypt.MaxCost)
	}
	h := &BcryptHasher{cost: cost}
	if maxConcurrent > 0 {
		h.sem = semaphore.NewWeighted(int64(maxConcurrent))
	}
	return h, nil
}

func (h *BcryptHasher) Hash(ctx context.Context, plaintext string) (string, error) {
	if len(plaintext) > MaxPasswordBytes {
		return "", ErrPasswordTooLong
	}
	release, err := h.acquire(ctx)
	if err != nil {
		return "", err
	}
	defer release()

	start := time.Now()
	digest, err := bcrypt.GenerateFromPassword([]byte(plaintext), h.cost)
	hashDuration.WithLabelValues("hash").Observe(time.Since(start).Seconds())
	if err != nil {
		return "", fmt.Errorf("bcrypt: %w", err)
	}
	return string(digest), nil
}

// Verify returns false without error on a mismatch. A malformed digest is an error.
func (h *BcryptHasher) Verify(ctx context.Context, plaintext, digest string) (bool, error) {
	if len(plaintext) > MaxPasswordBytes {
		return false, nil
	}
	release, err := h.acquire(ctx)
	if err != nil {
		return false, err
	}
	defer release()

	start := time.Now()
	err = bcrypt.CompareHashAndPassword([]byte(digest), []byte(plaintext))
	hashDuration.WithLabelValues("verify").Observe(time.Since(start).Seconds())
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return false, nil
	default:
		return false, fmt.Errorf("bcrypt compare: %w", err)
	}
}

func (h *BcryptHasher) acquire(ctx context.Context) (func(), error) {
	if h.sem == nil {
		return func() {}, nil
	}
	if err := h.sem.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("wait for hash slot: %w", err)
	}
	return func() { h.sem.Release(1) }, nil
}
