package memory

import (
	"context"

	"github.com/NordCoder/Recipebox/internal/domain/auth"
)

var _ auth.Transactor = PassthroughTransactor{}

// PassthroughTransactor runs fn directly. Stores without multi-record
// transactions rely on delete-first rotation instead.
type PassthroughTransactor struct{}

func (PassthroughTransactor) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}
