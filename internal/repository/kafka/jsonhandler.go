package kafka

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/NordCoder/Recipebox/internal/obs/retry"
)

// JSONHandler decodes each message value into a fresh T before calling handle.
func JSONHandler[T any](handle func(ctx context.Context, key []byte, msg T) error) Handler {
	return func(ctx context.Context, key, value []byte) error {
		var msg T
		if err := json.Unmarshal(value, &msg); err != nil {
			return fmt.Errorf("decode %T: %w: %v", msg, retry.ErrPermanent, err)
		}
		return handle(ctx, key, msg)
	}
}
