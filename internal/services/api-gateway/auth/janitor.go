package auth

import (
	"context"
	"time"

	"go.uber.org/zap"
)

type Purger interface {
	PurgeExpired(ctx context.Context) (int64, error)
}

// RunJanitor calls PurgeExpired every interval until ctx is done. A
// non-positive interval disables it.
func RunJanitor(ctx context.Context, p Purger, interval time.Duration, log *zap.Logger) {
	if interval <= 0 {
		return
	}
	if log == nil {
		log = zap.NewNop()
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			n, err := p.PurgeExpired(ctx)
			if err != nil {
				log.Warn("auth.janitor.purge", zap.Error(err))
				continue
			}
			if n > 0 {
				log.Info("auth.janitor.purge", zap.Int64("deleted", n))
			}
		}
	}
}
