package dispatch

import (
	"context"
	"time"

	"github.com/postroom/postroom/internal/models"
)

// delayAfter computes the pause to apply after sending to the recipient at
// the given 1-based index. There is never a delay after the last recipient.
// A batch boundary (batch size configured and index divisible by it) takes
// precedence over the per-email delay. The delay applies whether the
// preceding send succeeded or failed, so failures still count toward the
// rate limit.
func delayAfter(index, total int, settings *models.Settings) time.Duration {
	if index >= total {
		return 0
	}
	if settings.BatchSize > 0 && index%settings.BatchSize == 0 {
		return time.Duration(settings.BatchDelay) * time.Second
	}
	return time.Duration(settings.EmailDelay) * time.Second
}

// sleepContext blocks for d or until ctx is cancelled, whichever comes
// first.
func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
