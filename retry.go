package identity

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

// PollConfig bounds a fixed-interval readiness check.
type PollConfig struct {
	Interval time.Duration
	Deadline time.Duration
}

// Poll invokes fn at fixed intervals until it reports ready, the wall-clock
// deadline elapses, or ctx is cancelled. Attempt errors do not stop the
// loop: the next tick always runs, so a failing probe cannot stall forward
// progress. The last attempt error, if any, is attached to the deadline
// error's metadata.
func Poll(ctx context.Context, cfg PollConfig, fn func(ctx context.Context) (bool, error)) error {
	if cfg.Interval <= 0 || cfg.Deadline <= 0 {
		return goerrors.New("poll interval and deadline must be positive", goerrors.CategoryBadInput)
	}

	deadline := time.NewTimer(cfg.Deadline)
	defer deadline.Stop()

	ticker := time.NewTicker(cfg.Interval)
	defer ticker.Stop()

	var lastErr error

	for {
		ready, err := fn(ctx)
		if ready {
			return nil
		}
		if err != nil {
			lastErr = err
		}

		select {
		case <-ctx.Done():
			return goerrors.Wrap(ctx.Err(), goerrors.CategoryOperation, "poll cancelled")
		case <-deadline.C:
			out := goerrors.New("poll deadline elapsed", goerrors.CategoryOperation).
				WithTextCode("POLL_DEADLINE")
			if lastErr != nil {
				out = out.WithMetadata(map[string]any{"last_error": lastErr.Error()})
			}
			return out
		case <-ticker.C:
		}
	}
}
