package load

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/cicdpoc/loadharness/pkg/client"
)

// DefaultReadyInterval is the pause between readiness probes.
const DefaultReadyInterval = time.Second

// Getter issues a GET against the target.
type Getter interface {
	Get(ctx context.Context, path string) *client.Response
}

// WaitReady polls path until it answers 200 or window expires. A
// non-positive window returns immediately.
func WaitReady(ctx context.Context, g Getter, path string, window, interval time.Duration, logger *zap.Logger) error {
	if window <= 0 {
		return nil
	}
	if interval <= 0 {
		interval = DefaultReadyInterval
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	ctx, cancel := context.WithTimeout(ctx, window)
	defer cancel()

	attempts := 0
	op := func() error {
		attempts++
		resp := g.Get(ctx, path)
		if resp.Err != nil {
			return resp.Err
		}
		if resp.Status != 200 {
			return errors.Errorf("%s returned status %d", path, resp.Status)
		}
		return nil
	}
	notify := func(err error, next time.Duration) {
		logger.Info("target not ready", zap.String("path", path), zap.Error(err), zap.Duration("retry-in", next))
	}
	b := backoff.WithContext(backoff.NewConstantBackOff(interval), ctx)
	if err := backoff.RetryNotify(op, b, notify); err != nil {
		return errors.Wrapf(err, "target not ready after %v (%d attempts)", window, attempts)
	}
	logger.Info("target ready", zap.String("path", path), zap.Int("attempts", attempts))
	return nil
}
