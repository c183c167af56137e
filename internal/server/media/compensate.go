package media

import (
	"context"
	"time"

	"github.com/dmitrijs2005/mediashare/internal/logging"
	"github.com/dmitrijs2005/mediashare/internal/server/metrics"
	"github.com/sethvargo/go-retry"
)

var newDeleteBackoff = func() retry.Backoff {
	return retry.WithMaxRetries(3, retry.NewExponential(100*time.Millisecond))
}

// DeleteBestEffort removes keys, retrying each a few times. It never fails;
// the keys that could not be removed are logged and returned. The deletions
// run even if ctx is already cancelled.
func DeleteBestEffort(ctx context.Context, gw Gateway, logger logging.Logger, keys ...string) []string {
	ctx = context.WithoutCancel(ctx)

	var failed []string
	for _, key := range keys {
		if key == "" {
			continue
		}

		err := retry.Do(ctx, newDeleteBackoff(), func(ctx context.Context) error {
			if err := gw.Delete(ctx, key); err != nil {
				return retry.RetryableError(err)
			}
			return nil
		})
		if err != nil {
			logger.Error(ctx, "failed to delete uploaded asset", "key", key, "error", err)
			metrics.CompensationsTotal.WithLabelValues(metrics.ResultFailed).Inc()
			failed = append(failed, key)
			continue
		}

		logger.Info(ctx, "deleted uploaded asset", "key", key)
		metrics.CompensationsTotal.WithLabelValues(metrics.ResultDeleted).Inc()
	}

	return failed
}
