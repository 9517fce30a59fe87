package service

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"

	customError "github.com/segyhp/credit-engine/pkg/errors"
)

// retryable reports whether the whole transaction may run again.
func retryable(err error) bool {
	return customError.IsConflict(err) || customError.CodeOf(err) == customError.ErrCodeDuplicateNumber
}

// withRetry runs fn, retrying conflicts and number collisions up to
// business.tx_max_retries times with exponential backoff.
func (b *base) withRetry(ctx context.Context, operation string, fn func() error) error {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 20 * time.Millisecond
	policy.MaxInterval = 500 * time.Millisecond

	maxRetries := uint64(0)
	if b.config.Business.TxMaxRetries > 0 {
		maxRetries = uint64(b.config.Business.TxMaxRetries)
	}

	attempt := 0
	return backoff.Retry(func() error {
		attempt++
		err := fn()
		if err == nil {
			return nil
		}

		err = storeErr(err)
		if !retryable(err) {
			return backoff.Permanent(err)
		}
		if uint64(attempt) > maxRetries {
			return err
		}

		b.metrics.TxRetried(operation)
		b.log.WithFields(logrus.Fields{
			"operation": operation,
			"attempt":   attempt,
			"code":      customError.CodeOf(err),
		}).Warn("transaction failed, retrying")
		return err
	}, backoff.WithContext(backoff.WithMaxRetries(policy, maxRetries), ctx))
}
