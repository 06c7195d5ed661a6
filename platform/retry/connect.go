package retry

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
)

// Connect вызывает fn не более attempts раз с фиксированной паузой delay между попытками.
// Используется для первичного подключения к брокеру: если все попытки неудачны,
// возвращается последняя ошибка и сервис завершается.
func Connect(ctx context.Context, logger *zap.Logger, target string, attempts int, delay time.Duration, fn func(ctx context.Context) error) error {
	if attempts <= 0 {
		attempts = 1
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(delay), uint64(attempts-1)),
		ctx,
	)

	attempt := 0
	operation := func() error {
		attempt++
		return fn(ctx)
	}
	notify := func(err error, next time.Duration) {
		logger.Warn("Waiting for "+target+"...",
			zap.Error(err),
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", attempts),
			zap.Duration("retry_in", next),
		)
	}

	if err := backoff.RetryNotify(operation, policy, notify); err != nil {
		return fmt.Errorf("cannot connect to %s after %d attempts: %w", target, attempt, err)
	}

	if attempt > 1 {
		logger.Info("Connected after retry", zap.String("target", target), zap.Int("attempt", attempt))
	}
	return nil
}

// Permanent помечает ошибку как неповторяемую: Connect прекратит попытки сразу
func Permanent(err error) error {
	return backoff.Permanent(err)
}
