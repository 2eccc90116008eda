package billinginfra

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/garagelink/drivescan/pkg/billing"
	"github.com/garagelink/drivescan/pkg/errx"
	"github.com/garagelink/drivescan/pkg/kernel"
)

// RedisQuotaCounter implements billing.QuotaCounter on Redis INCR. Keys are
// scoped to the calendar month and expire at the period boundary, so a new
// month starts from zero without any sweeper.
type RedisQuotaCounter struct {
	client *redis.Client
}

// NewRedisQuotaCounter creates the counter.
func NewRedisQuotaCounter(client *redis.Client) *RedisQuotaCounter {
	return &RedisQuotaCounter{client: client}
}

func quotaKey(userID kernel.UserID, period billing.Period) string {
	return fmt.Sprintf("quota:%s:%s", userID.String(), period.Key)
}

func (q *RedisQuotaCounter) Hit(ctx context.Context, userID kernel.UserID, period billing.Period) (int64, error) {
	key := quotaKey(userID, period)

	count, err := q.client.Incr(ctx, key).Result()
	if err != nil {
		return 0, errx.Wrap(err, "failed to increment quota counter", errx.TypeInternal)
	}

	// First write of the period sets the expiry to the period boundary.
	if count == 1 {
		if err := q.client.ExpireAt(ctx, key, period.End).Err(); err != nil {
			return count, errx.Wrap(err, "failed to set quota counter expiry", errx.TypeInternal)
		}
	}

	return count, nil
}

func (q *RedisQuotaCounter) Current(ctx context.Context, userID kernel.UserID, period billing.Period) (int64, error) {
	count, err := q.client.Get(ctx, quotaKey(userID, period)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, errx.Wrap(err, "failed to read quota counter", errx.TypeInternal)
	}
	return count, nil
}
