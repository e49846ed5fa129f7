package api

import (
	"context"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

type redisRateCounter interface {
	Incr(ctx context.Context, key string) *redis.IntCmd
	Expire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd
}

// loginRateKey 按小时分桶，桶过期后计数自然清零。
func loginRateKey(clientIP, email string, now time.Time) string {
	return "hiredup:rate:login:" + clientIP + ":" + strings.ToLower(strings.TrimSpace(email)) + ":" + now.UTC().Format("2006010215")
}

func incrWithTTL(ctx context.Context, client redisRateCounter, key string, ttl time.Duration) (int64, error) {
	count, err := client.Incr(ctx, key).Result()
	if err != nil {
		return 0, err
	}
	if count == 1 {
		_ = client.Expire(ctx, key, ttl).Err()
	}
	return count, nil
}
