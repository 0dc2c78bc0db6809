package identity

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
)

const revokedTokenPrefix = "revoked_token:"

// RedisRevocationList answers "was this token revoked since issue" from the
// shared revocation list the identity service maintains.
type RedisRevocationList struct {
	client   *redis.Client
	duration prometheus.Histogram
}

func NewRedisRevocationList(client *redis.Client) *RedisRevocationList {
	return &RedisRevocationList{
		client: client,
		duration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "kvartal_token_revocation_check_seconds",
			Help:    "Latency of token revocation lookups",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

func (r *RedisRevocationList) IsRevoked(ctx context.Context, jti string) (bool, error) {
	if jti == "" {
		return false, nil
	}
	start := time.Now()
	defer func() { r.duration.Observe(time.Since(start).Seconds()) }()

	n, err := r.client.Exists(ctx, revokedTokenPrefix+jti).Result()
	if err != nil {
		return false, fmt.Errorf("check revocation: %w", err)
	}
	return n > 0, nil
}

// Revoke marks a token revoked until it would have expired anyway.
func (r *RedisRevocationList) Revoke(ctx context.Context, jti string, ttl time.Duration) error {
	if err := r.client.Set(ctx, revokedTokenPrefix+jti, "1", ttl).Err(); err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	return nil
}
