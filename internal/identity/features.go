package identity

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	id "kvartal/pkg/domain"
)

// Feature keys the claims subsystem cares about.
const (
	FeatureClaimsView   = "claims:view"
	FeatureClaimsReview = "claims:review"
)

const userFeaturesPrefix = "user_features:"

// RedisFeatureStore reads per-user feature permissions from the set the
// identity service maintains in redis.
type RedisFeatureStore struct {
	client *redis.Client
}

func NewRedisFeatureStore(client *redis.Client) *RedisFeatureStore {
	return &RedisFeatureStore{client: client}
}

func (s *RedisFeatureStore) HasFeature(ctx context.Context, userID id.UserID, feature string) (bool, error) {
	ok, err := s.client.SIsMember(ctx, userFeaturesPrefix+userID.String(), feature).Result()
	if err != nil {
		return false, fmt.Errorf("check feature %q: %w", feature, err)
	}
	return ok, nil
}

// GrantFeature adds a permission. Used by the integration suite and local
// development seeding; production grants flow through the identity service.
func (s *RedisFeatureStore) GrantFeature(ctx context.Context, userID id.UserID, feature string) error {
	if err := s.client.SAdd(ctx, userFeaturesPrefix+userID.String(), feature).Err(); err != nil {
		return fmt.Errorf("grant feature %q: %w", feature, err)
	}
	return nil
}

// StaticFeatureStore is an in-memory FeatureChecker for tests and for
// running without redis.
type StaticFeatureStore struct {
	grants map[id.UserID]map[string]bool
}

func NewStaticFeatureStore() *StaticFeatureStore {
	return &StaticFeatureStore{grants: make(map[id.UserID]map[string]bool)}
}

func (s *StaticFeatureStore) Grant(userID id.UserID, feature string) {
	if s.grants[userID] == nil {
		s.grants[userID] = make(map[string]bool)
	}
	s.grants[userID][feature] = true
}

func (s *StaticFeatureStore) HasFeature(_ context.Context, userID id.UserID, feature string) (bool, error) {
	return s.grants[userID][feature], nil
}
