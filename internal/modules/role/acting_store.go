// README: Acting-role selection per principal, kept in Redis.
package role

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"kurs/internal/types"
)

const (
	actingKeyPrefix = "kurs:acting_role:"
	actingTTL       = 30 * 24 * time.Hour
)

type ActingStore struct {
	redis *redis.Client
}

func NewActingStore(redis *redis.Client) *ActingStore {
	return &ActingStore{redis: redis}
}

// Get returns "" when no role has been selected.
func (s *ActingStore) Get(ctx context.Context, userID types.ID) (Role, error) {
	v, err := s.redis.Get(ctx, actingKeyPrefix+string(userID)).Result()
	if err == redis.Nil {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return Role(v), nil
}

func (s *ActingStore) Set(ctx context.Context, userID types.ID, r Role) error {
	return s.redis.Set(ctx, actingKeyPrefix+string(userID), string(r), actingTTL).Err()
}
