// README: Device token registry backed by a Redis hash.
package notify

import (
	"context"

	"github.com/redis/go-redis/v9"

	"kurs/internal/types"
)

const deviceTokenKey = "kurs:push_tokens"

type TokenStore struct {
	redis *redis.Client
}

func NewTokenStore(redis *redis.Client) *TokenStore {
	return &TokenStore{redis: redis}
}

func (s *TokenStore) Put(ctx context.Context, userID types.ID, token string) error {
	return s.redis.HSet(ctx, deviceTokenKey, string(userID), token).Err()
}

func (s *TokenStore) Delete(ctx context.Context, userID types.ID) error {
	return s.redis.HDel(ctx, deviceTokenKey, string(userID)).Err()
}

// Get returns "" when the user has no registered device.
func (s *TokenStore) Get(ctx context.Context, userID types.ID) (string, error) {
	token, err := s.redis.HGet(ctx, deviceTokenKey, string(userID)).Result()
	if err == redis.Nil {
		return "", nil
	}
	return token, err
}
