package sessionsvc

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"github.com/lanes-app/lanes/core"
)

const keyPrefix = "lanes:session:"

type redisStore struct {
	rdb *redis.Client
}

var _ core.SessionStore = (*redisStore)(nil)

func NewRedisClient(conf *core.Config) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     conf.Redis.Address,
		Password: conf.Redis.Password,
		DB:       conf.Redis.DB,
	})
}

// NewRedisStore stores the sessions in redis, expiring with their TTL.
func NewRedisStore(rdb *redis.Client) core.SessionStore {
	return &redisStore{rdb: rdb}
}

func (s *redisStore) Create(ctx context.Context, userID string, ttl time.Duration) (string, error) {
	id := uuid.NewString()
	if err := s.rdb.Set(ctx, keyPrefix+id, userID, ttl).Err(); err != nil {
		return "", errors.Wrap(err, "storing session")
	}
	return id, nil
}

func (s *redisStore) Get(ctx context.Context, id string) (string, error) {
	userID, err := s.rdb.Get(ctx, keyPrefix+id).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", core.ErrSessionNotFound
		}
		return "", errors.Wrap(err, "loading session")
	}
	return userID, nil
}

func (s *redisStore) Delete(ctx context.Context, id string) error {
	return errors.Wrap(s.rdb.Del(ctx, keyPrefix+id).Err(), "deleting session")
}
