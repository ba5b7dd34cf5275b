package history

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

var redisHistoryPrefix string = "history/"

type RedisStore struct {
	Client *redis.Client
}

func NewRedisStore(redisURL string) (*RedisStore, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}
	rdb := redis.NewClient(opt)
	// check redis connection
	_, err = rdb.Ping(context.TODO()).Result()
	if err != nil {
		return nil, err
	}
	rs := RedisStore{
		Client: rdb,
	}
	return &rs, nil
}

func redisHistoryKey(url, action string) string {
	return redisHistoryPrefix + url + "/" + action
}

func (s *RedisStore) Count(ctx context.Context, url, action string) (int, error) {
	n, err := s.Client.Exists(ctx, redisHistoryKey(url, action)).Result()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

// Record uses SETNX so a concurrent duplicate insert quietly loses; entries
// never expire.
func (s *RedisStore) Record(ctx context.Context, url, action string) error {
	return s.Client.SetNX(ctx, redisHistoryKey(url, action), time.Now().UTC().Format(time.RFC3339), 0).Err()
}
