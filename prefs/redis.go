package prefs

import (
	"context"
	"fmt"
	"go-cbr-converter/domain"
	"time"

	"github.com/redis/go-redis/v9"
)

const dateLayout = "2006-01-02"

// RedisStore keeps preferences in a single Redis hash.
type RedisStore struct {
	client redis.UniversalClient
	key    string
}

// NewRedisStore connects to a single Redis node.
func NewRedisStore(addr, password string, db int, key string) *RedisStore {
	return NewRedisStoreWithClient(redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	}), key)
}

// NewRedisStoreWithClient uses an existing client, single node or cluster.
func NewRedisStoreWithClient(client redis.UniversalClient, key string) *RedisStore {
	return &RedisStore{client: client, key: key}
}

func (s *RedisStore) Load(ctx context.Context) (Preferences, error) {
	fields, err := s.client.HGetAll(ctx, s.key).Result()
	if err != nil {
		return Preferences{}, fmt.Errorf("redis hgetall [%v]: %w", s.key, err)
	}
	return decode(fields)
}

func (s *RedisStore) Save(ctx context.Context, p Preferences) error {
	err := s.client.HSet(ctx, s.key, encode(p)).Err()
	if err != nil {
		return fmt.Errorf("redis hset [%v]: %w", s.key, err)
	}
	return nil
}

// Close releases the underlying connections.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

func encode(p Preferences) map[string]interface{} {
	return map[string]interface{}{
		"date":   p.Date.Format(dateLayout),
		"source": string(p.Source),
		"target": string(p.Target),
		"amount": p.Amount,
	}
}

func decode(fields map[string]string) (Preferences, error) {
	if len(fields) == 0 {
		return Preferences{}, ErrNotFound
	}
	p := Preferences{
		Source: domain.Currency(fields["source"]),
		Target: domain.Currency(fields["target"]),
		Amount: fields["amount"],
	}
	if raw := fields["date"]; raw != "" {
		date, err := time.ParseInLocation(dateLayout, raw, time.Local)
		if err != nil {
			return Preferences{}, fmt.Errorf("bad saved date [%v]: %w", raw, err)
		}
		p.Date = date
	}
	return p, nil
}
