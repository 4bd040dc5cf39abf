package profile

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps one hash per user under profile:<userId>. Field
// writes are independent, which matches the no-transaction contract.
type RedisStore struct {
	rdb *redis.Client
}

func NewRedisStore(redisURL string) (*RedisStore, error) {
	if strings.TrimSpace(redisURL) == "" {
		return nil, fmt.Errorf("REDIS_URL required for profile store")
	}
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &RedisStore{rdb: rdb}, nil
}

func (s *RedisStore) Close() error {
	if s == nil || s.rdb == nil {
		return nil
	}
	return s.rdb.Close()
}

func profileKey(userID string) string { return "profile:" + strings.TrimSpace(userID) }

func (s *RedisStore) Get(ctx context.Context, userID string) (Record, error) {
	fields, err := s.rdb.HGetAll(ctx, profileKey(userID)).Result()
	if err != nil {
		return Record{}, err
	}
	rec := Record{Rating: DefaultRating}
	if len(fields) == 0 {
		return rec, nil
	}
	rec.Rating = intField(fields, "rating", DefaultRating)
	rec.Wins = intField(fields, "wins", 0)
	rec.Losses = intField(fields, "losses", 0)
	rec.GamesPlayed = intField(fields, "games_played", 0)
	return rec, nil
}

func (s *RedisStore) Update(ctx context.Context, userID string, rec Record) error {
	return s.rdb.HSet(ctx, profileKey(userID),
		"rating", rec.Rating,
		"wins", rec.Wins,
		"losses", rec.Losses,
		"games_played", rec.GamesPlayed,
	).Err()
}

func intField(fields map[string]string, name string, def int) int {
	v, ok := fields[name]
	if !ok {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}
