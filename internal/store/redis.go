package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "encore:player:"

// RedisStore keeps one key per guild under a shared prefix, so
// snapshots survive restarts and can be shared across bot replicas.
type RedisStore struct {
	client *redis.Client
}

var _ PlayerStore = (*RedisStore)(nil)

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func key(guildID string) string {
	return keyPrefix + guildID
}

func (s *RedisStore) Save(ctx context.Context, snapshot Snapshot) error {
	payload, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("marshal snapshot for guild %s: %w", snapshot.GuildID, err)
	}
	if err := s.client.Set(ctx, key(snapshot.GuildID), payload, 0).Err(); err != nil {
		return fmt.Errorf("save snapshot for guild %s: %w", snapshot.GuildID, err)
	}
	return nil
}

func (s *RedisStore) Load(ctx context.Context, guildID string) (Snapshot, bool, error) {
	payload, err := s.client.Get(ctx, key(guildID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Snapshot{}, false, nil
	}
	if err != nil {
		return Snapshot{}, false, fmt.Errorf("load snapshot for guild %s: %w", guildID, err)
	}

	var snapshot Snapshot
	if err := json.Unmarshal(payload, &snapshot); err != nil {
		return Snapshot{}, false, fmt.Errorf("unmarshal snapshot for guild %s: %w", guildID, err)
	}
	return snapshot, true, nil
}

func (s *RedisStore) LoadAll(ctx context.Context) ([]Snapshot, error) {
	var keys []string
	iter := s.client.Scan(ctx, 0, keyPrefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("scan snapshots: %w", err)
	}
	if len(keys) == 0 {
		return nil, nil
	}

	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("fetch snapshots: %w", err)
	}

	snapshots := make([]Snapshot, 0, len(values))
	for i, value := range values {
		raw, ok := value.(string)
		if !ok {
			// The key expired between the scan and the fetch.
			continue
		}
		var snapshot Snapshot
		if err := json.Unmarshal([]byte(raw), &snapshot); err != nil {
			return nil, fmt.Errorf("unmarshal snapshot %s: %w", keys[i], err)
		}
		snapshots = append(snapshots, snapshot)
	}
	return snapshots, nil
}

func (s *RedisStore) Delete(ctx context.Context, guildID string) error {
	if err := s.client.Del(ctx, key(guildID)).Err(); err != nil {
		return fmt.Errorf("delete snapshot for guild %s: %w", guildID, err)
	}
	return nil
}
