package relation

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/go-redis/redis/v8"

	"github.com/nfsherd/nfsherd/types"
)

var _ Store = &RedisStore{}

// RedisStore keeps relation records as JSON strings under
// <prefix>:group:<id> and peer addresses in the <prefix>:peers hash.
type RedisStore struct {
	client redis.UniversalClient
	prefix string
}

func NewRedisStore(client redis.UniversalClient, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "nfsherd"
	}
	return &RedisStore{client: client, prefix: prefix}
}

func (r *RedisStore) Publish(ctx context.Context, groupID string, rec Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal record for group %q: %w", groupID, err)
	}
	if err := r.client.Set(ctx, r.groupKey(groupID), data, 0).Err(); err != nil {
		return fmt.Errorf("write record for group %q: %w", groupID, err)
	}
	return nil
}

func (r *RedisStore) Clear(ctx context.Context, groupID string) error {
	if err := r.client.Del(ctx, r.groupKey(groupID)).Err(); err != nil {
		return fmt.Errorf("clear record for group %q: %w", groupID, err)
	}
	return nil
}

func (r *RedisStore) Get(ctx context.Context, groupID string) (Record, error) {
	data, err := r.client.Get(ctx, r.groupKey(groupID)).Bytes()
	if err == redis.Nil {
		return Record{}, types.NewNotFoundError(fmt.Sprintf("no record for group %q", groupID))
	}
	if err != nil {
		return Record{}, fmt.Errorf("read record for group %q: %w", groupID, err)
	}
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return Record{}, fmt.Errorf("unmarshal record for group %q: %w", groupID, err)
	}
	return rec, nil
}

func (r *RedisStore) Groups(ctx context.Context) ([]string, error) {
	pattern := r.groupKey("*")
	groupPrefix := r.groupKey("")

	// SCAN rather than KEYS: the store is shared and KEYS blocks the server
	// for its whole keyspace walk. SCAN may repeat a key across pages, so
	// dedupe here.
	seen := make(map[string]struct{})
	var (
		groups []string
		cursor uint64
	)
	for {
		keys, next, err := r.client.Scan(ctx, cursor, pattern, 100).Result()
		if err != nil {
			return nil, fmt.Errorf("list groups: %w", err)
		}
		for _, k := range keys {
			if !strings.HasPrefix(k, groupPrefix) {
				continue
			}
			g := strings.TrimPrefix(k, groupPrefix)
			if _, ok := seen[g]; ok {
				continue
			}
			seen[g] = struct{}{}
			groups = append(groups, g)
		}
		cursor = next
		if cursor == 0 {
			return groups, nil
		}
	}
}

func (r *RedisStore) SetPeer(ctx context.Context, host, addr string) error {
	if err := r.client.HSet(ctx, r.peersKey(), host, addr).Err(); err != nil {
		return fmt.Errorf("set peer %q: %w", host, err)
	}
	return nil
}

func (r *RedisStore) Peers(ctx context.Context) (map[string]string, error) {
	peers, err := r.client.HGetAll(ctx, r.peersKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("list peers: %w", err)
	}
	return peers, nil
}

func (r *RedisStore) groupKey(groupID string) string {
	return r.prefix + ":group:" + groupID
}

func (r *RedisStore) peersKey() string {
	return r.prefix + ":peers"
}
