package kvstore

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	redis "github.com/redis/go-redis/v9"
)

const (
	fieldValue     = "value"
	fieldUpdatedAt = "updated_at"

	replaceLockTTL = 30 * time.Second
	scanBatch      = 200
)

// createScript sets value and updated_at together, only when value is absent.
var createScript = redis.NewScript(`
if redis.call("HSETNX", KEYS[1], "` + fieldValue + `", ARGV[1]) == 0 then
  return 0
end
redis.call("HSET", KEYS[1], "` + fieldUpdatedAt + `", ARGV[2])
return 1
`)

// RedisStore keeps each entry in a hash under "<namespace>:<key>".
type RedisStore struct {
	client    *redis.Client
	namespace string
	lock      *locker
	now       func() time.Time
}

func NewRedisStore(client *redis.Client, namespace string) *RedisStore {
	namespace = strings.TrimSpace(namespace)
	if namespace == "" {
		namespace = "orderdesk"
	}
	return &RedisStore{
		client:    client,
		namespace: namespace,
		lock:      newLocker(client),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (s *RedisStore) key(k string) string {
	return s.namespace + ":" + k
}

func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, error) {
	if err := validateKey(key); err != nil {
		return nil, err
	}
	data, err := s.client.HGet(ctx, s.key(key), fieldValue).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get %s: %w", key, err)
	}
	return data, nil
}

func (s *RedisStore) Create(ctx context.Context, key string, value []byte) error {
	if err := validateKey(key); err != nil {
		return err
	}
	created, err := createScript.Run(ctx, s.client, []string{s.key(key)}, value, s.stamp(time.Time{})).Int()
	if err != nil {
		return fmt.Errorf("redis create %s: %w", key, err)
	}
	if created == 0 {
		return ErrConflict
	}
	return nil
}

func (s *RedisStore) Put(ctx context.Context, key string, value []byte) error {
	if err := validateKey(key); err != nil {
		return err
	}
	err := s.client.HSet(ctx, s.key(key), fieldValue, value, fieldUpdatedAt, s.stamp(time.Time{})).Err()
	if err != nil {
		return fmt.Errorf("redis put %s: %w", key, err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, key string) error {
	if err := validateKey(key); err != nil {
		return err
	}
	n, err := s.client.Del(ctx, s.key(key)).Result()
	if err != nil {
		return fmt.Errorf("redis delete %s: %w", key, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *RedisStore) List(ctx context.Context, prefix string) ([]Entry, error) {
	keys, err := s.scan(ctx, prefix)
	if err != nil {
		return nil, err
	}

	cmds := make([]*redis.SliceCmd, len(keys))
	_, err = s.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for i, k := range keys {
			cmds[i] = pipe.HMGet(ctx, k, fieldValue, fieldUpdatedAt)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("redis list %s: %w", prefix, err)
	}

	entries := make([]Entry, 0, len(keys))
	for i, k := range keys {
		vals := cmds[i].Val()
		if len(vals) != 2 || vals[0] == nil {
			continue
		}
		value, _ := vals[0].(string)
		entry := Entry{Key: strings.TrimPrefix(k, s.namespace+":"), Value: []byte(value)}
		if stamp, ok := vals[1].(string); ok {
			entry.UpdatedAt, _ = time.Parse(time.RFC3339Nano, stamp)
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// ReplacePrefix holds a namespace lock while it swaps the keys so that two
// imports cannot interleave. The swap itself runs in one MULTI block.
func (s *RedisStore) ReplacePrefix(ctx context.Context, prefix string, entries []Entry) error {
	if err := validateEntries(prefix, entries); err != nil {
		return err
	}

	lockKey := s.key("lock:" + prefix)
	token, ok, err := s.lock.TryLock(ctx, lockKey, replaceLockTTL)
	if err != nil {
		return fmt.Errorf("redis lock %s: %w", prefix, err)
	}
	if !ok {
		return ErrBusy
	}
	defer func() { _ = s.lock.Release(context.WithoutCancel(ctx), lockKey, token) }()

	existing, err := s.scan(ctx, prefix)
	if err != nil {
		return err
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		if len(existing) > 0 {
			pipe.Del(ctx, existing...)
		}
		for _, e := range entries {
			pipe.HSet(ctx, s.key(e.Key), fieldValue, e.Value, fieldUpdatedAt, s.stamp(e.UpdatedAt))
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis replace %s: %w", prefix, err)
	}
	return nil
}

// scan returns the namespaced keys under prefix, sorted. The lock key space
// is skipped.
func (s *RedisStore) scan(ctx context.Context, prefix string) ([]string, error) {
	pattern := s.key(globEscaper.Replace(prefix)) + "*"
	lockPrefix := s.key("lock:")

	var (
		keys   []string
		cursor uint64
	)
	for {
		batch, next, err := s.client.Scan(ctx, cursor, pattern, scanBatch).Result()
		if err != nil {
			return nil, fmt.Errorf("redis scan %s: %w", prefix, err)
		}
		for _, k := range batch {
			if strings.HasPrefix(k, lockPrefix) {
				continue
			}
			keys = append(keys, k)
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}
	sort.Strings(keys)
	return dedupe(keys), nil
}

func (s *RedisStore) stamp(t time.Time) string {
	if t.IsZero() {
		t = s.now()
	}
	return t.UTC().Format(time.RFC3339Nano)
}

var globEscaper = strings.NewReplacer(`\`, `\\`, "*", `\*`, "?", `\?`, "[", `\[`, "]", `\]`)

// dedupe drops repeats from sorted keys; SCAN may return a key twice.
func dedupe(keys []string) []string {
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		if n := len(out); n > 0 && out[n-1] == k {
			continue
		}
		out = append(out, k)
	}
	return out
}
