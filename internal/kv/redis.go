package kv

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// RedisConfig holds Redis connection settings.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	// Prefix namespaces every key, e.g. "inventar:".
	Prefix string
	// Quota is the maximum total value size in bytes; 0 disables the limit.
	Quota int64
}

// Redis stores entries as plain string keys in Redis.
type Redis struct {
	client *goredis.Client
	prefix string
	quota  int64
}

// NewRedis connects to Redis and verifies the connection.
func NewRedis(cfg RedisConfig) (*Redis, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connecting to redis: %w", err)
	}
	return &Redis{client: client, prefix: cfg.Prefix, quota: cfg.Quota}, nil
}

// Client returns the underlying client so the event bus can share the connection pool.
func (r *Redis) Client() *goredis.Client {
	return r.client
}

func (r *Redis) Get(ctx context.Context, key string) ([]byte, bool, error) {
	v, err := r.client.Get(ctx, r.prefix+key).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("reading key %q: %w", key, err)
	}
	return v, true, nil
}

func (r *Redis) Set(ctx context.Context, key string, value []byte) error {
	if value == nil {
		value = []byte{}
	}
	return r.SetMulti(ctx, Entry{Key: key, Value: value})
}

func (r *Redis) SetMulti(ctx context.Context, entries ...Entry) error {
	entries = dedupe(entries)
	if len(entries) == 0 {
		return nil
	}

	if r.quota > 0 {
		if err := r.checkQuota(ctx, entries); err != nil {
			return err
		}
	}

	_, err := r.client.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		for _, e := range entries {
			if e.Value == nil {
				pipe.Del(ctx, r.prefix+e.Key)
				continue
			}
			pipe.Set(ctx, r.prefix+e.Key, e.Value, 0)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("writing %d keys: %w", len(entries), err)
	}
	return nil
}

func (r *Redis) checkQuota(ctx context.Context, entries []Entry) error {
	keys, err := r.scan(ctx, "")
	if err != nil {
		return err
	}

	cmds := make([]*goredis.IntCmd, len(keys))
	pipe := r.client.Pipeline()
	for i, k := range keys {
		cmds[i] = pipe.StrLen(ctx, r.prefix+k)
	}
	if len(keys) > 0 {
		// Per-command errors are inspected below.
		_, _ = pipe.Exec(ctx)
	}

	var total int64
	current := make(map[string]int64, len(keys))
	for i, cmd := range cmds {
		n, err := cmd.Result()
		if isWrongType(err) {
			// Not one of ours; only string values count.
			continue
		}
		if err != nil {
			return fmt.Errorf("measuring key %q: %w", keys[i], err)
		}
		total += n
		current[keys[i]] = n
	}

	if projectedSize(total, current, entries) > r.quota {
		return ErrQuotaExceeded
	}
	return nil
}

func isWrongType(err error) bool {
	return err != nil && strings.HasPrefix(err.Error(), "WRONGTYPE")
}

func (r *Redis) Remove(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, r.prefix+key).Err(); err != nil {
		return fmt.Errorf("removing key %q: %w", key, err)
	}
	return nil
}

func (r *Redis) Keys(ctx context.Context, prefix string) ([]string, error) {
	keys, err := r.scan(ctx, prefix)
	if err != nil {
		return nil, err
	}
	sort.Strings(keys)
	return keys, nil
}

// scan returns unprefixed keys that start with prefix.
func (r *Redis) scan(ctx context.Context, prefix string) ([]string, error) {
	pattern := globEscape(r.prefix+prefix) + "*"
	var keys []string
	iter := r.client.Scan(ctx, 0, pattern, 100).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, strings.TrimPrefix(iter.Val(), r.prefix))
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("scanning keys: %w", err)
	}
	return keys, nil
}

func (r *Redis) Close() error {
	return r.client.Close()
}

var globReplacer = strings.NewReplacer(`\`, `\\`, `*`, `\*`, `?`, `\?`, `[`, `\[`, `]`, `\]`)

func globEscape(s string) string {
	return globReplacer.Replace(s)
}
