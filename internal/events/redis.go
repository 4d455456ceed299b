package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// Redis fans events out over Redis pub/sub so several server processes
// sharing one store see each other's changes.
type Redis struct {
	client  *goredis.Client
	prefix  string
	bufSize int
}

// NewRedis creates a bus on an existing client. prefix namespaces channel names.
func NewRedis(client *goredis.Client, prefix string) *Redis {
	return &Redis{client: client, prefix: prefix, bufSize: 64}
}

func (r *Redis) Publish(ctx context.Context, topics ...string) error {
	now := time.Now()
	for _, t := range topics {
		payload, err := json.Marshal(Event{Topic: t, At: now})
		if err != nil {
			return fmt.Errorf("encoding event: %w", err)
		}
		if err := r.client.Publish(ctx, r.prefix+t, payload).Err(); err != nil {
			return fmt.Errorf("publishing %s: %w", t, err)
		}
	}
	return nil
}

func (r *Redis) Subscribe(ctx context.Context, topics ...string) (<-chan Event, func(), error) {
	if len(topics) == 0 {
		topics = AllTopics
	}
	channels := make([]string, len(topics))
	for i, t := range topics {
		channels[i] = r.prefix + t
	}

	ps := r.client.Subscribe(ctx, channels...)
	if _, err := ps.Receive(ctx); err != nil {
		ps.Close()
		return nil, nil, fmt.Errorf("subscribing: %w", err)
	}

	ch := make(chan Event, r.bufSize)
	go func() {
		defer close(ch)
		for msg := range ps.Channel() {
			ev := Event{Topic: strings.TrimPrefix(msg.Channel, r.prefix), At: time.Now()}
			_ = json.Unmarshal([]byte(msg.Payload), &ev)
			select {
			case ch <- ev:
			default:
			}
		}
	}()

	cancel := func() {
		_ = ps.Close()
	}
	return ch, cancel, nil
}

// Close is a no-op; the client is owned by the key-value store.
func (r *Redis) Close() error {
	return nil
}
