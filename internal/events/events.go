// Package events carries change notifications between components. Events
// hold no payload beyond the topic; receivers re-read state from the stores.
package events

import (
	"context"
	"time"
)

// Topics.
const (
	StorageChanged   = "storage-changed"
	LogsUpdated      = "logs-updated"
	UsersUpdated     = "users-updated"
	InventoryUpdated = "inventory-updated"
)

// AllTopics lists every topic, for subscribers that want everything.
var AllTopics = []string{StorageChanged, LogsUpdated, UsersUpdated, InventoryUpdated}

// Event is a single change notification.
type Event struct {
	Topic string    `json:"topic"`
	At    time.Time `json:"at"`
}

// Publisher sends events. Publishing never blocks on slow subscribers.
type Publisher interface {
	Publish(ctx context.Context, topics ...string) error
}

// Subscriber receives events for the given topics until cancel is called.
// The returned channel is closed after cancel.
type Subscriber interface {
	Subscribe(ctx context.Context, topics ...string) (<-chan Event, func(), error)
}

// Bus is both a Publisher and a Subscriber.
type Bus interface {
	Publisher
	Subscriber
	Close() error
}

// Nop is a Publisher that drops every event.
type Nop struct{}

func (Nop) Publish(context.Context, ...string) error { return nil }
