package events

import (
	"context"
	"sync"
	"time"
)

type subscriber struct {
	ch     chan Event
	topics map[string]bool
	once   sync.Once
}

// Local is an in-process fan-out bus.
type Local struct {
	mu      sync.RWMutex
	subs    map[*subscriber]struct{}
	bufSize int
	closed  bool
}

// NewLocal creates a Local bus with the given per-subscriber buffer size.
func NewLocal(bufSize int) *Local {
	if bufSize <= 0 {
		bufSize = 64
	}
	return &Local{
		subs:    make(map[*subscriber]struct{}),
		bufSize: bufSize,
	}
}

// Publish delivers the topics to every matching subscriber.
// Events are dropped for subscribers whose buffer is full.
func (l *Local) Publish(_ context.Context, topics ...string) error {
	now := time.Now()
	l.mu.RLock()
	defer l.mu.RUnlock()
	for s := range l.subs {
		for _, t := range topics {
			if !s.topics[t] {
				continue
			}
			select {
			case s.ch <- Event{Topic: t, At: now}:
			default:
			}
		}
	}
	return nil
}

// Subscribe registers a subscriber for topics. With no topics it receives all of them.
func (l *Local) Subscribe(_ context.Context, topics ...string) (<-chan Event, func(), error) {
	if len(topics) == 0 {
		topics = AllTopics
	}
	s := &subscriber{
		ch:     make(chan Event, l.bufSize),
		topics: make(map[string]bool, len(topics)),
	}
	for _, t := range topics {
		s.topics[t] = true
	}

	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		close(s.ch)
		return s.ch, func() {}, nil
	}
	l.subs[s] = struct{}{}
	l.mu.Unlock()

	cancel := func() {
		l.mu.Lock()
		delete(l.subs, s)
		l.mu.Unlock()
		s.once.Do(func() { close(s.ch) })
	}
	return s.ch, cancel, nil
}

// Close closes every subscriber channel. Later subscriptions get a closed channel.
func (l *Local) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.closed = true
	for s := range l.subs {
		s.once.Do(func() { close(s.ch) })
		delete(l.subs, s)
	}
	return nil
}
