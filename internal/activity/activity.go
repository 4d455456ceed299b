// Package activity keeps the capped administrative activity log.
package activity

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/erazemk/inventar/internal/events"
	"github.com/erazemk/inventar/internal/kv"
	"github.com/erazemk/inventar/internal/model"
	"github.com/erazemk/inventar/internal/store"
)

// Recorder appends log entries and notifies subscribers of changes.
type Recorder struct {
	repo *store.Repository
	bus  events.Publisher
	log  *zap.Logger

	// Now returns the current time. Tests replace it.
	Now func() time.Time
}

// NewRecorder creates a recorder. A nil bus drops events.
func NewRecorder(repo *store.Repository, bus events.Publisher, log *zap.Logger) *Recorder {
	if bus == nil {
		bus = events.Nop{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Recorder{repo: repo, bus: bus, log: log, Now: time.Now}
}

// Append builds the write that prepends a log entry. The caller must hold
// the repository lock and apply the entry together with its own changes.
func (r *Recorder) Append(ctx context.Context, action, details string) (kv.Entry, error) {
	logs, err := r.repo.Logs(ctx)
	if err != nil {
		return kv.Entry{}, err
	}

	name, avatar := r.ResolveActor(ctx)
	now := r.Now()

	entry := model.LogEntry{
		ID:          r.nextID(logs, now),
		Timestamp:   now,
		AdminName:   name,
		AdminAvatar: avatar,
		Action:      action,
		Details:     details,
	}
	return store.LogsEntry(store.Prepend(logs, entry, store.MaxLogEntries))
}

// Record appends a log entry on its own and notifies subscribers.
func (r *Recorder) Record(ctx context.Context, action, details string) error {
	r.repo.Lock()
	entry, err := r.Append(ctx, action, details)
	if err == nil {
		err = r.repo.Apply(ctx, entry)
	}
	r.repo.Unlock()
	if err != nil {
		return fmt.Errorf("recording %q: %w", action, err)
	}

	r.Notify(ctx, events.LogsUpdated)
	return nil
}

// Notify publishes topics plus storage-changed. Failures are logged, not returned.
func (r *Recorder) Notify(ctx context.Context, topics ...string) {
	topics = append(topics, events.StorageChanged)
	if err := r.bus.Publish(ctx, topics...); err != nil {
		r.log.Warn("publishing change events failed",
			zap.Strings("topics", topics),
			zap.Error(err),
		)
	}
}

// ResolveActor names the current actor: the request actor, then the stored
// session, then SystemName.
func (r *Recorder) ResolveActor(ctx context.Context) (string, string) {
	if a, ok := ActorFrom(ctx); ok && a.Name != "" {
		return a.Name, a.AvatarURL
	}
	u, err := r.repo.Session(ctx)
	if err != nil {
		r.log.Warn("reading session for log entry", zap.Error(err))
	}
	if u != nil && u.Name != "" {
		return u.Name, u.AvatarURL
	}
	return SystemName, ""
}

func (r *Recorder) nextID(logs []model.LogEntry, now time.Time) string {
	seen := make(map[string]bool, len(logs))
	for _, l := range logs {
		seen[l.ID] = true
	}
	n := now.UnixNano()
	id := fmt.Sprintf("LOG-%d", n)
	for seen[id] {
		n++
		id = fmt.Sprintf("LOG-%d", n)
	}
	return id
}
