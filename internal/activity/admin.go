package activity

import (
	"context"
	"fmt"
	"time"

	"github.com/erazemk/inventar/internal/events"
	"github.com/erazemk/inventar/internal/model"
	"github.com/erazemk/inventar/internal/store"
)

// Filter selects log entries.
type Filter struct {
	// Date keeps entries from the same calendar day in Date's location. Zero keeps all.
	Date time.Time
	// ShowHidden includes soft-deleted entries.
	ShowHidden bool
}

// List returns log entries matching f, newest first.
func (r *Recorder) List(ctx context.Context, f Filter) ([]model.LogEntry, error) {
	logs, err := r.repo.Logs(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]model.LogEntry, 0, len(logs))
	for _, l := range logs {
		if l.IsHidden && !f.ShowHidden {
			continue
		}
		if !f.Date.IsZero() && !sameDay(l.Timestamp.In(f.Date.Location()), f.Date) {
			continue
		}
		out = append(out, l)
	}
	return out, nil
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// ToggleHidden flips the hidden flag of an entry. Super Admin only.
func (r *Recorder) ToggleHidden(ctx context.Context, id string) (*model.LogEntry, error) {
	if err := requireSuperAdmin(ctx); err != nil {
		return nil, err
	}

	r.repo.Lock()
	defer r.repo.Unlock()

	logs, err := r.repo.Logs(ctx)
	if err != nil {
		return nil, err
	}
	i := findLog(logs, id)
	if i < 0 {
		return nil, fmt.Errorf("log entry %s: %w", id, model.ErrNotFound)
	}
	logs[i].IsHidden = !logs[i].IsHidden

	entry, err := store.LogsEntry(logs)
	if err != nil {
		return nil, err
	}
	if err := r.repo.Apply(ctx, entry); err != nil {
		return nil, err
	}

	r.Notify(ctx, events.LogsUpdated)
	updated := logs[i]
	return &updated, nil
}

// Delete permanently removes an entry. Super Admin only; confirm must be "delete".
func (r *Recorder) Delete(ctx context.Context, id, confirm string) error {
	if err := requireSuperAdmin(ctx); err != nil {
		return err
	}
	if !model.Confirmed(confirm) {
		return model.Invalid("confirm", "type %q to confirm", model.ConfirmDelete)
	}

	r.repo.Lock()
	defer r.repo.Unlock()

	logs, err := r.repo.Logs(ctx)
	if err != nil {
		return err
	}
	i := findLog(logs, id)
	if i < 0 {
		return fmt.Errorf("log entry %s: %w", id, model.ErrNotFound)
	}
	logs = append(logs[:i], logs[i+1:]...)

	entry, err := store.LogsEntry(logs)
	if err != nil {
		return err
	}
	if err := r.repo.Apply(ctx, entry); err != nil {
		return err
	}

	r.Notify(ctx, events.LogsUpdated)
	return nil
}

func requireSuperAdmin(ctx context.Context) error {
	a, ok := ActorFrom(ctx)
	if !ok || !model.RoleAtLeast(a.Role, model.RoleSuperAdmin) {
		return model.ErrForbidden
	}
	return nil
}

func findLog(logs []model.LogEntry, id string) int {
	for i := range logs {
		if logs[i].ID == id {
			return i
		}
	}
	return -1
}
