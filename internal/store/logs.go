package store

import (
	"context"
	"fmt"

	"github.com/erazemk/inventar/internal/kv"
	"github.com/erazemk/inventar/internal/model"
)

// Logs returns the activity log, newest first.
func (r *Repository) Logs(ctx context.Context) ([]model.LogEntry, error) {
	var logs []model.LogEntry
	if _, err := r.readJSON(ctx, KeyLogs, &logs); err != nil {
		return nil, fmt.Errorf("reading logs: %w", err)
	}
	if logs == nil {
		logs = []model.LogEntry{}
	}
	return logs, nil
}

// LogsEntry encodes the activity log, keeping the newest MaxLogEntries.
func LogsEntry(logs []model.LogEntry) (kv.Entry, error) {
	if logs == nil {
		logs = []model.LogEntry{}
	}
	return encode(KeyLogs, truncate(logs, MaxLogEntries))
}
