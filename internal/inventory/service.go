// Package inventory applies item, stock, transaction and category changes.
// Each mutation is one atomic write of every key it touches plus its log entry.
package inventory

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"go.uber.org/zap"

	"github.com/erazemk/inventar/internal/activity"
	"github.com/erazemk/inventar/internal/events"
	"github.com/erazemk/inventar/internal/kv"
	"github.com/erazemk/inventar/internal/model"
	"github.com/erazemk/inventar/internal/store"
)

// Service owns inventory mutations.
type Service struct {
	repo *store.Repository
	rec  *activity.Recorder
	log  *zap.Logger

	// Now returns the current time. Tests replace it.
	Now func() time.Time
	// Location is used to decide what "today" is for return dates.
	Location *time.Location
}

// NewService creates an inventory service.
func NewService(repo *store.Repository, rec *activity.Recorder, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		repo:     repo,
		rec:      rec,
		log:      log,
		Now:      time.Now,
		Location: time.Local,
	}
}

// commit appends a log entry to entries, writes everything atomically and
// notifies subscribers. The caller must hold the repository lock.
func (s *Service) commit(ctx context.Context, action, details string, entries ...kv.Entry) error {
	logEntry, err := s.rec.Append(ctx, action, details)
	if err != nil {
		return err
	}
	entries = append(entries, logEntry)
	if err := s.repo.Apply(ctx, entries...); err != nil {
		return err
	}
	s.rec.Notify(ctx, events.InventoryUpdated, events.LogsUpdated)
	return nil
}

// newItemID returns an unused ITEM-#### id.
func newItemID(items []model.Item) (string, error) {
	used := make(map[string]bool, len(items))
	for _, it := range items {
		used[it.ID] = true
	}
	for range 100 {
		id := fmt.Sprintf("ITEM-%04d", 1000+rand.IntN(9000))
		if !used[id] {
			return id, nil
		}
	}
	for n := 1000; n <= 9999; n++ {
		if id := fmt.Sprintf("ITEM-%04d", n); !used[id] {
			return id, nil
		}
	}
	return "", fmt.Errorf("no free item ids: %w", model.ErrConflict)
}

// newTransactionID returns a TXN-<unix nanos> id not present in txs.
func newTransactionID(txs []model.Transaction, now time.Time) string {
	n := now.UnixNano()
	for {
		id := fmt.Sprintf("TXN-%d", n)
		if store.FindTransaction(txs, id) < 0 {
			return id
		}
		n++
	}
}

func (s *Service) today() time.Time {
	y, m, d := s.Now().In(s.Location).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, s.Location)
}
