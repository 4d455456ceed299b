// Package due reports borrowed items that are still out, soonest due first.
// Nothing here is stored; every call recomputes from the transaction lists.
package due

import (
	"cmp"
	"context"
	"slices"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/erazemk/inventar/internal/model"
	"github.com/erazemk/inventar/internal/store"
)

// Compute joins every open borrow with its item. Borrows without a
// borrower or return date are skipped. The result is sorted by days
// remaining, overdue first; ties keep item and transaction order.
func Compute(items []model.Item, txByItem map[string][]model.Transaction, today time.Time) []model.DueItem {
	var out []model.DueItem
	for _, it := range items {
		for _, tx := range txByItem[it.ID] {
			if tx.Type != model.TransactionBorrow || tx.Settled() {
				continue
			}
			qtyDue := tx.Quantity - tx.QuantityReturned
			if qtyDue <= 0 || strings.TrimSpace(tx.BorrowerName) == "" || tx.ReturnDate == nil || tx.ReturnDate.IsZero() {
				continue
			}
			out = append(out, model.DueItem{
				TransactionID:    tx.ID,
				ItemID:           it.ID,
				ItemName:         it.Name,
				ItemImageURL:     it.ImageURL,
				BorrowerName:     tx.BorrowerName,
				BorrowerRegdNum:  tx.BorrowerRegdNum,
				BorrowerPhone:    tx.BorrowerPhone,
				ReturnDate:       *tx.ReturnDate,
				DaysRemaining:    DaysBetween(today, *tx.ReturnDate),
				QuantityBorrowed: tx.Quantity,
				QuantityReturned: tx.QuantityReturned,
				QuantityDue:      qtyDue,
			})
		}
	}

	slices.SortStableFunc(out, func(a, b model.DueItem) int {
		return cmp.Compare(a.DaysRemaining, b.DaysRemaining)
	})
	return out
}

// DaysBetween returns the number of calendar days from a to b, using a's
// location for both. It is negative when b is before a.
func DaysBetween(a, b time.Time) int {
	loc := a.Location()
	ay, am, ad := a.Date()
	by, bm, bd := b.In(loc).Date()
	// Noon UTC keeps DST shifts out of the division.
	from := time.Date(ay, am, ad, 12, 0, 0, 0, time.UTC)
	to := time.Date(by, bm, bd, 12, 0, 0, 0, time.UTC)
	return int(to.Sub(from).Hours() / 24)
}

// Service loads due items through the repository.
type Service struct {
	repo *store.Repository

	// Now returns the current time. Tests replace it.
	Now      func() time.Time
	Location *time.Location
}

// NewService creates a due-item service.
func NewService(repo *store.Repository) *Service {
	return &Service{repo: repo, Now: time.Now, Location: time.Local}
}

// List returns all currently due items.
func (s *Service) List(ctx context.Context) ([]model.DueItem, error) {
	items, err := s.repo.Items(ctx)
	if err != nil {
		return nil, err
	}

	lists := make([][]model.Transaction, len(items))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(8)
	for i, it := range items {
		g.Go(func() error {
			txs, err := s.repo.Transactions(gctx, it.ID)
			if err != nil {
				return err
			}
			lists[i] = txs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	txByItem := make(map[string][]model.Transaction, len(items))
	for i, it := range items {
		txByItem[it.ID] = lists[i]
	}
	return Compute(items, txByItem, s.Now().In(s.Location)), nil
}
