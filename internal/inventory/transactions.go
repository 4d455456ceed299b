package inventory

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/erazemk/inventar/internal/model"
	"github.com/erazemk/inventar/internal/store"
)

// BorrowInput describes a borrow request.
type BorrowInput struct {
	// BorrowerID optionally names a registered user whose details fill in
	// any blank borrower fields.
	BorrowerID      string    `json:"borrowerId"`
	Quantity        int       `json:"quantity"`
	BorrowerName    string    `json:"borrowerName"`
	BorrowerRegdNum string    `json:"borrowerRegdNum"`
	BorrowerPhone   string    `json:"borrowerPhone"`
	ReturnDate      time.Time `json:"returnDate"`
	Reminder        bool      `json:"reminder"`
	Notes           string    `json:"notes"`
}

// ApplyBorrow lends quantity units of an item. Stock never goes negative:
// a borrow larger than the stock fails with ErrInsufficientStock and
// changes nothing.
func (s *Service) ApplyBorrow(ctx context.Context, itemID string, in BorrowInput) (*model.Item, *model.Transaction, error) {
	s.repo.Lock()
	defer s.repo.Unlock()

	if err := s.fillBorrower(ctx, &in); err != nil {
		return nil, nil, err
	}
	if err := s.validateBorrow(in); err != nil {
		return nil, nil, err
	}

	items, err := s.repo.Items(ctx)
	if err != nil {
		return nil, nil, err
	}
	i := store.FindItem(items, itemID)
	if i < 0 {
		return nil, nil, fmt.Errorf("item %s: %w", itemID, model.ErrNotFound)
	}
	item := &items[i]

	if item.Stock-in.Quantity < 0 {
		return nil, nil, fmt.Errorf("%w: have %d, need %d", model.ErrInsufficientStock, item.Stock, in.Quantity)
	}

	txs, err := s.repo.Transactions(ctx, itemID)
	if err != nil {
		return nil, nil, err
	}

	now := s.Now()
	adminName, _ := s.rec.ResolveActor(ctx)
	returnDate := in.ReturnDate
	tx := model.Transaction{
		ID:              newTransactionID(txs, now),
		Timestamp:       now,
		Type:            model.TransactionBorrow,
		Quantity:        in.Quantity,
		BorrowerName:    in.BorrowerName,
		BorrowerRegdNum: in.BorrowerRegdNum,
		BorrowerPhone:   in.BorrowerPhone,
		ReturnDate:      &returnDate,
		Notes:           in.Notes,
		Reminder:        in.Reminder,
		AdminName:       adminName,
		ItemName:        item.Name,
	}

	item.Stock -= in.Quantity
	item.Status = model.StockStatus(item.Stock)
	item.LastUpdated = now

	itemsEntry, err := store.ItemsEntry(items)
	if err != nil {
		return nil, nil, err
	}
	txEntry, err := store.TransactionsEntry(itemID, store.Prepend(txs, tx, store.MaxTransactionsPerItem))
	if err != nil {
		return nil, nil, err
	}

	details := fmt.Sprintf("%s borrowed %d x %s (%s), due %s",
		tx.BorrowerName, tx.Quantity, item.Name, item.ID, returnDate.Format(time.DateOnly))
	if err := s.commit(ctx, "Item Borrowed", details, itemsEntry, txEntry); err != nil {
		return nil, nil, fmt.Errorf("recording borrow: %w", err)
	}

	updated := items[i]
	return &updated, &tx, nil
}

func (s *Service) fillBorrower(ctx context.Context, in *BorrowInput) error {
	if in.BorrowerID == "" {
		return nil
	}
	u, err := s.repo.User(ctx, in.BorrowerID)
	if err != nil {
		return err
	}
	if u == nil {
		return fmt.Errorf("borrower %s: %w", in.BorrowerID, model.ErrNotFound)
	}
	if strings.TrimSpace(in.BorrowerName) == "" {
		in.BorrowerName = u.Name
	}
	if strings.TrimSpace(in.BorrowerRegdNum) == "" {
		in.BorrowerRegdNum = u.RegdNum
	}
	if strings.TrimSpace(in.BorrowerPhone) == "" {
		in.BorrowerPhone = u.Phone
	}
	return nil
}

func (s *Service) validateBorrow(in BorrowInput) error {
	if in.Quantity < 1 {
		return model.Invalid("quantity", "quantity must be at least 1")
	}
	if strings.TrimSpace(in.BorrowerName) == "" {
		return model.Invalid("borrowerName", "borrower name is required")
	}
	if strings.TrimSpace(in.BorrowerPhone) == "" {
		return model.Invalid("borrowerPhone", "borrower phone is required")
	}
	if in.ReturnDate.IsZero() {
		return model.Invalid("returnDate", "return date is required")
	}
	y, m, d := in.ReturnDate.In(s.Location).Date()
	if time.Date(y, m, d, 0, 0, 0, 0, s.Location).Before(s.today()) {
		return model.Invalid("returnDate", "return date cannot be in the past")
	}
	return nil
}

// ApplyReturn brings back quantity units of a borrow. A quantity of zero
// returns everything still outstanding. The borrow is settled once its
// full quantity is back.
func (s *Service) ApplyReturn(ctx context.Context, itemID, borrowID string, quantity int) (*model.Item, *model.Transaction, error) {
	if quantity < 0 {
		return nil, nil, model.Invalid("quantity", "quantity cannot be negative")
	}

	s.repo.Lock()
	defer s.repo.Unlock()

	items, err := s.repo.Items(ctx)
	if err != nil {
		return nil, nil, err
	}
	i := store.FindItem(items, itemID)
	if i < 0 {
		return nil, nil, fmt.Errorf("item %s: %w", itemID, model.ErrNotFound)
	}
	item := &items[i]

	txs, err := s.repo.Transactions(ctx, itemID)
	if err != nil {
		return nil, nil, err
	}
	j := store.FindTransaction(txs, borrowID)
	if j < 0 || txs[j].Type != model.TransactionBorrow {
		return nil, nil, fmt.Errorf("borrow %s: %w", borrowID, model.ErrNotFound)
	}
	borrow := &txs[j]

	if borrow.Settled() {
		return nil, nil, model.Invalid("transaction", "borrow %s is already settled", borrowID)
	}
	outstanding := borrow.Outstanding()
	if quantity == 0 {
		quantity = outstanding
	}
	if quantity > outstanding {
		return nil, nil, model.Invalid("quantity", "only %d of borrow %s are outstanding", outstanding, borrowID)
	}

	now := s.Now()
	adminName, _ := s.rec.ResolveActor(ctx)

	borrow.QuantityReturned += quantity
	if borrow.QuantityReturned >= borrow.Quantity {
		borrow.IsSettled = true
		borrow.Returned = true
	}

	ret := model.Transaction{
		ID:              newTransactionID(txs, now),
		Timestamp:       now,
		Type:            model.TransactionReturn,
		Quantity:        quantity,
		BorrowerName:    borrow.BorrowerName,
		BorrowerRegdNum: borrow.BorrowerRegdNum,
		BorrowerPhone:   borrow.BorrowerPhone,
		Notes:           "Return of transaction " + borrow.ID,
		AdminName:       adminName,
		RelatedBorrowID: borrow.ID,
		ItemName:        item.Name,
	}

	item.Stock += quantity
	item.Status = model.StockStatus(item.Stock)
	item.LastUpdated = now

	itemsEntry, err := store.ItemsEntry(items)
	if err != nil {
		return nil, nil, err
	}
	txEntry, err := store.TransactionsEntry(itemID, store.Prepend(txs, ret, store.MaxTransactionsPerItem))
	if err != nil {
		return nil, nil, err
	}

	details := fmt.Sprintf("%s returned %d x %s (%s)", ret.BorrowerName, quantity, item.Name, item.ID)
	if err := s.commit(ctx, "Item Returned", details, itemsEntry, txEntry); err != nil {
		return nil, nil, fmt.Errorf("recording return: %w", err)
	}

	updated := items[i]
	return &updated, &ret, nil
}

// RecentTransactions returns the newest transactions across all items.
func (s *Service) RecentTransactions(ctx context.Context, limit int) ([]model.Transaction, error) {
	items, err := s.repo.Items(ctx)
	if err != nil {
		return nil, err
	}

	var all []model.Transaction
	for _, it := range items {
		txs, err := s.repo.Transactions(ctx, it.ID)
		if err != nil {
			return nil, err
		}
		for _, tx := range txs {
			if tx.ItemName == "" {
				tx.ItemName = it.Name
			}
			all = append(all, tx)
		}
	}

	slices.SortStableFunc(all, func(a, b model.Transaction) int {
		return cmp.Compare(b.Timestamp.UnixNano(), a.Timestamp.UnixNano())
	})
	if limit > 0 && len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}
