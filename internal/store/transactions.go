package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/erazemk/inventar/internal/kv"
	"github.com/erazemk/inventar/internal/model"
)

// TransactionsKey returns the storage key for an item's transactions.
func TransactionsKey(itemID string) string {
	return transactionsPrefix + itemID
}

// Transactions returns an item's transactions, newest first.
func (r *Repository) Transactions(ctx context.Context, itemID string) ([]model.Transaction, error) {
	var txs []model.Transaction
	if _, err := r.readJSON(ctx, TransactionsKey(itemID), &txs); err != nil {
		return nil, fmt.Errorf("reading transactions for %s: %w", itemID, err)
	}
	if txs == nil {
		txs = []model.Transaction{}
	}
	return txs, nil
}

// TransactionItemIDs lists the item IDs that have a stored transaction list.
func (r *Repository) TransactionItemIDs(ctx context.Context) ([]string, error) {
	keys, err := r.KV.Keys(ctx, transactionsPrefix)
	if err != nil {
		return nil, fmt.Errorf("listing transaction keys: %w", err)
	}
	ids := make([]string, len(keys))
	for i, k := range keys {
		ids[i] = strings.TrimPrefix(k, transactionsPrefix)
	}
	return ids, nil
}

// TransactionsEntry encodes an item's transactions, keeping the newest
// MaxTransactionsPerItem.
func TransactionsEntry(itemID string, txs []model.Transaction) (kv.Entry, error) {
	if txs == nil {
		txs = []model.Transaction{}
	}
	return encode(TransactionsKey(itemID), truncate(txs, MaxTransactionsPerItem))
}

// RemoveTransactionsEntry removes an item's transaction list.
func RemoveTransactionsEntry(itemID string) kv.Entry {
	return kv.Entry{Key: TransactionsKey(itemID)}
}

// FindTransaction returns the index of the transaction with id, or -1.
func FindTransaction(txs []model.Transaction, id string) int {
	for i := range txs {
		if txs[i].ID == id {
			return i
		}
	}
	return -1
}
