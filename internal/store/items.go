package store

import (
	"context"
	"fmt"

	"github.com/erazemk/inventar/internal/kv"
	"github.com/erazemk/inventar/internal/model"
)

// Items returns all items. Status is recomputed from stock on every read.
func (r *Repository) Items(ctx context.Context) ([]model.Item, error) {
	var items []model.Item
	if _, err := r.readJSON(ctx, KeyItems, &items); err != nil {
		return nil, fmt.Errorf("reading items: %w", err)
	}
	for i := range items {
		if items[i].Stock < 0 {
			items[i].Stock = 0
		}
		items[i].Status = model.StockStatus(items[i].Stock)
	}
	if items == nil {
		items = []model.Item{}
	}
	return items, nil
}

// Item returns an item by ID, or nil if it does not exist.
func (r *Repository) Item(ctx context.Context, id string) (*model.Item, error) {
	items, err := r.Items(ctx)
	if err != nil {
		return nil, err
	}
	if i := FindItem(items, id); i >= 0 {
		return &items[i], nil
	}
	return nil, nil
}

// ItemsEntry encodes items for writing. Negative stock is rejected and
// every status is set from stock.
func ItemsEntry(items []model.Item) (kv.Entry, error) {
	for i := range items {
		if items[i].Stock < 0 {
			return kv.Entry{}, model.Invalid("stock", "stock of %s cannot be negative", items[i].ID)
		}
		items[i].Status = model.StockStatus(items[i].Stock)
	}
	if items == nil {
		items = []model.Item{}
	}
	return encode(KeyItems, items)
}

// FindItem returns the index of the item with id, or -1.
func FindItem(items []model.Item, id string) int {
	for i := range items {
		if items[i].ID == id {
			return i
		}
	}
	return -1
}
