package inventory

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/erazemk/inventar/internal/kv"
	"github.com/erazemk/inventar/internal/model"
	"github.com/erazemk/inventar/internal/store"
)

// Filter selects items in ListItems. Empty fields match everything.
type Filter struct {
	Category string
	Status   string
	// Search matches name, id or description, case-insensitively.
	Search string
}

// ItemInput holds the editable item fields.
type ItemInput struct {
	Name        string `json:"name"`
	Category    string `json:"category"`
	Description string `json:"description"`
	ImageURL    string `json:"imageUrl"`
	Stock       int    `json:"stock"`
	// StockNote explains a stock change and is required when stock changes.
	StockNote string `json:"stockNote"`
}

func (in *ItemInput) normalize() {
	in.Name = strings.TrimSpace(in.Name)
	in.Category = strings.TrimSpace(in.Category)
	in.Description = strings.TrimSpace(in.Description)
	in.ImageURL = strings.TrimSpace(in.ImageURL)
}

func (in ItemInput) validate() error {
	if utf8.RuneCountInString(in.Name) < 3 {
		return model.Invalid("name", "name must be at least 3 characters")
	}
	if in.Category == "" {
		return model.Invalid("category", "category is required")
	}
	if utf8.RuneCountInString(in.Description) < 10 {
		return model.Invalid("description", "description must be at least 10 characters")
	}
	if in.Stock < 0 {
		return model.Invalid("stock", "stock cannot be negative")
	}
	return nil
}

// ListItems returns items matching f, in stored order.
func (s *Service) ListItems(ctx context.Context, f Filter) ([]model.Item, error) {
	items, err := s.repo.Items(ctx)
	if err != nil {
		return nil, err
	}
	search := strings.ToLower(strings.TrimSpace(f.Search))

	out := make([]model.Item, 0, len(items))
	for _, it := range items {
		if f.Category != "" && !strings.EqualFold(it.Category, f.Category) {
			continue
		}
		if f.Status != "" && it.Status != f.Status {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(it.Name), search) &&
			!strings.Contains(strings.ToLower(it.ID), search) &&
			!strings.Contains(strings.ToLower(it.Description), search) {
			continue
		}
		out = append(out, it)
	}
	return out, nil
}

// GetItem returns an item by ID.
func (s *Service) GetItem(ctx context.Context, id string) (*model.Item, error) {
	item, err := s.repo.Item(ctx, id)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, fmt.Errorf("item %s: %w", id, model.ErrNotFound)
	}
	return item, nil
}

// Transactions returns an item's transactions, newest first.
func (s *Service) Transactions(ctx context.Context, itemID string) ([]model.Transaction, error) {
	if _, err := s.GetItem(ctx, itemID); err != nil {
		return nil, err
	}
	return s.repo.Transactions(ctx, itemID)
}

// CreateItem adds a new item.
func (s *Service) CreateItem(ctx context.Context, in ItemInput) (*model.Item, error) {
	in.normalize()
	if err := in.validate(); err != nil {
		return nil, err
	}

	s.repo.Lock()
	defer s.repo.Unlock()

	category, err := s.resolveCategory(ctx, in.Category)
	if err != nil {
		return nil, err
	}
	items, err := s.repo.Items(ctx)
	if err != nil {
		return nil, err
	}
	id, err := newItemID(items)
	if err != nil {
		return nil, err
	}

	item := model.Item{
		ID:          id,
		Name:        in.Name,
		Category:    category,
		Stock:       in.Stock,
		Status:      model.StockStatus(in.Stock),
		Description: in.Description,
		ImageURL:    in.ImageURL,
		LastUpdated: s.Now(),
	}
	items = append(items, item)

	entry, err := store.ItemsEntry(items)
	if err != nil {
		return nil, err
	}
	details := fmt.Sprintf("Created %s (%s) with stock %d", item.Name, item.ID, item.Stock)
	if err := s.commit(ctx, "Item Created", details, entry); err != nil {
		return nil, fmt.Errorf("creating item: %w", err)
	}
	return &item, nil
}

// UpdateItem changes an item's details and, with a note, its stock.
func (s *Service) UpdateItem(ctx context.Context, id string, in ItemInput) (*model.Item, error) {
	in.normalize()
	if err := in.validate(); err != nil {
		return nil, err
	}
	return s.edit(ctx, id, in.Stock, in.StockNote, &in)
}

// ApplyManualStockEdit sets an item's stock. A note is required when the
// stock actually changes.
func (s *Service) ApplyManualStockEdit(ctx context.Context, id string, newStock int, note string) (*model.Item, error) {
	return s.edit(ctx, id, newStock, note, nil)
}

func (s *Service) edit(ctx context.Context, id string, newStock int, note string, details *ItemInput) (*model.Item, error) {
	if newStock < 0 {
		return nil, model.Invalid("stock", "stock cannot be negative")
	}
	note = strings.TrimSpace(note)

	s.repo.Lock()
	defer s.repo.Unlock()

	items, err := s.repo.Items(ctx)
	if err != nil {
		return nil, err
	}
	i := store.FindItem(items, id)
	if i < 0 {
		return nil, fmt.Errorf("item %s: %w", id, model.ErrNotFound)
	}
	item := &items[i]

	delta := newStock - item.Stock
	if delta != 0 && note == "" {
		return nil, model.Invalid("stockNote", "a note is required when changing stock")
	}

	if details != nil {
		category, err := s.resolveCategory(ctx, details.Category)
		if err != nil {
			return nil, err
		}
		item.Name = details.Name
		item.Category = category
		item.Description = details.Description
		item.ImageURL = details.ImageURL
	}
	item.Stock = newStock
	item.Status = model.StockStatus(newStock)
	item.LastUpdated = s.Now()

	var action, msg string
	switch {
	case delta > 0:
		action = "Stock Increased"
		msg = fmt.Sprintf("%s (%s): %+d, now %d. Note: %s", item.Name, item.ID, delta, newStock, note)
	case delta < 0:
		action = "Stock Decreased"
		msg = fmt.Sprintf("%s (%s): %+d, now %d. Note: %s", item.Name, item.ID, delta, newStock, note)
	default:
		action = "Item Details Updated"
		msg = fmt.Sprintf("Updated details of %s (%s)", item.Name, item.ID)
	}

	entry, err := store.ItemsEntry(items)
	if err != nil {
		return nil, err
	}
	if err := s.commit(ctx, action, msg, entry); err != nil {
		return nil, fmt.Errorf("updating item: %w", err)
	}
	updated := items[i]
	return &updated, nil
}

// DeleteItem removes an item, its transactions and its hosted image.
// confirm must be "delete".
func (s *Service) DeleteItem(ctx context.Context, id, confirm string) error {
	if !model.Confirmed(confirm) {
		return model.Invalid("confirm", "type %q to confirm", model.ConfirmDelete)
	}

	s.repo.Lock()
	defer s.repo.Unlock()

	items, err := s.repo.Items(ctx)
	if err != nil {
		return err
	}
	i := store.FindItem(items, id)
	if i < 0 {
		return fmt.Errorf("item %s: %w", id, model.ErrNotFound)
	}
	item := items[i]
	items = append(items[:i], items[i+1:]...)

	itemsEntry, err := store.ItemsEntry(items)
	if err != nil {
		return err
	}
	entries := []kv.Entry{itemsEntry, store.RemoveTransactionsEntry(id)}

	if imgID, ok := hostedImageID(item.ImageURL); ok {
		images, err := s.repo.Images(ctx)
		if err != nil {
			return err
		}
		if _, exists := images[imgID]; exists {
			delete(images, imgID)
			imagesEntry, err := store.ImagesEntry(images)
			if err != nil {
				return err
			}
			entries = append(entries, imagesEntry)
		}
	}

	details := fmt.Sprintf("Deleted %s (%s)", item.Name, item.ID)
	if err := s.commit(ctx, "Item Deleted", details, entries...); err != nil {
		return fmt.Errorf("deleting item: %w", err)
	}
	return nil
}

// resolveCategory returns the stored spelling of a category name.
func (s *Service) resolveCategory(ctx context.Context, name string) (string, error) {
	cats, err := s.repo.Categories(ctx)
	if err != nil {
		return "", err
	}
	for _, c := range cats {
		if strings.EqualFold(c.Name, name) {
			return c.Name, nil
		}
	}
	return "", model.Invalid("category", "unknown category %q", name)
}

// Summary holds dashboard counters.
type Summary struct {
	TotalItems int `json:"totalItems"`
	TotalStock int `json:"totalStock"`
	InStock    int `json:"inStock"`
	LowStock   int `json:"lowStock"`
	OutOfStock int `json:"outOfStock"`
	Categories int `json:"categories"`
}

// Summarize counts items per status tier.
func (s *Service) Summarize(ctx context.Context) (*Summary, error) {
	items, err := s.repo.Items(ctx)
	if err != nil {
		return nil, err
	}
	cats, err := s.repo.Categories(ctx)
	if err != nil {
		return nil, err
	}

	sum := &Summary{TotalItems: len(items), Categories: len(cats)}
	for _, it := range items {
		sum.TotalStock += it.Stock
		switch it.Status {
		case model.ItemStatusInStock:
			sum.InStock++
		case model.ItemStatusLowStock:
			sum.LowStock++
		case model.ItemStatusOutOfStock:
			sum.OutOfStock++
		}
	}
	return sum, nil
}
