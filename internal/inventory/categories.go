package inventory

import (
	"context"
	"fmt"
	"strings"

	"github.com/erazemk/inventar/internal/model"
	"github.com/erazemk/inventar/internal/store"
)

// Categories returns the current category set.
func (s *Service) Categories(ctx context.Context) ([]model.Category, error) {
	return s.repo.Categories(ctx)
}

// SaveCategories replaces the category set. Items follow renamed categories
// and items whose category is gone move to "Other", or to the first category
// when "Other" is gone too.
func (s *Service) SaveCategories(ctx context.Context, cats []model.Category) ([]model.Category, error) {
	cats, err := normalizeCategories(cats)
	if err != nil {
		return nil, err
	}

	s.repo.Lock()
	defer s.repo.Unlock()

	old, err := s.repo.Categories(ctx)
	if err != nil {
		return nil, err
	}
	items, err := s.repo.Items(ctx)
	if err != nil {
		return nil, err
	}

	moved := RemapCategories(items, old, cats)
	now := s.Now()
	for i := range items {
		if moved[items[i].ID] {
			items[i].LastUpdated = now
		}
	}

	catsEntry, err := store.CategoriesEntry(cats)
	if err != nil {
		return nil, err
	}
	itemsEntry, err := store.ItemsEntry(items)
	if err != nil {
		return nil, err
	}

	details := fmt.Sprintf("Saved %d categories, %d items reassigned", len(cats), len(moved))
	if err := s.commit(ctx, "Categories Updated", details, catsEntry, itemsEntry); err != nil {
		return nil, fmt.Errorf("saving categories: %w", err)
	}
	return cats, nil
}

// normalizeCategories trims names, rejects blanks and duplicates and
// assigns ids to new categories.
func normalizeCategories(cats []model.Category) ([]model.Category, error) {
	if len(cats) == 0 {
		return nil, model.Invalid("categories", "at least one category is required")
	}

	out := make([]model.Category, len(cats))
	names := make(map[string]bool, len(cats))
	ids := make(map[string]bool, len(cats))
	for i, c := range cats {
		c.Name = strings.TrimSpace(c.Name)
		c.ID = strings.TrimSpace(c.ID)
		if c.Name == "" {
			return nil, model.Invalid("name", "category name cannot be empty")
		}
		key := strings.ToLower(c.Name)
		if names[key] {
			return nil, model.Invalid("name", "duplicate category %q", c.Name)
		}
		names[key] = true
		if c.ID != "" {
			if ids[c.ID] {
				return nil, model.Invalid("id", "duplicate category id %q", c.ID)
			}
			ids[c.ID] = true
		}
		out[i] = c
	}

	n := 1
	for i := range out {
		if out[i].ID != "" {
			continue
		}
		for ids[fmt.Sprintf("cat-%d", n)] {
			n++
		}
		out[i].ID = fmt.Sprintf("cat-%d", n)
		ids[out[i].ID] = true
	}
	return out, nil
}

// RemapCategories points every item at a category in updated. A category
// whose id is kept under a new name is a rename. It returns the ids of
// items whose category changed.
func RemapCategories(items []model.Item, old, updated []model.Category) map[string]bool {
	moved := map[string]bool{}
	if len(updated) == 0 {
		return moved
	}

	newByID := make(map[string]string, len(updated))
	valid := make(map[string]string, len(updated))
	for _, c := range updated {
		newByID[c.ID] = c.Name
		valid[strings.ToLower(c.Name)] = c.Name
	}

	renamed := map[string]string{}
	for _, c := range old {
		if name, ok := newByID[c.ID]; ok && name != c.Name {
			renamed[strings.ToLower(c.Name)] = name
		}
	}

	fallback := updated[0].Name
	if name, ok := valid[strings.ToLower(model.FallbackCategory)]; ok {
		fallback = name
	}

	for i := range items {
		name := items[i].Category
		if to, ok := renamed[strings.ToLower(name)]; ok {
			name = to
		}
		if canonical, ok := valid[strings.ToLower(name)]; ok {
			name = canonical
		} else {
			name = fallback
		}
		if name != items[i].Category {
			items[i].Category = name
			moved[items[i].ID] = true
		}
	}
	return moved
}
