package store

import (
	"context"
	"fmt"

	"github.com/erazemk/inventar/internal/kv"
	"github.com/erazemk/inventar/internal/model"
)

// DefaultCategories is the category set used until categories are first saved.
func DefaultCategories() []model.Category {
	return []model.Category{
		{ID: "cat-1", Name: "Gadgets"},
		{ID: "cat-2", Name: "Robotics"},
		{ID: "cat-3", Name: "Apparel"},
		{ID: "cat-4", Name: "Power Sources"},
		{ID: "cat-5", Name: model.FallbackCategory},
	}
}

// Categories returns the saved categories, or the defaults if none were saved.
func (r *Repository) Categories(ctx context.Context) ([]model.Category, error) {
	var cats []model.Category
	ok, err := r.readJSON(ctx, KeyCategories, &cats)
	if err != nil {
		return nil, fmt.Errorf("reading categories: %w", err)
	}
	if !ok || len(cats) == 0 {
		return DefaultCategories(), nil
	}
	return cats, nil
}

// CategoriesEntry encodes categories for writing.
func CategoriesEntry(cats []model.Category) (kv.Entry, error) {
	return encode(KeyCategories, cats)
}
