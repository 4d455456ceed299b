package model

import "time"

// Item represents an item type tracked by total stock (quantity-based, not individual units).
type Item struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Category    string    `json:"category"`
	Status      string    `json:"status"`
	Stock       int       `json:"stock"`
	Description string    `json:"description"`
	ImageURL    string    `json:"imageUrl"`
	LastUpdated time.Time `json:"lastUpdated"`
}

// Item statuses. They are always derived from stock, never set directly.
const (
	ItemStatusInStock    = "In Stock"
	ItemStatusLowStock   = "Low Stock"
	ItemStatusOutOfStock = "Out of Stock"
)

// LowStockThreshold is the first stock level considered fully in stock.
const LowStockThreshold = 20

// StockStatus derives the status tier for a stock level.
func StockStatus(stock int) string {
	switch {
	case stock <= 0:
		return ItemStatusOutOfStock
	case stock < LowStockThreshold:
		return ItemStatusLowStock
	default:
		return ItemStatusInStock
	}
}

// ValidItemStatus reports whether status is one of the known tiers.
func ValidItemStatus(status string) bool {
	return status == ItemStatusInStock || status == ItemStatusLowStock || status == ItemStatusOutOfStock
}

// Category groups items. Items reference categories by name.
type Category struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// FallbackCategory receives items whose category was removed.
const FallbackCategory = "Other"
