package catalog

import (
	"errors"
	"time"
)

// Product models a warehouse SKU.
type Product struct {
	ID            int64      `json:"id"`
	Name          string     `json:"name"`
	SKU           string     `json:"sku"`
	StockQuantity int64      `json:"stock_quantity"`
	Price         float64    `json:"price"`
	LocationCode  *string    `json:"location_code,omitempty"`
	Perishable    bool       `json:"perishable"`
	ExpiryDate    *time.Time `json:"expiry_date,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// ListFilters narrows product listings.
type ListFilters struct {
	Search string
	Limit  int
	Page   int
}

// ErrNotFound indicates a missing product.
var ErrNotFound = errors.New("catalog: product not found")

// ErrSKUConflict indicates a duplicate SKU.
var ErrSKUConflict = errors.New("catalog: sku already exists")

// ErrValidation indicates invalid product data.
var ErrValidation = errors.New("catalog: invalid product")
