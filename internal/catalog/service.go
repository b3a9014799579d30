package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// DefaultExpiryWindowDays applies when the caller does not supply a window.
const DefaultExpiryWindowDays = 7

// CreateInput carries new product data.
type CreateInput struct {
	Name          string
	SKU           string
	StockQuantity int64
	Price         float64
	LocationCode  *string
	Perishable    bool
	ExpiryDate    *time.Time
}

// UpdateInput carries editable product fields. Stock is excluded: only
// ledger movements may change it.
type UpdateInput struct {
	Name         string
	SKU          string
	Price        float64
	LocationCode *string
	Perishable   bool
	ExpiryDate   *time.Time
}

// Service coordinates product catalog operations.
type Service struct {
	repo   Repository
	cache  *Cache
	logger *slog.Logger
}

// NewService builds Service.
func NewService(repo Repository, cache *Cache, logger *slog.Logger) *Service {
	return &Service{repo: repo, cache: cache, logger: logger}
}

// List returns products with total count for pagination.
func (s *Service) List(ctx context.Context, filters ListFilters) ([]Product, int, error) {
	return s.repo.List(ctx, filters)
}

// Get fetches a product by ID.
func (s *Service) Get(ctx context.Context, id int64) (Product, error) {
	if id <= 0 {
		return Product{}, ErrNotFound
	}
	return s.repo.Get(ctx, id)
}

// Create registers a new product.
func (s *Service) Create(ctx context.Context, input CreateInput) (Product, error) {
	if err := validateProduct(input.Name, input.SKU, input.Price); err != nil {
		return Product{}, err
	}
	if input.StockQuantity < 0 {
		return Product{}, fmt.Errorf("%w: stock quantity must not be negative", ErrValidation)
	}
	exists, err := s.repo.ExistsBySKU(ctx, input.SKU)
	if err != nil {
		return Product{}, err
	}
	if exists {
		return Product{}, ErrSKUConflict
	}
	product, err := s.repo.Create(ctx, Product{
		Name:          input.Name,
		SKU:           input.SKU,
		StockQuantity: input.StockQuantity,
		Price:         input.Price,
		LocationCode:  input.LocationCode,
		Perishable:    input.Perishable,
		ExpiryDate:    input.ExpiryDate,
	})
	if err != nil {
		return Product{}, err
	}
	s.bumpCache(ctx)
	return product, nil
}

// Update modifies product master data.
func (s *Service) Update(ctx context.Context, id int64, input UpdateInput) (Product, error) {
	if id <= 0 {
		return Product{}, ErrNotFound
	}
	if err := validateProduct(input.Name, input.SKU, input.Price); err != nil {
		return Product{}, err
	}
	current, err := s.repo.Get(ctx, id)
	if err != nil {
		return Product{}, err
	}
	if input.SKU != current.SKU {
		exists, err := s.repo.ExistsBySKU(ctx, input.SKU)
		if err != nil {
			return Product{}, err
		}
		if exists {
			return Product{}, ErrSKUConflict
		}
	}
	err = s.repo.Update(ctx, id, Product{
		Name:         input.Name,
		SKU:          input.SKU,
		Price:        input.Price,
		LocationCode: input.LocationCode,
		Perishable:   input.Perishable,
		ExpiryDate:   input.ExpiryDate,
	})
	if err != nil {
		return Product{}, err
	}
	s.bumpCache(ctx)
	return s.repo.Get(ctx, id)
}

// Delete removes a product.
func (s *Service) Delete(ctx context.Context, id int64) error {
	if id <= 0 {
		return ErrNotFound
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.bumpCache(ctx)
	return nil
}

// NearExpiry lists perishable products expiring within the window
// [today, today+days], both ends inclusive. Non-positive days fall back
// to the default window.
func (s *Service) NearExpiry(ctx context.Context, days int) ([]Product, error) {
	if days <= 0 {
		days = DefaultExpiryWindowDays
	}
	today := time.Now().UTC().Truncate(24 * time.Hour)
	to := today.AddDate(0, 0, days)

	var products []Product
	key, err := s.cache.BuildKey(ctx, keyNearExpiry(today, days))
	if err != nil {
		s.logWarn(ctx, "near expiry cache key failed", err)
		return s.repo.NearExpiry(ctx, today, to)
	}
	err = s.cache.FetchJSON(ctx, key, &products, func(ctx context.Context) (interface{}, error) {
		return s.repo.NearExpiry(ctx, today, to)
	})
	if err != nil {
		s.logWarn(ctx, "near expiry cache fetch failed", err)
		return s.repo.NearExpiry(ctx, today, to)
	}
	return products, nil
}

func (s *Service) bumpCache(ctx context.Context) {
	if err := s.cache.Bump(ctx); err != nil {
		s.logWarn(ctx, "catalog cache bump failed", err)
	}
}

func (s *Service) logWarn(ctx context.Context, msg string, err error) {
	if s.logger != nil {
		s.logger.WarnContext(ctx, msg, slog.Any("error", err))
	}
}

func validateProduct(name, sku string, price float64) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("%w: name required", ErrValidation)
	}
	if strings.TrimSpace(sku) == "" {
		return fmt.Errorf("%w: sku required", ErrValidation)
	}
	if price < 0 {
		return fmt.Errorf("%w: price must not be negative", ErrValidation)
	}
	return nil
}
