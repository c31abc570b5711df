package inventory

import (
	"context"
	"strings"
	"time"
)

// Criteria narrows a product listing. Zero-valued fields match everything.
type Criteria struct {
	// Name matches products whose name contains it, ignoring case.
	Name string
	// Categories matches products in any of the listed categories.
	Categories []string
	// InStock, when set, matches products with stock (true) or without (false).
	InStock *bool
}

func (c Criteria) IsZero() bool {
	return strings.TrimSpace(c.Name) == "" && len(c.Categories) == 0 && c.InStock == nil
}

func (c Criteria) Matches(p Product) bool {
	if name := strings.TrimSpace(c.Name); name != "" {
		if !strings.Contains(strings.ToLower(p.Name), strings.ToLower(name)) {
			return false
		}
	}
	if len(c.Categories) > 0 && !containsString(c.Categories, p.Category.Name) {
		return false
	}
	if c.InStock != nil && *c.InStock != p.InStock() {
		return false
	}
	return true
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// ProductStore persists products. Listing methods order results by name.
// Insert and update fail with ErrAlreadyExists when the name, compared without
// case, belongs to another product.
type ProductStore interface {
	InsertProduct(ctx context.Context, p Product) error
	UpdateProduct(ctx context.Context, p Product) error
	FindProductByID(ctx context.Context, id string) (Product, bool, error)
	FindProductByName(ctx context.Context, name string) (Product, bool, error)
	ListProducts(ctx context.Context) ([]Product, error)
	FilterProducts(ctx context.Context, c Criteria) ([]Product, error)
	DeleteProduct(ctx context.Context, id string) (bool, error)
	// SetStockQuantity overwrites the quantity of one product atomically.
	SetStockQuantity(ctx context.Context, id string, qty int, at time.Time) (bool, error)
}

// CategoryStore persists categories keyed by exact name.
type CategoryStore interface {
	InsertCategory(ctx context.Context, c Category) error
	FindCategory(ctx context.Context, name string) (Category, bool, error)
	CategoryExists(ctx context.Context, name string) (bool, error)
	ListCategories(ctx context.Context) ([]Category, error)
}

type Store interface {
	ProductStore
	CategoryStore
	Ping(ctx context.Context) error
	Close() error
}

func foldName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
