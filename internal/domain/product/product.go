package product

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a requested product does not exist.
var ErrNotFound = errors.New("product not found")

// Product represents a catalog item available for purchase. The cart core
// reads products for availability checks only; stock is mutated elsewhere.
type Product struct {
	ID          string
	Name        string
	Slug        string
	Category    string
	Brand       string
	Description string
	Stock       int
	Price       decimal.Decimal
	Images      []string
	IsFeatured  bool
	Banner      string
}

// Repository defines read operations for the product catalog.
type Repository interface {
	GetByID(ctx context.Context, id string) (*Product, error)
	GetBySlug(ctx context.Context, slug string) (*Product, error)
	ListLatest(ctx context.Context, limit int) ([]Product, error)
}
