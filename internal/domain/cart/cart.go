// Package cart implements the shopping cart core: pricing, identity
// resolution, and the add/remove mutation rules enforced against product
// stock.
package cart

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Sentinel errors for cart operations.
var (
	// ErrSessionMissing indicates that neither a session cart token nor an
	// authenticated user id was available. Token issuance happens once per
	// browser session in the middleware layer, so a missing token here is a
	// caller bug, not a recoverable state.
	ErrSessionMissing = errors.New("cart session not found")

	// ErrNotFound is returned when no cart exists for the resolved owner key.
	ErrNotFound = errors.New("cart not found")

	// ErrItemNotInCart is returned when a removal targets a product that has
	// no line in the cart.
	ErrItemNotInCart = errors.New("item not found in cart")

	// ErrConflict is returned by the repository when a versioned update lost
	// a race with a concurrent writer. The operation is not retried; the
	// caller re-issues the request.
	ErrConflict = errors.New("cart was modified concurrently")
)

// ValidationError indicates a malformed cart item: missing fields,
// non-positive quantity, or a price that is not a valid two-decimal amount.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid cart item: %s %s", e.Field, e.Reason)
}

// InsufficientStockError indicates the requested quantity exceeds the
// product's available stock.
type InsufficientStockError struct {
	ProductName string
	Stock       int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("not enough stock of %s: %d available", e.ProductName, e.Stock)
}

// Item is one product line in a cart: the product reference, the unit price
// captured at add time, and the quantity. Quantity is always >= 1; a line
// that would reach 0 is removed instead.
type Item struct {
	ProductID string
	Name      string
	Slug      string
	Quantity  int
	Price     decimal.Decimal
	Image     string
}

// Prices holds the four derived cart amounts. All values carry exactly two
// decimal digits and are always recomputable from the item lines.
type Prices struct {
	ItemsPrice    decimal.Decimal
	ShippingPrice decimal.Decimal
	TaxPrice      decimal.Decimal
	TotalPrice    decimal.Decimal
}

// Cart is a persisted shopping cart. Items keep insertion order and contain
// at most one line per product id. Version stamps each persisted state for
// optimistic concurrency control.
type Cart struct {
	ID            string
	UserID        string
	SessionCartID string
	Items         []Item
	Prices        Prices
	Version       int64
}

// FindItem returns a pointer to the line for productID, or nil.
func (c *Cart) FindItem(productID string) *Item {
	for i := range c.Items {
		if c.Items[i].ProductID == productID {
			return &c.Items[i]
		}
	}
	return nil
}

// Repository defines persistence operations for carts. It is the only path
// to the data store; currency fields stored as NUMERIC or strings are
// normalized into decimal.Decimal on read.
type Repository interface {
	// Find fetches the cart for the given owner key: by user id when
	// present, else by session cart token. Returns ErrNotFound when no cart
	// exists.
	Find(ctx context.Context, key OwnerKey) (*Cart, error)

	// Create persists a brand-new cart.
	Create(ctx context.Context, c *Cart) error

	// Update persists recomputed items and prices for an existing cart. The
	// write is conditional on version and returns ErrConflict when the
	// stored row has moved on.
	Update(ctx context.Context, id string, version int64, items []Item, prices Prices) error
}

// ViewCache marks a product's rendered detail page stale after a successful
// cart mutation. Implementations live outside the core.
type ViewCache interface {
	InvalidateProduct(ctx context.Context, slug string)
}
