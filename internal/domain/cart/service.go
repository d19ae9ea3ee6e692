package cart

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/ecalcano/estore/internal/domain/product"
)

// Result is the structured outcome every public cart operation returns.
// Failures are recovered at this boundary and converted into a
// human-readable message; no error propagates to the caller.
type Result struct {
	Success bool
	Message string
}

// Service is the cart mutation engine. It resolves the owning cart from the
// session context, applies the add/remove rules against product stock, and
// keeps the derived prices in sync with the item lines.
type Service struct {
	carts     Repository
	products  product.Repository
	viewCache ViewCache
}

// NewService creates a cart Service with the required collaborators.
// viewCache may be nil when no page invalidation is wired.
func NewService(carts Repository, products product.Repository, viewCache ViewCache) *Service {
	return &Service{
		carts:     carts,
		products:  products,
		viewCache: viewCache,
	}
}

// AddItem adds one unit of the given item to the caller's cart, creating the
// cart on first add. The failure result carries the formatted error message.
func (s *Service) AddItem(ctx context.Context, sess SessionContext, item Item) Result {
	msg, err := s.addItem(ctx, sess, item)
	if err != nil {
		return Result{Success: false, Message: formatError(err)}
	}
	return Result{Success: true, Message: msg}
}

func (s *Service) addItem(ctx context.Context, sess SessionContext, item Item) (string, error) {
	key, err := sess.OwnerKey()
	if err != nil {
		return "", err
	}

	cur, err := s.carts.Find(ctx, key)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return "", errors.Wrap(err, "find cart")
	}

	if err := validateItem(item); err != nil {
		return "", err
	}

	p, err := s.products.GetByID(ctx, item.ProductID)
	if err != nil {
		if errors.Is(err, product.ErrNotFound) {
			return "", product.ErrNotFound
		}
		return "", errors.Wrap(err, "get product")
	}

	// First add: create the cart with the requested item as-is.
	if cur == nil {
		if p.Stock < item.Quantity {
			return "", &InsufficientStockError{ProductName: p.Name, Stock: p.Stock}
		}

		newCart := &Cart{
			UserID:        sess.UserID,
			SessionCartID: sess.SessionCartID,
			Items:         []Item{item},
			Prices:        CalcPrices([]Item{item}),
		}
		if err := s.carts.Create(ctx, newCart); err != nil {
			return "", errors.Wrap(err, "create cart")
		}

		s.invalidate(ctx, p.Slug)
		return fmt.Sprintf("%s added to cart", p.Name), nil
	}

	verb := "added to"
	if line := cur.FindItem(item.ProductID); line != nil {
		// Existing line: one more unit must still fit in stock.
		if p.Stock < line.Quantity+1 {
			return "", &InsufficientStockError{ProductName: p.Name, Stock: p.Stock}
		}
		line.Quantity++
		verb = "updated in"
	} else {
		if p.Stock < item.Quantity {
			return "", &InsufficientStockError{ProductName: p.Name, Stock: p.Stock}
		}
		cur.Items = append(cur.Items, item)
	}

	prices := CalcPrices(cur.Items)
	if err := s.carts.Update(ctx, cur.ID, cur.Version, cur.Items, prices); err != nil {
		if errors.Is(err, ErrConflict) {
			return "", ErrConflict
		}
		return "", errors.Wrap(err, "update cart")
	}

	s.invalidate(ctx, p.Slug)
	return fmt.Sprintf("%s %s cart", p.Name, verb), nil
}

// RemoveItem removes one unit of the given product from the caller's cart,
// dropping the line entirely when the last unit goes.
func (s *Service) RemoveItem(ctx context.Context, sess SessionContext, productID string) Result {
	msg, err := s.removeItem(ctx, sess, productID)
	if err != nil {
		return Result{Success: false, Message: formatError(err)}
	}
	return Result{Success: true, Message: msg}
}

func (s *Service) removeItem(ctx context.Context, sess SessionContext, productID string) (string, error) {
	key, err := sess.OwnerKey()
	if err != nil {
		return "", err
	}

	cur, err := s.carts.Find(ctx, key)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return "", ErrNotFound
		}
		return "", errors.Wrap(err, "find cart")
	}

	p, err := s.products.GetByID(ctx, productID)
	if err != nil {
		if errors.Is(err, product.ErrNotFound) {
			return "", product.ErrNotFound
		}
		return "", errors.Wrap(err, "get product")
	}

	line := cur.FindItem(productID)
	if line == nil {
		return "", ErrItemNotInCart
	}

	if line.Quantity == 1 {
		items := make([]Item, 0, len(cur.Items)-1)
		for _, it := range cur.Items {
			if it.ProductID != productID {
				items = append(items, it)
			}
		}
		cur.Items = items
	} else {
		line.Quantity--
	}

	prices := CalcPrices(cur.Items)
	if err := s.carts.Update(ctx, cur.ID, cur.Version, cur.Items, prices); err != nil {
		if errors.Is(err, ErrConflict) {
			return "", ErrConflict
		}
		return "", errors.Wrap(err, "update cart")
	}

	s.invalidate(ctx, p.Slug)
	return fmt.Sprintf("%s was removed from cart", p.Name), nil
}

// GetMyCart returns the caller's cart, or nil when none exists yet.
func (s *Service) GetMyCart(ctx context.Context, sess SessionContext) (*Cart, error) {
	key, err := sess.OwnerKey()
	if err != nil {
		return nil, err
	}

	c, err := s.carts.Find(ctx, key)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "find cart")
	}
	return c, nil
}

func (s *Service) invalidate(ctx context.Context, slug string) {
	if s.viewCache != nil {
		s.viewCache.InvalidateProduct(ctx, slug)
	}
}

// validateItem checks the incoming item against the cart line shape: all
// reference fields present, quantity >= 1, and a positive price with at most
// two decimal places.
func validateItem(item Item) error {
	switch {
	case item.ProductID == "":
		return &ValidationError{Field: "productId", Reason: "is required"}
	case item.Name == "":
		return &ValidationError{Field: "name", Reason: "is required"}
	case item.Slug == "":
		return &ValidationError{Field: "slug", Reason: "is required"}
	case item.Quantity < 1:
		return &ValidationError{Field: "quantity", Reason: "must be at least 1"}
	case !item.Price.IsPositive():
		return &ValidationError{Field: "price", Reason: "must be a positive amount"}
	case !item.Price.Equal(item.Price.Round(2)):
		return &ValidationError{Field: "price", Reason: "must have at most two decimal places"}
	}
	return nil
}

// formatError renders a taxonomy error as the human-readable message carried
// by a failure Result.
func formatError(err error) string {
	var (
		vErr  *ValidationError
		isErr *InsufficientStockError
	)
	switch {
	case errors.As(err, &vErr):
		return vErr.Error()
	case errors.As(err, &isErr):
		return isErr.Error()
	case errors.Is(err, ErrSessionMissing),
		errors.Is(err, ErrNotFound),
		errors.Is(err, ErrItemNotInCart),
		errors.Is(err, ErrConflict),
		errors.Is(err, product.ErrNotFound):
		return err.Error()
	default:
		return "something went wrong, please try again"
	}
}

// FormatPrice renders a currency amount with exactly two decimal digits, the
// representation used at the wire and storage edges.
func FormatPrice(d decimal.Decimal) string {
	return d.StringFixed(2)
}
