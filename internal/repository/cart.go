package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/ecalcano/estore/internal/domain/cart"
)

const (
	cartColumns = `id::text, COALESCE(user_id::text, ''), session_cart_id, items,
		items_price, shipping_price, tax_price, total_price, version`

	findCartByUserSQL = `SELECT ` + cartColumns + ` FROM carts
		WHERE user_id::text = $1 ORDER BY created_at LIMIT 1`

	findCartBySessionSQL = `SELECT ` + cartColumns + ` FROM carts
		WHERE session_cart_id = $1 ORDER BY created_at LIMIT 1`

	createCartSQL = `INSERT INTO carts
		(user_id, session_cart_id, items, items_price, shipping_price, tax_price, total_price)
		VALUES (NULLIF($1, '')::uuid, $2, $3, $4, $5, $6, $7)
		RETURNING id::text, version`

	updateCartSQL = `UPDATE carts SET
		items = $3, items_price = $4, shipping_price = $5, tax_price = $6, total_price = $7,
		version = version + 1, updated_at = now()
		WHERE id::text = $1 AND version = $2`
)

// cartItemRecord is the JSONB wire shape of one cart line. Prices travel as
// two-decimal strings and are normalized into decimals on read.
type cartItemRecord struct {
	ProductID string `json:"productId"`
	Name      string `json:"name"`
	Slug      string `json:"slug"`
	Quantity  int    `json:"quantity"`
	Price     string `json:"price"`
	Image     string `json:"image,omitempty"`
}

var _ cart.Repository = (*CartRepository)(nil)

// CartRepository implements cart.Repository backed by PostgreSQL. Updates
// are conditional on the stored version stamp, so a racing writer surfaces
// as cart.ErrConflict instead of silently losing lines.
type CartRepository struct {
	pool *pgxpool.Pool
}

// NewCartRepository returns a CartRepository that uses the given pool.
func NewCartRepository(pool *pgxpool.Pool) *CartRepository {
	return &CartRepository{pool: pool}
}

// Find fetches the cart for the owner key: by user id when present, else by
// the anonymous session cart token.
func (r *CartRepository) Find(ctx context.Context, key cart.OwnerKey) (*cart.Cart, error) {
	query, arg := findCartBySessionSQL, key.SessionCartID
	if key.UserID != "" {
		query, arg = findCartByUserSQL, key.UserID
	}

	rows, err := r.pool.Query(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("finding cart: %w", err)
	}

	c, err := pgx.CollectExactlyOneRow(rows, scanCart)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, cart.ErrNotFound
		}
		return nil, fmt.Errorf("finding cart: %w", err)
	}
	return c, nil
}

// Create persists a brand-new cart and fills in its generated id and
// initial version.
func (r *CartRepository) Create(ctx context.Context, c *cart.Cart) error {
	itemsJSON, err := marshalItems(c.Items)
	if err != nil {
		return err
	}

	err = r.pool.QueryRow(ctx, createCartSQL,
		c.UserID, c.SessionCartID, itemsJSON,
		c.Prices.ItemsPrice, c.Prices.ShippingPrice, c.Prices.TaxPrice, c.Prices.TotalPrice,
	).Scan(&c.ID, &c.Version)
	if err != nil {
		return fmt.Errorf("creating cart: %w", err)
	}

	return nil
}

// Update persists recomputed items and prices. The write only lands when the
// stored version still matches; otherwise cart.ErrConflict is returned.
func (r *CartRepository) Update(ctx context.Context, id string, version int64, items []cart.Item, prices cart.Prices) error {
	itemsJSON, err := marshalItems(items)
	if err != nil {
		return err
	}

	tag, err := r.pool.Exec(ctx, updateCartSQL,
		id, version, itemsJSON,
		prices.ItemsPrice, prices.ShippingPrice, prices.TaxPrice, prices.TotalPrice,
	)
	if err != nil {
		return fmt.Errorf("updating cart %q: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return cart.ErrConflict
	}

	return nil
}

func marshalItems(items []cart.Item) ([]byte, error) {
	records := make([]cartItemRecord, len(items))
	for i, it := range items {
		records[i] = cartItemRecord{
			ProductID: it.ProductID,
			Name:      it.Name,
			Slug:      it.Slug,
			Quantity:  it.Quantity,
			Price:     it.Price.StringFixed(2),
			Image:     it.Image,
		}
	}

	data, err := json.Marshal(records)
	if err != nil {
		return nil, fmt.Errorf("marshaling cart items: %w", err)
	}
	return data, nil
}

func scanCart(row pgx.CollectableRow) (*cart.Cart, error) {
	var (
		c         cart.Cart
		itemsJSON []byte
	)
	err := row.Scan(
		&c.ID, &c.UserID, &c.SessionCartID, &itemsJSON,
		&c.Prices.ItemsPrice, &c.Prices.ShippingPrice, &c.Prices.TaxPrice, &c.Prices.TotalPrice,
		&c.Version,
	)
	if err != nil {
		return nil, err
	}

	var records []cartItemRecord
	if err := json.Unmarshal(itemsJSON, &records); err != nil {
		return nil, fmt.Errorf("unmarshaling cart items: %w", err)
	}

	c.Items = make([]cart.Item, len(records))
	for i, rec := range records {
		price, err := decimal.NewFromString(rec.Price)
		if err != nil {
			return nil, fmt.Errorf("parsing stored price %q: %w", rec.Price, err)
		}
		c.Items[i] = cart.Item{
			ProductID: rec.ProductID,
			Name:      rec.Name,
			Slug:      rec.Slug,
			Quantity:  rec.Quantity,
			Price:     price,
			Image:     rec.Image,
		}
	}

	return &c, nil
}
