package repository

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ecalcano/estore/internal/domain/product"
)

const (
	productColumns = `id::text, name, slug, category, brand, description,
		stock, price, images, is_featured, COALESCE(banner, '')`

	getProductByIDSQL = `SELECT ` + productColumns + ` FROM products WHERE id::text = $1`

	getProductBySlugSQL = `SELECT ` + productColumns + ` FROM products WHERE slug = $1`

	listLatestProductsSQL = `SELECT ` + productColumns + ` FROM products
		ORDER BY created_at DESC LIMIT $1`

	upsertProductSQL = `INSERT INTO products
		(name, slug, category, brand, description, stock, price, images, is_featured, banner)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NULLIF($10, ''))
		ON CONFLICT (slug) DO UPDATE SET
			name        = EXCLUDED.name,
			category    = EXCLUDED.category,
			brand       = EXCLUDED.brand,
			description = EXCLUDED.description,
			stock       = EXCLUDED.stock,
			price       = EXCLUDED.price,
			images      = EXCLUDED.images,
			is_featured = EXCLUDED.is_featured,
			banner      = EXCLUDED.banner`
)

var _ product.Repository = (*ProductRepository)(nil)

// ProductRepository implements product.Repository backed by PostgreSQL.
type ProductRepository struct {
	pool *pgxpool.Pool
}

// NewProductRepository returns a ProductRepository that uses the given pool.
func NewProductRepository(pool *pgxpool.Pool) *ProductRepository {
	return &ProductRepository{pool: pool}
}

// GetByID returns a single product by its identifier.
func (r *ProductRepository) GetByID(ctx context.Context, id string) (*product.Product, error) {
	return r.getOne(ctx, getProductByIDSQL, id)
}

// GetBySlug returns a single product by its URL slug.
func (r *ProductRepository) GetBySlug(ctx context.Context, slug string) (*product.Product, error) {
	return r.getOne(ctx, getProductBySlugSQL, slug)
}

// ListLatest returns the most recently created products, newest first.
func (r *ProductRepository) ListLatest(ctx context.Context, limit int) ([]product.Product, error) {
	rows, err := r.pool.Query(ctx, listLatestProductsSQL, limit)
	if err != nil {
		return nil, fmt.Errorf("listing products: %w", err)
	}
	return pgx.CollectRows(rows, scanProduct)
}

// Upsert inserts a product or, when the slug already exists, refreshes its
// catalog data in place. Used by the seeding and import tools.
func (r *ProductRepository) Upsert(ctx context.Context, p *product.Product) error {
	_, err := r.pool.Exec(ctx, upsertProductSQL,
		p.Name, p.Slug, p.Category, p.Brand, p.Description,
		p.Stock, p.Price, p.Images, p.IsFeatured, p.Banner,
	)
	if err != nil {
		return fmt.Errorf("upserting product %q: %w", p.Slug, err)
	}
	return nil
}

func (r *ProductRepository) getOne(ctx context.Context, query, arg string) (*product.Product, error) {
	rows, err := r.pool.Query(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("getting product %q: %w", arg, err)
	}

	p, err := pgx.CollectExactlyOneRow(rows, scanProduct)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, product.ErrNotFound
		}
		return nil, fmt.Errorf("getting product %q: %w", arg, err)
	}
	return &p, nil
}

func scanProduct(row pgx.CollectableRow) (product.Product, error) {
	var p product.Product
	err := row.Scan(
		&p.ID, &p.Name, &p.Slug, &p.Category, &p.Brand, &p.Description,
		&p.Stock, &p.Price, &p.Images, &p.IsFeatured, &p.Banner,
	)
	return p, err
}
