package cart

import (
	"context"
	"testing"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ecalcano/estore/internal/domain/product"
)

// --- Mock implementations ---

type mockCartRepo struct {
	cart    *Cart
	findErr error

	created       *Cart
	creates       int
	updates       int
	updatedItems  []Item
	updatedPrices Prices
	updateErr     error
	lastKey       OwnerKey
}

func (m *mockCartRepo) Find(_ context.Context, key OwnerKey) (*Cart, error) {
	m.lastKey = key
	if m.findErr != nil {
		return nil, m.findErr
	}
	if m.cart == nil {
		return nil, ErrNotFound
	}
	return m.cart, nil
}

func (m *mockCartRepo) Create(_ context.Context, c *Cart) error {
	m.creates++
	m.created = c
	return nil
}

func (m *mockCartRepo) Update(_ context.Context, _ string, _ int64, items []Item, prices Prices) error {
	if m.updateErr != nil {
		return m.updateErr
	}
	m.updates++
	m.updatedItems = items
	m.updatedPrices = prices
	return nil
}

type mockProductRepo struct {
	byID map[string]*product.Product
}

func (m *mockProductRepo) GetByID(_ context.Context, id string) (*product.Product, error) {
	p, ok := m.byID[id]
	if !ok {
		return nil, product.ErrNotFound
	}
	return p, nil
}

func (m *mockProductRepo) GetBySlug(_ context.Context, _ string) (*product.Product, error) {
	return nil, product.ErrNotFound
}

func (m *mockProductRepo) ListLatest(_ context.Context, _ int) ([]product.Product, error) {
	return nil, nil
}

type mockViewCache struct {
	slugs []string
}

func (m *mockViewCache) InvalidateProduct(_ context.Context, slug string) {
	m.slugs = append(m.slugs, slug)
}

// --- Helpers ---

func newTestProduct(id, name string, price string, stock int) *product.Product {
	return &product.Product{
		ID:       id,
		Name:     name,
		Slug:     name + "-slug",
		Category: "test",
		Brand:    "acme",
		Stock:    stock,
		Price:    decimal.RequireFromString(price),
	}
}

func newProductRepo(products ...*product.Product) *mockProductRepo {
	byID := make(map[string]*product.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}
	return &mockProductRepo{byID: byID}
}

func itemFor(p *product.Product, qty int) Item {
	return Item{
		ProductID: p.ID,
		Name:      p.Name,
		Slug:      p.Slug,
		Quantity:  qty,
		Price:     p.Price,
		Image:     "img.jpg",
	}
}

var anonSession = SessionContext{SessionCartID: "sess-123"}

// --- AddItem ---

func TestAddItem_SessionMissing(t *testing.T) {
	carts := &mockCartRepo{}
	svc := NewService(carts, newProductRepo(), nil)

	res := svc.AddItem(context.Background(), SessionContext{}, line("49.99", 1))

	require.False(t, res.Success)
	assert.Contains(t, res.Message, "session")
	assert.Zero(t, carts.creates)
	assert.Zero(t, carts.updates)
}

func TestAddItem_ValidationError(t *testing.T) {
	p := newTestProduct("p1", "Widget", "49.99", 5)
	carts := &mockCartRepo{}
	svc := NewService(carts, newProductRepo(p), nil)

	bad := itemFor(p, 0)
	res := svc.AddItem(context.Background(), anonSession, bad)

	require.False(t, res.Success)
	assert.Contains(t, res.Message, "quantity")
	assert.Zero(t, carts.creates)
}

func TestAddItem_MalformedPrice(t *testing.T) {
	p := newTestProduct("p1", "Widget", "49.99", 5)
	carts := &mockCartRepo{}
	svc := NewService(carts, newProductRepo(p), nil)

	bad := itemFor(p, 1)
	bad.Price = decimal.RequireFromString("49.999")
	res := svc.AddItem(context.Background(), anonSession, bad)

	require.False(t, res.Success)
	assert.Contains(t, res.Message, "price")
}

func TestAddItem_ProductNotFound(t *testing.T) {
	carts := &mockCartRepo{}
	svc := NewService(carts, newProductRepo(), nil)

	missing := Item{ProductID: "ghost", Name: "Ghost", Slug: "ghost", Quantity: 1, Price: decimal.NewFromInt(1)}
	res := svc.AddItem(context.Background(), anonSession, missing)

	require.False(t, res.Success)
	assert.Equal(t, "product not found", res.Message)
}

func TestAddItem_CreatesCartOnFirstAdd(t *testing.T) {
	p := newTestProduct("p1", "Widget", "49.99", 5)
	carts := &mockCartRepo{}
	views := &mockViewCache{}
	svc := NewService(carts, newProductRepo(p), views)

	res := svc.AddItem(context.Background(), anonSession, itemFor(p, 1))

	require.True(t, res.Success)
	assert.Equal(t, "Widget added to cart", res.Message)

	require.NotNil(t, carts.created)
	require.Len(t, carts.created.Items, 1)
	assert.Equal(t, "sess-123", carts.created.SessionCartID)
	assert.Equal(t, "49.99", FormatPrice(carts.created.Prices.ItemsPrice))
	assert.Equal(t, "10.00", FormatPrice(carts.created.Prices.ShippingPrice))
	assert.Equal(t, "4.37", FormatPrice(carts.created.Prices.TaxPrice))
	assert.Equal(t, "64.36", FormatPrice(carts.created.Prices.TotalPrice))
	assert.Equal(t, []string{p.Slug}, views.slugs)
}

func TestAddItem_IncrementsExistingLine(t *testing.T) {
	p := newTestProduct("p1", "Widget", "49.99", 5)
	existing := &Cart{
		ID:            "c1",
		SessionCartID: "sess-123",
		Items:         []Item{itemFor(p, 2)},
		Version:       3,
	}
	carts := &mockCartRepo{cart: existing}
	svc := NewService(carts, newProductRepo(p), nil)

	res := svc.AddItem(context.Background(), anonSession, itemFor(p, 1))

	require.True(t, res.Success)
	assert.Equal(t, "Widget updated in cart", res.Message)

	// One line, quantity bumped by exactly one, never a duplicate.
	require.Len(t, carts.updatedItems, 1)
	assert.Equal(t, 3, carts.updatedItems[0].Quantity)
	assert.Equal(t, "149.97", FormatPrice(carts.updatedPrices.ItemsPrice))
}

func TestAddItem_AppendsNewLineInOrder(t *testing.T) {
	p1 := newTestProduct("p1", "Widget", "49.99", 5)
	p2 := newTestProduct("p2", "Gadget", "19.99", 5)
	existing := &Cart{
		ID:            "c1",
		SessionCartID: "sess-123",
		Items:         []Item{itemFor(p1, 1)},
	}
	carts := &mockCartRepo{cart: existing}
	svc := NewService(carts, newProductRepo(p1, p2), nil)

	res := svc.AddItem(context.Background(), anonSession, itemFor(p2, 1))

	require.True(t, res.Success)
	assert.Equal(t, "Gadget added to cart", res.Message)

	require.Len(t, carts.updatedItems, 2)
	assert.Equal(t, "p1", carts.updatedItems[0].ProductID)
	assert.Equal(t, "p2", carts.updatedItems[1].ProductID)
}

func TestAddItem_InsufficientStockOnIncrement(t *testing.T) {
	p := newTestProduct("p1", "Widget", "49.99", 2)
	existing := &Cart{
		ID:            "c1",
		SessionCartID: "sess-123",
		Items:         []Item{itemFor(p, 2)},
	}
	carts := &mockCartRepo{cart: existing}
	svc := NewService(carts, newProductRepo(p), nil)

	res := svc.AddItem(context.Background(), anonSession, itemFor(p, 1))

	require.False(t, res.Success)
	assert.Contains(t, res.Message, "not enough stock")
	assert.Zero(t, carts.updates)
}

func TestAddItem_InsufficientStockOnNewCart(t *testing.T) {
	p := newTestProduct("p1", "Widget", "49.99", 0)
	carts := &mockCartRepo{}
	svc := NewService(carts, newProductRepo(p), nil)

	res := svc.AddItem(context.Background(), anonSession, itemFor(p, 1))

	require.False(t, res.Success)
	assert.Zero(t, carts.creates)
}

func TestAddItem_ConcurrentConflict(t *testing.T) {
	p := newTestProduct("p1", "Widget", "49.99", 5)
	existing := &Cart{
		ID:            "c1",
		SessionCartID: "sess-123",
		Items:         []Item{itemFor(p, 1)},
	}
	carts := &mockCartRepo{cart: existing, updateErr: ErrConflict}
	svc := NewService(carts, newProductRepo(p), nil)

	res := svc.AddItem(context.Background(), anonSession, itemFor(p, 1))

	require.False(t, res.Success)
	assert.Equal(t, "cart was modified concurrently", res.Message)
}

// --- RemoveItem ---

func TestRemoveItem_CartNotFound(t *testing.T) {
	p := newTestProduct("p1", "Widget", "49.99", 5)
	svc := NewService(&mockCartRepo{}, newProductRepo(p), nil)

	res := svc.RemoveItem(context.Background(), anonSession, "p1")

	require.False(t, res.Success)
	assert.Equal(t, "cart not found", res.Message)
}

func TestRemoveItem_ProductNotFound(t *testing.T) {
	existing := &Cart{ID: "c1", SessionCartID: "sess-123"}
	svc := NewService(&mockCartRepo{cart: existing}, newProductRepo(), nil)

	res := svc.RemoveItem(context.Background(), anonSession, "ghost")

	require.False(t, res.Success)
	assert.Equal(t, "product not found", res.Message)
}

func TestRemoveItem_ItemNotInCart(t *testing.T) {
	p := newTestProduct("p1", "Widget", "49.99", 5)
	existing := &Cart{ID: "c1", SessionCartID: "sess-123"}
	svc := NewService(&mockCartRepo{cart: existing}, newProductRepo(p), nil)

	res := svc.RemoveItem(context.Background(), anonSession, "p1")

	require.False(t, res.Success)
	assert.Equal(t, "item not found in cart", res.Message)
}

func TestRemoveItem_LastUnitRemovesLine(t *testing.T) {
	p := newTestProduct("p1", "Widget", "49.99", 5)
	existing := &Cart{
		ID:            "c1",
		SessionCartID: "sess-123",
		Items:         []Item{itemFor(p, 1)},
	}
	carts := &mockCartRepo{cart: existing}
	svc := NewService(carts, newProductRepo(p), nil)

	res := svc.RemoveItem(context.Background(), anonSession, "p1")

	require.True(t, res.Success)
	assert.Equal(t, "Widget was removed from cart", res.Message)

	assert.Empty(t, carts.updatedItems)
	assert.Equal(t, "0.00", FormatPrice(carts.updatedPrices.ItemsPrice))
	assert.Equal(t, "0.00", FormatPrice(carts.updatedPrices.ShippingPrice))
	assert.Equal(t, "0.00", FormatPrice(carts.updatedPrices.TaxPrice))
	assert.Equal(t, "0.00", FormatPrice(carts.updatedPrices.TotalPrice))
}

func TestRemoveItem_DecrementsAndLeavesOtherLines(t *testing.T) {
	p1 := newTestProduct("p1", "Widget", "49.99", 5)
	p2 := newTestProduct("p2", "Gadget", "19.99", 5)
	existing := &Cart{
		ID:            "c1",
		SessionCartID: "sess-123",
		Items:         []Item{itemFor(p1, 2), itemFor(p2, 1)},
	}
	carts := &mockCartRepo{cart: existing}
	svc := NewService(carts, newProductRepo(p1, p2), nil)

	res := svc.RemoveItem(context.Background(), anonSession, "p1")

	require.True(t, res.Success)
	require.Len(t, carts.updatedItems, 2)
	assert.Equal(t, 1, carts.updatedItems[0].Quantity)
	assert.Equal(t, "p2", carts.updatedItems[1].ProductID)
	assert.Equal(t, 1, carts.updatedItems[1].Quantity)
}

// --- GetMyCart ---

func TestGetMyCart_SessionMissing(t *testing.T) {
	svc := NewService(&mockCartRepo{}, newProductRepo(), nil)

	_, err := svc.GetMyCart(context.Background(), SessionContext{})
	require.ErrorIs(t, err, ErrSessionMissing)
}

func TestGetMyCart_None(t *testing.T) {
	svc := NewService(&mockCartRepo{}, newProductRepo(), nil)

	c, err := svc.GetMyCart(context.Background(), anonSession)
	require.NoError(t, err)
	assert.Nil(t, c)
}

func TestGetMyCart_PrefersUserID(t *testing.T) {
	carts := &mockCartRepo{cart: &Cart{ID: "c1", UserID: "u1"}}
	svc := NewService(carts, newProductRepo(), nil)

	sess := SessionContext{SessionCartID: "sess-123", UserID: "u1"}
	c, err := svc.GetMyCart(context.Background(), sess)

	require.NoError(t, err)
	require.NotNil(t, c)
	assert.Equal(t, "u1", carts.lastKey.UserID)
}

func TestGetMyCart_RepositoryError(t *testing.T) {
	carts := &mockCartRepo{findErr: errors.New("connection refused")}
	svc := NewService(carts, newProductRepo(), nil)

	_, err := svc.GetMyCart(context.Background(), anonSession)
	require.Error(t, err)
}
