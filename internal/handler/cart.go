package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/ecalcano/estore/internal/domain/cart"
)

// addCartItemRequest is the wire shape of an add-to-cart call. Price travels
// as a two-decimal string, matching how it is stored and displayed.
type addCartItemRequest struct {
	ProductID string `json:"productId"`
	Name      string `json:"name"`
	Slug      string `json:"slug"`
	Quantity  int    `json:"quantity"`
	Price     string `json:"price"`
	Image     string `json:"image"`
}

func (h *Handler) addCartItem(w http.ResponseWriter, r *http.Request) {
	var req addCartItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeResult(w, cart.Result{Success: false, Message: "invalid request body"})
		return
	}

	price, err := decimal.NewFromString(req.Price)
	if err != nil {
		writeResult(w, cart.Result{Success: false, Message: "invalid cart item: price must be a valid amount"})
		return
	}

	item := cart.Item{
		ProductID: req.ProductID,
		Name:      req.Name,
		Slug:      req.Slug,
		Quantity:  req.Quantity,
		Price:     price,
		Image:     req.Image,
	}

	res := h.carts.AddItem(r.Context(), h.sessionContext(r), item)
	h.countMutation(r, "add", res.Success)
	writeResult(w, res)
}

func (h *Handler) removeCartItem(w http.ResponseWriter, r *http.Request) {
	productID := r.PathValue("productID")

	res := h.carts.RemoveItem(r.Context(), h.sessionContext(r), productID)
	h.countMutation(r, "remove", res.Success)
	writeResult(w, res)
}

func (h *Handler) getCart(w http.ResponseWriter, r *http.Request) {
	c, err := h.carts.GetMyCart(r.Context(), h.sessionContext(r))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if c == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	var e jx.Encoder
	encodeCart(&e, c)
	writeJSON(w, http.StatusOK, &e)
}

func (h *Handler) countMutation(r *http.Request, op string, success bool) {
	if h.cfg.CartMutations == nil {
		return
	}
	h.cfg.CartMutations.Add(r.Context(), 1, metric.WithAttributes(
		attribute.String("operation", op),
		attribute.Bool("success", success),
	))
}

func encodeCart(e *jx.Encoder, c *cart.Cart) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("id", func(e *jx.Encoder) { e.Str(c.ID) })
		e.Field("items", func(e *jx.Encoder) {
			e.Arr(func(e *jx.Encoder) {
				for _, it := range c.Items {
					encodeCartItem(e, it)
				}
			})
		})
		e.Field("itemsPrice", func(e *jx.Encoder) { e.Str(cart.FormatPrice(c.Prices.ItemsPrice)) })
		e.Field("shippingPrice", func(e *jx.Encoder) { e.Str(cart.FormatPrice(c.Prices.ShippingPrice)) })
		e.Field("taxPrice", func(e *jx.Encoder) { e.Str(cart.FormatPrice(c.Prices.TaxPrice)) })
		e.Field("totalPrice", func(e *jx.Encoder) { e.Str(cart.FormatPrice(c.Prices.TotalPrice)) })
	})
}

func encodeCartItem(e *jx.Encoder, it cart.Item) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("productId", func(e *jx.Encoder) { e.Str(it.ProductID) })
		e.Field("name", func(e *jx.Encoder) { e.Str(it.Name) })
		e.Field("slug", func(e *jx.Encoder) { e.Str(it.Slug) })
		e.Field("quantity", func(e *jx.Encoder) { e.Int(it.Quantity) })
		e.Field("price", func(e *jx.Encoder) { e.Str(cart.FormatPrice(it.Price)) })
		if it.Image != "" {
			e.Field("image", func(e *jx.Encoder) { e.Str(it.Image) })
		}
	})
}
